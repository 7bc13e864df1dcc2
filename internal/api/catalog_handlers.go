package api

import (
	"errors"
	"net/http"

	"backoffice/internal/models"
	"backoffice/internal/service"
	"backoffice/internal/upload"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) listActiveProducts(c *gin.Context) {
	products, err := h.catalogService.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) listAllProducts(c *gin.Context) {
	products, err := h.catalogService.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := h.parseID(c, "product")
	if !ok {
		return
	}

	product, err := h.catalogService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := h.parseID(c, "product")
	if !ok {
		return
	}

	var patch models.ProductPatch
	if !h.bindJSON(c, &patch) {
		return
	}

	product, err := h.catalogService.Update(c.Request.Context(), id, &patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := h.parseID(c, "product")
	if !ok {
		return
	}

	product, err := h.catalogService.Delete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted", "product": product})
}

// uploadImage stores the multipart field "image" and returns its URL
func (h *Handler) uploadImage(c *gin.Context) {
	if h.uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Uploads disabled"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, upload.MaxFileSize+1<<20)
	file, err := c.FormFile("image")
	if err != nil {
		h.badRequest(c, "Nenhum arquivo enviado")
		return
	}

	url, err := h.uploads.Save(file)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			h.badRequest(c, "Unsupported file type")
		case errors.Is(err, upload.ErrTooLarge):
			h.badRequest(c, "File too large")
		default:
			h.respondError(c, err)
		}
		return
	}

	h.logger.Info("Image uploaded", zap.String("url", url))
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}
