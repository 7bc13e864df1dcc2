package api

import (
	"net/http"

	"backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) confirmEmail(c *gin.Context) {
	var req service.ConfirmEmailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.authService.ConfirmEmail(c.Request.Context(), &req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email confirmed"})
}

func (h *Handler) resendConfirmation(c *gin.Context) {
	var req service.ResendConfirmationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.authService.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Confirmation code sent"})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.authService.GetCurrentUser(c.Request.Context(), bearerToken(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.authService.ListCustomers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customers)
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	customer, err := h.authService.AdminCreateCustomer(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := h.parseID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.authService.AdminGetCustomer(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *Handler) updateCustomer(c *gin.Context) {
	id, ok := h.parseID(c, "customer")
	if !ok {
		return
	}

	var req service.CustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	customer, err := h.authService.AdminUpdateCustomer(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(c *gin.Context) {
	id, ok := h.parseID(c, "customer")
	if !ok {
		return
	}

	if err := h.authService.AdminDeleteCustomer(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	if claims := currentClaims(c); claims != nil {
		h.logger.Info("Customer removed by admin", zap.Int64("customer_id", id), zap.Int64("admin_id", claims.UserID))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted"})
}
