package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"backoffice/internal/apperr"
	"backoffice/internal/service"
	"backoffice/internal/upload"
	"backoffice/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP surface
type Options struct {
	// EnforceAdminAuth requires an admin bearer token on admin routes
	EnforceAdminAuth bool
	CORSOrigins      []string
}

// Handler contains HTTP handlers
type Handler struct {
	authService    *service.AuthService
	catalogService *service.CatalogService
	orderService   *service.OrderService
	uploads        *upload.LocalStorage
	store          Pinger
	opts           Options
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler. uploads may be nil, which disables
// the upload route.
func NewHandler(
	authService *service.AuthService,
	catalogService *service.CatalogService,
	orderService *service.OrderService,
	uploads *upload.LocalStorage,
	store Pinger,
	opts Options,
) *Handler {
	return &Handler{
		authService:    authService,
		catalogService: catalogService,
		orderService:   orderService,
		uploads:        uploads,
		store:          store,
		opts:           opts,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(h.opts.CORSOrigins))
	router.Use(tracingMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.uploads != nil {
		router.Static("/uploads", h.uploads.Dir())
	}

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/confirm-email", h.confirmEmail)
		authGroup.POST("/resend-confirmation", h.resendConfirmation)
		authGroup.GET("/me", h.me)
		authGroup.POST("/logout", h.logout)
		authGroup.GET("/users", h.requireAdmin(), h.listCustomers)

		customers := authGroup.Group("/admin/customers", h.requireAdmin())
		customers.POST("", h.createCustomer)
		customers.GET("/:id", h.getCustomer)
		customers.PUT("/:id", h.updateCustomer)
		customers.DELETE("/:id", h.deleteCustomer)
	}

	products := api.Group("/products")
	{
		products.GET("", h.listActiveProducts)
		products.GET("/admin/all", h.requireAdmin(), h.listAllProducts)
		products.GET("/:id", h.getProduct)
		products.POST("", h.requireAdmin(), h.createProduct)
		products.PUT("/:id", h.requireAdmin(), h.updateProduct)
		products.DELETE("/:id", h.requireAdmin(), h.deleteProduct)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", h.createOrder)
		orders.GET("", h.requireAdmin(), h.listOrders)
		orders.GET("/:id", h.requireAdmin(), h.getOrder)
		orders.PUT("/:id", h.requireAdmin(), h.updateOrder)
		orders.DELETE("/:id", h.requireAdmin(), h.deleteOrder)
	}

	api.POST("/upload", h.requireAdmin(), h.uploadImage)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError writes err as {"error": msg}. Internal causes are logged,
// never returned.
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("Server error", err)
	}

	status := appErr.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		util.LoggerFromContext(c.Request.Context()).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	message := appErr.Message
	if message == "" {
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// bindJSON decodes the body into req and answers 400 when the body is
// malformed or breaks a binding rule of req
func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, service.BindingError(req, err))
		return false
	}
	return true
}

func (h *Handler) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

// parseID reads the :id path parameter
func (h *Handler) parseID(c *gin.Context, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "Invalid "+resource+" ID")
		return 0, false
	}
	return id, true
}
