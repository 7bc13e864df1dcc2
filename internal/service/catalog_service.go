package service

import (
	"context"
	"strings"

	"backoffice/internal/apperr"
	"backoffice/internal/models"
	"backoffice/internal/store"
	"backoffice/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles product business logic
type CatalogService struct {
	products store.ProductStore
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products store.ProductStore) *CatalogService {
	return &CatalogService{
		products: products,
		logger:   util.GetLogger(),
	}
}

// CreateProductRequest represents a new catalog entry
type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Stock       *int             `json:"stock" binding:"required"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Barcode     string           `json:"barcode"`
	SKU         string           `json:"sku"`
	Weight      string           `json:"weight"`
	Origin      string           `json:"origin"`
	Brand       string           `json:"brand"`
	Expiry      string           `json:"expiry"`
	Active      *bool            `json:"active"`
}

func (r *CreateProductRequest) bindingMessage(validator.ValidationErrors) string {
	return msgMissingRequired
}

// ListActive returns the products visible to shoppers, by id ascending
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListActive")
	defer span.End()

	products, err := s.products.ListActiveProducts(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch products", err)
	}
	return products, nil
}

// ListAll returns every product including inactive ones, by id descending
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListAll")
	defer span.End()

	products, err := s.products.ListAllProducts(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch products", err)
	}
	return products, nil
}

// GetByID retrieves a single product
func (s *CatalogService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetByID")
	defer span.End()

	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, storeError(err, msgProductNotFound)
	}
	return product, nil
}

// Create validates and inserts a product, applying the brand and active
// defaults
func (s *CatalogService) Create(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Create")
	defer span.End()

	if err := checkBinding(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation(msgMissingRequired)
	}
	if req.Price.IsNegative() {
		return nil, apperr.Validation("Price must not be negative")
	}

	product := &models.Product{
		Name:        name,
		Category:    req.Category,
		Price:       *req.Price,
		Stock:       *req.Stock,
		Description: req.Description,
		Image:       req.Image,
		Barcode:     req.Barcode,
		SKU:         req.SKU,
		Weight:      req.Weight,
		Origin:      req.Origin,
		Brand:       req.Brand,
		Expiry:      req.Expiry,
		Active:      true,
	}
	if strings.TrimSpace(product.Brand) == "" {
		product.Brand = models.DefaultBrand
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, apperr.Internal("Failed to create product", err)
	}

	util.CatalogMutationsTotal.WithLabelValues("create").Inc()
	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

// Update applies a partial update; omitted fields keep their value
func (s *CatalogService) Update(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Update")
	defer span.End()

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation("Name must not be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, apperr.Validation("Price must not be negative")
	}

	product, err := s.products.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, storeError(err, msgProductNotFound)
	}

	util.CatalogMutationsTotal.WithLabelValues("update").Inc()
	s.logger.Info("Product updated", zap.Int64("product_id", id))
	return product, nil
}

// Delete hard-deletes a product and returns it. Existing order items keep
// pointing at the id.
func (s *CatalogService) Delete(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Delete")
	defer span.End()

	product, err := s.products.DeleteProduct(ctx, id)
	if err != nil {
		return nil, storeError(err, msgProductNotFound)
	}

	util.CatalogMutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return product, nil
}
