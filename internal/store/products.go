package store

import (
	"context"
	"fmt"

	"backoffice/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const productColumns = `id, name, category, price, stock, description, image, barcode, sku,
	weight, origin, brand, expiry, active, created_at`

// ListActiveProducts retrieves the products visible to shoppers
func (s *PostgresStore) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products WHERE active = TRUE ORDER BY id")
	return products, err
}

// ListAllProducts retrieves every product, newest id first
func (s *PostgresStore) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products ORDER BY id DESC")
	return products, err
}

// GetProductByID retrieves a product by ID
func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// CreateProduct inserts a product and reads back the stored row
func (s *PostgresStore) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, category, price, stock, description, image, barcode, sku,
			weight, origin, brand, expiry, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + productColumns

	return s.db.GetContext(ctx, product, query,
		product.Name, product.Category, product.Price, product.Stock, product.Description,
		product.Image, product.Barcode, product.SKU, product.Weight, product.Origin,
		product.Brand, product.Expiry, product.Active)
}

// UpdateProduct sets only the fields present in patch
func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error) {
	if patch.IsEmpty() {
		return s.GetProductByID(ctx, id)
	}

	set := map[string]interface{}{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.Barcode != nil {
		set["barcode"] = *patch.Barcode
	}
	if patch.SKU != nil {
		set["sku"] = *patch.SKU
	}
	if patch.Weight != nil {
		set["weight"] = *patch.Weight
	}
	if patch.Origin != nil {
		set["origin"] = *patch.Origin
	}
	if patch.Brand != nil {
		set["brand"] = *patch.Brand
	}
	if patch.Expiry != nil {
		set["expiry"] = *patch.Expiry
	}
	if patch.Active != nil {
		set["active"] = *patch.Active
	}

	query, args, err := s.sb.Update("products").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + productColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build product update: %w", err)
	}

	var product models.Product
	if err := s.db.GetContext(ctx, &product, query, args...); err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// DeleteProduct hard-deletes a product and returns the removed row
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"DELETE FROM products WHERE id = $1 RETURNING "+productColumns, id)
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// ProductNameExists checks whether a product is already called name
func (s *PostgresStore) ProductNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)", name)
	return exists, err
}

// DeleteProductsByName removes the products with the given names
func (s *PostgresStore) DeleteProductsByName(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE name = ANY($1)", pq.Array(names))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
