package store

import (
	"context"
	_ "embed"
	"fmt"

	"backoffice/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed seed/demo.yaml
var demoYAML []byte

// disabledPasswordHash is not a valid bcrypt hash, so seeded customers can
// never log in
const disabledPasswordHash = "!"

// SeedProduct is a catalog entry of the demo data set
type SeedProduct struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Description string `yaml:"description"`
	Barcode     string `yaml:"barcode"`
	Weight      string `yaml:"weight"`
	Origin      string `yaml:"origin"`
}

// SeedCustomer is a customer of the demo data set
type SeedCustomer struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

// SeedData is the demo data set
type SeedData struct {
	Products       []SeedProduct  `yaml:"products"`
	Customers      []SeedCustomer `yaml:"customers"`
	LegacyProducts []string       `yaml:"legacy_products"`
}

// LoadDemoData parses the embedded demo data set
func LoadDemoData() (*SeedData, error) {
	var data SeedData
	if err := yaml.Unmarshal(demoYAML, &data); err != nil {
		return nil, fmt.Errorf("failed to parse demo data: %w", err)
	}
	return &data, nil
}

// Seed inserts the demo catalog and customers. Products and customers that
// already exist by name or email are left alone, so seeding can be repeated.
func Seed(ctx context.Context, s Store, data *SeedData) error {
	for _, sp := range data.Products {
		exists, err := s.ProductNameExists(ctx, sp.Name)
		if err != nil {
			return fmt.Errorf("failed to look up product %q: %w", sp.Name, err)
		}
		if exists {
			continue
		}
		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return fmt.Errorf("invalid price for %q: %w", sp.Name, err)
		}
		category := sp.Category
		product := &models.Product{
			Name:        sp.Name,
			Category:    &category,
			Price:       price,
			Stock:       sp.Stock,
			Description: sp.Description,
			Barcode:     sp.Barcode,
			Weight:      sp.Weight,
			Origin:      sp.Origin,
			Brand:       models.DefaultBrand,
			Active:      true,
		}
		if err := s.CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", sp.Name, err)
		}
	}

	for _, sc := range data.Customers {
		exists, err := s.EmailExists(ctx, sc.Email)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		user := &models.User{
			Name:         sc.Name,
			Email:        sc.Email,
			Phone:        sc.Phone,
			PasswordHash: disabledPasswordHash,
			Role:         models.RoleCustomer,
		}
		if err := s.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to seed customer %q: %w", sc.Email, err)
		}
	}

	return nil
}

// CleanupResult counts the rows removed by CleanDemoData
type CleanupResult struct {
	Products int64
	Users    int64
	Orders   int64
}

// CleanDemoData removes the demo products, customers and their orders
func CleanDemoData(ctx context.Context, s Store, data *SeedData) (*CleanupResult, error) {
	productNames := append([]string{}, data.LegacyProducts...)
	for _, p := range data.Products {
		productNames = append(productNames, p.Name)
	}

	emails := make([]string, 0, len(data.Customers))
	customerNames := make([]string, 0, len(data.Customers))
	for _, c := range data.Customers {
		emails = append(emails, c.Email)
		customerNames = append(customerNames, c.Name)
	}

	var res CleanupResult
	var err error
	if res.Products, err = s.DeleteProductsByName(ctx, productNames); err != nil {
		return nil, fmt.Errorf("failed to delete demo products: %w", err)
	}
	if res.Users, err = s.DeleteUsersByEmail(ctx, emails); err != nil {
		return nil, fmt.Errorf("failed to delete demo customers: %w", err)
	}
	if res.Orders, err = s.DeleteOrdersByCustomerName(ctx, customerNames); err != nil {
		return nil, fmt.Errorf("failed to delete demo orders: %w", err)
	}
	return &res, nil
}
