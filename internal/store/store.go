package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"backoffice/internal/models"
)

// ErrNotFound is returned when a row addressed by id or key does not exist
var ErrNotFound = errors.New("record not found")

// ErrDuplicate matches any unique constraint violation
var ErrDuplicate = errors.New("duplicate key violation")

// DuplicateError reports which unique constraint was violated
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return "duplicate key violates " + e.Constraint
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Field returns the user column behind the constraint
func (e *DuplicateError) Field() string {
	switch {
	case strings.Contains(e.Constraint, "cpf"):
		return "cpf"
	case strings.Contains(e.Constraint, "email"):
		return "email"
	default:
		return ""
	}
}

// Constraint names as created by schema.sql
const (
	ConstraintUserEmail = "users_email_key"
	ConstraintUserCPF   = "users_cpf_key"
)

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CPFExists(ctx context.Context, cpf string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	UpdateUserCredentials(ctx context.Context, id int64, role, passwordHash string) error
	SetConfirmationCode(ctx context.Context, id int64, code string, expiry time.Time) error
	MarkEmailConfirmed(ctx context.Context, id int64, code string) (bool, error)
	DeleteUser(ctx context.Context, id int64) error
}

// ProductStore persists the catalog
type ProductStore interface {
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
	ListAllProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*models.Product, error)
}

// OrderStore persists orders with their items
type OrderStore interface {
	// CreateOrder inserts the order, its items and decrements product stock
	// as one unit of work
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, patch *models.OrderStatusPatch) (*models.Order, error)
	// DeleteOrder removes the order; its items go with it
	DeleteOrder(ctx context.Context, id int64) error
}

// DemoDataStore removes rows created from the demo seed
type DemoDataStore interface {
	ProductNameExists(ctx context.Context, name string) (bool, error)
	DeleteProductsByName(ctx context.Context, names []string) (int64, error)
	DeleteUsersByEmail(ctx context.Context, emails []string) (int64, error)
	DeleteOrdersByCustomerName(ctx context.Context, names []string) (int64, error)
}

// Store is the persistence boundary used by the services
type Store interface {
	UserStore
	ProductStore
	OrderStore
	DemoDataStore

	Ping(ctx context.Context) error
	Close() error
}
