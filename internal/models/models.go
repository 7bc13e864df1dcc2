package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The admin client reads prices as numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultBrand is applied to products created without a brand
const DefaultBrand = "Cia. Condimentos e Especiarias"

// User roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Order statuses. The status column is free text; these are the values the
// admin dashboard offers.
const (
	OrderStatusPending    = "Pendente"
	OrderStatusProcessing = "Processando"
	OrderStatusShipped    = "Enviado"
	OrderStatusDelivered  = "Entregue"
	OrderStatusCancelled  = "Cancelado"
)

// Payment statuses
const (
	PaymentStatusAwaiting = "Aguardando"
	PaymentStatusPending  = "Pendente"
	PaymentStatusPaid     = "Pago"
	PaymentStatusRefunded = "Estornado"
)

// User represents a customer or admin account
type User struct {
	ID                 int64      `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	CPF                *string    `db:"cpf" json:"cpf"`
	Phone              string     `db:"phone" json:"phone"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Role               string     `db:"role" json:"role"`
	EmailConfirmed     bool       `db:"email_confirmed" json:"email_confirmed"`
	ConfirmationCode   *string    `db:"email_confirmation_code" json:"-"`
	ConfirmationExpiry *time.Time `db:"email_confirmation_expires" json:"-"`
	Address            string     `db:"address" json:"address"`
	City               string     `db:"city" json:"city"`
	State              string     `db:"state" json:"state"`
	Zip                string     `db:"zip" json:"zip"`
	Notes              string     `db:"notes" json:"notes"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// PublicUser is the projection of a user that is safe to return to clients
type PublicUser struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CPF            *string   `json:"cpf"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	EmailConfirmed bool      `json:"email_confirmed"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Zip            string    `json:"zip"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Public drops credential and confirmation material
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		CPF:            u.CPF,
		Phone:          u.Phone,
		Email:          u.Email,
		Role:           u.Role,
		EmailConfirmed: u.EmailConfirmed,
		Address:        u.Address,
		City:           u.City,
		State:          u.State,
		Zip:            u.Zip,
		Notes:          u.Notes,
		CreatedAt:      u.CreatedAt,
	}
}

// Product represents a catalog entry
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Category    *string         `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Description string          `db:"description" json:"description"`
	Image       string          `db:"image" json:"image"`
	Barcode     string          `db:"barcode" json:"barcode"`
	SKU         string          `db:"sku" json:"sku"`
	Weight      string          `db:"weight" json:"weight"`
	Origin      string          `db:"origin" json:"origin"`
	Brand       string          `db:"brand" json:"brand"`
	Expiry      string          `db:"expiry" json:"expiry"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// ProductPatch carries a partial product update; nil fields keep their value
type ProductPatch struct {
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Barcode     *string          `json:"barcode"`
	SKU         *string          `json:"sku"`
	Weight      *string          `json:"weight"`
	Origin      *string          `json:"origin"`
	Brand       *string          `json:"brand"`
	Expiry      *string          `json:"expiry"`
	Active      *bool            `json:"active"`
}

// IsEmpty reports whether the patch changes nothing
func (p *ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil && p.Stock == nil &&
		p.Description == nil && p.Image == nil && p.Barcode == nil && p.SKU == nil &&
		p.Weight == nil && p.Origin == nil && p.Brand == nil && p.Expiry == nil &&
		p.Active == nil
}

// Apply copies the set fields of the patch onto product
func (p *ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Category != nil {
		c := *p.Category
		product.Category = &c
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Barcode != nil {
		product.Barcode = *p.Barcode
	}
	if p.SKU != nil {
		product.SKU = *p.SKU
	}
	if p.Weight != nil {
		product.Weight = *p.Weight
	}
	if p.Origin != nil {
		product.Origin = *p.Origin
	}
	if p.Brand != nil {
		product.Brand = *p.Brand
	}
	if p.Expiry != nil {
		product.Expiry = *p.Expiry
	}
	if p.Active != nil {
		product.Active = *p.Active
	}
}

// Order represents a placed order with a snapshot of the customer
type Order struct {
	ID              int64           `db:"id" json:"id"`
	CustomerName    string          `db:"customer_name" json:"customer_name"`
	CustomerEmail   string          `db:"customer_email" json:"customer_email"`
	CustomerPhone   string          `db:"customer_phone" json:"customer_phone"`
	CustomerCPF     string          `db:"customer_cpf" json:"customer_cpf"`
	CustomerAddress string          `db:"customer_address" json:"customer_address"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingFee     decimal.Decimal `db:"frete" json:"frete"`
	Total           decimal.Decimal `db:"total" json:"total"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	Status          string          `db:"status" json:"status"`
	PaymentStatus   string          `db:"payment_status" json:"payment_status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	Items           OrderItems      `db:"items" json:"items"`
}

// OrderItem represents a line of an order
type OrderItem struct {
	OrderID   int64           `db:"order_id" json:"-"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// OrderItems is the aggregated item list of an order. It scans from the JSON
// array produced by json_agg.
type OrderItems []OrderItem

// Scan implements sql.Scanner
func (oi *OrderItems) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*oi = OrderItems{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into OrderItems", src)
	}

	items := OrderItems{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("failed to decode order items: %w", err)
	}
	*oi = items
	return nil
}

// OrderStatusPatch carries a partial status update
type OrderStatusPatch struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}
