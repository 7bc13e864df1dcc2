package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"backoffice/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryProductListing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	for i, active := range []bool{true, false, true} {
		p := &models.Product{Name: string(rune('A' + i)), Price: decimal.NewFromInt(1), Active: active}
		require.NoError(t, m.CreateProduct(ctx, p))
	}

	active, err := m.ListActiveProducts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].ID)
	assert.Equal(t, int64(3), active[1].ID)

	all, err := m.ListAllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID)
	assert.Equal(t, int64(1), all[2].ID)
}

func TestMemoryUpdateProductCoalesces(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	p := &models.Product{Name: "Cominho", Category: strPtr("Especiarias"), Price: decimal.NewFromInt(9), Stock: 4, Active: true}
	require.NoError(t, m.CreateProduct(ctx, p))

	price := decimal.NewFromInt(5)
	updated, err := m.UpdateProduct(ctx, p.ID, &models.ProductPatch{Price: &price})
	require.NoError(t, err)

	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, "Cominho", updated.Name)
	assert.Equal(t, "Especiarias", *updated.Category)
	assert.Equal(t, 4, updated.Stock)
	assert.True(t, updated.Active)

	_, err = m.UpdateProduct(ctx, 999, &models.ProductPatch{Price: &price})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCreateOrderDecrementsStockPastZero(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	p := &models.Product{Name: "Manjericão", Price: decimal.NewFromInt(10), Stock: 2, Active: true}
	require.NoError(t, m.CreateProduct(ctx, p))

	order := &models.Order{
		CustomerName: "Ana",
		Items:        models.OrderItems{{ProductID: p.ID, Quantity: 3, Price: decimal.NewFromInt(10)}},
	}
	require.NoError(t, m.CreateOrder(ctx, order))

	stored, err := m.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, stored.Stock)

	got, err := m.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, order.ID, got.Items[0].OrderID)
}

func TestMemoryOrderWithoutItems(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.CreateOrder(ctx, &models.Order{CustomerName: "Ana"}))

	orders, err := m.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.NotNil(t, orders[0].Items)
	assert.Empty(t, orders[0].Items)
}

func TestMemoryListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	require.NoError(t, m.CreateOrder(ctx, &models.Order{CustomerName: "first"}))
	require.NoError(t, m.CreateOrder(ctx, &models.Order{CustomerName: "second"}))

	orders, err := m.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "second", orders[0].CustomerName)
}

func TestMemoryUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.CreateUser(ctx, &models.User{Name: "Ana", Email: "ana@x.com", CPF: strPtr("111")}))

	err := m.CreateUser(ctx, &models.User{Name: "Ana 2", Email: "ana@x.com"})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field())

	err = m.CreateUser(ctx, &models.User{Name: "Bia", Email: "bia@x.com", CPF: strPtr("111")})
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "cpf", dup.Field())

	// Users without email or cpf never collide.
	require.NoError(t, m.CreateUser(ctx, &models.User{Name: "Sem email"}))
	require.NoError(t, m.CreateUser(ctx, &models.User{Name: "Sem email 2"}))
}

func TestMemoryConfirmationCodeLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	u := &models.User{Name: "Ana", Email: "ana@x.com"}
	require.NoError(t, m.CreateUser(ctx, u))
	require.NoError(t, m.SetConfirmationCode(ctx, u.ID, "123456", time.Now().Add(time.Hour)))

	ok, err := m.MarkEmailConfirmed(ctx, u.ID, "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.MarkEmailConfirmed(ctx, u.ID, "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailConfirmed)
	assert.Nil(t, stored.ConfirmationCode)
	assert.Nil(t, stored.ConfirmationExpiry)
}

func TestMemoryDeleteMissingRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	assert.ErrorIs(t, m.DeleteUser(ctx, 1), ErrNotFound)
	_, err := m.DeleteProduct(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetOrderByID(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteOrder(ctx, 1), ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	p := &models.Product{Name: "Sal", Price: decimal.NewFromInt(3), Stock: 1}
	require.NoError(t, m.CreateProduct(ctx, p))

	got, err := m.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	got.Stock = 100

	again, err := m.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Stock)
}
