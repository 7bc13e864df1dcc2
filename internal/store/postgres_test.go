package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"backoffice/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresStoreFromDB(sqlx.NewDb(db, "postgres")), mock
}

var productRowColumns = []string{
	"id", "name", "category", "price", "stock", "description", "image", "barcode", "sku",
	"weight", "origin", "brand", "expiry", "active", "created_at",
}

func TestGetProductByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetProductByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductOnlyTouchesPatchedColumns(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE products SET price = \$1 WHERE id = \$2 RETURNING`).
		WithArgs(sqlmock.AnyArg(), int64(3)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(int64(3), "Canela em Pau", "Especiarias", "5.00", 50, "", "", "", "", "100g", "Sri Lanka",
				models.DefaultBrand, "", true, now))

	price := decimal.NewFromInt(5)
	product, err := s.UpdateProduct(context.Background(), 3, &models.ProductPatch{Price: &price})
	require.NoError(t, err)
	assert.True(t, product.Price.Equal(price))
	assert.Equal(t, 50, product.Stock)
	assert.Equal(t, "Canela em Pau", product.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE products SET name = \$1 WHERE id = \$2`).
		WithArgs("Sal", int64(42)).
		WillReturnError(sql.ErrNoRows)

	name := "Sal"
	_, err := s.UpdateProduct(context.Background(), 42, &models.ProductPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderCommitsAllSteps(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(int64(11), int64(7), 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1 WHERE id = \$2`).
		WithArgs(3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order := &models.Order{
		CustomerName: "Ana",
		Status:       models.OrderStatusPending,
		Items: models.OrderItems{
			{ProductID: 7, Quantity: 3, Price: decimal.NewFromInt(10)},
		},
	}

	require.NoError(t, s.CreateOrder(context.Background(), order))
	assert.Equal(t, int64(11), order.ID)
	assert.Equal(t, int64(11), order.Items[0].OrderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRollsBackOnStockFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(12), time.Now()))
	mock.ExpectExec(`INSERT INTO order_items`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE products SET stock`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	order := &models.Order{
		CustomerName: "Ana",
		Items:        models.OrderItems{{ProductID: 7, Quantity: 1, Price: decimal.NewFromInt(10)}},
	}

	err := s.CreateOrder(context.Background(), order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product 7")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersDecodesAggregatedItems(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	columns := []string{
		"id", "customer_name", "customer_email", "customer_phone", "customer_cpf", "customer_address",
		"subtotal", "frete", "total", "payment_method", "status", "payment_status", "created_at", "items",
	}
	mock.ExpectQuery(`LEFT JOIN order_items oi ON o.id = oi.order_id`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), "Ana", "ana@x.com", "999", "111", "Rua A, 1", "30.00", "0.00", "30.00", "pix",
				"Pendente", "Aguardando", now, []byte(`[{"product_id":7,"quantity":3,"price":10.00}]`)).
			AddRow(int64(1), "Bia", "", "888", "", "Rua B, 2", "0.00", "5.00", "5.00", "pix",
				"Pendente", "Aguardando", now, []byte(`[]`)))

	orders, err := s.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, int64(7), orders[0].Items[0].ProductID)
	assert.Equal(t, 3, orders[0].Items[0].Quantity)
	assert.True(t, orders[0].Items[0].Price.Equal(decimal.NewFromInt(10)))

	assert.NotNil(t, orders[1].Items)
	assert.Empty(t, orders[1].Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE orders SET status = \$1 WHERE id = \$2`).
		WithArgs("Enviado", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	status := "Enviado"
	_, err := s.UpdateOrderStatus(context.Background(), 5, &models.OrderStatusPatch{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: ConstraintUserEmail})

	err := s.CreateUser(context.Background(), &models.User{Name: "Ana", Email: "ana@x.com"})
	require.ErrorIs(t, err, ErrDuplicate)

	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteUser(context.Background(), 77), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrderNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM orders WHERE id = \$1`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteOrder(context.Background(), 12), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEmailConfirmedIsConditional(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`WHERE id = \$1 AND email_confirmed = FALSE AND email_confirmation_code = \$2`).
		WithArgs(int64(1), "123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE id = \$1 AND email_confirmed = FALSE AND email_confirmation_code = \$2`).
		WithArgs(int64(1), "123456").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.MarkEmailConfirmed(context.Background(), 1, "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkEmailConfirmed(context.Background(), 1, "123456")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppliesSchema(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
