package store

import (
	"context"
	"fmt"

	"backoffice/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const orderSelect = `
	SELECT o.id, o.customer_name, o.customer_email, o.customer_phone, o.customer_cpf,
		o.customer_address, o.subtotal, o.frete, o.total, o.payment_method, o.status,
		o.payment_status, o.created_at,
		COALESCE(
			json_agg(json_build_object('product_id', oi.product_id, 'quantity', oi.quantity, 'price', oi.price)
				ORDER BY oi.id) FILTER (WHERE oi.order_id IS NOT NULL),
			'[]'::json) AS items
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id`

// CreateOrder inserts the order row, its items and the stock decrements in a
// single transaction
func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (customer_name, customer_email, customer_phone, customer_cpf, customer_address,
			subtotal, frete, total, payment_method, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.CustomerCPF, order.CustomerAddress,
		order.Subtotal, order.ShippingFee, order.Total, order.PaymentMethod, order.Status, order.PaymentStatus)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)",
			item.OrderID, item.ProductID, item.Quantity, item.Price); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		// No floor: stock may go negative.
		if _, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1 WHERE id = $2",
			item.Quantity, item.ProductID); err != nil {
			return fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
		}
	}

	return tx.Commit()
}

// ListOrders returns all orders newest first with their items
func (s *PostgresStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		orderSelect+" GROUP BY o.id ORDER BY o.created_at DESC, o.id DESC")
	return orders, err
}

// GetOrderByID retrieves an order with its items
func (s *PostgresStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, orderSelect+" WHERE o.id = $1 GROUP BY o.id", id)
	if err != nil {
		return nil, classify(err)
	}
	return &order, nil
}

// UpdateOrderStatus sets the status fields present in patch
func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id int64, patch *models.OrderStatusPatch) (*models.Order, error) {
	if patch.Status != nil || patch.PaymentStatus != nil {
		update := s.sb.Update("orders").Where(sq.Eq{"id": id})
		if patch.Status != nil {
			update = update.Set("status", *patch.Status)
		}
		if patch.PaymentStatus != nil {
			update = update.Set("payment_status", *patch.PaymentStatus)
		}

		query, args, err := update.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build order update: %w", err)
		}

		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if err := requireAffected(res); err != nil {
			return nil, err
		}
	}

	return s.GetOrderByID(ctx, id)
}

// DeleteOrder hard-deletes an order; order_items cascade
func (s *PostgresStore) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteOrdersByCustomerName removes orders placed under the given names
func (s *PostgresStore) DeleteOrdersByCustomerName(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE customer_name = ANY($1)", pq.Array(names))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
