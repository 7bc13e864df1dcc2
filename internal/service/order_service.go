package service

import (
	"context"
	"strings"
	"time"

	"backoffice/internal/apperr"
	"backoffice/internal/models"
	"backoffice/internal/store"
	"backoffice/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService struct {
	orders store.OrderStore
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(orders store.OrderStore) *OrderService {
	return &OrderService{
		orders: orders,
		logger: util.GetLogger(),
	}
}

// CustomerSnapshot is the customer data copied onto the order
type CustomerSnapshot struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone" binding:"required"`
	CPF     string `json:"cpf"`
	Address string `json:"address" binding:"required"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID int64           `json:"id"`
	Quantity  int             `json:"qty" binding:"gt=0"`
	Price     decimal.Decimal `json:"price"`
}

// CreateOrderRequest represents a request to create an order. Amounts are
// taken as supplied.
type CreateOrderRequest struct {
	Customer      *CustomerSnapshot  `json:"customer" binding:"required"`
	Items         []OrderItemRequest `json:"items" binding:"required,dive"`
	Subtotal      *decimal.Decimal   `json:"subtotal" binding:"required"`
	ShippingFee   *decimal.Decimal   `json:"frete" binding:"required"`
	Total         *decimal.Decimal   `json:"total" binding:"required"`
	PaymentMethod string             `json:"payment"`
	Status        string             `json:"status"`
	PaymentStatus string             `json:"paymentStatus"`
}

// bindingMessage reports absent order fields ahead of customer fields, and
// customer fields ahead of item rules
func (r *CreateOrderRequest) bindingMessage(errs validator.ValidationErrors) string {
	msg := msgInvalidItem
	for _, fe := range errs {
		ns := fe.StructNamespace()
		switch {
		case strings.Contains(ns, ".Items["):
		case strings.Contains(ns, ".Customer."):
			msg = msgMissingCustomer
		default:
			return msgMissingRequired
		}
	}
	return msg
}

func (r *CreateOrderRequest) validate() error {
	if err := checkBinding(r); err != nil {
		return err
	}
	c := r.Customer
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" || strings.TrimSpace(c.Address) == "" {
		return apperr.Validation(msgMissingCustomer)
	}
	for _, item := range r.Items {
		if item.Price.IsNegative() {
			return apperr.Validation(msgInvalidItem)
		}
	}
	return nil
}

// CreateOrder stores the order and its items and decrements stock for every
// item in a single unit of work
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (_ *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer func() { util.EndSpan(span, err) }()

	if err := req.validate(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	order := &models.Order{
		CustomerName:    strings.TrimSpace(req.Customer.Name),
		CustomerEmail:   strings.TrimSpace(req.Customer.Email),
		CustomerPhone:   strings.TrimSpace(req.Customer.Phone),
		CustomerCPF:     strings.TrimSpace(req.Customer.CPF),
		CustomerAddress: strings.TrimSpace(req.Customer.Address),
		Subtotal:        *req.Subtotal,
		ShippingFee:     *req.ShippingFee,
		Total:           *req.Total,
		PaymentMethod:   req.PaymentMethod,
		Status:          req.Status,
		PaymentStatus:   req.PaymentStatus,
		Items:           make(models.OrderItems, 0, len(req.Items)),
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusAwaiting
	}

	units := 0
	for _, item := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		units += item.Quantity
	}

	start := time.Now()
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, apperr.Internal("Failed to create order", err)
	}
	util.OrderCreateLatency.Observe(time.Since(start).Seconds())

	util.OrdersCreatedTotal.Inc()
	util.StockUnitsSoldTotal.Add(float64(units))
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)))

	return order, nil
}

// ListOrders returns all orders newest first with their items
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch orders", err)
	}
	return orders, nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, storeError(err, msgOrderNotFound)
	}
	return order, nil
}

// UpdateOrderStatus changes status and/or payment status. Any status may
// follow any other.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, patch *models.OrderStatusPatch) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	order, err := s.orders.UpdateOrderStatus(ctx, id, patch)
	if err != nil {
		return nil, storeError(err, msgOrderNotFound)
	}

	if patch.Status != nil {
		util.OrderStatusUpdatesTotal.WithLabelValues(statusLabel(*patch.Status)).Inc()
	}
	s.logger.Info("Order status updated",
		zap.Int64("order_id", id),
		zap.String("status", order.Status),
		zap.String("payment_status", order.PaymentStatus))

	return order, nil
}

// DeleteOrder removes an order and its items. Stock is not restored.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	if err := s.orders.DeleteOrder(ctx, id); err != nil {
		return storeError(err, msgOrderNotFound)
	}

	s.logger.Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

// statusLabel keeps the metric label set bounded; status is free text
func statusLabel(status string) string {
	switch status {
	case models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
		return status
	default:
		return "other"
	}
}
