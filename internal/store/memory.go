package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"backoffice/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store in process memory. It backs local
// development and tests; all data is lost on exit.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[int64]*models.User
	products map[int64]*models.Product
	orders   map[int64]*models.Order

	nextUserID    int64
	nextProductID int64
	nextOrderID   int64

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*models.User),
		products: make(map[int64]*models.Product),
		orders:   make(map[int64]*models.Order),
		now:      time.Now,
	}
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.CPF != nil {
		v := *u.CPF
		c.CPF = &v
	}
	if u.ConfirmationCode != nil {
		v := *u.ConfirmationCode
		c.ConfirmationCode = &v
	}
	if u.ConfirmationExpiry != nil {
		v := *u.ConfirmationExpiry
		c.ConfirmationExpiry = &v
	}
	return &c
}

func copyProduct(p *models.Product) *models.Product {
	c := *p
	if p.Category != nil {
		v := *p.Category
		c.Category = &v
	}
	return &c
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append(models.OrderItems{}, o.Items...)
	return &c
}

// uniqueViolation checks the email and cpf constraints, skipping the row
// with id skip
func (m *MemoryStore) uniqueViolation(email string, cpf *string, skip int64) error {
	for id, u := range m.users {
		if id == skip {
			continue
		}
		if email != "" && u.Email == email {
			return &DuplicateError{Constraint: ConstraintUserEmail}
		}
		if cpf != nil && u.CPF != nil && *u.CPF == *cpf {
			return &DuplicateError{Constraint: ConstraintUserCPF}
		}
	}
	return nil
}

// CreateUser inserts a user
func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.uniqueViolation(user.Email, user.CPF, 0); err != nil {
		return err
	}

	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = m.now()
	m.users[user.ID] = copyUser(user)
	return nil
}

// GetUserByID retrieves a user by ID
func (m *MemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// GetUserByEmail retrieves a user by email
func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if email != "" && u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// EmailExists checks whether an account uses email
func (m *MemoryStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetUserByEmail(ctx, email)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// CPFExists checks whether an account uses cpf
func (m *MemoryStore) CPFExists(ctx context.Context, cpf string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.CPF != nil && *u.CPF == cpf {
			return true, nil
		}
	}
	return false, nil
}

// ListUsers returns all users, newest first
func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// UpdateUserProfile overwrites the profile fields of a user
func (m *MemoryStore) UpdateUserProfile(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if err := m.uniqueViolation(user.Email, user.CPF, user.ID); err != nil {
		return err
	}

	updated := copyUser(user)
	u.Name = updated.Name
	u.Email = updated.Email
	u.Phone = updated.Phone
	u.CPF = updated.CPF
	u.Address = updated.Address
	u.City = updated.City
	u.State = updated.State
	u.Zip = updated.Zip
	u.Notes = updated.Notes
	return nil
}

// UpdateUserCredentials replaces role and password hash
func (m *MemoryStore) UpdateUserCredentials(ctx context.Context, id int64, role, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.PasswordHash = passwordHash
	return nil
}

// SetConfirmationCode replaces the active confirmation code
func (m *MemoryStore) SetConfirmationCode(ctx context.Context, id int64, code string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.ConfirmationCode = &code
	u.ConfirmationExpiry = &expiry
	return nil
}

// MarkEmailConfirmed confirms the email if code is still the active one
func (m *MemoryStore) MarkEmailConfirmed(ctx context.Context, id int64, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.EmailConfirmed || u.ConfirmationCode == nil || *u.ConfirmationCode != code {
		return false, nil
	}
	u.EmailConfirmed = true
	u.ConfirmationCode = nil
	u.ConfirmationExpiry = nil
	return true, nil
}

// DeleteUser hard-deletes a user
func (m *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// DeleteUsersByEmail removes the users with the given emails
func (m *MemoryStore) DeleteUsersByEmail(ctx context.Context, emails []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := toSet(emails)
	var n int64
	for id, u := range m.users {
		if _, ok := want[u.Email]; ok && u.Email != "" {
			delete(m.users, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) listProducts(keep func(*models.Product) bool, less func(a, b int64) bool) []models.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		if keep(p) {
			products = append(products, *copyProduct(p))
		}
	}
	sort.Slice(products, func(i, j int) bool {
		return less(products[i].ID, products[j].ID)
	})
	return products
}

// ListActiveProducts retrieves the products visible to shoppers
func (m *MemoryStore) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	return m.listProducts(
		func(p *models.Product) bool { return p.Active },
		func(a, b int64) bool { return a < b },
	), nil
}

// ListAllProducts retrieves every product, newest id first
func (m *MemoryStore) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	return m.listProducts(
		func(p *models.Product) bool { return true },
		func(a, b int64) bool { return a > b },
	), nil
}

// GetProductByID retrieves a product by ID
func (m *MemoryStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProduct(p), nil
}

// CreateProduct inserts a product
func (m *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextProductID++
	product.ID = m.nextProductID
	product.CreatedAt = m.now()
	m.products[product.ID] = copyProduct(product)
	return nil
}

// UpdateProduct sets only the fields present in patch
func (m *MemoryStore) UpdateProduct(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(p)
	return copyProduct(p), nil
}

// DeleteProduct hard-deletes a product and returns the removed row
func (m *MemoryStore) DeleteProduct(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.products, id)
	return p, nil
}

// ProductNameExists checks whether a product is already called name
func (m *MemoryStore) ProductNameExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.products {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// DeleteProductsByName removes the products with the given names
func (m *MemoryStore) DeleteProductsByName(ctx context.Context, names []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := toSet(names)
	var n int64
	for id, p := range m.products {
		if _, ok := want[p.Name]; ok {
			delete(m.products, id)
			n++
		}
	}
	return n, nil
}

// CreateOrder stores the order and decrements stock under one lock
func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextOrderID++
	order.ID = m.nextOrderID
	order.CreatedAt = m.now()
	if order.Items == nil {
		order.Items = models.OrderItems{}
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if p, ok := m.products[order.Items[i].ProductID]; ok {
			p.Stock -= order.Items[i].Quantity
		}
	}
	m.orders[order.ID] = copyOrder(order)
	return nil
}

// ListOrders returns all orders newest first with their items
func (m *MemoryStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		orders = append(orders, *copyOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// GetOrderByID retrieves an order with its items
func (m *MemoryStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

// UpdateOrderStatus sets the status fields present in patch
func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, id int64, patch *models.OrderStatusPatch) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	return copyOrder(o), nil
}

// DeleteOrder hard-deletes an order with its items
func (m *MemoryStore) DeleteOrder(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

// DeleteOrdersByCustomerName removes orders placed under the given names
func (m *MemoryStore) DeleteOrdersByCustomerName(ctx context.Context, names []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := toSet(names)
	var n int64
	for id, o := range m.orders {
		if _, ok := want[o.CustomerName]; ok {
			delete(m.orders, id)
			n++
		}
	}
	return n, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
