package orders

import (
	"context"
	"sync"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// InMemoryRepository is a Repository backed by a map, used in tests.
type InMemoryRepository struct {
	mu     sync.Mutex
	orders map[string]models.OrderData
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[string]models.OrderData)}
}

// StoreOrder stores the order and returns the assigned id.
func (r *InMemoryRepository) StoreOrder(ctx context.Context, order models.OrderData) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := newOrderID()
	order.ID = id
	r.orders[id] = order
	return id, nil
}

// GetOrder fetches an order by id.
func (r *InMemoryRepository) GetOrder(ctx context.Context, id string) (*models.OrderData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

// ListOrders returns all orders for a tenant.
func (r *InMemoryRepository) ListOrders(ctx context.Context, tenant string) ([]models.OrderData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.OrderData
	for _, o := range r.orders {
		if o.Tenant == tenant {
			out = append(out, o)
		}
	}
	return out, nil
}

// UpdateOrderStatus mutates an order's status.
func (r *InMemoryRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	r.orders[id] = order
	return nil
}
