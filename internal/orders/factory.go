// Package orders provides the order factory (pure totals computation and
// order assembly) and the persistence backends orders are stored in.
package orders

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// CartSubtotal computes Σ(price × quantity) over the cart.
func CartSubtotal(cart []models.CartItem) int {
	total := 0
	for _, item := range cart {
		total += item.Price * item.Quantity
	}
	return total
}

// DeliveryTotal computes deliveryCostPerUnit × Σquantity. A zero per-unit
// cost yields zero, with no per-item floor.
func DeliveryTotal(cart []models.CartItem, deliveryCostPerUnit int) int {
	if deliveryCostPerUnit == 0 {
		return 0
	}
	units := 0
	for _, item := range cart {
		units += item.Quantity
	}
	return deliveryCostPerUnit * units
}

// OrderNumber derives the customer-facing order number from a timestamp:
// the last 6 digits of the epoch-millisecond value. Collisions are possible
// but unlikely within a tenant; the store-assigned id is the real key.
func OrderNumber(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) <= 6 {
		return ms
	}
	return ms[len(ms)-6:]
}

// Factory assembles OrderData from a completed checkout.
type Factory struct {
	testTenants map[string]bool
	forceTest   bool
	now         func() time.Time
}

// NewFactory creates an order factory. Orders for tenants in testTenants, or
// any order when forceTest is set (non-production environments), are flagged
// as test orders.
func NewFactory(testTenants []string, forceTest bool) *Factory {
	set := make(map[string]bool, len(testTenants))
	for _, t := range testTenants {
		set[t] = true
	}
	return &Factory{testTenants: set, forceTest: forceTest, now: time.Now}
}

// IsTestOrder reports whether orders for the tenant are flagged as tests.
func (f *Factory) IsTestOrder(tenant string) bool {
	return f.forceTest || f.testTenants[tenant]
}

// CreateOrder computes totals and assembles an order in pending status.
// Pure except for reading the clock; persistence is the caller's step.
func (f *Factory) CreateOrder(tenant models.TenantInfo, phoneNumber string, cart []models.CartItem) models.OrderData {
	now := f.now()
	subtotal := CartSubtotal(cart)
	deliveryTotal := DeliveryTotal(cart, tenant.DeliveryCost)

	order := models.OrderData{
		Tenant:               tenant.Name,
		CustomerPhoneNumber:  phoneNumber,
		TransfersPhoneNumber: tenant.TransfersPhoneNumber,
		OrderNumber:          OrderNumber(now),
		Cart:                 cart,
		Subtotal:             subtotal,
		DeliveryTotal:        deliveryTotal,
		Total:                subtotal + deliveryTotal,
		Status:               models.OrderStatusPending,
		IsTest:               f.IsTestOrder(tenant.Name),
		CreatedAt:            now,
	}
	slog.Debug("Factory created order", "tenant", tenant.Name, "orderNumber", order.OrderNumber, "total", order.Total, "isTest", order.IsTest)
	return order
}
