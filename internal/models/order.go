// Package models defines order structures shared between the order factory
// and the persistence backends.
package models

import "time"

// OrderStatus tracks an order through fulfillment. Orders are immutable
// after creation except for this field, which the admin dashboard mutates.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValidOrderStatus checks if the given status is supported.
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderData is a completed checkout. OrderNumber is the last 6 digits of the
// creation epoch-millisecond timestamp; it is customer-facing and only
// locally unlikely to collide, the store-assigned ID is the real identifier.
type OrderData struct {
	ID                   string      `json:"id,omitempty"`
	Tenant               string      `json:"tenant"`
	CustomerPhoneNumber  string      `json:"customer_phone_number"`
	TransfersPhoneNumber string      `json:"transfers_phone_number"`
	OrderNumber          string      `json:"order_number"`
	Cart                 []CartItem  `json:"cart"`
	Subtotal             int         `json:"subtotal"`
	DeliveryTotal        int         `json:"delivery_total"`
	Total                int         `json:"total"`
	Status               OrderStatus `json:"status"`
	IsTest               bool        `json:"is_test"`
	CreatedAt            time.Time   `json:"created_at"`
}
