package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted},
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Re-applying the current status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is the aggregate root for a customer purchase
type Order struct {
	ID              int64           `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`

	Items []*OrderItem `json:"items" db:"-"`
	// Username of the owner, filled when the order is loaded for display.
	Username string `json:"-" db:"-"`
}

// OrderItem is an immutable order line
type OrderItem struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       int64           `json:"order_id" db:"order_id"`
	ProductID     int64           `json:"product_id" db:"product_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot" db:"price_snapshot"`

	Product *Product `json:"product,omitempty" db:"-"`
}

// LineTotal returns price_snapshot * quantity
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MaxOrderTotal is the largest total an order can store
var MaxOrderTotal = decimal.RequireFromString("9999999999.99")

// CalculateTotal sums the line totals of items, rounded to cents
func CalculateTotal(items []*OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}
