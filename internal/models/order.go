package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDone      OrderStatus = "done"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in display order
var OrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusDone, OrderStatusCancelled}

// ParseOrderStatus converts a loose status word into an OrderStatus
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return OrderStatusPending, nil
	case "done":
		return OrderStatusDone, nil
	case "cancelled", "canceled":
		return OrderStatusCancelled, nil
	default:
		names := make([]string, len(OrderStatuses))
		for i, st := range OrderStatuses {
			names[i] = string(st)
		}
		return "", fmt.Errorf("unknown order status %q, expected one of %s", s, strings.Join(names, ", "))
	}
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	_, err := ParseOrderStatus(string(s))
	return err == nil && string(s) != "canceled"
}

// Order is a customer order as seen by the order desk.
// Number is the sequential number staff read out loud; ID is internal.
type Order struct {
	ID        uint            `gorm:"primary_key" json:"id"`
	Number    int             `gorm:"unique_index;not null" json:"number"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2)" json:"total"`
	Status    OrderStatus     `gorm:"type:varchar(20);index;not null" json:"status"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// OrderCounts is the per-status breakdown of a set of orders
type OrderCounts struct {
	Pending   int `json:"pending"`
	Done      int `json:"done"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// BeforeCreate is a gorm hook that rejects orders without a known status
func (o *Order) BeforeCreate() error {
	if o.Number <= 0 {
		return fmt.Errorf("order number must be positive")
	}
	if !o.Status.Valid() {
		return fmt.Errorf("order %d has unknown status %q", o.Number, o.Status)
	}
	return nil
}

// CountOrders tallies orders by status
func CountOrders(orders []Order) OrderCounts {
	var c OrderCounts
	for _, o := range orders {
		switch o.Status {
		case OrderStatusPending:
			c.Pending++
		case OrderStatusDone:
			c.Done++
		case OrderStatusCancelled:
			c.Cancelled++
		}
		c.Total++
	}
	return c
}
