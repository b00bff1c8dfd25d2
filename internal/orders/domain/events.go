package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys for order lifecycle events.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
)

type OrderCreated struct {
	OrderID      string          `json:"orderId"`
	CustomerName string          `json:"customerName"`
	Items        []Item          `json:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func NewOrderCreated(o Order) OrderCreated {
	return OrderCreated{
		OrderID:      o.ID,
		CustomerName: o.CustomerName,
		Items:        o.Items,
		TotalAmount:  o.TotalAmount,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
	}
}

type OrderStatusUpdated struct {
	OrderID        string      `json:"orderId"`
	PreviousStatus OrderStatus `json:"previousStatus"`
	Status         OrderStatus `json:"status"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}
