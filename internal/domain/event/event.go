// Package event holds the order events sent to other services after commit.
package event

import (
	"time"

	"canteen/internal/domain/model"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderRated         Type = "order.rated"
)

type OrderEvent struct {
	Type           Type                `json:"type"`
	OccurredAt     time.Time           `json:"occurredAt"`
	OrderID        int64               `json:"orderId"`
	OrderNumber    string              `json:"orderNumber"`
	UserID         int64               `json:"userId"`
	ActorUserID    int64               `json:"actorUserId,omitempty"`
	Status         model.OrderStatus   `json:"status"`
	PreviousStatus model.OrderStatus   `json:"previousStatus,omitempty"`
	PaymentStatus  model.PaymentStatus `json:"paymentStatus"`
	Total          string              `json:"total"`
	Note           string              `json:"note,omitempty"`
}

// FromOrder fills the order fields of an event.
func FromOrder(t Type, o model.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          t,
		OccurredAt:    at,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total.StringFixed(2),
	}
}
