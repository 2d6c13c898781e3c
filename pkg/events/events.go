// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated   = "order.created"
	TypeItemAdded      = "order.item_added"
	TypeItemRemoved    = "order.item_removed"
	TypeStatusChanged  = "order.status_changed"
	TypeOrderConfirmed = "order.confirmed"
	TypeOrderCancelled = "order.cancelled"
	TypeOrderDeleted   = "order.deleted"
)

// Event is a change notification for one order.
type Event struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	ItemID     int64     `json:"item_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Total      string    `json:"total,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps a fresh event id.
func New(typ string, orderID int64, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: typ, OrderID: orderID, OccurredAt: at}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

// Publish discards e.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
