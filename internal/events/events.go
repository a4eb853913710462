package events

import (
	"context"
	"sync"
	"time"

	"maitre/internal/models"
)

// OrderStatusChanged is emitted after a status write has been committed
type OrderStatusChanged struct {
	OrderID        uint               `json:"orderId"`
	OrderNumber    int                `json:"orderNumber"`
	PreviousStatus models.OrderStatus `json:"previousStatus"`
	NewStatus      models.OrderStatus `json:"newStatus"`
	Source         string             `json:"source"` // voice or api
	Timestamp      time.Time          `json:"timestamp"`
}

// Publisher delivers order events to interested consumers
type Publisher interface {
	PublishStatusChanged(ctx context.Context, evt OrderStatusChanged) error
	Close() error
}

// NoopPublisher discards every event
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChanged(context.Context, OrderStatusChanged) error { return nil }
func (NoopPublisher) Close() error                                                  { return nil }

// Recorder keeps published events in memory. Used by tests and the
// local development profile.
type Recorder struct {
	mu     sync.Mutex
	events []OrderStatusChanged
}

func (r *Recorder) PublishStatusChanged(_ context.Context, evt OrderStatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []OrderStatusChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderStatusChanged, len(r.events))
	copy(out, r.events)
	return out
}
