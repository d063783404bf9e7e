// AngelaMos | 2026
// events.go

// Package events publishes booking lifecycle notifications to a message
// broker. Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	BookingCreated        Type = "booking.created"
	BookingUpdated        Type = "booking.updated"
	BookingDeleted        Type = "booking.deleted"
	BookingPaymentOpened  Type = "booking.payment_opened"
	BookingPaymentSettled Type = "booking.payment_settled"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    string    `json:"actor_id,omitempty"`
	Data       any       `json:"data"`
}

func New(t Type, actorID string, data any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
