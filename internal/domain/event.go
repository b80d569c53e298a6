package domain

import (
	"context"
	"time"
)

const (
	EventHoldCreated       = "hold.created"
	EventHoldReleased      = "hold.released"
	EventHoldConverted     = "hold.converted"
	EventHoldExpired       = "hold.expired"
	EventCapacityUpdated   = "inventory.capacity_updated"
	EventAllocationUpdated = "inventory.allocation_updated"
	EventBookingCreated    = "booking.created"
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingCheckedIn  = "booking.checked_in"
	EventBookingCheckedOut = "booking.checked_out"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingNoShow     = "booking.no_show"
	EventPaymentUpdated    = "booking.payment_updated"
)

// Event is an after-the-fact notification about a state change. Delivery is
// best effort and never affects the change itself.
type Event struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Type       string    `json:"type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Actor      string    `json:"actor,omitempty"`
	Payload    Metadata  `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditLog is the persisted form of an Event.
type AuditLog struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Details    Metadata  `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type actorKey struct{}

// WithActor records who is acting on behalf of the request, for events.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok {
		return a
	}
	return "system"
}
