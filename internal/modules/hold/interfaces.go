package hold

import (
	"context"

	"homestay/internal/domain"
)

// EventPublisher receives hold lifecycle events after the change commits.
// Implementations must not block and must not fail the caller.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) {}
