package inventory

import (
	"context"

	"homestay/internal/domain"
)

// EventPublisher receives inventory change events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) {}
