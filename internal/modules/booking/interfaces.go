package booking

import (
	"context"

	"homestay/internal/domain"
	"homestay/internal/modules/hold"
	"homestay/internal/modules/pricing"
	"homestay/internal/repository"
)

// HoldManager is the part of the hold service a booking needs. Every method
// runs inside the caller's transaction.
type HoldManager interface {
	ReserveTx(ctx context.Context, tx *repository.Store, tenantID string, req hold.ReserveRequest) (*domain.Hold, error)
	LiveTx(ctx context.Context, tx *repository.Store, tenantID, token string) (*domain.Hold, error)
	ConvertTx(ctx context.Context, tx *repository.Store, tenantID, token string) (*domain.Hold, error)
	ReleaseTx(ctx context.Context, tx *repository.Store, tenantID, token string) (bool, error)
}

type Pricer interface {
	Price(ctx context.Context, tenantID string, req pricing.PriceRequest) (*pricing.Quote, error)
}

// EventPublisher is notified after a transition commits. It must not block.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) {}
