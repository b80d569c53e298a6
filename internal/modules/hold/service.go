package hold

import (
	"context"
	"errors"
	"log"
	"time"

	"homestay/internal/domain"
	"homestay/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTTL        = 15 * time.Minute
	defaultSweepBatch = 500
)

type Config struct {
	TTL        time.Duration
	SweepBatch int
}

type ReserveRequest struct {
	RoomTypeID string
	Range      domain.DateRange
	Quantity   int
	Channel    string
	Metadata   domain.Metadata
}

func (r ReserveRequest) validate() error {
	if r.RoomTypeID == "" {
		return domain.Invalid("room_type_id", "is required")
	}
	if r.Quantity <= 0 {
		return domain.Invalid("quantity", "must be > 0")
	}
	if r.Range.Nights() <= 0 {
		return domain.Invalid("date_range", "end_date must be after start_date")
	}
	return r.Metadata.Validate()
}

// Service is the hold manager. Every write runs in one transaction that
// first locks the calendar rows of the affected nights.
type Service struct {
	store  *repository.Store
	events EventPublisher
	ttl    time.Duration
	batch  int
	now    func() time.Time
	tracer trace.Tracer
}

func NewService(store *repository.Store, events EventPublisher, cfg Config) *Service {
	if events == nil {
		events = noopPublisher{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = defaultSweepBatch
	}
	return &Service{
		store:  store,
		events: events,
		ttl:    cfg.TTL,
		batch:  cfg.SweepBatch,
		now:    time.Now,
		tracer: otel.Tracer("homestay/hold"),
	}
}

// WithClock replaces the time source; tests use it to step past expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) TTL() time.Duration { return s.ttl }

func (s *Service) TryReserve(ctx context.Context, tenantID string, req ReserveRequest) (*domain.Hold, error) {
	ctx, span := s.tracer.Start(ctx, "hold.try_reserve", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("room_type.id", req.RoomTypeID),
		attribute.String("range", req.Range.String()),
		attribute.Int("quantity", req.Quantity),
	))
	defer span.End()

	var h *domain.Hold
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		h, err = s.ReserveTx(ctx, tx, tenantID, req)
		return err
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "hold created")
	s.publish(ctx, h, domain.EventHoldCreated)
	return h, nil
}

// ReserveTx performs TryReserve inside a caller-owned transaction so that
// booking creation can reserve and persist atomically.
func (s *Service) ReserveTx(ctx context.Context, tx *repository.Store, tenantID string, req ReserveRequest) (*domain.Hold, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := tx.RoomTypes.Get(ctx, tenantID, req.RoomTypeID); err != nil {
		return nil, err
	}

	now := s.now()
	l, err := loadLedger(ctx, tx, tenantID, req.RoomTypeID, req.Range, now, true)
	if err != nil {
		return nil, err
	}
	if err := l.check(req.Range, req.Quantity, req.Channel); err != nil {
		return nil, err
	}

	h := &domain.Hold{
		TenantID:   tenantID,
		RoomTypeID: req.RoomTypeID,
		Channel:    req.Channel,
		StartDate:  req.Range.Start,
		EndDate:    req.Range.End,
		Quantity:   req.Quantity,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		Metadata:   req.Metadata,
	}
	if err := tx.Holds.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Get returns a hold that has not expired. Converted holds are still
// returned so callers can inspect the committed claim.
func (s *Service) Get(ctx context.Context, tenantID, token string) (*domain.Hold, error) {
	h, err := s.store.Holds.Get(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	if !h.Converted() && h.Expired(s.now()) {
		return nil, domain.NotFound("hold", token)
	}
	return h, nil
}

// LiveTx loads a hold and requires it to be live at the service clock.
func (s *Service) LiveTx(ctx context.Context, tx *repository.Store, tenantID, token string) (*domain.Hold, error) {
	h, err := tx.Holds.Get(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	if !h.Live(s.now()) {
		return nil, domain.NotFound("hold", token)
	}
	return h, nil
}

// Release drops an unconverted hold. Unknown or already converted tokens are
// a no-op. An expired hold is cleaned up but reported as not found.
func (s *Service) Release(ctx context.Context, tenantID, token string) error {
	var (
		released *domain.Hold
		expired  bool
	)
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		h, err := tx.Holds.Get(ctx, tenantID, token)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if h.Converted() {
			return nil
		}

		attached, err := tx.Bookings.ExistsForHold(ctx, tenantID, token)
		if err != nil {
			return err
		}
		if attached {
			return domain.Invalid("hold_token", "hold backs a booking; cancel the booking instead")
		}

		if _, err := tx.Calendar.LockRange(ctx, tenantID, h.RoomTypeID, h.Range()); err != nil {
			return err
		}
		if _, err := tx.Holds.Delete(ctx, tenantID, token); err != nil {
			return err
		}
		if h.Expired(s.now()) {
			expired = true
			return nil
		}
		released = h
		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		return domain.NotFound("hold", token)
	}
	if released != nil {
		s.publish(ctx, released, domain.EventHoldReleased)
	}
	return nil
}

// ReleaseTx deletes a hold within the caller's transaction regardless of
// expiry. Used when a pending booking is cancelled.
func (s *Service) ReleaseTx(ctx context.Context, tx *repository.Store, tenantID, token string) (bool, error) {
	return tx.Holds.Delete(ctx, tenantID, token)
}

// Convert marks a live hold as consumed by a booking so its quantity stops
// counting as a hold. A hold already backing one of our bookings is converted
// by confirming that booking instead.
func (s *Service) Convert(ctx context.Context, tenantID, token string) (*domain.Hold, error) {
	var h *domain.Hold
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		attached, err := tx.Bookings.ExistsForHold(ctx, tenantID, token)
		if err != nil {
			return err
		}
		if attached {
			return domain.Invalid("hold_token", "hold backs a booking; confirm the booking instead")
		}
		h, err = s.ConvertTx(ctx, tx, tenantID, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, h, domain.EventHoldConverted)
	return h, nil
}

func (s *Service) ConvertTx(ctx context.Context, tx *repository.Store, tenantID, token string) (*domain.Hold, error) {
	h, err := s.LiveTx(ctx, tx, tenantID, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := tx.Holds.MarkConverted(ctx, tenantID, token, now); err != nil {
		return nil, err
	}
	h.ConvertedAt = &now
	return h, nil
}

// Availability reports per-night accounting for a room type without taking
// locks.
func (s *Service) Availability(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange, channel string) ([]DayAvailability, error) {
	if rng.Nights() <= 0 {
		return nil, domain.Invalid("date_range", "end_date must be after start_date")
	}
	if _, err := s.store.RoomTypes.Get(ctx, tenantID, roomTypeID); err != nil {
		return nil, err
	}
	l, err := loadLedger(ctx, s.store, tenantID, roomTypeID, rng, s.now(), false)
	if err != nil {
		return nil, err
	}
	return l.view(rng, channel), nil
}

// SweepExpired deletes expired, unconverted holds that no booking refers to.
// Holds behind pending bookings are left to the booking sweep so the booking
// is cancelled in the same transaction.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	candidates, err := s.store.Holds.ListUnconverted(ctx, s.batch)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var swept []domain.Hold
	for i := range candidates {
		h := candidates[i]
		if !h.Expired(now) {
			continue
		}
		attached, err := s.store.Bookings.ExistsForHold(ctx, h.TenantID, h.Token)
		if err != nil {
			return len(swept), err
		}
		if attached {
			continue
		}
		deleted, err := s.store.Holds.Delete(ctx, h.TenantID, h.Token)
		if err != nil {
			return len(swept), err
		}
		if deleted {
			swept = append(swept, h)
		}
	}

	for i := range swept {
		s.publish(ctx, &swept[i], domain.EventHoldExpired)
	}
	if len(swept) > 0 {
		log.Printf("hold_sweep deleted=%d scanned=%d", len(swept), len(candidates))
	}
	return len(swept), nil
}

func (s *Service) publish(ctx context.Context, h *domain.Hold, eventType string) {
	s.events.Publish(ctx, domain.Event{
		TenantID:   h.TenantID,
		Type:       eventType,
		EntityType: "hold",
		EntityID:   h.Token,
		Actor:      domain.ActorFrom(ctx),
		Payload: domain.Metadata{
			"room_type_id": h.RoomTypeID,
			"start_date":   h.StartDate.String(),
			"end_date":     h.EndDate.String(),
			"quantity":     h.Quantity,
			"channel":      h.Channel,
		},
		OccurredAt: s.now(),
	})
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
