package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homestay/internal/domain"
	"homestay/internal/repository"

	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Service owns the calendar store, channel allocations and the reference
// rows (properties, room types, rooms) that inventory is counted against.
type Service struct {
	store           *repository.Store
	events          EventPublisher
	defaultTimezone string
	defaultCurrency string
	now             func() time.Time
	tracer          trace.Tracer
}

type Config struct {
	DefaultTimezone string
	DefaultCurrency string
}

func NewService(store *repository.Store, events EventPublisher, cfg Config) *Service {
	if events == nil {
		events = noopPublisher{}
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = domain.DefaultTimezone
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = domain.DefaultCurrency
	}
	return &Service{
		store:           store,
		events:          events,
		defaultTimezone: cfg.DefaultTimezone,
		defaultCurrency: cfg.DefaultCurrency,
		now:             time.Now,
		tracer:          otel.Tracer("homestay/inventory"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

/* ---------- SETUP ---------- */

func (s *Service) CreateProperty(ctx context.Context, tenantID string, req CreatePropertyRequest) (*domain.Property, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.Invalid("name", "is required")
	}
	tz := req.Timezone
	if tz == "" {
		tz = s.defaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, domain.Invalid("timezone", fmt.Sprintf("unknown timezone %q", tz))
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	base := slug.Make(req.Name)
	candidate := base
	for i := 1; ; i++ {
		taken, err := s.store.Properties.SlugExists(ctx, tenantID, candidate)
		if err != nil {
			return nil, err
		}
		if !taken {
			break
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	p := &domain.Property{
		TenantID:  tenantID,
		Name:      strings.TrimSpace(req.Name),
		Slug:      candidate,
		Timezone:  tz,
		Currency:  currency,
		CreatedAt: s.now(),
	}
	if err := s.store.Properties.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) CreateRoomType(ctx context.Context, tenantID string, req CreateRoomTypeRequest) (*domain.RoomType, error) {
	if req.MaxOccupancy <= 0 {
		return nil, domain.Invalid("max_occupancy", "must be > 0")
	}
	if req.DefaultBasePrice < 0 {
		return nil, domain.Invalid("default_base_price", "must be >= 0")
	}
	prop, err := s.store.Properties.Get(ctx, tenantID, req.PropertyID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.RoomTypes.ListByProperty(ctx, tenantID, prop.ID)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(existing))
	for _, rt := range existing {
		taken[rt.Slug] = true
	}
	base := slug.Make(req.Name)
	candidate := base
	for i := 1; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = prop.Currency
	}
	rt := &domain.RoomType{
		TenantID:         tenantID,
		PropertyID:       prop.ID,
		Name:             strings.TrimSpace(req.Name),
		Slug:             candidate,
		MaxOccupancy:     req.MaxOccupancy,
		DefaultBasePrice: req.DefaultBasePrice,
		Currency:         currency,
		CreatedAt:        s.now(),
	}
	if err := s.store.RoomTypes.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *Service) CreateRoom(ctx context.Context, tenantID string, req CreateRoomRequest) (*domain.Room, error) {
	if strings.TrimSpace(req.RoomNumber) == "" {
		return nil, domain.Invalid("room_number", "is required")
	}
	if _, err := s.store.RoomTypes.Get(ctx, tenantID, req.RoomTypeID); err != nil {
		return nil, err
	}
	room := &domain.Room{
		TenantID:   tenantID,
		RoomTypeID: req.RoomTypeID,
		RoomNumber: strings.TrimSpace(req.RoomNumber),
		Status:     domain.RoomAvailable,
		CreatedAt:  s.now(),
	}
	if err := s.store.Rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) ListRoomTypes(ctx context.Context, tenantID, propertyID string) ([]domain.RoomType, error) {
	if _, err := s.store.Properties.Get(ctx, tenantID, propertyID); err != nil {
		return nil, err
	}
	return s.store.RoomTypes.ListByProperty(ctx, tenantID, propertyID)
}

/* ---------- CALENDAR ---------- */

// GetCapacity returns the counts for one night. A night with no row has zero
// capacity rather than being an error.
func (s *Service) GetCapacity(ctx context.Context, tenantID, roomTypeID string, d domain.Date) (domain.Capacity, error) {
	if _, err := s.store.RoomTypes.Get(ctx, tenantID, roomTypeID); err != nil {
		return domain.Capacity{}, err
	}
	day, err := s.store.Calendar.Get(ctx, tenantID, roomTypeID, d)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Capacity{}, nil
		}
		return domain.Capacity{}, err
	}
	return day.Capacity, nil
}

// SellableCapacity is available minus blocked, capped by the channel's
// effective allocation when channel is set.
func (s *Service) SellableCapacity(ctx context.Context, tenantID, roomTypeID string, d domain.Date, channel string) (int, error) {
	c, err := s.GetCapacity(ctx, tenantID, roomTypeID, d)
	if err != nil {
		return 0, err
	}
	if channel == "" {
		return c.Sellable(), nil
	}
	allocs, err := s.store.Channels.ListForRange(ctx, tenantID, roomTypeID, domain.DateRange{Start: d, End: d.AddDays(1)})
	if err != nil {
		return 0, err
	}
	return domain.SellableCapacity(c, domain.EffectiveAllocation(allocs, channel, d)), nil
}

// UpsertCapacity writes one night. Lowering capacity below what is already
// held or booked is allowed; remaining availability then reads as zero.
func (s *Service) UpsertCapacity(ctx context.Context, tenantID, roomTypeID string, d domain.Date, c domain.Capacity) (*domain.CalendarDay, error) {
	days, err := s.upsert(ctx, tenantID, roomTypeID, domain.DateRange{Start: d, End: d.AddDays(1)}, c)
	if err != nil {
		return nil, err
	}
	return &days[0], nil
}

// UpsertRange writes the same counts for every night in rng in a single
// transaction.
func (s *Service) UpsertRange(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange, c domain.Capacity) ([]domain.CalendarDay, error) {
	if rng.Nights() <= 0 {
		return nil, domain.Invalid("date_range", "end_date must be after start_date")
	}
	if rng.Nights() > maxRangeNights {
		return nil, domain.Invalid("date_range", fmt.Sprintf("at most %d nights per request", maxRangeNights))
	}
	return s.upsert(ctx, tenantID, roomTypeID, rng, c)
}

const maxRangeNights = 366

func (s *Service) upsert(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange, c domain.Capacity) ([]domain.CalendarDay, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.upsert_capacity", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("room_type.id", roomTypeID),
		attribute.String("range", rng.String()),
	))
	defer span.End()

	if err := c.Validate(); err != nil {
		recordError(span, err)
		return nil, err
	}

	now := s.now()
	var written []domain.CalendarDay
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.RoomTypes.Get(ctx, tenantID, roomTypeID); err != nil {
			return err
		}
		// rows are locked in date order, same as reservations
		if _, err := tx.Calendar.LockRange(ctx, tenantID, roomTypeID, rng); err != nil {
			return err
		}
		written = make([]domain.CalendarDay, 0, rng.Nights())
		for _, d := range rng.Days() {
			day := domain.CalendarDay{
				TenantID:   tenantID,
				RoomTypeID: roomTypeID,
				Date:       d,
				Capacity:   c,
				UpdatedAt:  now,
			}
			if err := tx.Calendar.Upsert(ctx, &day); err != nil {
				return err
			}
			written = append(written, day)
		}
		return nil
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "capacity updated")
	s.events.Publish(ctx, domain.Event{
		TenantID:   tenantID,
		Type:       domain.EventCapacityUpdated,
		EntityType: "room_type",
		EntityID:   roomTypeID,
		Actor:      domain.ActorFrom(ctx),
		Payload: domain.Metadata{
			"start_date":      rng.Start.String(),
			"end_date":        rng.End.String(),
			"available_count": c.Available,
			"blocked_count":   c.Blocked,
		},
		OccurredAt: now,
	})
	return written, nil
}

// ListCapacity returns one entry per night of rng; nights without a row are
// reported with zero counts.
func (s *Service) ListCapacity(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange) ([]domain.CalendarDay, error) {
	if rng.Nights() <= 0 {
		return nil, domain.Invalid("date_range", "end_date must be after start_date")
	}
	if _, err := s.store.RoomTypes.Get(ctx, tenantID, roomTypeID); err != nil {
		return nil, err
	}
	rows, err := s.store.Calendar.List(ctx, tenantID, roomTypeID, rng)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]domain.CalendarDay, len(rows))
	for _, r := range rows {
		byDate[r.Date.String()] = r
	}
	out := make([]domain.CalendarDay, 0, rng.Nights())
	for _, d := range rng.Days() {
		if r, ok := byDate[d.String()]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, domain.CalendarDay{TenantID: tenantID, RoomTypeID: roomTypeID, Date: d})
	}
	return out, nil
}

// SetChannelAllocation records a new allocation. Older allocations stay in
// place; where they overlap the latest effective_from wins.
func (s *Service) SetChannelAllocation(ctx context.Context, tenantID string, a domain.ChannelAllocation) (*domain.ChannelAllocation, error) {
	a.TenantID = tenantID
	a.ChannelCode = strings.ToUpper(strings.TrimSpace(a.ChannelCode))
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.RoomTypes.Get(ctx, tenantID, a.RoomTypeID); err != nil {
		return nil, err
	}
	a.CreatedAt = s.now()
	if err := s.store.Channels.Create(ctx, &a); err != nil {
		return nil, err
	}

	payload := domain.Metadata{
		"channel_code":    a.ChannelCode,
		"allocated_count": a.AllocatedCount,
	}
	if a.EffectiveFrom != nil {
		payload["effective_from"] = a.EffectiveFrom.String()
	}
	if a.EffectiveTo != nil {
		payload["effective_to"] = a.EffectiveTo.String()
	}
	s.events.Publish(ctx, domain.Event{
		TenantID:   tenantID,
		Type:       domain.EventAllocationUpdated,
		EntityType: "room_type",
		EntityID:   a.RoomTypeID,
		Actor:      domain.ActorFrom(ctx),
		Payload:    payload,
		OccurredAt: a.CreatedAt,
	})
	return &a, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
