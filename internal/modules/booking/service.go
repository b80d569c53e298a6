package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"homestay/internal/domain"
	"homestay/internal/modules/hold"
	"homestay/internal/modules/pricing"
	"homestay/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultSweepBatch = 200

type Config struct {
	// Commissions maps a booking source to a percentage of the total.
	Commissions map[string]float64
	// Location is used for properties without a valid timezone.
	Location   *time.Location
	SweepBatch int
}

type CreateRequest struct {
	PropertyID    string
	RoomTypeID    string
	RoomID        string
	Range         domain.DateRange
	Units         int
	GuestsCount   int
	Source        string
	Currency      string
	HoldToken     string
	ExternalID    string
	Guest         *domain.BookingGuest
	CreatedByType string
	CreatedByID   string

	// sourceDefaulted is set when normalize filled in the source, so a
	// supplied hold may lend its channel instead.
	sourceDefaulted bool
}

type Service struct {
	store       *repository.Store
	holds       HoldManager
	pricer      Pricer
	events      EventPublisher
	commissions map[string]float64
	loc         *time.Location
	batch       int
	now         func() time.Time
	tracer      trace.Tracer
}

func NewService(store *repository.Store, holds HoldManager, pricer Pricer, events EventPublisher, cfg Config) *Service {
	if events == nil {
		events = noopPublisher{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = defaultSweepBatch
	}
	commissions := make(map[string]float64, len(cfg.Commissions))
	for k, v := range cfg.Commissions {
		commissions[strings.ToUpper(k)] = v
	}
	return &Service{
		store:       store,
		holds:       holds,
		pricer:      pricer,
		events:      events,
		commissions: commissions,
		loc:         cfg.Location,
		batch:       cfg.SweepBatch,
		now:         time.Now,
		tracer:      otel.Tracer("homestay/booking"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (r *CreateRequest) normalize() error {
	if r.PropertyID == "" {
		return domain.Invalid("property_id", "is required")
	}
	if r.RoomTypeID == "" {
		return domain.Invalid("room_type_id", "is required")
	}
	if r.Range.Nights() <= 0 {
		return domain.Invalid("date_range", "checkout must be after checkin")
	}
	if r.Units == 0 {
		r.Units = 1
	}
	if r.Units < 0 {
		return domain.Invalid("units", "must be >= 1")
	}
	if r.GuestsCount < 1 {
		return domain.Invalid("guests_count", "must be >= 1")
	}
	r.Source = strings.ToUpper(strings.TrimSpace(r.Source))
	if r.Source == "" {
		r.Source = domain.SourceMarketplace
		r.sourceDefaulted = true
	}
	if r.CreatedByType == "" {
		r.CreatedByType = domain.CreatedByVisitor
	}
	if r.Guest != nil && strings.TrimSpace(r.Guest.Name) == "" {
		return domain.Invalid("guest.name", "is required")
	}
	return nil
}

// Create prices the stay, secures capacity through the supplied hold or an
// inline reservation, and stores the booking as PENDING. Pricing runs first so
// a NoRatePlanError never touches inventory. Repeating a request with a hold
// token that already backs a booking for the same stay returns that booking.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("room_type.id", req.RoomTypeID),
		attribute.String("range", req.Range.String()),
	))
	defer span.End()

	if prior, err := s.replay(ctx, tenantID, req); err != nil || prior != nil {
		if err != nil {
			recordError(span, err)
		}
		return prior, err
	}

	b, inlineHold, err := s.create(ctx, tenantID, req)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetStatus(codes.Ok, "booking created")

	if inlineHold != nil {
		s.events.Publish(ctx, domain.Event{
			TenantID:   tenantID,
			Type:       domain.EventHoldCreated,
			EntityType: "hold",
			EntityID:   inlineHold.Token,
			Actor:      domain.ActorFrom(ctx),
			Payload: domain.Metadata{
				"room_type_id": inlineHold.RoomTypeID,
				"start_date":   inlineHold.StartDate.String(),
				"end_date":     inlineHold.EndDate.String(),
				"quantity":     inlineHold.Quantity,
				"booking_id":   b.ID,
			},
			OccurredAt: inlineHold.CreatedAt,
		})
	}
	s.publish(ctx, b, domain.EventBookingCreated, "")
	return b, nil
}

func (s *Service) create(ctx context.Context, tenantID string, req CreateRequest) (*domain.Booking, *domain.Hold, error) {
	if err := req.normalize(); err != nil {
		return nil, nil, err
	}

	rt, err := s.store.RoomTypes.Get(ctx, tenantID, req.RoomTypeID)
	if err != nil {
		return nil, nil, err
	}
	if rt.PropertyID != req.PropertyID {
		return nil, nil, domain.Invalid("room_type_id", "room type does not belong to property")
	}
	if req.GuestsCount > rt.MaxOccupancy*req.Units {
		return nil, nil, domain.Invalid("guests_count",
			fmt.Sprintf("exceeds max occupancy of %d for %d unit(s)", rt.MaxOccupancy*req.Units, req.Units))
	}

	quote, err := s.pricer.Price(ctx, tenantID, pricing.PriceRequest{
		PropertyID: req.PropertyID,
		RoomTypeID: req.RoomTypeID,
		Range:      req.Range,
		Occupancy:  perUnitOccupancy(req.GuestsCount, req.Units),
		Units:      req.Units,
		Currency:   req.Currency,
	})
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	var (
		b          *domain.Booking
		inlineHold *domain.Hold
	)
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		token, created, err := s.secureCapacity(ctx, tx, tenantID, &req)
		if err != nil {
			return err
		}
		inlineHold = created

		var roomID *string
		if req.RoomID != "" {
			if err := s.checkRoom(ctx, tx, tenantID, req.RoomID, rt.ID, req.Range, ""); err != nil {
				return err
			}
			roomID = &req.RoomID
		}

		b = &domain.Booking{
			TenantID:         tenantID,
			ExternalID:       req.ExternalID,
			PropertyID:       req.PropertyID,
			RoomTypeID:       rt.ID,
			RoomID:           roomID,
			Source:           req.Source,
			CheckIn:          req.Range.Start,
			CheckOut:         req.Range.End,
			Nights:           req.Range.Nights(),
			Units:            req.Units,
			GuestsCount:      req.GuestsCount,
			Status:           domain.BookingPending,
			PaymentStatus:    domain.PaymentPending,
			TotalAmount:      quote.Total,
			Currency:         quote.Currency,
			CommissionAmount: s.commission(req.Source, quote.Total),
			HoldToken:        token,
			RatePlanID:       quote.PlanID,
			CreatedByType:    req.CreatedByType,
			CreatedByID:      req.CreatedByID,
			CreatedAt:        now,
			UpdatedAt:        now,
			Items:            nightlyItems(quote),
		}
		if req.Guest != nil {
			g := *req.Guest
			g.IsPrimary = true
			b.Guests = []domain.BookingGuest{g}
		}

		if err := tx.Bookings.Create(ctx, b); err != nil {
			if repository.IsUniqueConstraintError(err) {
				return domain.Invalid("hold_token", "hold is already attached to a booking")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return b, inlineHold, nil
}

// replay returns the booking already created from req.HoldToken, or nil when
// the token is unused. A token reused for a different stay is rejected.
func (s *Service) replay(ctx context.Context, tenantID string, req CreateRequest) (*domain.Booking, error) {
	if req.HoldToken == "" {
		return nil, nil
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	prior, err := s.store.Bookings.GetByHoldToken(ctx, tenantID, req.HoldToken)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prior.PropertyID != req.PropertyID || prior.RoomTypeID != req.RoomTypeID ||
		!prior.Stay().Equal(req.Range) || prior.Units != req.Units {
		return nil, domain.Invalid("hold_token", "hold is already attached to a booking")
	}
	log.Printf("booking_replayed id=%s hold=%s", prior.ID, req.HoldToken)
	return prior, nil
}

// secureCapacity returns the token of the hold backing the booking. A supplied
// hold must be live and cover the stay; surplus quantity is given back. With
// no token a hold is reserved inline and returned as created.
func (s *Service) secureCapacity(ctx context.Context, tx *repository.Store, tenantID string, req *CreateRequest) (string, *domain.Hold, error) {
	if req.HoldToken == "" {
		h, err := s.holds.ReserveTx(ctx, tx, tenantID, hold.ReserveRequest{
			RoomTypeID: req.RoomTypeID,
			Range:      req.Range,
			Quantity:   req.Units,
			Channel:    req.Source,
		})
		if err != nil {
			return "", nil, err
		}
		return h.Token, h, nil
	}

	if _, err := tx.Calendar.LockRange(ctx, tenantID, req.RoomTypeID, req.Range); err != nil {
		return "", nil, err
	}
	h, err := s.holds.LiveTx(ctx, tx, tenantID, req.HoldToken)
	if err != nil {
		return "", nil, err
	}
	if h.Converted() {
		return "", nil, domain.NotFound("hold", req.HoldToken)
	}
	if h.RoomTypeID != req.RoomTypeID || !h.Range().Equal(req.Range) {
		return "", nil, domain.Invalid("hold_token", "hold does not match the requested room type and dates")
	}
	if h.Quantity < req.Units {
		return "", nil, domain.Invalid("hold_token",
			fmt.Sprintf("hold covers %d unit(s), booking needs %d", h.Quantity, req.Units))
	}
	if req.sourceDefaulted && h.Channel != "" {
		req.Source = h.Channel
	}
	if err := checkHoldChannel(ctx, tx, tenantID, h, req); err != nil {
		return "", nil, err
	}
	attached, err := tx.Bookings.ExistsForHold(ctx, tenantID, h.Token)
	if err != nil {
		return "", nil, err
	}
	if attached {
		return "", nil, domain.Invalid("hold_token", "hold is already attached to a booking")
	}
	if h.Quantity > req.Units {
		if err := tx.Holds.UpdateQuantity(ctx, tenantID, h.Token, req.Units); err != nil {
			return "", nil, err
		}
	}
	return h.Token, nil, nil
}

// checkHoldChannel keeps a confirmed booking inside the allotment its hold
// was counted against. A hold taken without a channel only backs a source
// that has no allocation on any night of the stay.
func checkHoldChannel(ctx context.Context, tx *repository.Store, tenantID string, h *domain.Hold, req *CreateRequest) error {
	if h.Channel == req.Source {
		return nil
	}
	if h.Channel != "" {
		return domain.Invalid("source", fmt.Sprintf("hold was taken for channel %s", h.Channel))
	}
	allocs, err := tx.Channels.ListForRange(ctx, tenantID, req.RoomTypeID, req.Range)
	if err != nil {
		return err
	}
	for _, d := range req.Range.Days() {
		if domain.EffectiveAllocation(allocs, req.Source, d) != nil {
			return domain.Invalid("hold_token",
				fmt.Sprintf("channel %s has an allocation on %s; hold it for that channel", req.Source, d))
		}
	}
	return nil
}

func (s *Service) checkRoom(ctx context.Context, tx *repository.Store, tenantID, roomID, roomTypeID string, rng domain.DateRange, excludeBookingID string) error {
	room, err := tx.Rooms.Get(ctx, tenantID, roomID)
	if err != nil {
		return err
	}
	if room.RoomTypeID != roomTypeID {
		return domain.Invalid("room_id", "room does not belong to the room type")
	}
	if room.Status == domain.RoomOutOfService || room.Status == domain.RoomMaintenance {
		return domain.Invalid("room_id", fmt.Sprintf("room is %s", strings.ToLower(string(room.Status))))
	}
	taken, err := tx.Bookings.RoomTaken(ctx, tenantID, roomID, rng, excludeBookingID)
	if err != nil {
		return err
	}
	if taken {
		return domain.Invalid("room_id", "room is already booked for these dates")
	}
	return nil
}

/* ---------- LIFECYCLE ---------- */

// Confirm moves a PENDING booking to CONFIRMED and converts its hold, after
// which the booking row itself carries the capacity.
func (s *Service) Confirm(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	return s.transition(ctx, tenantID, id, domain.TransitionConfirm, func(tx *repository.Store, b *domain.Booking, _ domain.BookingStatus) error {
		_, err := s.holds.ConvertTx(ctx, tx, tenantID, b.HoldToken)
		return err
	})
}

// CheckIn is allowed from the check-in date onwards, as observed in the
// property's timezone.
func (s *Service) CheckIn(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	return s.transition(ctx, tenantID, id, domain.TransitionCheckIn, func(tx *repository.Store, b *domain.Booking, _ domain.BookingStatus) error {
		today, err := s.propertyToday(ctx, tx, b)
		if err != nil {
			return err
		}
		if today.Before(b.CheckIn) {
			return domain.Invalid("checkin", fmt.Sprintf("check-in opens on %s", b.CheckIn))
		}
		return s.setRoomStatus(ctx, tx, b, domain.RoomOccupied)
	})
}

func (s *Service) CheckOut(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	return s.transition(ctx, tenantID, id, domain.TransitionCheckOut, func(tx *repository.Store, b *domain.Booking, _ domain.BookingStatus) error {
		return s.setRoomStatus(ctx, tx, b, domain.RoomAvailable)
	})
}

// Cancel frees the booking's capacity in the same transaction as the status
// change. A pending booking gives back its hold; a confirmed one stops
// counting as soon as its status leaves the consuming set.
func (s *Service) Cancel(ctx context.Context, tenantID, id, reason string) (*domain.Booking, error) {
	return s.transition(ctx, tenantID, id, domain.TransitionCancel, func(tx *repository.Store, b *domain.Booking, prev domain.BookingStatus) error {
		return s.cancelTx(ctx, tx, b, prev, reason)
	})
}

func (s *Service) cancelTx(ctx context.Context, tx *repository.Store, b *domain.Booking, prev domain.BookingStatus, reason string) error {
	if prev == domain.BookingPending && b.HoldToken != "" {
		if _, err := s.holds.ReleaseTx(ctx, tx, b.TenantID, b.HoldToken); err != nil {
			return err
		}
	}
	now := s.now()
	b.CancelledAt = &now
	b.CancellationReason = strings.TrimSpace(reason)
	if prev == domain.BookingConfirmed {
		return s.setRoomStatus(ctx, tx, b, domain.RoomAvailable)
	}
	return nil
}

// MarkNoShow is allowed once the check-in date has passed. Capacity stays
// consumed for the whole stay.
func (s *Service) MarkNoShow(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	return s.transition(ctx, tenantID, id, domain.TransitionNoShow, func(tx *repository.Store, b *domain.Booking, _ domain.BookingStatus) error {
		today, err := s.propertyToday(ctx, tx, b)
		if err != nil {
			return err
		}
		if !today.After(b.CheckIn) {
			return domain.Invalid("checkin", fmt.Sprintf("no-show can be recorded after %s", b.CheckIn))
		}
		return nil
	})
}

type transitionFunc func(tx *repository.Store, b *domain.Booking, prev domain.BookingStatus) error

// transition locks the stay's calendar rows, then the booking row, applies t
// and runs fn before persisting. Calendar rows are always locked first so the
// lock order matches reservations.
func (s *Service) transition(ctx context.Context, tenantID, id string, t domain.Transition, fn transitionFunc) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking."+string(t), trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("booking.id", id),
	))
	defer span.End()

	var (
		b    *domain.Booking
		prev domain.BookingStatus
	)
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		current, err := tx.Bookings.Get(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if _, err := tx.Calendar.LockRange(ctx, tenantID, current.RoomTypeID, current.Stay()); err != nil {
			return err
		}
		if b, err = tx.Bookings.GetForUpdate(ctx, tenantID, id); err != nil {
			return err
		}
		prev = b.Status
		if err := b.Apply(t); err != nil {
			return err
		}
		if err := fn(tx, b, prev); err != nil {
			return err
		}
		b.UpdatedAt = s.now()
		return tx.Bookings.UpdateState(ctx, b)
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("booking.status", string(b.Status)))
	span.SetStatus(codes.Ok, "transition applied")
	s.publish(ctx, b, eventFor(t), prev)
	return b, nil
}

/* ---------- QUERIES & PAYMENT ---------- */

func (s *Service) Get(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	return s.store.Bookings.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string, f domain.BookingFilter) ([]domain.Booking, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.Invalid("status", fmt.Sprintf("unknown booking status %q", f.Status))
	}
	return s.store.Bookings.List(ctx, tenantID, f)
}

// UpdatePaymentStatus records the outcome reported by the payment side. It
// never changes the lifecycle status.
func (s *Service) UpdatePaymentStatus(ctx context.Context, tenantID, id string, status domain.PaymentStatus) (*domain.Booking, error) {
	if !status.Valid() {
		return nil, domain.Invalid("payment_status", fmt.Sprintf("unknown payment status %q", status))
	}
	var b *domain.Booking
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if b, err = tx.Bookings.GetForUpdate(ctx, tenantID, id); err != nil {
			return err
		}
		b.PaymentStatus = status
		b.UpdatedAt = s.now()
		return tx.Bookings.UpdateState(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, b, domain.EventPaymentUpdated, b.Status)
	return b, nil
}

// ExpirePending cancels PENDING bookings whose hold has lapsed and drops the
// hold with them. It runs ahead of the hold sweep, which leaves holds that a
// booking still refers to alone.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	pending, err := s.store.Bookings.ListPending(ctx, s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range pending {
		b := pending[i]
		lapsed, err := s.holdLapsed(ctx, &b)
		if err != nil {
			return expired, err
		}
		if !lapsed {
			continue
		}

		var cancelled *domain.Booking
		err = s.store.InTx(ctx, func(tx *repository.Store) error {
			if _, err := tx.Calendar.LockRange(ctx, b.TenantID, b.RoomTypeID, b.Stay()); err != nil {
				return err
			}
			cur, err := tx.Bookings.GetForUpdate(ctx, b.TenantID, b.ID)
			if err != nil {
				return err
			}
			if cur.Status != domain.BookingPending {
				return nil
			}
			if err := cur.Apply(domain.TransitionCancel); err != nil {
				return err
			}
			if err := s.cancelTx(ctx, tx, cur, domain.BookingPending, "hold expired"); err != nil {
				return err
			}
			cur.UpdatedAt = s.now()
			if err := tx.Bookings.UpdateState(ctx, cur); err != nil {
				return err
			}
			cancelled = cur
			return nil
		})
		if err != nil {
			return expired, err
		}
		if cancelled != nil {
			expired++
			s.publish(ctx, cancelled, domain.EventBookingCancelled, domain.BookingPending)
		}
	}

	if expired > 0 {
		log.Printf("booking_expire cancelled=%d scanned=%d", expired, len(pending))
	}
	return expired, nil
}

func (s *Service) holdLapsed(ctx context.Context, b *domain.Booking) (bool, error) {
	if b.HoldToken == "" {
		return true, nil
	}
	h, err := s.store.Holds.Get(ctx, b.TenantID, b.HoldToken)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !h.Live(s.now()), nil
}

/* ---------- helpers ---------- */

func (s *Service) propertyToday(ctx context.Context, tx *repository.Store, b *domain.Booking) (domain.Date, error) {
	prop, err := tx.Properties.Get(ctx, b.TenantID, b.PropertyID)
	if err != nil {
		return domain.Date{}, err
	}
	return domain.DateIn(s.now(), prop.Location(s.loc)), nil
}

func (s *Service) setRoomStatus(ctx context.Context, tx *repository.Store, b *domain.Booking, status domain.RoomStatus) error {
	if b.RoomID == nil || *b.RoomID == "" {
		return nil
	}
	return tx.Rooms.UpdateStatus(ctx, b.TenantID, *b.RoomID, status)
}

func (s *Service) commission(source string, total float64) float64 {
	pct, ok := s.commissions[source]
	if !ok || pct <= 0 {
		return 0
	}
	return math.Round(total*pct) / 100
}

func (s *Service) publish(ctx context.Context, b *domain.Booking, eventType string, from domain.BookingStatus) {
	payload := domain.Metadata{
		"status":         string(b.Status),
		"payment_status": string(b.PaymentStatus),
		"room_type_id":   b.RoomTypeID,
		"checkin":        b.CheckIn.String(),
		"checkout":       b.CheckOut.String(),
		"units":          b.Units,
		"total_amount":   b.TotalAmount,
		"currency":       b.Currency,
	}
	if from != "" {
		payload["from_status"] = string(from)
	}
	if b.CancellationReason != "" {
		payload["reason"] = b.CancellationReason
	}
	s.events.Publish(ctx, domain.Event{
		TenantID:   b.TenantID,
		Type:       eventType,
		EntityType: "booking",
		EntityID:   b.ID,
		Actor:      domain.ActorFrom(ctx),
		Payload:    payload,
		OccurredAt: s.now(),
	})
}

func eventFor(t domain.Transition) string {
	switch t {
	case domain.TransitionConfirm:
		return domain.EventBookingConfirmed
	case domain.TransitionCheckIn:
		return domain.EventBookingCheckedIn
	case domain.TransitionCheckOut:
		return domain.EventBookingCheckedOut
	case domain.TransitionCancel:
		return domain.EventBookingCancelled
	case domain.TransitionNoShow:
		return domain.EventBookingNoShow
	}
	return "booking." + string(t)
}

func nightlyItems(q *pricing.Quote) []domain.BookingItem {
	items := make([]domain.BookingItem, 0, len(q.Nights))
	for _, n := range q.Nights {
		items = append(items, domain.BookingItem{
			Code:        n.Date.String(),
			Description: "Room night " + n.Date.String(),
			Quantity:    q.Units,
			UnitPrice:   n.Amount,
			TotalPrice:  math.Round(n.Amount*float64(q.Units)*100) / 100,
		})
	}
	return items
}

// perUnitOccupancy spreads guests evenly over the booked units, rounding up.
func perUnitOccupancy(guests, units int) int {
	if units <= 1 {
		return guests
	}
	return (guests + units - 1) / units
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
