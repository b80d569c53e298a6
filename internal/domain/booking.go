package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingNoShow     BookingStatus = "NO_SHOW"
)

var bookingStatuses = []BookingStatus{
	BookingPending,
	BookingConfirmed,
	BookingCheckedIn,
	BookingCheckedOut,
	BookingCancelled,
	BookingNoShow,
}

type Transition string

const (
	TransitionConfirm  Transition = "confirm"
	TransitionCheckIn  Transition = "check_in"
	TransitionCheckOut Transition = "check_out"
	TransitionCancel   Transition = "cancel"
	TransitionNoShow   Transition = "no_show"
)

// transitions lists every permitted move. Anything absent is rejected.
var transitions = map[BookingStatus]map[Transition]BookingStatus{
	BookingPending: {
		TransitionConfirm: BookingConfirmed,
		TransitionCancel:  BookingCancelled,
	},
	BookingConfirmed: {
		TransitionCheckIn: BookingCheckedIn,
		TransitionCancel:  BookingCancelled,
		TransitionNoShow:  BookingNoShow,
	},
	BookingCheckedIn: {
		TransitionCheckOut: BookingCheckedOut,
	},
	BookingCheckedOut: {},
	BookingCancelled:  {},
	BookingNoShow:     {},
}

func init() {
	for _, s := range bookingStatuses {
		if _, ok := transitions[s]; !ok {
			panic(fmt.Sprintf("booking status %s has no transition entry", s))
		}
	}
	for from, moves := range transitions {
		for t, to := range moves {
			if !to.Valid() {
				panic(fmt.Sprintf("transition %s from %s targets unknown status %s", t, from, to))
			}
		}
	}
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.Valid() {
		return "", Invalid("status", fmt.Sprintf("unknown booking status %q", s))
	}
	return st, nil
}

func (s BookingStatus) Valid() bool {
	for _, known := range bookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// ConsumesCapacity reports whether a booking in this status counts against
// inventory. While a pending booking's hold is live the hold carries the
// count instead, so the two are never added together.
func (s BookingStatus) ConsumesCapacity() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingNoShow:
		return true
	default:
		return false
	}
}

// Next returns the status reached by applying t, or false when t is not
// permitted from s.
func (s BookingStatus) Next(t Transition) (BookingStatus, bool) {
	to, ok := transitions[s][t]
	return to, ok
}

func (s BookingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid booking status %q", string(s))
	}
	return string(s), nil
}

func (s *BookingStatus) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into BookingStatus", value)
	}
	st := BookingStatus(raw)
	if !st.Valid() {
		return fmt.Errorf("unknown booking status %q in storage", raw)
	}
	*s = st
	return nil
}

// ConsumingStatuses are the statuses whose bookings count against inventory.
func ConsumingStatuses() []BookingStatus {
	out := make([]BookingStatus, 0, len(bookingStatuses))
	for _, s := range bookingStatuses {
		if s.ConsumesCapacity() {
			out = append(out, s)
		}
	}
	return out
}

// ActiveStatuses occupy a physical room.
func ActiveStatuses() []BookingStatus {
	return []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn}
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

const (
	SourceMarketplace = "MARKETPLACE"
	CreatedByVisitor  = "VISITOR"
)

type Booking struct {
	ID                 string         `json:"id"`
	TenantID           string         `json:"tenant_id"`
	ExternalID         string         `json:"external_id,omitempty"`
	PropertyID         string         `json:"property_id"`
	RoomTypeID         string         `json:"room_type_id"`
	RoomID             *string        `json:"room_id,omitempty"`
	Source             string         `json:"source"`
	CheckIn            Date           `json:"checkin"`
	CheckOut           Date           `json:"checkout"`
	Nights             int            `json:"nights"`
	Units              int            `json:"units"`
	GuestsCount        int            `json:"guests_count"`
	Status             BookingStatus  `json:"status"`
	PaymentStatus      PaymentStatus  `json:"payment_status"`
	TotalAmount        float64        `json:"total_amount"`
	Currency           string         `json:"currency"`
	CommissionAmount   float64        `json:"commission_amount"`
	HoldToken          string         `json:"hold_token,omitempty"`
	RatePlanID         string         `json:"rate_plan_id,omitempty"`
	CreatedByType      string         `json:"created_by_type"`
	CreatedByID        string         `json:"created_by_id,omitempty"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Items              []BookingItem  `json:"items,omitempty"`
	Guests             []BookingGuest `json:"guests,omitempty"`
}

func (b *Booking) Stay() DateRange {
	return DateRange{Start: b.CheckIn, End: b.CheckOut}
}

// Apply moves the booking along t or reports why it cannot.
func (b *Booking) Apply(t Transition) error {
	next, ok := b.Status.Next(t)
	if !ok {
		return &InvalidStateError{BookingID: b.ID, Current: b.Status, Attempted: t}
	}
	b.Status = next
	return nil
}

// BookingItem is the priced snapshot of one night of a stay.
type BookingItem struct {
	ID          string  `json:"id"`
	BookingID   string  `json:"booking_id"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

type BookingGuest struct {
	ID          string `json:"id"`
	BookingID   string `json:"booking_id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	IsPrimary   bool   `json:"is_primary"`
}

type BookingFilter struct {
	Status     BookingStatus
	RoomTypeID string
	From       *Date
	To         *Date
	Page       int
	PerPage    int
}
