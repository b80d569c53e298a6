package hold

import (
	"context"
	"time"

	"homestay/internal/domain"
	"homestay/internal/repository"
)

// DayAvailability is the accounting view of one night.
type DayAvailability struct {
	Date            domain.Date `json:"date"`
	Available       int         `json:"available_count"`
	Blocked         int         `json:"blocked_count"`
	Sellable        int         `json:"sellable"`
	Consumed        int         `json:"consumed"`
	ChannelConsumed int         `json:"channel_consumed,omitempty"`
	Remaining       int         `json:"remaining"`
}

// ledger is a snapshot of everything that counts against a room type's
// inventory over a date range. A booking whose hold is still live is counted
// through that hold; every other booking in a consuming status counts by
// itself, including a pending one whose hold lapsed or was converted.
type ledger struct {
	days     map[string]domain.Capacity
	allocs   []domain.ChannelAllocation
	holds    []domain.Hold
	bookings []domain.Booking
}

// loadLedger reads the snapshot through tx. With lock set the calendar rows
// are read FOR UPDATE first, which is the serialization point for every
// write that changes consumption of those nights.
func loadLedger(ctx context.Context, tx *repository.Store, tenantID, roomTypeID string, rng domain.DateRange, now time.Time, lock bool) (*ledger, error) {
	var (
		rows []domain.CalendarDay
		err  error
	)
	if lock {
		rows, err = tx.Calendar.LockRange(ctx, tenantID, roomTypeID, rng)
	} else {
		rows, err = tx.Calendar.List(ctx, tenantID, roomTypeID, rng)
	}
	if err != nil {
		return nil, err
	}

	l := &ledger{days: make(map[string]domain.Capacity, len(rows))}
	for _, r := range rows {
		l.days[r.Date.String()] = r.Capacity
	}

	if l.allocs, err = tx.Channels.ListForRange(ctx, tenantID, roomTypeID, rng); err != nil {
		return nil, err
	}

	holds, err := tx.Holds.ListUnconvertedOverlapping(ctx, tenantID, roomTypeID, rng)
	if err != nil {
		return nil, err
	}
	for _, h := range holds {
		if h.Live(now) {
			l.holds = append(l.holds, h)
		}
	}

	bookings, err := tx.Bookings.ListHoldingCapacity(ctx, tenantID, roomTypeID, rng)
	if err != nil {
		return nil, err
	}
	live := make(map[string]struct{}, len(l.holds))
	for _, h := range l.holds {
		live[h.Token] = struct{}{}
	}
	for _, b := range bookings {
		if _, counted := live[b.HoldToken]; counted && b.HoldToken != "" {
			continue
		}
		l.bookings = append(l.bookings, b)
	}
	return l, nil
}

func (l *ledger) day(d domain.Date, channel string) DayAvailability {
	capacity := l.days[d.String()]

	consumed, channelConsumed := 0, 0
	for i := range l.holds {
		h := &l.holds[i]
		if h.Range().Contains(d) {
			consumed += h.Quantity
			if channel != "" && h.Channel == channel {
				channelConsumed += h.Quantity
			}
		}
	}
	for i := range l.bookings {
		b := &l.bookings[i]
		if b.Stay().Contains(d) {
			consumed += b.Units
			if channel != "" && b.Source == channel {
				channelConsumed += b.Units
			}
		}
	}

	var alloc *domain.ChannelAllocation
	if channel != "" {
		alloc = domain.EffectiveAllocation(l.allocs, channel, d)
	}

	remaining := capacity.Sellable() - consumed
	if alloc != nil {
		if chRemaining := alloc.AllocatedCount - channelConsumed; chRemaining < remaining {
			remaining = chRemaining
		}
	}
	if remaining < 0 {
		remaining = 0
	}

	return DayAvailability{
		Date:            d,
		Available:       capacity.Available,
		Blocked:         capacity.Blocked,
		Sellable:        domain.SellableCapacity(capacity, alloc),
		Consumed:        consumed,
		ChannelConsumed: channelConsumed,
		Remaining:       remaining,
	}
}

// check returns a CapacityError for the first night that cannot take
// quantity more units.
func (l *ledger) check(rng domain.DateRange, quantity int, channel string) error {
	for _, d := range rng.Days() {
		day := l.day(d, channel)
		if day.Remaining < quantity {
			return &domain.CapacityError{
				Date:      d,
				Requested: quantity,
				Remaining: day.Remaining,
				Shortfall: quantity - day.Remaining,
			}
		}
	}
	return nil
}

func (l *ledger) view(rng domain.DateRange, channel string) []DayAvailability {
	days := rng.Days()
	out := make([]DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, l.day(d, channel))
	}
	return out
}
