package domain

import "time"

// Capacity is the ground-truth inventory row for one room type and date.
type Capacity struct {
	Available int `json:"available_count"`
	Blocked   int `json:"blocked_count"`
}

func (c Capacity) Validate() error {
	if c.Blocked < 0 {
		return Invalid("blocked_count", "must be >= 0")
	}
	if c.Available < c.Blocked {
		return Invalid("available_count", "must be >= blocked_count")
	}
	return nil
}

// Sellable is available minus blocked, floored at zero.
func (c Capacity) Sellable() int {
	if n := c.Available - c.Blocked; n > 0 {
		return n
	}
	return 0
}

type CalendarDay struct {
	TenantID   string `json:"tenant_id"`
	RoomTypeID string `json:"room_type_id"`
	Date       Date   `json:"date"`
	Capacity
	UpdatedAt time.Time `json:"updated_at"`
}

// ChannelAllocation caps what a single sales channel may sell of a room type.
// A nil bound is open-ended.
type ChannelAllocation struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	RoomTypeID     string    `json:"room_type_id"`
	ChannelCode    string    `json:"channel_code"`
	AllocatedCount int       `json:"allocated_count"`
	EffectiveFrom  *Date     `json:"effective_from,omitempty"`
	EffectiveTo    *Date     `json:"effective_to,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EffectiveOn treats both bounds as inclusive.
func (a ChannelAllocation) EffectiveOn(d Date) bool {
	if a.EffectiveFrom != nil && d.Before(*a.EffectiveFrom) {
		return false
	}
	if a.EffectiveTo != nil && d.After(*a.EffectiveTo) {
		return false
	}
	return true
}

func (a ChannelAllocation) Validate() error {
	if a.ChannelCode == "" {
		return Invalid("channel_code", "is required")
	}
	if a.AllocatedCount < 0 {
		return Invalid("allocated_count", "must be >= 0")
	}
	if a.EffectiveFrom != nil && a.EffectiveTo != nil && a.EffectiveTo.Before(*a.EffectiveFrom) {
		return Invalid("effective_to", "must not be before effective_from")
	}
	return nil
}

// EffectiveAllocation picks the allocation governing channel on d. When
// several overlap, the one with the latest start wins, then the newest.
func EffectiveAllocation(allocs []ChannelAllocation, channel string, d Date) *ChannelAllocation {
	var best *ChannelAllocation
	for i := range allocs {
		a := &allocs[i]
		if a.ChannelCode != channel || !a.EffectiveOn(d) {
			continue
		}
		if best == nil || laterAllocation(a, best) {
			best = a
		}
	}
	return best
}

func laterAllocation(a, b *ChannelAllocation) bool {
	switch {
	case a.EffectiveFrom == nil && b.EffectiveFrom == nil:
	case a.EffectiveFrom == nil:
		return false
	case b.EffectiveFrom == nil:
		return true
	case !a.EffectiveFrom.Equal(*b.EffectiveFrom):
		return a.EffectiveFrom.After(*b.EffectiveFrom)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// SellableCapacity applies the channel cap on top of the calendar row.
func SellableCapacity(c Capacity, alloc *ChannelAllocation) int {
	n := c.Sellable()
	if alloc != nil && alloc.AllocatedCount < n {
		n = alloc.AllocatedCount
	}
	if n < 0 {
		return 0
	}
	return n
}
