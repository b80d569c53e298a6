package domain

import (
	"fmt"
	"time"
)

type ModifierType string

const (
	ModifierAmount  ModifierType = "AMOUNT"
	ModifierPercent ModifierType = "PERCENT"
)

func (m ModifierType) Valid() bool {
	return m == ModifierAmount || m == ModifierPercent
}

const DefaultRulePriority = 100

type RatePlan struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	PropertyID string         `json:"property_id"`
	RoomTypeID *string        `json:"room_type_id,omitempty"`
	Name       string         `json:"name"`
	Currency   string         `json:"currency,omitempty"`
	BasePrice  float64        `json:"base_price"`
	MinStay    int            `json:"min_stay"`
	MaxStay    *int           `json:"max_stay,omitempty"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	Rules      []RatePlanRule `json:"rules,omitempty"`
}

func (p *RatePlan) Validate() error {
	if p.Name == "" {
		return Invalid("name", "is required")
	}
	if p.BasePrice < 0 {
		return Invalid("base_price", "must be >= 0")
	}
	if p.MinStay < 1 {
		return Invalid("min_stay", "must be >= 1")
	}
	if p.MaxStay != nil && *p.MaxStay < p.MinStay {
		return Invalid("max_stay", "must be >= min_stay")
	}
	return nil
}

// AdmitsStay checks the min/max stay bounds against a night count.
func (p *RatePlan) AdmitsStay(nights int) bool {
	if nights < p.MinStay {
		return false
	}
	if p.MaxStay != nil && nights > *p.MaxStay {
		return false
	}
	return true
}

func (p *RatePlan) RoomTypeSpecific() bool {
	return p.RoomTypeID != nil && *p.RoomTypeID != ""
}

// RatePlanRule is an immutable price modifier. Superseding a rule means
// retiring it and adding a new one.
type RatePlanRule struct {
	ID            string       `json:"id"`
	RatePlanID    string       `json:"rate_plan_id"`
	StartDate     *Date        `json:"start_date,omitempty"`
	EndDate       *Date        `json:"end_date,omitempty"`
	Weekdays      []int        `json:"weekdays,omitempty"`
	MinOccupancy  *int         `json:"min_occupancy,omitempty"`
	MaxOccupancy  *int         `json:"max_occupancy,omitempty"`
	ModifierType  ModifierType `json:"modifier_type"`
	ModifierValue float64      `json:"modifier_value"`
	Priority      int          `json:"priority"`
	CreatedAt     time.Time    `json:"created_at"`
	RetiredAt     *time.Time   `json:"retired_at,omitempty"`
}

func (r *RatePlanRule) Validate() error {
	if !r.ModifierType.Valid() {
		return Invalid("modifier_type", fmt.Sprintf("must be %s or %s", ModifierAmount, ModifierPercent))
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return Invalid("end_date", "must not be before start_date")
	}
	for _, wd := range r.Weekdays {
		if wd < 1 || wd > 7 {
			return Invalid("weekdays", "entries must be 1 (Monday) through 7 (Sunday)")
		}
	}
	if r.MinOccupancy != nil && r.MaxOccupancy != nil && *r.MaxOccupancy < *r.MinOccupancy {
		return Invalid("max_occupancy", "must be >= min_occupancy")
	}
	return nil
}

// AppliesTo reports whether the rule's date window (inclusive), weekday set
// and occupancy band all admit the given night.
func (r *RatePlanRule) AppliesTo(d Date, occupancy int) bool {
	if r.RetiredAt != nil {
		return false
	}
	if r.StartDate != nil && d.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && d.After(*r.EndDate) {
		return false
	}
	if len(r.Weekdays) > 0 {
		wd := d.ISOWeekday()
		found := false
		for _, w := range r.Weekdays {
			if w == wd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.MinOccupancy != nil && occupancy < *r.MinOccupancy {
		return false
	}
	if r.MaxOccupancy != nil && occupancy > *r.MaxOccupancy {
		return false
	}
	return true
}
