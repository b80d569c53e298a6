package domain

import "time"

const (
	DefaultTimezone = "Asia/Kathmandu"
	DefaultCurrency = "NPR"
)

type Property struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timezone  string    `json:"timezone"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// Location resolves the property timezone, falling back to fallback when the
// stored zone is empty or unknown.
func (p *Property) Location(fallback *time.Location) *time.Location {
	if p != nil && p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

type RoomType struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	PropertyID       string    `json:"property_id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	MaxOccupancy     int       `json:"max_occupancy"`
	DefaultBasePrice float64   `json:"default_base_price"`
	Currency         string    `json:"currency,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
