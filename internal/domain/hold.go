package domain

import (
	"fmt"
	"time"
)

// Metadata is a flat object of primitive values attached to holds and
// events. Nested objects and arrays are rejected so the shape stays stable.
type Metadata map[string]any

func (m Metadata) Validate() error {
	for k, v := range m {
		if k == "" {
			return Invalid("metadata", "keys must not be empty")
		}
		switch v.(type) {
		case nil, string, bool, float64, float32, int, int32, int64:
		default:
			return Invalid("metadata", fmt.Sprintf("value for %q must be a string, number, boolean or null", k))
		}
	}
	return nil
}

// Hold is a temporary claim on room-night capacity. It is live while it has
// not been converted and has not expired.
type Hold struct {
	Token       string     `json:"hold_token"`
	TenantID    string     `json:"tenant_id"`
	RoomTypeID  string     `json:"room_type_id"`
	Channel     string     `json:"channel,omitempty"`
	StartDate   Date       `json:"start_date"`
	EndDate     Date       `json:"end_date"`
	Quantity    int        `json:"quantity"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	Metadata    Metadata   `json:"metadata,omitempty"`
}

func (h *Hold) Range() DateRange {
	return DateRange{Start: h.StartDate, End: h.EndDate}
}

func (h *Hold) Converted() bool {
	return h.ConvertedAt != nil
}

func (h *Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}

func (h *Hold) Live(now time.Time) bool {
	return !h.Converted() && !h.Expired(now)
}
