package domain

import "time"

type RoomStatus string

const (
	RoomAvailable    RoomStatus = "AVAILABLE"
	RoomOccupied     RoomStatus = "OCCUPIED"
	RoomOutOfService RoomStatus = "OUT_OF_SERVICE"
	RoomMaintenance  RoomStatus = "MAINTENANCE"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomOutOfService, RoomMaintenance:
		return true
	}
	return false
}

// Room is a physical unit of a room type. Inventory is counted per room type;
// rooms only matter when a booking is pinned to one.
type Room struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	RoomTypeID string     `json:"room_type_id"`
	RoomNumber string     `json:"room_number"`
	Status     RoomStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}
