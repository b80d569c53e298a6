package inventory

// ---------- SETUP ----------

type CreatePropertyRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Timezone string `json:"timezone"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

type CreateRoomTypeRequest struct {
	PropertyID       string  `json:"property_id" validate:"required"`
	Name             string  `json:"name" validate:"required,max=200"`
	MaxOccupancy     int     `json:"max_occupancy" validate:"required,gt=0"`
	DefaultBasePrice float64 `json:"default_base_price" validate:"gte=0"`
	Currency         string  `json:"currency" validate:"omitempty,len=3"`
}

type CreateRoomRequest struct {
	RoomTypeID string `json:"room_type_id" validate:"required"`
	RoomNumber string `json:"room_number" validate:"required,max=32"`
}

// ---------- CALENDAR ----------

type UpsertCapacityRequest struct {
	AvailableCount int `json:"available_count" validate:"gte=0"`
	BlockedCount   int `json:"blocked_count" validate:"gte=0"`
}

type UpsertRangeRequest struct {
	StartDate      string `json:"start_date" validate:"required"`
	EndDate        string `json:"end_date" validate:"required"`
	AvailableCount int    `json:"available_count" validate:"gte=0"`
	BlockedCount   int    `json:"blocked_count" validate:"gte=0"`
}

type SetAllocationRequest struct {
	ChannelCode    string `json:"channel_code" validate:"required,max=64"`
	AllocatedCount int    `json:"allocated_count" validate:"gte=0"`
	EffectiveFrom  string `json:"effective_from"`
	EffectiveTo    string `json:"effective_to"`
}

type CapacityResponse struct {
	Date           string `json:"date"`
	AvailableCount int    `json:"available_count"`
	BlockedCount   int    `json:"blocked_count"`
	Sellable       int    `json:"sellable"`
	Channel        string `json:"channel,omitempty"`
}
