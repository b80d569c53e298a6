package pricing

type QuoteRequest struct {
	PropertyID string `json:"property_id" validate:"required"`
	RoomTypeID string `json:"room_type_id" validate:"required"`
	StartDate  string `json:"start_date" validate:"required"`
	EndDate    string `json:"end_date" validate:"required"`
	Occupancy  int    `json:"occupancy" validate:"required,gt=0"`
	Units      int    `json:"units" validate:"omitempty,gt=0"`
	Currency   string `json:"currency" validate:"omitempty,len=3"`
}

type CreatePlanRequest struct {
	PropertyID string  `json:"property_id" validate:"required"`
	RoomTypeID *string `json:"room_type_id"`
	Name       string  `json:"name" validate:"required,max=200"`
	Currency   string  `json:"currency" validate:"omitempty,len=3"`
	BasePrice  float64 `json:"base_price" validate:"gte=0"`
	MinStay    int     `json:"min_stay" validate:"omitempty,gte=1"`
	MaxStay    *int    `json:"max_stay" validate:"omitempty,gte=1"`
}

type AddRuleRequest struct {
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Weekdays      []int   `json:"weekdays" validate:"omitempty,dive,min=1,max=7"`
	MinOccupancy  *int    `json:"min_occupancy" validate:"omitempty,gte=1"`
	MaxOccupancy  *int    `json:"max_occupancy" validate:"omitempty,gte=1"`
	ModifierType  string  `json:"modifier_type" validate:"required,oneof=AMOUNT PERCENT"`
	ModifierValue float64 `json:"modifier_value"`
	Priority      *int    `json:"priority"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}
