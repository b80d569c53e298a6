package hold

import (
	"time"

	"homestay/internal/domain"
)

type CreateHoldRequest struct {
	RoomTypeID string          `json:"room_type_id" validate:"required"`
	StartDate  string          `json:"start_date" validate:"required"`
	EndDate    string          `json:"end_date" validate:"required"`
	Quantity   int             `json:"quantity" validate:"required,gt=0"`
	Channel    string          `json:"channel" validate:"omitempty,max=64"`
	Metadata   domain.Metadata `json:"metadata"`
}

type HoldResponse struct {
	Token      string          `json:"hold_token"`
	RoomTypeID string          `json:"room_type_id"`
	Channel    string          `json:"channel,omitempty"`
	StartDate  domain.Date     `json:"start_date"`
	EndDate    domain.Date     `json:"end_date"`
	Quantity   int             `json:"quantity"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Converted  bool            `json:"converted"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
}

func toHoldResponse(h *domain.Hold) HoldResponse {
	return HoldResponse{
		Token:      h.Token,
		RoomTypeID: h.RoomTypeID,
		Channel:    h.Channel,
		StartDate:  h.StartDate,
		EndDate:    h.EndDate,
		Quantity:   h.Quantity,
		ExpiresAt:  h.ExpiresAt,
		Converted:  h.Converted(),
		Metadata:   h.Metadata,
	}
}
