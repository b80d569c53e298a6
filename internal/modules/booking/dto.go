package booking

import (
	"time"

	"homestay/internal/domain"

	"github.com/jinzhu/copier"
)

type GuestInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Nationality string `json:"nationality" validate:"omitempty,max=64"`
}

type CreateBookingRequest struct {
	PropertyID  string      `json:"property_id" validate:"required"`
	RoomTypeID  string      `json:"room_type_id" validate:"required"`
	RoomID      string      `json:"room_id"`
	CheckIn     string      `json:"checkin" validate:"required"`
	CheckOut    string      `json:"checkout" validate:"required"`
	Units       int         `json:"units" validate:"omitempty,gt=0"`
	GuestsCount int         `json:"guests_count" validate:"required,gt=0"`
	Source      string      `json:"source" validate:"omitempty,max=64"`
	Currency    string      `json:"currency" validate:"omitempty,len=3"`
	HoldToken   string      `json:"hold_token"`
	ExternalID  string      `json:"external_id" validate:"omitempty,max=128"`
	Guest       *GuestInput `json:"guest" validate:"omitempty"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=PENDING PAID FAILED REFUNDED"`
}

type ItemResponse struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

type GuestResponse struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	IsPrimary   bool   `json:"is_primary"`
}

// BookingResponse is the public view of a booking. Field names follow the
// domain struct so copier can fill it.
type BookingResponse struct {
	ID                 string          `json:"id"`
	ExternalID         string          `json:"external_id,omitempty"`
	PropertyID         string          `json:"property_id"`
	RoomTypeID         string          `json:"room_type_id"`
	RoomID             *string         `json:"room_id,omitempty"`
	Source             string          `json:"source"`
	CheckIn            domain.Date     `json:"checkin"`
	CheckOut           domain.Date     `json:"checkout"`
	Nights             int             `json:"nights"`
	Units              int             `json:"units"`
	GuestsCount        int             `json:"guests_count"`
	Status             string          `json:"status"`
	PaymentStatus      string          `json:"payment_status"`
	TotalAmount        float64         `json:"total_amount"`
	Currency           string          `json:"currency"`
	CommissionAmount   float64         `json:"commission_amount"`
	HoldToken          string          `json:"hold_token,omitempty"`
	RatePlanID         string          `json:"rate_plan_id,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Items              []ItemResponse  `json:"items,omitempty"`
	Guests             []GuestResponse `json:"guests,omitempty"`
}

func toBookingResponse(b *domain.Booking) (BookingResponse, error) {
	var out BookingResponse
	if err := copier.Copy(&out, b); err != nil {
		return BookingResponse{}, err
	}
	out.Status = string(b.Status)
	out.PaymentStatus = string(b.PaymentStatus)
	return out, nil
}

func toBookingResponses(list []domain.Booking) ([]BookingResponse, error) {
	out := make([]BookingResponse, 0, len(list))
	for i := range list {
		r, err := toBookingResponse(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
