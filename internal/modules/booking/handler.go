package booking

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"homestay/internal/domain"
	"homestay/internal/middleware"
	"homestay/internal/pkg/response"
	"homestay/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/confirm", h.Confirm)
		bookings.POST("/:id/check-in", h.CheckIn)
		bookings.POST("/:id/check-out", h.CheckOut)
		bookings.POST("/:id/cancel", h.Cancel)
		bookings.POST("/:id/no-show", h.MarkNoShow)
		bookings.PATCH("/:id/payment-status", h.UpdatePaymentStatus)
	}
}

// CreateBooking — POST /bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !validator.BindJSON(c, &req) {
		return
	}

	checkIn, err := domain.ParseDate(req.CheckIn)
	if err != nil {
		response.FromError(c, domain.Invalid("checkin", "expected YYYY-MM-DD"))
		return
	}
	checkOut, err := domain.ParseDate(req.CheckOut)
	if err != nil {
		response.FromError(c, domain.Invalid("checkout", "expected YYYY-MM-DD"))
		return
	}
	rng, err := domain.NewDateRange(checkIn, checkOut)
	if err != nil {
		response.FromError(c, err)
		return
	}

	createdByType, createdByID := creator(c)
	in := CreateRequest{
		PropertyID:    req.PropertyID,
		RoomTypeID:    req.RoomTypeID,
		RoomID:        req.RoomID,
		Range:         rng,
		Units:         req.Units,
		GuestsCount:   req.GuestsCount,
		Source:        req.Source,
		Currency:      req.Currency,
		HoldToken:     req.HoldToken,
		ExternalID:    req.ExternalID,
		CreatedByType: createdByType,
		CreatedByID:   createdByID,
	}
	if req.Guest != nil {
		in.Guest = &domain.BookingGuest{
			Name:        req.Guest.Name,
			Email:       req.Guest.Email,
			Phone:       req.Guest.Phone,
			Nationality: req.Guest.Nationality,
		}
	}

	b, err := h.service.Create(c.Request.Context(), middleware.TenantID(c), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, b)
}

// GetBooking — GET /bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.respond(c, http.StatusOK, b)
}

// ListBookings — GET /bookings?status=CONFIRMED&room_type_id=...&from=...&to=...&page=1&per_page=20
func (h *Handler) ListBookings(c *gin.Context) {
	f := domain.BookingFilter{
		Status:     domain.BookingStatus(strings.ToUpper(c.Query("status"))),
		RoomTypeID: c.Query("room_type_id"),
		Page:       1,
		PerPage:    20,
	}
	if v := c.Query("from"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			response.FromError(c, domain.Invalid("from", "expected YYYY-MM-DD"))
			return
		}
		f.From = &d
	}
	if v := c.Query("to"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			response.FromError(c, domain.Invalid("to", "expected YYYY-MM-DD"))
			return
		}
		f.To = &d
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		f.Page = page
	}
	if perPage, err := strconv.Atoi(c.Query("per_page")); err == nil && perPage > 0 && perPage <= 100 {
		f.PerPage = perPage
	}

	list, total, err := h.service.List(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.FromError(c, err)
		return
	}
	items, err := toBookingResponses(list)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Paginated(c, items, total, f.Page, f.PerPage)
}

// Confirm — POST /bookings/:id/confirm
func (h *Handler) Confirm(c *gin.Context) {
	h.apply(c, h.service.Confirm)
}

// CheckIn — POST /bookings/:id/check-in
func (h *Handler) CheckIn(c *gin.Context) {
	h.apply(c, h.service.CheckIn)
}

// CheckOut — POST /bookings/:id/check-out
func (h *Handler) CheckOut(c *gin.Context) {
	h.apply(c, h.service.CheckOut)
}

// MarkNoShow — POST /bookings/:id/no-show
func (h *Handler) MarkNoShow(c *gin.Context) {
	h.apply(c, h.service.MarkNoShow)
}

// Cancel — POST /bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelBookingRequest
	// the body is optional
	if c.Request.ContentLength > 0 && !validator.BindJSON(c, &req) {
		return
	}
	b, err := h.service.Cancel(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.respond(c, http.StatusOK, b)
}

// UpdatePaymentStatus — PATCH /bookings/:id/payment-status
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	b, err := h.service.UpdatePaymentStatus(c.Request.Context(), middleware.TenantID(c), c.Param("id"),
		domain.PaymentStatus(req.PaymentStatus))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.respond(c, http.StatusOK, b)
}

type transitionCall func(ctx context.Context, tenantID, id string) (*domain.Booking, error)

func (h *Handler) apply(c *gin.Context, call transitionCall) {
	b, err := call(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.respond(c, http.StatusOK, b)
}

func (h *Handler) respond(c *gin.Context, status int, b *domain.Booking) {
	out, err := toBookingResponse(b)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, status, gin.H{"booking": out})
}

// creator derives created_by from the authenticated principal.
func creator(c *gin.Context) (string, string) {
	actor := middleware.Actor(c)
	kind, id, ok := strings.Cut(actor, ":")
	if !ok {
		return domain.CreatedByVisitor, ""
	}
	switch kind {
	case "user":
		return "STAFF", id
	case "api_key":
		return "API_KEY", id
	}
	return domain.CreatedByVisitor, ""
}
