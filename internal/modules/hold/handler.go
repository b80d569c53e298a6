package hold

import (
	"net/http"
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
	holds := rg.Group("/holds")
	{
		holds.POST("", h.CreateHold)
		holds.GET("/:token", h.GetHold)
		holds.DELETE("/:token", h.ReleaseHold)
	}
	rg.GET("/room-types/:id/availability", h.GetAvailability)
}

// CreateHold — POST /holds
func (h *Handler) CreateHold(c *gin.Context) {
	var req CreateHoldRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	rng, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		response.FromError(c, err)
		return
	}

	held, err := h.service.TryReserve(c.Request.Context(), middleware.TenantID(c), ReserveRequest{
		RoomTypeID: req.RoomTypeID,
		Range:      rng,
		Quantity:   req.Quantity,
		Channel:    strings.ToUpper(strings.TrimSpace(req.Channel)),
		Metadata:   req.Metadata,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toHoldResponse(held))
}

// GetHold — GET /holds/:token
func (h *Handler) GetHold(c *gin.Context) {
	held, err := h.service.Get(c.Request.Context(), middleware.TenantID(c), c.Param("token"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toHoldResponse(held))
}

// ReleaseHold — DELETE /holds/:token
func (h *Handler) ReleaseHold(c *gin.Context) {
	if err := h.service.Release(c.Request.Context(), middleware.TenantID(c), c.Param("token")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"released": true})
}

// GetAvailability — GET /room-types/:id/availability?from=...&to=...&channel=...
func (h *Handler) GetAvailability(c *gin.Context) {
	rng, err := parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	channel := strings.ToUpper(strings.TrimSpace(c.Query("channel")))
	days, err := h.service.Availability(c.Request.Context(), middleware.TenantID(c), c.Param("id"), rng, channel)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"room_type_id": c.Param("id"),
		"channel":      channel,
		"days":         days,
	})
}

func parseRange(start, end string) (domain.DateRange, error) {
	if start == "" || end == "" {
		return domain.DateRange{}, domain.Invalid("date_range", "start and end dates are required")
	}
	s, err := domain.ParseDate(start)
	if err != nil {
		return domain.DateRange{}, err
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.NewDateRange(s, e)
}
