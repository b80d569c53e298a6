package inventory

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
	rg.POST("/properties", h.CreateProperty)
	rg.GET("/properties/:id/room-types", h.ListRoomTypes)
	rg.POST("/room-types", h.CreateRoomType)
	rg.POST("/rooms", h.CreateRoom)

	calendar := rg.Group("/room-types/:id")
	{
		calendar.GET("/calendar", h.ListCapacity)
		calendar.POST("/calendar", h.UpsertRange)
		calendar.PUT("/calendar/:date", h.UpsertCapacity)
		calendar.GET("/capacity/:date", h.GetCapacity)
		calendar.POST("/channels", h.SetChannelAllocation)
	}
}

/* ---------- SETUP ---------- */

// CreateProperty — POST /properties
func (h *Handler) CreateProperty(c *gin.Context) {
	var req CreatePropertyRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	p, err := h.service.CreateProperty(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"property": p})
}

// ListRoomTypes — GET /properties/:id/room-types
func (h *Handler) ListRoomTypes(c *gin.Context) {
	types, err := h.service.ListRoomTypes(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"room_types": types})
}

// CreateRoomType — POST /room-types
func (h *Handler) CreateRoomType(c *gin.Context) {
	var req CreateRoomTypeRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	rt, err := h.service.CreateRoomType(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"room_type": rt})
}

// CreateRoom — POST /rooms
func (h *Handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	room, err := h.service.CreateRoom(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"room": room})
}

/* ---------- CALENDAR ---------- */

// ListCapacity — GET /room-types/:id/calendar?from=2025-06-01&to=2025-06-08
func (h *Handler) ListCapacity(c *gin.Context) {
	rng, err := QueryRange(c, "from", "to")
	if err != nil {
		response.FromError(c, err)
		return
	}
	days, err := h.service.ListCapacity(c.Request.Context(), middleware.TenantID(c), c.Param("id"), rng)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"calendar": days})
}

// UpsertCapacity — PUT /room-types/:id/calendar/:date
func (h *Handler) UpsertCapacity(c *gin.Context) {
	d, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	var req UpsertCapacityRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	day, err := h.service.UpsertCapacity(c.Request.Context(), middleware.TenantID(c), c.Param("id"), d,
		domain.Capacity{Available: req.AvailableCount, Blocked: req.BlockedCount})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"day": day})
}

// UpsertRange — POST /room-types/:id/calendar
func (h *Handler) UpsertRange(c *gin.Context) {
	var req UpsertRangeRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	rng, err := ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		response.FromError(c, err)
		return
	}
	days, err := h.service.UpsertRange(c.Request.Context(), middleware.TenantID(c), c.Param("id"), rng,
		domain.Capacity{Available: req.AvailableCount, Blocked: req.BlockedCount})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"calendar": days})
}

// GetCapacity — GET /room-types/:id/capacity/:date?channel=OTA
func (h *Handler) GetCapacity(c *gin.Context) {
	d, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	roomTypeID := c.Param("id")
	channel := strings.ToUpper(strings.TrimSpace(c.Query("channel")))

	capacity, err := h.service.GetCapacity(ctx, tenantID, roomTypeID, d)
	if err != nil {
		response.FromError(c, err)
		return
	}
	sellable, err := h.service.SellableCapacity(ctx, tenantID, roomTypeID, d, channel)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, CapacityResponse{
		Date:           d.String(),
		AvailableCount: capacity.Available,
		BlockedCount:   capacity.Blocked,
		Sellable:       sellable,
		Channel:        channel,
	})
}

// SetChannelAllocation — POST /room-types/:id/channels
func (h *Handler) SetChannelAllocation(c *gin.Context) {
	var req SetAllocationRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	a := domain.ChannelAllocation{
		RoomTypeID:     c.Param("id"),
		ChannelCode:    req.ChannelCode,
		AllocatedCount: req.AllocatedCount,
	}
	var err error
	if a.EffectiveFrom, err = optionalDate("effective_from", req.EffectiveFrom); err != nil {
		response.FromError(c, err)
		return
	}
	if a.EffectiveTo, err = optionalDate("effective_to", req.EffectiveTo); err != nil {
		response.FromError(c, err)
		return
	}

	saved, err := h.service.SetChannelAllocation(c.Request.Context(), middleware.TenantID(c), a)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"allocation": saved})
}

// ParseRange parses a half-open [start, end) pair of YYYY-MM-DD dates.
func ParseRange(start, end string) (domain.DateRange, error) {
	s, err := domain.ParseDate(start)
	if err != nil {
		return domain.DateRange{}, domain.Invalid("start_date", err.Error())
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return domain.DateRange{}, domain.Invalid("end_date", err.Error())
	}
	return domain.NewDateRange(s, e)
}

// QueryRange reads a date range from two query parameters.
func QueryRange(c *gin.Context, fromKey, toKey string) (domain.DateRange, error) {
	from, to := c.Query(fromKey), c.Query(toKey)
	if from == "" || to == "" {
		return domain.DateRange{}, domain.Invalid(fromKey, fromKey+" and "+toKey+" query parameters are required")
	}
	return ParseRange(from, to)
}

func optionalDate(field, raw string) (*domain.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return nil, domain.Invalid(field, "expected YYYY-MM-DD")
	}
	return &d, nil
}
