package pricing

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
	rg.POST("/quotes", h.Quote)

	plans := rg.Group("/rate-plans")
	{
		plans.POST("", h.CreatePlan)
		plans.GET("", h.ListPlans)
		plans.GET("/:id", h.GetPlan)
		plans.PATCH("/:id", h.SetActive)
		plans.POST("/:id/rules", h.AddRule)
		plans.DELETE("/:id/rules/:ruleId", h.RetireRule)
	}
}

// Quote — POST /quotes
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		response.FromError(c, err)
		return
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		response.FromError(c, err)
		return
	}
	rng, err := domain.NewDateRange(start, end)
	if err != nil {
		response.FromError(c, err)
		return
	}

	q, err := h.service.Price(c.Request.Context(), middleware.TenantID(c), PriceRequest{
		PropertyID: req.PropertyID,
		RoomTypeID: req.RoomTypeID,
		Range:      rng,
		Occupancy:  req.Occupancy,
		Units:      req.Units,
		Currency:   req.Currency,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// CreatePlan — POST /rate-plans
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	p, err := h.service.CreatePlan(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"rate_plan": p})
}

// ListPlans — GET /rate-plans?property_id=...
func (h *Handler) ListPlans(c *gin.Context) {
	propertyID := c.Query("property_id")
	if propertyID == "" {
		response.FromError(c, domain.Invalid("property_id", "query parameter is required"))
		return
	}
	plans, err := h.service.ListPlans(c.Request.Context(), middleware.TenantID(c), propertyID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rate_plans": plans})
}

func (h *Handler) GetPlan(c *gin.Context) {
	p, err := h.service.GetPlan(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rate_plan": p})
}

// SetActive — PATCH /rate-plans/:id
func (h *Handler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	if err := h.service.SetActive(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Active); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "active": req.Active})
}

// AddRule — POST /rate-plans/:id/rules
func (h *Handler) AddRule(c *gin.Context) {
	var req AddRuleRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	rule := domain.RatePlanRule{
		Weekdays:      req.Weekdays,
		MinOccupancy:  req.MinOccupancy,
		MaxOccupancy:  req.MaxOccupancy,
		ModifierType:  domain.ModifierType(strings.ToUpper(req.ModifierType)),
		ModifierValue: req.ModifierValue,
		Priority:      domain.DefaultRulePriority,
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	var err error
	if rule.StartDate, err = optionalDate("start_date", req.StartDate); err != nil {
		response.FromError(c, err)
		return
	}
	if rule.EndDate, err = optionalDate("end_date", req.EndDate); err != nil {
		response.FromError(c, err)
		return
	}

	saved, err := h.service.AddRule(c.Request.Context(), middleware.TenantID(c), c.Param("id"), rule)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"rule": saved})
}

// RetireRule — DELETE /rate-plans/:id/rules/:ruleId
func (h *Handler) RetireRule(c *gin.Context) {
	if err := h.service.RetireRule(c.Request.Context(), middleware.TenantID(c), c.Param("id"), c.Param("ruleId")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"retired": true})
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
