package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homestay/internal/domain"
	"homestay/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type PriceRequest struct {
	PropertyID string
	RoomTypeID string
	Range      domain.DateRange
	Occupancy  int
	Units      int
	Currency   string
}

// Service is the rate engine: it resolves the applicable plan and prices a
// stay night by night. It never writes while pricing.
type Service struct {
	store           *repository.Store
	defaultCurrency string
	now             func() time.Time
	tracer          trace.Tracer
}

func NewService(store *repository.Store, defaultCurrency string) *Service {
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &Service{
		store:           store,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
		tracer:          otel.Tracer("homestay/pricing"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Price quotes a stay. When the property has no active plan at all the room
// type's default base price stands in for a rule-less plan.
func (s *Service) Price(ctx context.Context, tenantID string, req PriceRequest) (*Quote, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.price", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("room_type.id", req.RoomTypeID),
		attribute.String("range", req.Range.String()),
	))
	defer span.End()

	q, err := s.price(ctx, tenantID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return q, nil
}

func (s *Service) price(ctx context.Context, tenantID string, req PriceRequest) (*Quote, error) {
	nights := req.Range.Nights()
	if nights <= 0 {
		return nil, domain.Invalid("date_range", "end_date must be after start_date")
	}
	if req.Occupancy < 1 {
		return nil, domain.Invalid("occupancy", "must be >= 1")
	}
	if req.Units == 0 {
		req.Units = 1
	}
	if req.Units < 0 {
		return nil, domain.Invalid("units", "must be >= 1")
	}

	prop, err := s.store.Properties.Get(ctx, tenantID, req.PropertyID)
	if err != nil {
		return nil, err
	}
	rt, err := s.store.RoomTypes.Get(ctx, tenantID, req.RoomTypeID)
	if err != nil {
		return nil, err
	}
	if rt.PropertyID != prop.ID {
		return nil, domain.Invalid("room_type_id", "room type does not belong to property")
	}

	plans, err := s.store.RatePlans.ListActive(ctx, tenantID, prop.ID)
	if err != nil {
		return nil, err
	}

	var plan *domain.RatePlan
	switch {
	case len(plans) > 0:
		plan = SelectPlan(plans, rt.ID, nights)
	case rt.DefaultBasePrice > 0:
		plan = &domain.RatePlan{
			PropertyID: prop.ID,
			Name:       "default",
			Currency:   rt.Currency,
			BasePrice:  rt.DefaultBasePrice,
			MinStay:    1,
			Active:     true,
		}
	}
	if plan == nil {
		return nil, &domain.NoRatePlanError{PropertyID: prop.ID, RoomTypeID: rt.ID, Nights: nights}
	}

	currency := firstNonEmpty(plan.Currency, rt.Currency, prop.Currency, s.defaultCurrency)
	if req.Currency != "" && !strings.EqualFold(req.Currency, currency) {
		return nil, domain.Invalid("currency", fmt.Sprintf("rate plan is priced in %s, not %s", currency, strings.ToUpper(req.Currency)))
	}

	q := Compute(plan, strings.ToUpper(currency), req.Range, req.Occupancy, req.Units)
	return &q, nil
}

/* ---------- RATE PLANS ---------- */

func (s *Service) CreatePlan(ctx context.Context, tenantID string, req CreatePlanRequest) (*domain.RatePlan, error) {
	prop, err := s.store.Properties.Get(ctx, tenantID, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if req.RoomTypeID != nil && *req.RoomTypeID == "" {
		req.RoomTypeID = nil
	}
	if req.RoomTypeID != nil {
		rt, err := s.store.RoomTypes.Get(ctx, tenantID, *req.RoomTypeID)
		if err != nil {
			return nil, err
		}
		if rt.PropertyID != prop.ID {
			return nil, domain.Invalid("room_type_id", "room type does not belong to property")
		}
	}

	p := &domain.RatePlan{
		TenantID:   tenantID,
		PropertyID: prop.ID,
		RoomTypeID: req.RoomTypeID,
		Name:       strings.TrimSpace(req.Name),
		Currency:   strings.ToUpper(firstNonEmpty(req.Currency, prop.Currency, s.defaultCurrency)),
		BasePrice:  req.BasePrice,
		MinStay:    req.MinStay,
		MaxStay:    req.MaxStay,
		Active:     true,
		CreatedAt:  s.now(),
	}
	if p.MinStay == 0 {
		p.MinStay = 1
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.RatePlans.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPlan(ctx context.Context, tenantID, id string) (*domain.RatePlan, error) {
	return s.store.RatePlans.Get(ctx, tenantID, id)
}

func (s *Service) ListPlans(ctx context.Context, tenantID, propertyID string) ([]domain.RatePlan, error) {
	if _, err := s.store.Properties.Get(ctx, tenantID, propertyID); err != nil {
		return nil, err
	}
	return s.store.RatePlans.ListActive(ctx, tenantID, propertyID)
}

func (s *Service) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	return s.store.RatePlans.SetActive(ctx, tenantID, id, active)
}

// AddRule attaches a new modifier to a plan. Rules are immutable once added.
func (s *Service) AddRule(ctx context.Context, tenantID, planID string, rule domain.RatePlanRule) (*domain.RatePlanRule, error) {
	if _, err := s.store.RatePlans.Get(ctx, tenantID, planID); err != nil {
		return nil, err
	}
	rule.RatePlanID = planID
	rule.CreatedAt = s.now()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.RatePlans.AddRule(ctx, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Service) RetireRule(ctx context.Context, tenantID, planID, ruleID string) error {
	return s.store.RatePlans.RetireRule(ctx, tenantID, planID, ruleID, s.now())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
