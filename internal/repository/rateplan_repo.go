package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RatePlanRepository struct {
	db *gorm.DB
}

func NewRatePlanRepository(db *gorm.DB) *RatePlanRepository {
	return &RatePlanRepository{db: db}
}

type ratePlanModel struct {
	ID         string    `gorm:"column:id;primaryKey;size:36"`
	TenantID   string    `gorm:"column:tenant_id;size:36;index;not null"`
	PropertyID string    `gorm:"column:property_id;size:36;index;not null"`
	RoomTypeID *string   `gorm:"column:room_type_id;size:36;index"`
	Name       string    `gorm:"column:name;not null"`
	Currency   string    `gorm:"column:currency;size:3"`
	BasePrice  float64   `gorm:"column:base_price;not null"`
	MinStay    int       `gorm:"column:min_stay;not null"`
	MaxStay    *int      `gorm:"column:max_stay"`
	Active     bool      `gorm:"column:active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`

	Rules []ratePlanRuleModel `gorm:"foreignKey:RatePlanID"`
}

func (ratePlanModel) TableName() string { return "rate_plans" }

type ratePlanRuleModel struct {
	ID            string                   `gorm:"column:id;primaryKey;size:36"`
	RatePlanID    string                   `gorm:"column:rate_plan_id;size:36;index;not null"`
	StartDate     *domain.Date             `gorm:"column:start_date"`
	EndDate       *domain.Date             `gorm:"column:end_date"`
	Weekdays      datatypes.JSONSlice[int] `gorm:"column:days_of_week"`
	MinOccupancy  *int                     `gorm:"column:min_occupancy"`
	MaxOccupancy  *int                     `gorm:"column:max_occupancy"`
	ModifierType  string                   `gorm:"column:modifier_type;size:16;not null"`
	ModifierValue float64                  `gorm:"column:modifier_value;not null"`
	Priority      int                      `gorm:"column:priority;not null"`
	CreatedAt     time.Time                `gorm:"column:created_at"`
	RetiredAt     *time.Time               `gorm:"column:retired_at"`
}

func (ratePlanRuleModel) TableName() string { return "rate_plan_rules" }

func toDomainRule(m ratePlanRuleModel) domain.RatePlanRule {
	return domain.RatePlanRule{
		ID:            m.ID,
		RatePlanID:    m.RatePlanID,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		Weekdays:      []int(m.Weekdays),
		MinOccupancy:  m.MinOccupancy,
		MaxOccupancy:  m.MaxOccupancy,
		ModifierType:  domain.ModifierType(m.ModifierType),
		ModifierValue: m.ModifierValue,
		Priority:      m.Priority,
		CreatedAt:     m.CreatedAt,
		RetiredAt:     m.RetiredAt,
	}
}

func toDomainRatePlan(m ratePlanModel) domain.RatePlan {
	p := domain.RatePlan{
		ID:         m.ID,
		TenantID:   m.TenantID,
		PropertyID: m.PropertyID,
		RoomTypeID: m.RoomTypeID,
		Name:       m.Name,
		Currency:   m.Currency,
		BasePrice:  m.BasePrice,
		MinStay:    m.MinStay,
		MaxStay:    m.MaxStay,
		Active:     m.Active,
		CreatedAt:  m.CreatedAt,
	}
	for _, rm := range m.Rules {
		p.Rules = append(p.Rules, toDomainRule(rm))
	}
	return p
}

func (r *RatePlanRepository) Create(ctx context.Context, p *domain.RatePlan) error {
	if p.ID == "" {
		p.ID = newID()
	}
	m := ratePlanModel{
		ID:         p.ID,
		TenantID:   p.TenantID,
		PropertyID: p.PropertyID,
		RoomTypeID: p.RoomTypeID,
		Name:       p.Name,
		Currency:   p.Currency,
		BasePrice:  p.BasePrice,
		MinStay:    p.MinStay,
		MaxStay:    p.MaxStay,
		Active:     p.Active,
		CreatedAt:  utc(p.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Omit("Rules").Create(&m).Error; err != nil {
		return err
	}
	p.CreatedAt = m.CreatedAt
	return nil
}

func (r *RatePlanRepository) Get(ctx context.Context, tenantID, id string) (*domain.RatePlan, error) {
	var m ratePlanModel
	err := r.db.WithContext(ctx).
		Preload("Rules", "retired_at IS NULL").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("rate plan", id)
	}
	if err != nil {
		return nil, err
	}
	p := toDomainRatePlan(m)
	return &p, nil
}

// ListActive returns the active plans of a property with their current
// (non-retired) rules.
func (r *RatePlanRepository) ListActive(ctx context.Context, tenantID, propertyID string) ([]domain.RatePlan, error) {
	var rows []ratePlanModel
	err := r.db.WithContext(ctx).
		Preload("Rules", "retired_at IS NULL").
		Where("tenant_id = ? AND property_id = ? AND active = ?", tenantID, propertyID, true).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.RatePlan, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainRatePlan(m))
	}
	return out, nil
}

func (r *RatePlanRepository) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&ratePlanModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("rate plan", id)
	}
	return nil
}

func (r *RatePlanRepository) AddRule(ctx context.Context, rule *domain.RatePlanRule) error {
	if rule.ID == "" {
		rule.ID = newID()
	}
	m := ratePlanRuleModel{
		ID:            rule.ID,
		RatePlanID:    rule.RatePlanID,
		StartDate:     rule.StartDate,
		EndDate:       rule.EndDate,
		Weekdays:      datatypes.JSONSlice[int](rule.Weekdays),
		MinOccupancy:  rule.MinOccupancy,
		MaxOccupancy:  rule.MaxOccupancy,
		ModifierType:  string(rule.ModifierType),
		ModifierValue: rule.ModifierValue,
		Priority:      rule.Priority,
		CreatedAt:     utc(rule.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	rule.CreatedAt = m.CreatedAt
	return nil
}

// RetireRule stamps retired_at on a rule of one of the tenant's plans. Rules
// are never edited in place.
func (r *RatePlanRepository) RetireRule(ctx context.Context, tenantID, planID, ruleID string, at time.Time) error {
	if _, err := r.Get(ctx, tenantID, planID); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&ratePlanRuleModel{}).
		Where("id = ? AND rate_plan_id = ? AND retired_at IS NULL", ruleID, planID).
		Update("retired_at", utc(at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("rate plan rule", ruleID)
	}
	return nil
}
