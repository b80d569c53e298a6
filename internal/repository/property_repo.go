package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/gorm"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

type propertyModel struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	TenantID  string    `gorm:"column:tenant_id;size:36;index;not null"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;index"`
	Timezone  string    `gorm:"column:timezone"`
	Currency  string    `gorm:"column:currency;size:3"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (propertyModel) TableName() string { return "properties" }

func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	if p.ID == "" {
		p.ID = newID()
	}
	m := propertyModel{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		Slug:      p.Slug,
		Timezone:  p.Timezone,
		Currency:  p.Currency,
		CreatedAt: utc(p.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	p.CreatedAt = m.CreatedAt
	return nil
}

func (r *PropertyRepository) Get(ctx context.Context, tenantID, id string) (*domain.Property, error) {
	var m propertyModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("property", id)
	}
	if err != nil {
		return nil, err
	}
	return &domain.Property{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Name:      m.Name,
		Slug:      m.Slug,
		Timezone:  m.Timezone,
		Currency:  m.Currency,
		CreatedAt: m.CreatedAt,
	}, nil
}

// SlugExists reports whether the tenant already has a property with slug.
func (r *PropertyRepository) SlugExists(ctx context.Context, tenantID, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&propertyModel{}).
		Where("tenant_id = ? AND slug = ?", tenantID, slug).
		Count(&count).Error
	return count > 0, err
}

type RoomTypeRepository struct {
	db *gorm.DB
}

func NewRoomTypeRepository(db *gorm.DB) *RoomTypeRepository {
	return &RoomTypeRepository{db: db}
}

type roomTypeModel struct {
	ID               string    `gorm:"column:id;primaryKey;size:36"`
	TenantID         string    `gorm:"column:tenant_id;size:36;index;not null"`
	PropertyID       string    `gorm:"column:property_id;size:36;index;not null"`
	Name             string    `gorm:"column:name;not null"`
	Slug             string    `gorm:"column:slug"`
	MaxOccupancy     int       `gorm:"column:max_occupancy;not null"`
	DefaultBasePrice float64   `gorm:"column:default_base_price"`
	Currency         string    `gorm:"column:currency;size:3"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (roomTypeModel) TableName() string { return "room_types" }

func toDomainRoomType(m roomTypeModel) *domain.RoomType {
	return &domain.RoomType{
		ID:               m.ID,
		TenantID:         m.TenantID,
		PropertyID:       m.PropertyID,
		Name:             m.Name,
		Slug:             m.Slug,
		MaxOccupancy:     m.MaxOccupancy,
		DefaultBasePrice: m.DefaultBasePrice,
		Currency:         m.Currency,
		CreatedAt:        m.CreatedAt,
	}
}

func (r *RoomTypeRepository) Create(ctx context.Context, rt *domain.RoomType) error {
	if rt.ID == "" {
		rt.ID = newID()
	}
	m := roomTypeModel{
		ID:               rt.ID,
		TenantID:         rt.TenantID,
		PropertyID:       rt.PropertyID,
		Name:             rt.Name,
		Slug:             rt.Slug,
		MaxOccupancy:     rt.MaxOccupancy,
		DefaultBasePrice: rt.DefaultBasePrice,
		Currency:         rt.Currency,
		CreatedAt:        utc(rt.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	rt.CreatedAt = m.CreatedAt
	return nil
}

func (r *RoomTypeRepository) Get(ctx context.Context, tenantID, id string) (*domain.RoomType, error) {
	var m roomTypeModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("room type", id)
	}
	if err != nil {
		return nil, err
	}
	return toDomainRoomType(m), nil
}

func (r *RoomTypeRepository) ListByProperty(ctx context.Context, tenantID, propertyID string) ([]domain.RoomType, error) {
	var rows []roomTypeModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ?", tenantID, propertyID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.RoomType, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainRoomType(m))
	}
	return out, nil
}
