package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type HoldRepository struct {
	db *gorm.DB
}

func NewHoldRepository(db *gorm.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

type holdModel struct {
	HoldToken   string            `gorm:"column:hold_token;primaryKey;size:36"`
	TenantID    string            `gorm:"column:tenant_id;size:36;index;not null"`
	RoomTypeID  string            `gorm:"column:room_type_id;size:36;index:idx_holds_room_type_dates;not null"`
	Channel     string            `gorm:"column:channel;size:64"`
	StartDate   domain.Date       `gorm:"column:start_date;index:idx_holds_room_type_dates;not null"`
	EndDate     domain.Date       `gorm:"column:end_date;index:idx_holds_room_type_dates;not null"`
	Quantity    int               `gorm:"column:quantity;not null;check:chk_inventory_holds_quantity,quantity > 0"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
	ExpiresAt   time.Time         `gorm:"column:expires_at;index;not null"`
	ConvertedAt *time.Time        `gorm:"column:converted_at"`
	Metadata    datatypes.JSONMap `gorm:"column:metadata"`
}

func (holdModel) TableName() string { return "inventory_holds" }

func toDomainHold(m holdModel) domain.Hold {
	var meta domain.Metadata
	if len(m.Metadata) > 0 {
		meta = domain.Metadata(m.Metadata)
	}
	return domain.Hold{
		Token:       m.HoldToken,
		TenantID:    m.TenantID,
		RoomTypeID:  m.RoomTypeID,
		Channel:     m.Channel,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		Quantity:    m.Quantity,
		CreatedAt:   m.CreatedAt,
		ExpiresAt:   m.ExpiresAt,
		ConvertedAt: m.ConvertedAt,
		Metadata:    meta,
	}
}

func (r *HoldRepository) Create(ctx context.Context, h *domain.Hold) error {
	if h.Token == "" {
		h.Token = newID()
	}
	m := holdModel{
		HoldToken:   h.Token,
		TenantID:    h.TenantID,
		RoomTypeID:  h.RoomTypeID,
		Channel:     h.Channel,
		StartDate:   h.StartDate,
		EndDate:     h.EndDate,
		Quantity:    h.Quantity,
		CreatedAt:   utc(h.CreatedAt),
		ExpiresAt:   utc(h.ExpiresAt),
		ConvertedAt: utcPtr(h.ConvertedAt),
	}
	if len(h.Metadata) > 0 {
		m.Metadata = datatypes.JSONMap(h.Metadata)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	*h = toDomainHold(m)
	return nil
}

// Get returns the hold regardless of expiry; callers decide liveness.
func (r *HoldRepository) Get(ctx context.Context, tenantID, token string) (*domain.Hold, error) {
	var m holdModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND hold_token = ?", tenantID, token).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("hold", token)
	}
	if err != nil {
		return nil, err
	}
	h := toDomainHold(m)
	return &h, nil
}

// ListUnconvertedOverlapping returns unconverted holds of a room type whose
// nights intersect rng. Expired rows are included; liveness is decided by the
// caller against its own clock so a lagging sweep never affects accounting.
func (r *HoldRepository) ListUnconvertedOverlapping(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange) ([]domain.Hold, error) {
	var rows []holdModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_type_id = ?", tenantID, roomTypeID).
		Where("converted_at IS NULL AND start_date < ? AND end_date > ?", rng.End, rng.Start).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Hold, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainHold(m))
	}
	return out, nil
}

// ListUnconverted scans unconverted holds of every tenant, oldest expiry
// first. Used by the sweeper only.
func (r *HoldRepository) ListUnconverted(ctx context.Context, limit int) ([]domain.Hold, error) {
	var rows []holdModel
	err := r.db.WithContext(ctx).
		Where("converted_at IS NULL").
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Hold, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainHold(m))
	}
	return out, nil
}

func (r *HoldRepository) MarkConverted(ctx context.Context, tenantID, token string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&holdModel{}).
		Where("tenant_id = ? AND hold_token = ? AND converted_at IS NULL", tenantID, token).
		Update("converted_at", utc(at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("hold", token)
	}
	return nil
}

func (r *HoldRepository) UpdateQuantity(ctx context.Context, tenantID, token string, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&holdModel{}).
		Where("tenant_id = ? AND hold_token = ?", tenantID, token).
		Update("quantity", quantity).Error
}

// Delete removes an unconverted hold and reports whether a row went away.
func (r *HoldRepository) Delete(ctx context.Context, tenantID, token string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND hold_token = ? AND converted_at IS NULL", tenantID, token).
		Delete(&holdModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
