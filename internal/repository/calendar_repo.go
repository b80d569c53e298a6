package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CalendarRepository struct {
	db *gorm.DB
}

func NewCalendarRepository(db *gorm.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// calendarDayModel is keyed by (room_type_id, dt); the check constraints keep
// available >= blocked >= 0 even for writes that bypass the service layer.
type calendarDayModel struct {
	RoomTypeID     string      `gorm:"column:room_type_id;primaryKey;size:36"`
	Dt             domain.Date `gorm:"column:dt;primaryKey"`
	TenantID       string      `gorm:"column:tenant_id;size:36;index;not null"`
	AvailableCount int         `gorm:"column:available_count;not null;check:chk_inventory_available,available_count >= blocked_count"`
	BlockedCount   int         `gorm:"column:blocked_count;not null;check:chk_inventory_blocked,blocked_count >= 0"`
	UpdatedAt      time.Time   `gorm:"column:updated_at"`
}

func (calendarDayModel) TableName() string { return "inventory" }

func toDomainCalendarDay(m calendarDayModel) domain.CalendarDay {
	return domain.CalendarDay{
		TenantID:   m.TenantID,
		RoomTypeID: m.RoomTypeID,
		Date:       m.Dt,
		Capacity:   domain.Capacity{Available: m.AvailableCount, Blocked: m.BlockedCount},
		UpdatedAt:  m.UpdatedAt,
	}
}

func (r *CalendarRepository) Get(ctx context.Context, tenantID, roomTypeID string, d domain.Date) (*domain.CalendarDay, error) {
	var m calendarDayModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_type_id = ? AND dt = ?", tenantID, roomTypeID, d).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("calendar day", roomTypeID+"@"+d.String())
	}
	if err != nil {
		return nil, err
	}
	day := toDomainCalendarDay(m)
	return &day, nil
}

// List returns the configured rows of the range in date order. Missing dates
// are simply absent.
func (r *CalendarRepository) List(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange) ([]domain.CalendarDay, error) {
	return r.list(r.db.WithContext(ctx), tenantID, roomTypeID, rng)
}

// LockRange is List with SELECT ... FOR UPDATE. Rows are locked in date
// order so concurrent writers over overlapping ranges queue instead of
// deadlocking.
func (r *CalendarRepository) LockRange(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange) ([]domain.CalendarDay, error) {
	return r.list(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, roomTypeID, rng)
}

func (r *CalendarRepository) list(q *gorm.DB, tenantID, roomTypeID string, rng domain.DateRange) ([]domain.CalendarDay, error) {
	var rows []calendarDayModel
	err := q.
		Where("tenant_id = ? AND room_type_id = ? AND dt >= ? AND dt < ?", tenantID, roomTypeID, rng.Start, rng.End).
		Order("dt ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.CalendarDay, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainCalendarDay(m))
	}
	return out, nil
}

// Upsert overwrites the counts for (room type, date); last write wins.
func (r *CalendarRepository) Upsert(ctx context.Context, day *domain.CalendarDay) error {
	m := calendarDayModel{
		RoomTypeID:     day.RoomTypeID,
		Dt:             day.Date,
		TenantID:       day.TenantID,
		AvailableCount: day.Available,
		BlockedCount:   day.Blocked,
		UpdatedAt:      utc(day.UpdatedAt),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_type_id"}, {Name: "dt"}},
		DoUpdates: clause.AssignmentColumns([]string{"available_count", "blocked_count", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return err
	}
	day.UpdatedAt = m.UpdatedAt
	return nil
}

type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

type channelAllocationModel struct {
	ID             string       `gorm:"column:id;primaryKey;size:36"`
	TenantID       string       `gorm:"column:tenant_id;size:36;index;not null"`
	RoomTypeID     string       `gorm:"column:room_type_id;size:36;index:idx_channel_alloc_room_type;not null"`
	ChannelCode    string       `gorm:"column:channel_code;size:64;index:idx_channel_alloc_room_type;not null"`
	AllocatedCount int          `gorm:"column:allocated_count;not null"`
	EffectiveFrom  *domain.Date `gorm:"column:effective_from"`
	EffectiveTo    *domain.Date `gorm:"column:effective_to"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
}

func (channelAllocationModel) TableName() string { return "channel_allocations" }

func (r *ChannelRepository) Create(ctx context.Context, a *domain.ChannelAllocation) error {
	if a.ID == "" {
		a.ID = newID()
	}
	m := channelAllocationModel{
		ID:             a.ID,
		TenantID:       a.TenantID,
		RoomTypeID:     a.RoomTypeID,
		ChannelCode:    a.ChannelCode,
		AllocatedCount: a.AllocatedCount,
		EffectiveFrom:  a.EffectiveFrom,
		EffectiveTo:    a.EffectiveTo,
		CreatedAt:      utc(a.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	a.CreatedAt = m.CreatedAt
	return nil
}

// ListForRange returns the allocations of a room type that are effective on
// at least one day of rng, across all channels.
func (r *ChannelRepository) ListForRange(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange) ([]domain.ChannelAllocation, error) {
	var rows []channelAllocationModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_type_id = ?", tenantID, roomTypeID).
		Where("effective_from IS NULL OR effective_from < ?", rng.End).
		Where("effective_to IS NULL OR effective_to >= ?", rng.Start).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChannelAllocation, 0, len(rows))
	for _, m := range rows {
		out = append(out, domain.ChannelAllocation{
			ID:             m.ID,
			TenantID:       m.TenantID,
			RoomTypeID:     m.RoomTypeID,
			ChannelCode:    m.ChannelCode,
			AllocatedCount: m.AllocatedCount,
			EffectiveFrom:  m.EffectiveFrom,
			EffectiveTo:    m.EffectiveTo,
			CreatedAt:      m.CreatedAt,
		})
	}
	return out, nil
}
