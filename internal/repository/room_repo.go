package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/gorm"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomModel struct {
	ID         string    `gorm:"column:id;primaryKey;size:36"`
	TenantID   string    `gorm:"column:tenant_id;size:36;index;not null"`
	RoomTypeID string    `gorm:"column:room_type_id;size:36;index;not null"`
	RoomNumber string    `gorm:"column:room_number;not null"`
	Status     string    `gorm:"column:status;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (roomModel) TableName() string { return "rooms" }

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room.ID == "" {
		room.ID = newID()
	}
	if room.Status == "" {
		room.Status = domain.RoomAvailable
	}
	m := roomModel{
		ID:         room.ID,
		TenantID:   room.TenantID,
		RoomTypeID: room.RoomTypeID,
		RoomNumber: room.RoomNumber,
		Status:     string(room.Status),
		CreatedAt:  utc(room.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	room.CreatedAt = m.CreatedAt
	return nil
}

func (r *RoomRepository) Get(ctx context.Context, tenantID, id string) (*domain.Room, error) {
	var m roomModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("room", id)
	}
	if err != nil {
		return nil, err
	}
	return &domain.Room{
		ID:         m.ID,
		TenantID:   m.TenantID,
		RoomTypeID: m.RoomTypeID,
		RoomNumber: m.RoomNumber,
		Status:     domain.RoomStatus(m.Status),
		CreatedAt:  m.CreatedAt,
	}, nil
}

func (r *RoomRepository) UpdateStatus(ctx context.Context, tenantID, id string, status domain.RoomStatus) error {
	res := r.db.WithContext(ctx).
		Model(&roomModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("room", id)
	}
	return nil
}
