package repository

import (
	"context"
	"time"

	"homestay/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type auditLogModel struct {
	ID         string            `gorm:"column:id;primaryKey;size:36"`
	TenantID   string            `gorm:"column:tenant_id;size:36;index;not null"`
	Actor      string            `gorm:"column:actor;size:128"`
	Action     string            `gorm:"column:action;size:64;index;not null"`
	EntityType string            `gorm:"column:entity_type;size:32"`
	EntityID   string            `gorm:"column:entity_id;size:64;index"`
	Details    datatypes.JSONMap `gorm:"column:details"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

func (r *AuditRepository) Create(ctx context.Context, l *domain.AuditLog) error {
	if l.ID == "" {
		l.ID = newID()
	}
	m := auditLogModel{
		ID:         l.ID,
		TenantID:   l.TenantID,
		Actor:      l.Actor,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		CreatedAt:  utc(l.CreatedAt),
	}
	if len(l.Details) > 0 {
		m.Details = datatypes.JSONMap(l.Details)
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *AuditRepository) ListByEntity(ctx context.Context, tenantID, entityID string) ([]domain.AuditLog, error) {
	var rows []auditLogModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_id = ?", tenantID, entityID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditLog, 0, len(rows))
	for _, m := range rows {
		out = append(out, domain.AuditLog{
			ID:         m.ID,
			TenantID:   m.TenantID,
			Actor:      m.Actor,
			Action:     m.Action,
			EntityType: m.EntityType,
			EntityID:   m.EntityID,
			Details:    domain.Metadata(m.Details),
			CreatedAt:  m.CreatedAt,
		})
	}
	return out, nil
}
