package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

type idempotencyKeyModel struct {
	ID              string    `gorm:"column:id;primaryKey;size:36"`
	TenantID        string    `gorm:"column:tenant_id;size:36;not null;uniqueIndex:ux_idempotency_tenant_key"`
	IdempotencyKey  string    `gorm:"column:idempotency_key;size:128;not null;uniqueIndex:ux_idempotency_tenant_key"`
	Endpoint        string    `gorm:"column:endpoint;size:128"`
	RequestHash     string    `gorm:"column:request_hash;size:64;not null"`
	StatusCode      int       `gorm:"column:status_code;not null;default:0"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	CreatedAt       time.Time `gorm:"column:created_at;index"`
}

func (idempotencyKeyModel) TableName() string { return "idempotency_keys" }

func toDomainIdempotency(m idempotencyKeyModel) *domain.IdempotencyRecord {
	return &domain.IdempotencyRecord{
		TenantID:    m.TenantID,
		Key:         m.IdempotencyKey,
		Endpoint:    m.Endpoint,
		RequestHash: m.RequestHash,
		StatusCode:  m.StatusCode,
		Response:    m.ResponsePayload,
		CreatedAt:   m.CreatedAt,
	}
}

// Claim inserts an in-progress record for (tenant, key). It reports false
// when the key is already taken, in which case nothing is written.
func (r *IdempotencyRepository) Claim(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error) {
	m := idempotencyKeyModel{
		ID:             newID(),
		TenantID:       rec.TenantID,
		IdempotencyKey: rec.Key,
		Endpoint:       rec.Endpoint,
		RequestHash:    rec.RequestHash,
		CreatedAt:      utc(rec.CreatedAt),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *IdempotencyRepository) Get(ctx context.Context, tenantID, key string) (*domain.IdempotencyRecord, error) {
	var m idempotencyKeyModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("idempotency key", key)
	}
	if err != nil {
		return nil, err
	}
	return toDomainIdempotency(m), nil
}

// Complete stores the response served for a claimed key.
func (r *IdempotencyRepository) Complete(ctx context.Context, tenantID, key string, status int, payload []byte) error {
	return r.db.WithContext(ctx).
		Model(&idempotencyKeyModel{}).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		Updates(map[string]any{"status_code": status, "response_payload": payload}).Error
}

// Forget drops a claim so the client may retry a request that failed.
func (r *IdempotencyRepository) Forget(ctx context.Context, tenantID, key string) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		Delete(&idempotencyKeyModel{}).Error
}

// DeleteBefore removes records created before cutoff.
func (r *IdempotencyRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", utc(cutoff)).
		Delete(&idempotencyKeyModel{})
	return int(res.RowsAffected), res.Error
}
