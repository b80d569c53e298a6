package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

type apiKeyModel struct {
	ID         string                      `gorm:"column:id;primaryKey;size:36"`
	TenantID   string                      `gorm:"column:tenant_id;size:36;index;not null"`
	Name       string                      `gorm:"column:name"`
	KeyHash    string                      `gorm:"column:key_hash;not null"`
	Scopes     datatypes.JSONSlice[string] `gorm:"column:scopes"`
	Disabled   bool                        `gorm:"column:disabled;not null"`
	CreatedAt  time.Time                   `gorm:"column:created_at"`
	LastUsedAt *time.Time                  `gorm:"column:last_used_at"`
}

func (apiKeyModel) TableName() string { return "tenant_api_keys" }

func (r *APIKeyRepository) Create(ctx context.Context, k *domain.TenantAPIKey) error {
	if k.ID == "" {
		k.ID = newID()
	}
	m := apiKeyModel{
		ID:        k.ID,
		TenantID:  k.TenantID,
		Name:      k.Name,
		KeyHash:   k.KeyHash,
		Scopes:    datatypes.JSONSlice[string](k.Scopes),
		Disabled:  k.Disabled,
		CreatedAt: utc(k.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	k.CreatedAt = m.CreatedAt
	return nil
}

// GetByID looks a key up without tenant scoping: the key itself is what
// establishes the tenant.
func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.TenantAPIKey, error) {
	var m apiKeyModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("api key", id)
	}
	if err != nil {
		return nil, err
	}
	return &domain.TenantAPIKey{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Name:       m.Name,
		KeyHash:    m.KeyHash,
		Scopes:     []string(m.Scopes),
		Disabled:   m.Disabled,
		CreatedAt:  m.CreatedAt,
		LastUsedAt: m.LastUsedAt,
	}, nil
}

func (r *APIKeyRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&apiKeyModel{}).
		Where("id = ?", id).
		Update("last_used_at", utc(at)).Error
}
