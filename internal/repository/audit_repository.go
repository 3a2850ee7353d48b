package repository

import (
	"context"

	"sectrain_backend/internal/model"

	"gorm.io/gorm"
)

type AuditRepository struct {
	DB *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

func (r *AuditRepository) Create(ctx context.Context, event *model.AuditEvent) error {
	return r.DB.WithContext(ctx).Create(event).Error
}

func (r *AuditRepository) ListBySession(ctx context.Context, tenantID, sessionID string) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Order("created_at asc").
		Find(&events).Error
	return events, err
}
