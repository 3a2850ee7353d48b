package repository

import (
	"context"
	"errors"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"

	"gorm.io/gorm"
)

type EvidenceRepository struct {
	DB *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{DB: db}
}

func (r *EvidenceRepository) Create(ctx context.Context, evidence *model.TrainingEvidence) error {
	return r.DB.WithContext(ctx).Create(evidence).Error
}

func (r *EvidenceRepository) FindByID(ctx context.Context, tenantID, id string) (*model.TrainingEvidence, error) {
	var e model.TrainingEvidence
	err := r.DB.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &util.NotFoundError{Entity: "training_evidence", ID: id}
		}
		return nil, err
	}
	return &e, nil
}

// FindBySessionID returns nil without error when no record exists, so
// the generator's idempotency check can branch without error plumbing.
func (r *EvidenceRepository) FindBySessionID(ctx context.Context, tenantID, sessionID string) (*model.TrainingEvidence, error) {
	var e model.TrainingEvidence
	err := r.DB.WithContext(ctx).Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// FindUndispatched lists evidence records that have no upload record
// yet, feeding the background dispatcher.
func (r *EvidenceRepository) FindUndispatched(ctx context.Context, limit int) ([]model.TrainingEvidence, error) {
	var evidence []model.TrainingEvidence
	err := r.DB.WithContext(ctx).
		Joins("LEFT JOIN compliance_uploads ON compliance_uploads.evidence_id = training_evidence.id AND compliance_uploads.deleted_at IS NULL").
		Where("compliance_uploads.id IS NULL").
		Order("training_evidence.created_at asc").
		Limit(limit).
		Find(&evidence).Error
	return evidence, err
}
