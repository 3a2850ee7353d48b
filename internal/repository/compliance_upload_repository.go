package repository

import (
	"context"
	"errors"

	"sectrain_backend/internal/model"

	"gorm.io/gorm"
)

type ComplianceUploadRepository struct {
	DB *gorm.DB
}

func NewComplianceUploadRepository(db *gorm.DB) *ComplianceUploadRepository {
	return &ComplianceUploadRepository{DB: db}
}

func (r *ComplianceUploadRepository) Create(ctx context.Context, upload *model.ComplianceUpload) error {
	return r.DB.WithContext(ctx).Create(upload).Error
}

// FindByEvidence returns nil without error when no record exists; the
// orchestrator treats an existing record as "already dispatched".
func (r *ComplianceUploadRepository) FindByEvidence(ctx context.Context, tenantID, evidenceID, provider string) (*model.ComplianceUpload, error) {
	var u model.ComplianceUpload
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND evidence_id = ? AND provider = ?", tenantID, evidenceID, provider).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *ComplianceUploadRepository) FindBySession(ctx context.Context, tenantID, sessionID string) (*model.ComplianceUpload, error) {
	var u model.ComplianceUpload
	err := r.DB.WithContext(ctx).
		Joins("JOIN training_evidence ON training_evidence.id = compliance_uploads.evidence_id").
		Where("training_evidence.tenant_id = ? AND training_evidence.session_id = ?", tenantID, sessionID).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Save writes the upload record's delivery bookkeeping. The orchestrator
// is the record's only writer, so no version guard is needed here.
func (r *ComplianceUploadRepository) Save(ctx context.Context, upload *model.ComplianceUpload) error {
	return r.DB.WithContext(ctx).Save(upload).Error
}
