package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sectrain_backend/internal/config"
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"
	"sectrain_backend/internal/util"
	"sectrain_backend/pkg/logger"
	"sectrain_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// ComplianceService dispatches evidence to the tenant's compliance
// provider with bounded retries. A single upload record per evidence
// and provider tracks the outcome; once that record exists, Dispatch
// is a no-op and returns it unchanged.
type ComplianceService struct {
	Evidence *repository.EvidenceRepository
	Uploads  *repository.ComplianceUploadRepository
	Tenants  *repository.TenantRepository
	Provider ComplianceProvider
	Renderer EvidenceRenderer
	Archive  ArchiveProvider
	Audit    *AuditService
	Defaults config.ComplianceConfig
}

func NewComplianceService(
	evidence *repository.EvidenceRepository,
	uploads *repository.ComplianceUploadRepository,
	tenants *repository.TenantRepository,
	provider ComplianceProvider,
	renderer EvidenceRenderer,
	archive ArchiveProvider,
	audit *AuditService,
	defaults config.ComplianceConfig,
) *ComplianceService {
	return &ComplianceService{
		Evidence: evidence,
		Uploads:  uploads,
		Tenants:  tenants,
		Provider: provider,
		Renderer: renderer,
		Archive:  archive,
		Audit:    audit,
		Defaults: defaults,
	}
}

// Dispatch delivers one evidence record to the tenant's provider.
// Returns (nil, nil) when the tenant has no integration configured.
// Delivery failures are recorded on the upload record, not returned as
// errors; only pre-record failures (missing evidence, render failure)
// surface as UploadError.
func (s *ComplianceService) Dispatch(ctx context.Context, tenant *model.Tenant, evidenceID string) (*model.ComplianceUpload, error) {
	settings := tenant.Compliance
	if !settings.Enabled {
		return nil, nil
	}

	existing, err := s.Uploads.FindByEvidence(ctx, tenant.ID, evidenceID, settings.Provider)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	evidence, err := s.Evidence.FindByID(ctx, tenant.ID, evidenceID)
	if err != nil {
		var notFound *util.NotFoundError
		if errors.As(err, &notFound) {
			return nil, &util.UploadError{Code: util.UploadCodeEvidenceNotFound, Retryable: false, Err: err}
		}
		return nil, err
	}

	document, err := s.Renderer.Render(evidence)
	if err != nil {
		return nil, &util.UploadError{Code: util.UploadCodePDFRenderFailed, Retryable: false, Err: err}
	}

	upload := &model.ComplianceUpload{
		TenantID:   tenant.ID,
		EvidenceID: evidence.ID,
		Provider:   settings.Provider,
		Status:     model.UploadPending,
	}
	if s.Archive != nil {
		key := fmt.Sprintf("evidence/%s/%s.pdf", tenant.ID, evidence.ID)
		location, archiveErr := s.Archive.Upload(ctx, key, document, util.MimePDF)
		if archiveErr != nil {
			logger.Log.Warn("evidence archive failed",
				zap.String("evidenceId", evidence.ID),
				zap.Error(archiveErr))
		} else {
			upload.ArchiveKey = location
		}
	}
	if err := s.Uploads.Create(ctx, upload); err != nil {
		return nil, err
	}

	maxAttempts := settings.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.Defaults.DefaultMaxAttempts
	}

	s.deliver(ctx, settings, evidence, document, upload, maxAttempts)
	if err := s.Uploads.Save(ctx, upload); err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:  tenant.ID,
		SessionID: evidence.SessionID,
		EventType: "compliance.dispatched",
		Outcome:   string(upload.Status),
		Count:     upload.AttemptCount,
	})
	return upload, nil
}

// deliver runs the bounded retry loop, mutating the upload record in
// memory. Retryable failures consume an attempt and continue; a
// non-retryable failure stops immediately with attempts remaining.
func (s *ComplianceService) deliver(ctx context.Context, settings model.ComplianceSettings, evidence *model.TrainingEvidence, document []byte, upload *model.ComplianceUpload, maxAttempts int) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		upload.AttemptCount = attempt

		ref, err := s.Provider.Submit(ctx, settings, document, evidence.ContentHash)
		if err == nil {
			upload.Status = model.UploadSucceeded
			upload.ProviderReferenceID = ref
			upload.LastErrorCode = ""
			upload.LastError = ""
			upload.Retryable = false
			monitoring.ComplianceUploadTotal.WithLabelValues("succeeded").Inc()
			return
		}

		var uploadErr *util.UploadError
		if !errors.As(err, &uploadErr) {
			uploadErr = &util.UploadError{Code: util.UploadCodeNetworkError, Retryable: true, Err: err}
		}
		upload.LastErrorCode = uploadErr.Code
		upload.LastError = uploadErr.Error()
		upload.Retryable = uploadErr.Retryable
		monitoring.ComplianceUploadTotal.WithLabelValues(uploadErr.Code).Inc()

		logger.Log.Warn("compliance submit attempt failed",
			zap.String("evidenceId", evidence.ID),
			zap.Int("attempt", attempt),
			zap.String("code", uploadErr.Code),
			zap.Bool("retryable", uploadErr.Retryable),
			zap.Error(uploadErr.Err))

		if !uploadErr.Retryable {
			break
		}
	}
	upload.Status = model.UploadFailed
}

// DispatchPending sweeps evidence records that were never dispatched,
// typically because the process died between evidence generation and
// upload, and dispatches each under its tenant's settings.
func (s *ComplianceService) DispatchPending(ctx context.Context) error {
	batch := s.Defaults.DispatchBatchSize
	if batch <= 0 {
		batch = 50
	}
	pending, err := s.Evidence.FindUndispatched(ctx, batch)
	if err != nil {
		return err
	}

	for i := range pending {
		evidence := &pending[i]
		tenant, err := s.Tenants.FindByID(ctx, evidence.TenantID)
		if err != nil {
			logger.Log.Warn("tenant lookup failed for pending evidence",
				zap.String("evidenceId", evidence.ID),
				zap.Error(err))
			continue
		}
		if _, err := s.Dispatch(ctx, tenant, evidence.ID); err != nil {
			logger.Log.Warn("pending evidence dispatch failed",
				zap.String("evidenceId", evidence.ID),
				zap.Error(err))
		}
	}
	return nil
}

// RunDispatcher loops DispatchPending until the context is cancelled.
func (s *ComplianceService) RunDispatcher(ctx context.Context) {
	interval := s.Defaults.DispatchInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Log.Info("compliance dispatcher started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("compliance dispatcher stopped")
			return
		case <-ticker.C:
			if err := s.DispatchPending(ctx); err != nil {
				logger.Log.Error("compliance dispatch sweep failed", zap.Error(err))
			}
		}
	}
}

// GetBySession returns the upload record for a session's evidence, or
// NotFound when the evidence was never dispatched.
func (s *ComplianceService) GetBySession(ctx context.Context, tenantID, sessionID string) (*model.ComplianceUpload, error) {
	upload, err := s.Uploads.FindBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, &util.NotFoundError{Entity: "compliance_upload", ID: sessionID}
	}
	return upload, nil
}
