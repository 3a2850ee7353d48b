package service

import (
	"context"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"
	"sectrain_backend/pkg/logger"

	"go.uber.org/zap"
)

// AuditService records one event per state-changing operation. Events
// carry identifiers, scores and counts only; raw responses, rubrics
// and generated instructional text stay out of the audit trail.
type AuditService struct {
	Repo *repository.AuditRepository
}

func NewAuditService(repo *repository.AuditRepository) *AuditService {
	return &AuditService{Repo: repo}
}

// Record persists and logs the event. Audit failures never fail the
// operation that produced them; they are logged and dropped.
func (s *AuditService) Record(ctx context.Context, event model.AuditEvent) {
	if err := s.Repo.Create(ctx, &event); err != nil {
		logger.Log.Error("audit event write failed",
			zap.String("eventType", event.EventType),
			zap.String("tenantId", event.TenantID),
			zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("eventType", event.EventType),
		zap.String("tenantId", event.TenantID),
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("sessionId", event.SessionID))
	}
	if event.ModuleID != "" {
		fields = append(fields, zap.String("moduleId", event.ModuleID))
	}
	if event.Outcome != "" {
		fields = append(fields, zap.String("outcome", event.Outcome))
	}
	if event.Score != nil {
		fields = append(fields, zap.Float64("score", *event.Score))
	}
	logger.Log.Info("audit", fields...)
}

func (s *AuditService) ListBySession(ctx context.Context, tenantID, sessionID string) ([]model.AuditEvent, error) {
	return s.Repo.ListBySession(ctx, tenantID, sessionID)
}
