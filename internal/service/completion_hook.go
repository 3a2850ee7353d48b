package service

import (
	"context"

	"sectrain_backend/internal/model"
	"sectrain_backend/pkg/logger"
	"sectrain_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// EvidenceCompletionHook generates evidence and dispatches it to the
// compliance provider whenever a session reaches a terminal status.
// Both steps are best-effort here; the background dispatcher picks up
// anything that slips through.
type EvidenceCompletionHook struct {
	Evidence   *EvidenceService
	Compliance *ComplianceService
	Tenants    *TenantService
}

func NewEvidenceCompletionHook(evidence *EvidenceService, compliance *ComplianceService, tenants *TenantService) *EvidenceCompletionHook {
	return &EvidenceCompletionHook{Evidence: evidence, Compliance: compliance, Tenants: tenants}
}

func (h *EvidenceCompletionHook) SessionFinished(ctx context.Context, tenant *model.Tenant, session *model.TrainingSession) {
	monitoring.SessionOutcomeTotal.WithLabelValues(string(session.Status)).Inc()

	policy := h.Tenants.ResolvePolicy(tenant)
	evidence, err := h.Evidence.Generate(ctx, tenant, policy, session.ID)
	if err != nil {
		logger.Log.Error("evidence generation failed after session completion",
			zap.String("sessionId", session.ID),
			zap.Error(err))
		return
	}
	monitoring.EvidenceGeneratedTotal.Inc()

	if _, err := h.Compliance.Dispatch(ctx, tenant, evidence.ID); err != nil {
		logger.Log.Error("compliance dispatch failed after session completion",
			zap.String("evidenceId", evidence.ID),
			zap.Error(err))
	}
}
