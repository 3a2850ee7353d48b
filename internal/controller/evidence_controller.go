package controller

import (
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/service"
	"sectrain_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EvidenceController struct {
	Evidence *service.EvidenceService
	Tenants  *service.TenantService
}

func NewEvidenceController(evidence *service.EvidenceService, tenants *service.TenantService) *EvidenceController {
	return &EvidenceController{Evidence: evidence, Tenants: tenants}
}

func (c *EvidenceController) tenantScope(ctx *gin.Context) (*model.Tenant, model.TrainingPolicy, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return nil, model.TrainingPolicy{}, false
	}
	tenant, err := c.Tenants.Get(ctx.Request.Context(), claims.TenantID)
	if err != nil {
		util.RespondError(ctx, err)
		return nil, model.TrainingPolicy{}, false
	}
	return tenant, c.Tenants.ResolvePolicy(tenant), true
}

// Generate godoc
// @Summary Generate evidence for a terminal session
// @Description Idempotent per session; an existing record is returned unchanged
// @Tags evidence
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Success 200 {object} util.Response{data=model.TrainingEvidence}
// @Failure 409 {object} util.Response "session not terminal"
// @Router /api/evidence/sessions/{sessionId} [post]
func (c *EvidenceController) Generate(ctx *gin.Context) {
	tenant, policy, ok := c.tenantScope(ctx)
	if !ok {
		return
	}

	evidence, err := c.Evidence.Generate(ctx.Request.Context(), tenant, policy, ctx.Param("sessionId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, evidence)
}

// Get godoc
// @Summary Fetch an evidence record
// @Tags evidence
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "evidence id"
// @Success 200 {object} util.Response{data=model.TrainingEvidence}
// @Failure 404 {object} util.Response
// @Router /api/evidence/{id} [get]
func (c *EvidenceController) Get(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}

	evidence, err := c.Evidence.Get(ctx.Request.Context(), tenant.ID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, evidence)
}

// GetBySession godoc
// @Summary Fetch a session's evidence record
// @Tags evidence
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Success 200 {object} util.Response{data=model.TrainingEvidence}
// @Failure 404 {object} util.Response
// @Router /api/evidence/sessions/{sessionId} [get]
func (c *EvidenceController) GetBySession(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}

	evidence, err := c.Evidence.GetBySession(ctx.Request.Context(), tenant.ID, ctx.Param("sessionId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, evidence)
}

// Verify godoc
// @Summary Verify an evidence record's content hash
// @Description Recomputes the hash over the stored body and compares it to the persisted digest
// @Tags evidence
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "evidence id"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/evidence/{id}/verify [get]
func (c *EvidenceController) Verify(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}

	valid, err := c.Evidence.VerifyHash(ctx.Request.Context(), tenant.ID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"valid": valid})
}
