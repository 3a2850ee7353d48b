package controller

import (
	"sectrain_backend/internal/service"
	"sectrain_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ComplianceController struct {
	Compliance *service.ComplianceService
	Tenants    *service.TenantService
}

func NewComplianceController(compliance *service.ComplianceService, tenants *service.TenantService) *ComplianceController {
	return &ComplianceController{Compliance: compliance, Tenants: tenants}
}

// Dispatch godoc
// @Summary Dispatch evidence to the compliance provider
// @Description No-op when a delivery record already exists for the evidence
// @Tags compliance
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "evidence id"
// @Success 200 {object} util.Response{data=model.ComplianceUpload}
// @Failure 400 {object} util.Response "integration not configured"
// @Failure 502 {object} util.Response "evidence missing or render failed"
// @Router /api/compliance/evidence/{id}/dispatch [post]
func (c *ComplianceController) Dispatch(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	tenant, err := c.Tenants.Get(ctx.Request.Context(), claims.TenantID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	upload, err := c.Compliance.Dispatch(ctx.Request.Context(), tenant, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if upload == nil {
		util.RespondError(ctx, util.ErrIntegrationDisabled)
		return
	}
	util.Success(ctx, upload)
}

// GetBySession godoc
// @Summary Delivery status for a session's evidence
// @Tags compliance
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Success 200 {object} util.Response{data=model.ComplianceUpload}
// @Failure 404 {object} util.Response
// @Router /api/compliance/sessions/{sessionId} [get]
func (c *ComplianceController) GetBySession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	upload, err := c.Compliance.GetBySession(ctx.Request.Context(), claims.TenantID, ctx.Param("sessionId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, upload)
}
