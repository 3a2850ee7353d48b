package controller

import (
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/service"
	"sectrain_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TenantController struct {
	Tenants *service.TenantService
}

func NewTenantController(tenants *service.TenantService) *TenantController {
	return &TenantController{Tenants: tenants}
}

// swagger:model CreateTenantRequest
type CreateTenantRequest struct {
	Name   string               `json:"name" binding:"required"`
	Slug   string               `json:"slug" binding:"required"`
	Policy model.TrainingPolicy `json:"policy"`
}

// Create godoc
// @Summary Create a tenant
// @Tags tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateTenantRequest true "tenant"
// @Success 201 {object} util.Response{data=model.Tenant}
// @Failure 400 {object} util.Response
// @Router /api/tenants [post]
func (c *TenantController) Create(ctx *gin.Context) {
	var req CreateTenantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	tenant := &model.Tenant{Name: req.Name, Slug: req.Slug, Policy: req.Policy}
	if err := c.Tenants.Create(ctx.Request.Context(), tenant); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, tenant)
}

// List godoc
// @Summary List all tenants
// @Tags tenants
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Tenant}
// @Router /api/tenants [get]
func (c *TenantController) List(ctx *gin.Context) {
	tenants, err := c.Tenants.List(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tenants)
}

// Get godoc
// @Summary Caller's tenant
// @Tags tenants
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Tenant}
// @Router /api/tenants/current [get]
func (c *TenantController) Get(ctx *gin.Context) {
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
	util.Success(ctx, gin.H{
		"tenant":         tenant,
		"resolvedPolicy": c.Tenants.ResolvePolicy(tenant),
	})
}

// UpdatePolicy godoc
// @Summary Update the tenant's training policy
// @Description Replaces the policy overrides and refreshes the config hash
// @Tags tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body model.TrainingPolicy true "policy overrides"
// @Success 200 {object} util.Response{data=model.Tenant}
// @Router /api/tenants/current/policy [put]
func (c *TenantController) UpdatePolicy(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var policy model.TrainingPolicy
	if err := ctx.ShouldBindJSON(&policy); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	tenant, err := c.Tenants.UpdatePolicy(ctx.Request.Context(), claims.TenantID, policy)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tenant)
}

// UpdateCompliance godoc
// @Summary Update the tenant's compliance integration
// @Tags tenants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body model.ComplianceSettings true "integration settings"
// @Success 200 {object} util.Response{data=model.Tenant}
// @Router /api/tenants/current/compliance [put]
func (c *TenantController) UpdateCompliance(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var settings model.ComplianceSettings
	if err := ctx.ShouldBindJSON(&settings); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	tenant, err := c.Tenants.UpdateCompliance(ctx.Request.Context(), claims.TenantID, settings)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tenant)
}
