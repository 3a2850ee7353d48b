package controller

import (
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"
	"sectrain_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RoleProfileController struct {
	Profiles *repository.RoleProfileRepository
}

func NewRoleProfileController(profiles *repository.RoleProfileRepository) *RoleProfileController {
	return &RoleProfileController{Profiles: profiles}
}

// swagger:model RoleProfileRequest
type RoleProfileRequest struct {
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	JobExpectations []string `json:"jobExpectations" binding:"required,min=1"`
}

// Create godoc
// @Summary Create a role profile
// @Tags role-profiles
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body RoleProfileRequest true "profile"
// @Success 201 {object} util.Response{data=model.RoleProfile}
// @Router /api/role-profiles [post]
func (c *RoleProfileController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RoleProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile := &model.RoleProfile{
		TenantID:        claims.TenantID,
		Name:            req.Name,
		Version:         1,
		Description:     req.Description,
		JobExpectations: req.JobExpectations,
	}
	if err := c.Profiles.Create(ctx.Request.Context(), profile); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, profile)
}

// List godoc
// @Summary List the tenant's role profiles
// @Tags role-profiles
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.RoleProfile}
// @Router /api/role-profiles [get]
func (c *RoleProfileController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	profiles, err := c.Profiles.List(ctx.Request.Context(), claims.TenantID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, profiles)
}

// Get godoc
// @Summary Fetch one role profile
// @Tags role-profiles
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "profile id"
// @Success 200 {object} util.Response{data=model.RoleProfile}
// @Failure 404 {object} util.Response
// @Router /api/role-profiles/{id} [get]
func (c *RoleProfileController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.Profiles.FindByID(ctx.Request.Context(), claims.TenantID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// Update godoc
// @Summary Update a role profile
// @Description Edits bump the profile version; running sessions keep the version they started with
// @Tags role-profiles
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "profile id"
// @Param body body RoleProfileRequest true "profile"
// @Success 200 {object} util.Response{data=model.RoleProfile}
// @Failure 404 {object} util.Response
// @Router /api/role-profiles/{id} [put]
func (c *RoleProfileController) Update(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RoleProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.Profiles.FindByID(ctx.Request.Context(), claims.TenantID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	profile.Name = req.Name
	profile.Description = req.Description
	profile.JobExpectations = req.JobExpectations
	if err := c.Profiles.Update(ctx.Request.Context(), profile); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}
