package controller

import (
	"strconv"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/service"
	"sectrain_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TrainingController struct {
	Training *service.TrainingService
	Tenants  *service.TenantService
	Audit    *service.AuditService
}

func NewTrainingController(training *service.TrainingService, tenants *service.TenantService, audit *service.AuditService) *TrainingController {
	return &TrainingController{Training: training, Tenants: tenants, Audit: audit}
}

// tenantScope resolves the caller's tenant and its effective policy.
func (c *TrainingController) tenantScope(ctx *gin.Context) (*model.Tenant, model.TrainingPolicy, bool) {
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

func moduleIndexParam(ctx *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || idx < 0 {
		util.BadRequest(ctx, "module index must be a non-negative integer")
		return 0, false
	}
	return idx, true
}

// sessionView hides the raw curriculum plan; modules are served through
// their own endpoints with sanitized content.
func sessionView(session *model.TrainingSession) gin.H {
	return gin.H{
		"id":                 session.ID,
		"status":             session.Status,
		"attemptNumber":      session.AttemptNumber,
		"roleProfileId":      session.RoleProfileID,
		"roleProfileVersion": session.RoleProfileVersion,
		"aggregateScore":     session.AggregateScore,
		"weakAreas":          session.WeakAreas,
		"createdAt":          session.CreatedAt,
		"completedAt":        session.CompletedAt,
	}
}

func moduleView(module *model.TrainingModule) gin.H {
	return gin.H{
		"id":                module.ID,
		"sessionId":         module.SessionID,
		"moduleIndex":       module.ModuleIndex,
		"title":             module.Title,
		"topicArea":         module.TopicArea,
		"status":            module.Status,
		"content":           service.SanitizedContent(module.Content),
		"scenarioResponses": module.ScenarioResponses,
		"quizAnswers":       module.QuizAnswers,
		"moduleScore":       module.ModuleScore,
	}
}

// GetSessionAudit godoc
// @Summary Audit trail for a session
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Success 200 {object} util.Response{data=[]model.AuditEvent}
// @Router /api/training/sessions/{sessionId}/audit [get]
func (c *TrainingController) GetSessionAudit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	events, err := c.Audit.ListBySession(ctx.Request.Context(), claims.TenantID, ctx.Param("sessionId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, events)
}

// swagger:model StartSessionRequest
type StartSessionRequest struct {
	RoleProfileID string `json:"roleProfileId" binding:"required"`
}

// StartSession godoc
// @Summary Start a training session
// @Description Creates a session for the caller and generates its curriculum
// @Tags training
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body StartSessionRequest true "role profile"
// @Success 201 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "an active session already exists"
// @Failure 503 {object} util.Response "content generation unavailable"
// @Router /api/training/sessions [post]
func (c *TrainingController) StartSession(ctx *gin.Context) {
	var req StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	tenant, policy, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)

	session, err := c.Training.StartSession(ctx.Request.Context(), tenant, policy, claims.UserID, req.RoleProfileID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, sessionView(session))
}

// GetActiveSession godoc
// @Summary Caller's active session
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/training/sessions/active [get]
func (c *TrainingController) GetActiveSession(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)

	session, err := c.Training.GetActiveSession(ctx.Request.Context(), tenant.ID, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if session == nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, sessionView(session))
}

// GetSessionHistory godoc
// @Summary Caller's session history
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]object}
// @Router /api/training/sessions [get]
func (c *TrainingController) GetSessionHistory(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)

	sessions, err := c.Training.GetSessionHistory(ctx.Request.Context(), tenant.ID, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	views := make([]gin.H, len(sessions))
	for i := range sessions {
		views[i] = sessionView(&sessions[i])
	}
	util.Success(ctx, views)
}

// AbandonSession godoc
// @Summary Abandon the active session
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/training/sessions/active/abandon [post]
func (c *TrainingController) AbandonSession(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)

	session, err := c.Training.AbandonSession(ctx.Request.Context(), tenant, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, sessionView(session))
}

// StartRemediation godoc
// @Summary Start a remediation attempt
// @Description Rebuilds the failed session's curriculum from its weak areas
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "attempts exhausted or session not failed"
// @Router /api/training/sessions/active/remediate [post]
func (c *TrainingController) StartRemediation(ctx *gin.Context) {
	tenant, policy, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)

	session, err := c.Training.StartRemediation(ctx.Request.Context(), tenant, policy, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, sessionView(session))
}

// GetModules godoc
// @Summary List a session's modules
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Success 200 {object} util.Response{data=[]object}
// @Router /api/training/sessions/{sessionId}/modules [get]
func (c *TrainingController) GetModules(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}

	modules, err := c.Training.GetModules(ctx.Request.Context(), tenant.ID, ctx.Param("sessionId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	views := make([]gin.H, len(modules))
	for i := range modules {
		views[i] = moduleView(&modules[i])
	}
	util.Success(ctx, views)
}

// GetModule godoc
// @Summary Fetch one module
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Param index path int true "module index"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/training/sessions/{sessionId}/modules/{index} [get]
func (c *TrainingController) GetModule(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	idx, ok := moduleIndexParam(ctx)
	if !ok {
		return
	}

	module, err := c.Training.GetModule(ctx.Request.Context(), tenant.ID, ctx.Param("sessionId"), idx)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, moduleView(module))
}

// GenerateModuleContent godoc
// @Summary Generate a module's content
// @Description Unlocks the module and generates its scenarios and quiz
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Param index path int true "module index"
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "previous module not scored"
// @Failure 503 {object} util.Response "content generation unavailable"
// @Router /api/training/sessions/{sessionId}/modules/{index}/content [post]
func (c *TrainingController) GenerateModuleContent(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	idx, ok := moduleIndexParam(ctx)
	if !ok {
		return
	}

	module, err := c.Training.GenerateModuleContent(ctx.Request.Context(), tenant, ctx.Param("sessionId"), idx)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, moduleView(module))
}

// StartScenario godoc
// @Summary Begin scenario work on a module
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Param index path int true "module index"
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response
// @Router /api/training/sessions/{sessionId}/modules/{index}/scenario [post]
func (c *TrainingController) StartScenario(ctx *gin.Context) {
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	idx, ok := moduleIndexParam(ctx)
	if !ok {
		return
	}

	module, err := c.Training.StartScenario(ctx.Request.Context(), tenant, ctx.Param("sessionId"), idx)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, moduleView(module))
}

// swagger:model ScenarioResponseRequest
type ScenarioResponseRequest struct {
	ScenarioID string `json:"scenarioId" binding:"required"`
	Response   string `json:"response" binding:"required"`
}

// SubmitScenarioResponse godoc
// @Summary Submit a scenario response
// @Description Scores one free-text response; answering the last scenario opens the quiz
// @Tags training
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Param index path int true "module index"
// @Param body body ScenarioResponseRequest true "response"
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "duplicate response"
// @Router /api/training/sessions/{sessionId}/modules/{index}/scenario/responses [post]
func (c *TrainingController) SubmitScenarioResponse(ctx *gin.Context) {
	var req ScenarioResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	tenant, _, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	idx, ok := moduleIndexParam(ctx)
	if !ok {
		return
	}

	module, err := c.Training.SubmitScenarioResponse(ctx.Request.Context(), tenant, ctx.Param("sessionId"), idx, req.ScenarioID, req.Response)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, moduleView(module))
}

// swagger:model QuizSubmissionRequest
type QuizSubmissionRequest struct {
	Answers []service.QuizSubmission `json:"answers" binding:"required,min=1,dive"`
}

// SubmitQuizAnswers godoc
// @Summary Submit a module's quiz
// @Description Scores every question, finalizes the module and evaluates the session when it was the last one
// @Tags training
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "session id"
// @Param index path int true "module index"
// @Param body body QuizSubmissionRequest true "answers"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "incomplete quiz"
// @Router /api/training/sessions/{sessionId}/modules/{index}/quiz [post]
func (c *TrainingController) SubmitQuizAnswers(ctx *gin.Context) {
	var req QuizSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	tenant, policy, ok := c.tenantScope(ctx)
	if !ok {
		return
	}
	idx, ok := moduleIndexParam(ctx)
	if !ok {
		return
	}

	module, err := c.Training.SubmitQuizAnswers(ctx.Request.Context(), tenant, policy, ctx.Param("sessionId"), idx, req.Answers)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, moduleView(module))
}
