package service

import (
	"context"
	"time"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"
	"sectrain_backend/internal/util"
	"sectrain_backend/internal/workflow"
	"sectrain_backend/pkg/logger"

	"go.uber.org/zap"
)

// ContentGenerator is the external content-generation service. The AI
// client implements it in production.
type ContentGenerator interface {
	GenerateCurriculum(ctx context.Context, profile *model.RoleProfile, maxModules int) (*model.Curriculum, error)
	GenerateRemediationCurriculum(ctx context.Context, weakAreas []string, profile *model.RoleProfile, maxModules int) (*model.Curriculum, error)
	GenerateModuleContent(ctx context.Context, outline model.ModuleOutline, profile *model.RoleProfile) (*model.ModuleContent, error)
}

// CompletionHook runs after a session reaches a terminal status. The
// app wires evidence generation and compliance dispatch through it.
type CompletionHook interface {
	SessionFinished(ctx context.Context, tenant *model.Tenant, session *model.TrainingSession)
}

// TrainingService drives the session and module state machines. Every
// mutation goes through the repositories' version-checked updates; a
// VersionConflict is always handed back to the caller untouched.
type TrainingService struct {
	Sessions   *repository.SessionRepository
	Modules    *repository.ModuleRepository
	Profiles   *repository.RoleProfileRepository
	Scoring    *ScoringService
	Generator  ContentGenerator
	Audit      *AuditService
	Hook       CompletionHook
	AppVersion string
}

func NewTrainingService(
	sessions *repository.SessionRepository,
	modules *repository.ModuleRepository,
	profiles *repository.RoleProfileRepository,
	scoring *ScoringService,
	generator ContentGenerator,
	audit *AuditService,
	appVersion string,
) *TrainingService {
	return &TrainingService{
		Sessions:   sessions,
		Modules:    modules,
		Profiles:   profiles,
		Scoring:    scoring,
		Generator:  generator,
		Audit:      audit,
		AppVersion: appVersion,
	}
}

// StartSession creates a session, generates its curriculum and unlocks
// the first module. A generation failure rolls the fresh session back
// so the employee is not left stuck in curriculum-generating.
func (s *TrainingService) StartSession(ctx context.Context, tenant *model.Tenant, policy model.TrainingPolicy, employeeID, roleProfileID string) (*model.TrainingSession, error) {
	profile, err := s.Profiles.FindByID(ctx, tenant.ID, roleProfileID)
	if err != nil {
		return nil, err
	}

	session := &model.TrainingSession{
		TenantID:           tenant.ID,
		EmployeeID:         employeeID,
		RoleProfileID:      profile.ID,
		RoleProfileVersion: profile.Version,
		ConfigHash:         tenant.ConfigHash,
		AppVersion:         s.AppVersion,
		Status:             workflow.SessionCurriculumGenerating,
		AttemptNumber:      1,
		Version:            1,
	}
	if err := s.Sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	curriculum, err := s.Generator.GenerateCurriculum(ctx, profile, policy.MaxModules)
	if err != nil {
		if delErr := s.Sessions.DeleteSession(ctx, tenant.ID, session.ID); delErr != nil {
			logger.Log.Error("curriculum rollback failed",
				zap.String("sessionId", session.ID), zap.Error(delErr))
		}
		return nil, err
	}

	next, err := workflow.TransitionSession(session.Status, workflow.EventCurriculumGenerated)
	if err != nil {
		return nil, err
	}
	updated, err := s.Sessions.UpdateSession(ctx, tenant.ID, session.ID, repository.SessionPatch{
		Status:     &next,
		Curriculum: curriculum,
	}, session.Version)
	if err != nil {
		return nil, err
	}

	if err := s.Modules.CreateModules(ctx, buildModules(tenant.ID, session.ID, curriculum)); err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:   tenant.ID,
		EmployeeID: employeeID,
		SessionID:  session.ID,
		EventType:  "session.started",
		Count:      len(curriculum.Modules),
	})
	return updated, nil
}

func buildModules(tenantID, sessionID string, curriculum *model.Curriculum) []model.TrainingModule {
	modules := make([]model.TrainingModule, len(curriculum.Modules))
	for i, outline := range curriculum.Modules {
		modules[i] = model.TrainingModule{
			TenantID:              tenantID,
			SessionID:             sessionID,
			ModuleIndex:           i,
			Title:                 outline.Title,
			TopicArea:             outline.TopicArea,
			JobExpectationIndices: outline.JobExpectationIndices,
			Status:                workflow.ModuleLocked,
			Version:               1,
		}
	}
	return modules
}

// GenerateModuleContent moves a locked module through content
// generation into learning. Module N>0 stays locked until module N-1 is
// scored. On generation failure the status is rolled back to locked
// best-effort; the generation error dominates the response either way.
func (s *TrainingService) GenerateModuleContent(ctx context.Context, tenant *model.Tenant, sessionID string, moduleIndex int) (*model.TrainingModule, error) {
	session, err := s.Sessions.FindByID(ctx, tenant.ID, sessionID)
	if err != nil {
		return nil, err
	}
	module, err := s.Modules.FindModule(ctx, tenant.ID, sessionID, moduleIndex)
	if err != nil {
		return nil, err
	}

	if moduleIndex > 0 {
		prev, err := s.Modules.FindModule(ctx, tenant.ID, sessionID, moduleIndex-1)
		if err != nil {
			return nil, err
		}
		if prev.Status != workflow.ModuleScored {
			return nil, util.ErrModuleOrder
		}
	}

	generating, err := workflow.TransitionModule(module.Status, workflow.EventGenerateContent)
	if err != nil {
		return nil, err
	}
	module, err = s.Modules.UpdateModule(ctx, tenant.ID, module.ID, repository.ModulePatch{Status: &generating}, module.Version)
	if err != nil {
		return nil, err
	}

	profile, err := s.Profiles.FindByID(ctx, tenant.ID, session.RoleProfileID)
	if err != nil {
		s.rollbackModule(ctx, tenant.ID, module)
		return nil, err
	}
	outline := model.ModuleOutline{Title: module.Title, TopicArea: module.TopicArea, JobExpectationIndices: module.JobExpectationIndices}
	if session.Curriculum != nil && moduleIndex < len(session.Curriculum.Modules) {
		outline = session.Curriculum.Modules[moduleIndex]
	}

	content, err := s.Generator.GenerateModuleContent(ctx, outline, profile)
	if err != nil {
		s.rollbackModule(ctx, tenant.ID, module)
		return nil, err
	}

	learning, err := workflow.TransitionModule(module.Status, workflow.EventContentReady)
	if err != nil {
		return nil, err
	}
	module, err = s.Modules.UpdateModule(ctx, tenant.ID, module.ID, repository.ModulePatch{
		Status:  &learning,
		Content: content,
	}, module.Version)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:  tenant.ID,
		SessionID: sessionID,
		ModuleID:  module.ID,
		EventType: "module.content-generated",
		Count:     len(content.Quiz) + len(content.Scenarios),
	})
	return module, nil
}

// rollbackModule returns a content-generating module to locked so a
// retry is not permanently blocked. Failures here are swallowed; the
// caller's primary error dominates.
func (s *TrainingService) rollbackModule(ctx context.Context, tenantID string, module *model.TrainingModule) {
	locked := workflow.ModuleLocked
	if _, err := s.Modules.UpdateModule(ctx, tenantID, module.ID, repository.ModulePatch{Status: &locked}, module.Version); err != nil {
		logger.Log.Error("module status rollback failed",
			zap.String("moduleId", module.ID), zap.Error(err))
	}
}

// StartScenario moves a learning module into scenario work. Modules
// whose content has no scenarios advance straight to the quiz.
func (s *TrainingService) StartScenario(ctx context.Context, tenant *model.Tenant, sessionID string, moduleIndex int) (*model.TrainingModule, error) {
	module, err := s.Modules.FindModule(ctx, tenant.ID, sessionID, moduleIndex)
	if err != nil {
		return nil, err
	}

	active, err := workflow.TransitionModule(module.Status, workflow.EventStartScenario)
	if err != nil {
		return nil, err
	}
	patch := repository.ModulePatch{Status: &active}
	if module.Content != nil && len(module.Content.Scenarios) == 0 {
		quiz, err := workflow.TransitionModule(active, workflow.EventScenariosComplete)
		if err != nil {
			return nil, err
		}
		patch.Status = &quiz
	}

	module, err = s.Modules.UpdateModule(ctx, tenant.ID, module.ID, patch, module.Version)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:  tenant.ID,
		SessionID: sessionID,
		ModuleID:  module.ID,
		EventType: "module.scenario-started",
	})
	return module, nil
}

// SubmitScenarioResponse scores one free-text response. Responses are
// append-only and unique per scenario; answering the last scenario
// advances the module to its quiz.
func (s *TrainingService) SubmitScenarioResponse(ctx context.Context, tenant *model.Tenant, sessionID string, moduleIndex int, scenarioID, responseText string) (*model.TrainingModule, error) {
	module, err := s.Modules.FindModule(ctx, tenant.ID, sessionID, moduleIndex)
	if err != nil {
		return nil, err
	}
	if module.Status != workflow.ModuleScenarioActive {
		return nil, &workflow.InvalidTransitionError{State: string(module.Status), Event: "submit-scenario-response"}
	}
	if module.Content == nil {
		return nil, &util.NotFoundError{Entity: "module_content", ID: module.ID}
	}

	var scenario *model.Scenario
	for i := range module.Content.Scenarios {
		if module.Content.Scenarios[i].ID == scenarioID {
			scenario = &module.Content.Scenarios[i]
			break
		}
	}
	if scenario == nil {
		return nil, util.ErrUnknownItem
	}
	for _, r := range module.ScenarioResponses {
		if r.ScenarioID == scenarioID {
			return nil, util.ErrDuplicateResponse
		}
	}

	score, rationale, err := s.Scoring.ScoreFreeText(ctx, scenario.Prompt, scenario.Rubric, responseText)
	if err != nil {
		return nil, err
	}

	responses := append(append([]model.ScenarioResponse{}, module.ScenarioResponses...), model.ScenarioResponse{
		ScenarioID:  scenarioID,
		Response:    responseText,
		Score:       score,
		Rationale:   rationale,
		SubmittedAt: time.Now().UTC(),
	})

	patch := repository.ModulePatch{ScenarioResponses: responses}
	if len(responses) == len(module.Content.Scenarios) {
		quiz, err := workflow.TransitionModule(module.Status, workflow.EventScenariosComplete)
		if err != nil {
			return nil, err
		}
		patch.Status = &quiz
	}

	module, err = s.Modules.UpdateModule(ctx, tenant.ID, module.ID, patch, module.Version)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:  tenant.ID,
		SessionID: sessionID,
		ModuleID:  module.ID,
		EventType: "module.scenario-scored",
		Score:     &score,
		Count:     len(responses),
	})
	return module, nil
}

type QuizSubmission struct {
	QuestionID       string `json:"questionId" binding:"required"`
	SelectedOptionID string `json:"selectedOptionId" binding:"required"`
}

// SubmitQuizAnswers scores the whole quiz, finalizes the module score
// and, when this was the last open module, evaluates the session.
func (s *TrainingService) SubmitQuizAnswers(ctx context.Context, tenant *model.Tenant, policy model.TrainingPolicy, sessionID string, moduleIndex int, submissions []QuizSubmission) (*model.TrainingModule, error) {
	session, err := s.Sessions.FindByID(ctx, tenant.ID, sessionID)
	if err != nil {
		return nil, err
	}
	module, err := s.Modules.FindModule(ctx, tenant.ID, sessionID, moduleIndex)
	if err != nil {
		return nil, err
	}
	if module.Status != workflow.ModuleQuizActive {
		return nil, &workflow.InvalidTransitionError{State: string(module.Status), Event: "submit-quiz-answers"}
	}
	if module.Content == nil {
		return nil, &util.NotFoundError{Entity: "module_content", ID: module.ID}
	}

	byQuestion := make(map[string]string, len(submissions))
	for _, sub := range submissions {
		if _, dup := byQuestion[sub.QuestionID]; dup {
			return nil, util.ErrDuplicateResponse
		}
		byQuestion[sub.QuestionID] = sub.SelectedOptionID
	}
	if len(byQuestion) != len(module.Content.Quiz) {
		return nil, util.ErrIncompleteQuiz
	}

	now := time.Now().UTC()
	answers := make([]model.QuizAnswer, 0, len(module.Content.Quiz))
	quizScores := make([]float64, 0, len(module.Content.Quiz))
	for _, question := range module.Content.Quiz {
		selected, ok := byQuestion[question.ID]
		if !ok {
			return nil, util.ErrIncompleteQuiz
		}
		correctID := ""
		valid := false
		for _, opt := range question.Options {
			if opt.Correct {
				correctID = opt.ID
			}
			if opt.ID == selected {
				valid = true
			}
		}
		if !valid {
			return nil, util.ErrUnknownItem
		}
		score := ScoreMultipleChoice(selected, correctID)
		answers = append(answers, model.QuizAnswer{
			QuestionID:       question.ID,
			SelectedOptionID: selected,
			Correct:          score == 1.0,
			Score:            score,
			AnsweredAt:       now,
		})
		quizScores = append(quizScores, score)
	}

	scenarioScores := make([]float64, 0, len(module.ScenarioResponses))
	for _, r := range module.ScenarioResponses {
		scenarioScores = append(scenarioScores, r.Score)
	}
	moduleScore := ComputeModuleScore(scenarioScores, quizScores)

	scored, err := workflow.TransitionModule(module.Status, workflow.EventQuizScored)
	if err != nil {
		return nil, err
	}
	module, err = s.Modules.UpdateModule(ctx, tenant.ID, module.ID, repository.ModulePatch{
		Status:      &scored,
		QuizAnswers: answers,
		ModuleScore: moduleScore,
	}, module.Version)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:  tenant.ID,
		SessionID: sessionID,
		ModuleID:  module.ID,
		EventType: "module.scored",
		Score:     moduleScore,
		Count:     len(answers),
	})

	if err := s.maybeEvaluateSession(ctx, tenant, policy, session); err != nil {
		return nil, err
	}
	return module, nil
}

// maybeEvaluateSession flips the session through evaluating into its
// outcome once every module is scored. Before the flip it re-reads the
// employee's active-session pointer and compares identity, and the
// update itself carries the session version read at operation start, so
// a second concurrent completer loses on one of the two checks.
func (s *TrainingService) maybeEvaluateSession(ctx context.Context, tenant *model.Tenant, policy model.TrainingPolicy, session *model.TrainingSession) error {
	modules, err := s.Modules.FindBySession(ctx, tenant.ID, session.ID)
	if err != nil {
		return err
	}
	for _, m := range modules {
		if m.Status != workflow.ModuleScored {
			return nil
		}
	}

	active, err := s.Sessions.FindActiveSession(ctx, tenant.ID, session.EmployeeID)
	if err != nil {
		return err
	}
	if active == nil || active.ID != session.ID {
		// Another completer already moved this session on.
		return nil
	}

	evaluating, err := workflow.TransitionSession(session.Status, workflow.EventAllModulesScored)
	if err != nil {
		return err
	}
	updated, err := s.Sessions.UpdateSession(ctx, tenant.ID, session.ID, repository.SessionPatch{Status: &evaluating}, session.Version)
	if err != nil {
		return err
	}

	moduleScores := make([]float64, 0, len(modules))
	for _, m := range modules {
		if m.ModuleScore != nil {
			moduleScores = append(moduleScores, *m.ModuleScore)
		}
	}
	aggregate := ComputeAggregateScore(moduleScores)
	weakAreas := IdentifyWeakAreas(modules, policy.PassThreshold)

	event := workflow.EventEvaluationFailed
	switch {
	case aggregate != nil && IsPassing(*aggregate, policy.PassThreshold):
		event = workflow.EventEvaluationPassed
	case updated.AttemptNumber >= policy.MaxAttempts:
		event = workflow.EventEvaluationExhausted
	}

	outcome, err := workflow.TransitionSession(updated.Status, event)
	if err != nil {
		return err
	}
	patch := repository.SessionPatch{
		Status:         &outcome,
		AggregateScore: aggregate,
		WeakAreas:      weakAreas,
	}
	if workflow.IsTerminalSession(outcome) {
		now := time.Now().UTC()
		patch.CompletedAt = &now
	}
	final, err := s.Sessions.UpdateSession(ctx, tenant.ID, session.ID, patch, updated.Version)
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:   tenant.ID,
		EmployeeID: session.EmployeeID,
		SessionID:  session.ID,
		EventType:  "session.evaluated",
		Outcome:    string(outcome),
		Score:      aggregate,
		Count:      len(modules),
	})

	if workflow.IsTerminalSession(outcome) && s.Hook != nil {
		s.Hook.SessionFinished(ctx, tenant, final)
	}
	return nil
}

// AbandonSession moves the employee's active session to abandoned.
func (s *TrainingService) AbandonSession(ctx context.Context, tenant *model.Tenant, employeeID string) (*model.TrainingSession, error) {
	session, err := s.Sessions.FindActiveSession(ctx, tenant.ID, employeeID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, util.ErrNoActiveSession
	}

	abandoned, err := workflow.TransitionSession(session.Status, workflow.EventSessionAbandoned)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	updated, err := s.Sessions.UpdateSession(ctx, tenant.ID, session.ID, repository.SessionPatch{
		Status:      &abandoned,
		CompletedAt: &now,
	}, session.Version)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:   tenant.ID,
		EmployeeID: employeeID,
		SessionID:  session.ID,
		EventType:  "session.abandoned",
	})

	if s.Hook != nil {
		s.Hook.SessionFinished(ctx, tenant, updated)
	}
	return updated, nil
}

// StartRemediation restarts a failed session with a curriculum built
// from its weak areas. The old attempt's modules are replaced and the
// attempt counter advances.
func (s *TrainingService) StartRemediation(ctx context.Context, tenant *model.Tenant, policy model.TrainingPolicy, employeeID string) (*model.TrainingSession, error) {
	session, err := s.Sessions.FindActiveSession(ctx, tenant.ID, employeeID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, util.ErrNoActiveSession
	}
	if session.AttemptNumber >= policy.MaxAttempts {
		return nil, util.ErrAttemptsExhausted
	}

	remediating, err := workflow.TransitionSession(session.Status, workflow.EventRemediationStarted)
	if err != nil {
		return nil, err
	}
	updated, err := s.Sessions.UpdateSession(ctx, tenant.ID, session.ID, repository.SessionPatch{Status: &remediating}, session.Version)
	if err != nil {
		return nil, err
	}

	profile, err := s.Profiles.FindByID(ctx, tenant.ID, session.RoleProfileID)
	if err != nil {
		s.rollbackRemediation(ctx, tenant.ID, updated)
		return nil, err
	}
	curriculum, err := s.Generator.GenerateRemediationCurriculum(ctx, session.WeakAreas, profile, policy.MaxModules)
	if err != nil {
		s.rollbackRemediation(ctx, tenant.ID, updated)
		return nil, err
	}

	if err := s.Modules.ReplaceModules(ctx, tenant.ID, session.ID, buildModules(tenant.ID, session.ID, curriculum)); err != nil {
		return nil, err
	}

	inProgress, err := workflow.TransitionSession(updated.Status, workflow.EventRemediationModulesReady)
	if err != nil {
		return nil, err
	}
	attempt := session.AttemptNumber + 1
	final, err := s.Sessions.UpdateSession(ctx, tenant.ID, session.ID, repository.SessionPatch{
		Status:        &inProgress,
		Curriculum:    curriculum,
		AttemptNumber: &attempt,
		ClearOutcome:  true,
	}, updated.Version)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:   tenant.ID,
		EmployeeID: employeeID,
		SessionID:  session.ID,
		EventType:  "session.remediation-started",
		Count:      len(curriculum.Modules),
	})
	return final, nil
}

// rollbackRemediation returns a session to failed after remediation
// setup broke partway. Swallowed on failure like the module rollback.
func (s *TrainingService) rollbackRemediation(ctx context.Context, tenantID string, session *model.TrainingSession) {
	failed := workflow.SessionFailed
	if _, err := s.Sessions.UpdateSession(ctx, tenantID, session.ID, repository.SessionPatch{Status: &failed}, session.Version); err != nil {
		logger.Log.Error("remediation rollback failed",
			zap.String("sessionId", session.ID), zap.Error(err))
	}
}

func (s *TrainingService) GetActiveSession(ctx context.Context, tenantID, employeeID string) (*model.TrainingSession, error) {
	return s.Sessions.FindActiveSession(ctx, tenantID, employeeID)
}

func (s *TrainingService) GetSessionHistory(ctx context.Context, tenantID, employeeID string) ([]model.TrainingSession, error) {
	return s.Sessions.FindSessionHistory(ctx, tenantID, employeeID)
}

func (s *TrainingService) GetModules(ctx context.Context, tenantID, sessionID string) ([]model.TrainingModule, error) {
	return s.Modules.FindBySession(ctx, tenantID, sessionID)
}

func (s *TrainingService) GetModule(ctx context.Context, tenantID, sessionID string, moduleIndex int) (*model.TrainingModule, error) {
	return s.Modules.FindModule(ctx, tenantID, sessionID, moduleIndex)
}

// SanitizedContent strips rubric text and answer keys for client
// delivery. The stored content keeps them server-side only.
func SanitizedContent(content *model.ModuleContent) *model.ModuleContent {
	if content == nil {
		return nil
	}
	out := &model.ModuleContent{Instruction: content.Instruction}
	for _, sc := range content.Scenarios {
		out.Scenarios = append(out.Scenarios, model.Scenario{
			ID:        sc.ID,
			Situation: sc.Situation,
			Prompt:    sc.Prompt,
		})
	}
	for _, q := range content.Quiz {
		question := model.QuizQuestion{ID: q.ID, Question: q.Question}
		for _, opt := range q.Options {
			question.Options = append(question.Options, model.QuizOption{ID: opt.ID, Text: opt.Text})
		}
		out.Quiz = append(out.Quiz, question)
	}
	return out
}
