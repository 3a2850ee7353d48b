package repository

import (
	"context"
	"errors"
	"testing"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"
	"sectrain_backend/internal/workflow"
)

func newSession(tenantID, employeeID string, status workflow.SessionState) *model.TrainingSession {
	return &model.TrainingSession{
		TenantID:      tenantID,
		EmployeeID:    employeeID,
		RoleProfileID: "profile-1",
		Status:        status,
		AttemptNumber: 1,
		Version:       1,
	}
}

func TestCreateSessionRejectsSecondActive(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.CreateSession(ctx, newSession("t1", "emp1", workflow.SessionInProgress)); err != nil {
		t.Fatalf("create first session: %v", err)
	}

	err := repo.CreateSession(ctx, newSession("t1", "emp1", workflow.SessionCurriculumGenerating))
	if !errors.Is(err, util.ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}

	// Same employee under another tenant is unaffected.
	if err := repo.CreateSession(ctx, newSession("t2", "emp1", workflow.SessionInProgress)); err != nil {
		t.Fatalf("create session in other tenant: %v", err)
	}

	// A terminal prior session does not block a new one.
	if err := repo.CreateSession(ctx, newSession("t1", "emp2", workflow.SessionPassed)); err != nil {
		t.Fatalf("create terminal session: %v", err)
	}
	if err := repo.CreateSession(ctx, newSession("t1", "emp2", workflow.SessionInProgress)); err != nil {
		t.Fatalf("create after terminal: %v", err)
	}
}

func TestFindActiveSessionFiltersTerminal(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	for _, status := range []workflow.SessionState{workflow.SessionPassed, workflow.SessionAbandoned} {
		if err := repo.CreateSession(ctx, newSession("t1", "emp1", status)); err != nil {
			t.Fatalf("seed terminal session: %v", err)
		}
	}

	active, err := repo.FindActiveSession(ctx, "t1", "emp1")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active session, got %q", active.ID)
	}

	s := newSession("t1", "emp1", workflow.SessionInProgress)
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create active session: %v", err)
	}

	active, err = repo.FindActiveSession(ctx, "t1", "emp1")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active == nil || active.ID != s.ID {
		t.Fatalf("expected session %q, got %+v", s.ID, active)
	}
}

func TestUpdateSessionOptimisticConcurrency(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	s := newSession("t1", "emp1", workflow.SessionInProgress)
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Two callers both read version 1. Exactly one wins.
	evaluating := workflow.SessionEvaluating
	winner, err := repo.UpdateSession(ctx, "t1", s.ID, SessionPatch{Status: &evaluating}, 1)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if winner.Version != 2 {
		t.Fatalf("expected version 2, got %d", winner.Version)
	}
	if winner.Status != workflow.SessionEvaluating {
		t.Fatalf("expected status evaluating, got %q", winner.Status)
	}

	abandoned := workflow.SessionAbandoned
	_, err = repo.UpdateSession(ctx, "t1", s.ID, SessionPatch{Status: &abandoned}, 1)
	var conflict *util.VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError, got %v", err)
	}
	if conflict.Entity != "training_session" || conflict.ID != s.ID {
		t.Fatalf("conflict fields mismatch: %+v", conflict)
	}

	// The loser re-reads and retries against the fresh version.
	fresh, err := repo.FindByID(ctx, "t1", s.ID)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	passed := workflow.SessionPassed
	score := 0.85
	retried, err := repo.UpdateSession(ctx, "t1", s.ID, SessionPatch{Status: &passed, AggregateScore: &score}, fresh.Version)
	if err != nil {
		t.Fatalf("retry after re-read: %v", err)
	}
	if retried.Version != 3 || retried.Status != workflow.SessionPassed {
		t.Fatalf("unexpected retried state: v%d %q", retried.Version, retried.Status)
	}
	if retried.AggregateScore == nil || *retried.AggregateScore != 0.85 {
		t.Fatalf("aggregate score not persisted: %+v", retried.AggregateScore)
	}
}

func TestUpdateSessionMissingEntityFailsClosed(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	status := workflow.SessionEvaluating
	_, err := repo.UpdateSession(context.Background(), "t1", "no-such-id", SessionPatch{Status: &status}, 1)
	var conflict *util.VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError for missing entity, got %v", err)
	}
}

func TestUpdateSessionIsTenantScoped(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	s := newSession("t1", "emp1", workflow.SessionInProgress)
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	status := workflow.SessionAbandoned
	_, err := repo.UpdateSession(ctx, "t2", s.ID, SessionPatch{Status: &status}, 1)
	var conflict *util.VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected cross-tenant update to fail closed, got %v", err)
	}
}

func TestSessionPatchPersistsCurriculumAndOutcome(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	s := newSession("t1", "emp1", workflow.SessionCurriculumGenerating)
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	inProgress := workflow.SessionInProgress
	curriculum := &model.Curriculum{
		Modules: []model.ModuleOutline{
			{Title: "Phishing", TopicArea: "email-security", JobExpectationIndices: []int{0}},
			{Title: "Passwords", TopicArea: "credentials", JobExpectationIndices: []int{1}},
		},
	}
	updated, err := repo.UpdateSession(ctx, "t1", s.ID, SessionPatch{Status: &inProgress, Curriculum: curriculum}, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Curriculum == nil || len(updated.Curriculum.Modules) != 2 {
		t.Fatalf("curriculum not applied: %+v", updated.Curriculum)
	}

	reread, err := repo.FindByID(ctx, "t1", s.ID)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if reread.Curriculum == nil || reread.Curriculum.Modules[1].TopicArea != "credentials" {
		t.Fatalf("curriculum not round-tripped: %+v", reread.Curriculum)
	}

	weak := []string{"email-security"}
	updated, err = repo.UpdateSession(ctx, "t1", s.ID, SessionPatch{WeakAreas: weak}, reread.Version)
	if err != nil {
		t.Fatalf("update weak areas: %v", err)
	}
	if len(updated.WeakAreas) != 1 || updated.WeakAreas[0] != "email-security" {
		t.Fatalf("weak areas not applied: %+v", updated.WeakAreas)
	}

	updated, err = repo.UpdateSession(ctx, "t1", s.ID, SessionPatch{ClearOutcome: true}, updated.Version)
	if err != nil {
		t.Fatalf("clear outcome: %v", err)
	}
	if updated.AggregateScore != nil || updated.WeakAreas != nil {
		t.Fatalf("outcome not cleared: %+v", updated)
	}
}
