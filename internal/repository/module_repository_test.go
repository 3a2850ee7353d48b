package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"
	"sectrain_backend/internal/workflow"
)

func seedModules(t *testing.T, repo *ModuleRepository, tenantID, sessionID string, count int) []model.TrainingModule {
	t.Helper()
	modules := make([]model.TrainingModule, count)
	for i := range modules {
		modules[i] = model.TrainingModule{
			TenantID:    tenantID,
			SessionID:   sessionID,
			ModuleIndex: i,
			Title:       "Module",
			TopicArea:   "topic",
			Status:      workflow.ModuleLocked,
			Version:     1,
		}
	}
	if err := repo.CreateModules(context.Background(), modules); err != nil {
		t.Fatalf("create modules: %v", err)
	}
	return modules
}

func TestFindBySessionOrdersByIndex(t *testing.T) {
	repo := NewModuleRepository(newTestDB(t))
	seedModules(t, repo, "t1", "sess-1", 3)

	modules, err := repo.FindBySession(context.Background(), "t1", "sess-1")
	if err != nil {
		t.Fatalf("find by session: %v", err)
	}
	if len(modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(modules))
	}
	for i, m := range modules {
		if m.ModuleIndex != i {
			t.Fatalf("expected contiguous indices, got %d at position %d", m.ModuleIndex, i)
		}
	}
}

func TestFindModuleByIndex(t *testing.T) {
	repo := NewModuleRepository(newTestDB(t))
	seedModules(t, repo, "t1", "sess-1", 2)

	m, err := repo.FindModule(context.Background(), "t1", "sess-1", 1)
	if err != nil {
		t.Fatalf("find module: %v", err)
	}
	if m.ModuleIndex != 1 {
		t.Fatalf("expected index 1, got %d", m.ModuleIndex)
	}

	_, err = repo.FindModule(context.Background(), "t1", "sess-1", 9)
	var notFound *util.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateModuleOptimisticConcurrency(t *testing.T) {
	repo := NewModuleRepository(newTestDB(t))
	modules := seedModules(t, repo, "t1", "sess-1", 1)
	ctx := context.Background()

	generating := workflow.ModuleContentGenerating
	updated, err := repo.UpdateModule(ctx, "t1", modules[0].ID, ModulePatch{Status: &generating}, 1)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if updated.Version != 2 || updated.Status != workflow.ModuleContentGenerating {
		t.Fatalf("unexpected state after update: v%d %q", updated.Version, updated.Status)
	}

	locked := workflow.ModuleLocked
	_, err = repo.UpdateModule(ctx, "t1", modules[0].ID, ModulePatch{Status: &locked}, 1)
	var conflict *util.VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError for stale version, got %v", err)
	}
	if conflict.Entity != "training_module" {
		t.Fatalf("conflict entity mismatch: %+v", conflict)
	}
}

func TestUpdateModulePersistsContentAndResponses(t *testing.T) {
	repo := NewModuleRepository(newTestDB(t))
	modules := seedModules(t, repo, "t1", "sess-1", 1)
	ctx := context.Background()

	learning := workflow.ModuleLearning
	content := &model.ModuleContent{
		Instruction: "Spotting phishing emails.",
		Scenarios: []model.Scenario{
			{ID: "sc-1", Situation: "An urgent invoice arrives.", Prompt: "What do you do?", Rubric: "Mentions verifying the sender."},
		},
		Quiz: []model.QuizQuestion{
			{ID: "q-1", Question: "Pick the safe action.", Options: []model.QuizOption{
				{ID: "a", Text: "Open it", Correct: false},
				{ID: "b", Text: "Report it", Correct: true},
			}},
		},
	}
	updated, err := repo.UpdateModule(ctx, "t1", modules[0].ID, ModulePatch{Status: &learning, Content: content}, 1)
	if err != nil {
		t.Fatalf("update content: %v", err)
	}

	responses := []model.ScenarioResponse{
		{ScenarioID: "sc-1", Response: "Verify the sender first.", Score: 1.0, SubmittedAt: time.Now()},
	}
	updated, err = repo.UpdateModule(ctx, "t1", modules[0].ID, ModulePatch{ScenarioResponses: responses}, updated.Version)
	if err != nil {
		t.Fatalf("update responses: %v", err)
	}

	reread, err := repo.FindModule(ctx, "t1", "sess-1", 0)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if reread.Content == nil || len(reread.Content.Quiz) != 1 {
		t.Fatalf("content not round-tripped: %+v", reread.Content)
	}
	if !reread.Content.Quiz[0].Options[1].Correct {
		t.Fatal("answer key lost in round trip")
	}
	if len(reread.ScenarioResponses) != 1 || reread.ScenarioResponses[0].Score != 1.0 {
		t.Fatalf("responses not round-tripped: %+v", reread.ScenarioResponses)
	}
}

func TestReplaceModules(t *testing.T) {
	repo := NewModuleRepository(newTestDB(t))
	seedModules(t, repo, "t1", "sess-1", 3)
	ctx := context.Background()

	replacement := []model.TrainingModule{
		{TenantID: "t1", SessionID: "sess-1", ModuleIndex: 0, Title: "Remediation", TopicArea: "credentials", Status: workflow.ModuleLocked, Version: 1},
	}
	if err := repo.ReplaceModules(ctx, "t1", "sess-1", replacement); err != nil {
		t.Fatalf("replace modules: %v", err)
	}

	modules, err := repo.FindBySession(ctx, "t1", "sess-1")
	if err != nil {
		t.Fatalf("find by session: %v", err)
	}
	if len(modules) != 1 || modules[0].Title != "Remediation" {
		t.Fatalf("expected single remediation module, got %+v", modules)
	}
}
