package service

import (
	"context"
	"errors"
	"testing"

	"sectrain_backend/internal/util"
	"sectrain_backend/internal/workflow"
)

func TestEvidenceGenerationForPassedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.training.StartSession(ctx, env.tenant, env.policy, "emp-1", env.profile.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	env.completeModule(t, session.ID, 0)
	env.completeModule(t, session.ID, 1)

	evidence, err := env.evsvc.Generate(ctx, env.tenant, env.policy, session.ID)
	if err != nil {
		t.Fatalf("generate evidence: %v", err)
	}

	body := evidence.Body
	if body.Summary.SessionID != session.ID || body.Summary.Status != string(workflow.SessionPassed) {
		t.Fatalf("unexpected summary: %+v", body.Summary)
	}
	if body.Policy.ConfigHash != "cfg-hash-1" || body.Policy.PassThreshold != 0.70 || body.Policy.RoleProfileVersion != 1 {
		t.Fatalf("policy attestation incomplete: %+v", body.Policy)
	}
	if body.Outcome.Passed == nil || !*body.Outcome.Passed {
		t.Fatalf("expected passed outcome, got %+v", body.Outcome)
	}
	if len(body.Modules) != 2 {
		t.Fatalf("expected 2 modules in evidence, got %d", len(body.Modules))
	}
	for _, m := range body.Modules {
		if len(m.Scenarios) != 1 || len(m.Quiz) != 2 {
			t.Fatalf("module items missing: %+v", m)
		}
		for _, item := range m.Scenarios {
			if item.Situation == "" || item.Response == "" {
				t.Fatalf("scenario item incomplete: %+v", item)
			}
		}
		for _, item := range m.Quiz {
			if item.SelectedOptionID == "" || len(item.Options) != 2 {
				t.Fatalf("quiz item incomplete: %+v", item)
			}
		}
	}

	valid, err := env.evsvc.VerifyHash(ctx, env.tenant.ID, evidence.ID)
	if err != nil {
		t.Fatalf("verify hash: %v", err)
	}
	if !valid {
		t.Fatal("freshly generated evidence must verify")
	}
}

func TestEvidenceGenerationIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.training.StartSession(ctx, env.tenant, env.policy, "emp-1", env.profile.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	env.completeModule(t, session.ID, 0)
	env.completeModule(t, session.ID, 1)

	first, err := env.evsvc.Generate(ctx, env.tenant, env.policy, session.ID)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := env.evsvc.Generate(ctx, env.tenant, env.policy, session.ID)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if first.ID != second.ID || first.ContentHash != second.ContentHash {
		t.Fatalf("evidence regenerated: %s/%s vs %s/%s", first.ID, first.ContentHash, second.ID, second.ContentHash)
	}
}

func TestEvidenceRequiresTerminalSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.training.StartSession(ctx, env.tenant, env.policy, "emp-1", env.profile.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	_, err = env.evsvc.Generate(ctx, env.tenant, env.policy, session.ID)
	var terminal *util.ExpectedTerminalStateError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected ExpectedTerminalStateError, got %v", err)
	}
}

func TestEvidenceForAbandonedPartialSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.training.StartSession(ctx, env.tenant, env.policy, "emp-1", env.profile.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	env.completeModule(t, session.ID, 0)
	if _, err := env.training.AbandonSession(ctx, env.tenant, "emp-1"); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	evidence, err := env.evsvc.Generate(ctx, env.tenant, env.policy, session.ID)
	if err != nil {
		t.Fatalf("generate evidence: %v", err)
	}

	body := evidence.Body
	if body.Summary.Status != string(workflow.SessionAbandoned) {
		t.Fatalf("expected abandoned status, got %s", body.Summary.Status)
	}
	if body.Outcome.AggregateScore != nil || body.Outcome.Passed != nil {
		t.Fatalf("unevaluated session must carry no outcome: %+v", body.Outcome)
	}
	if len(body.Modules) != 2 {
		t.Fatalf("expected both modules recorded, got %d", len(body.Modules))
	}
	// The untouched module appears with empty items and no score.
	second := body.Modules[1]
	if second.ModuleScore != nil || len(second.Scenarios) != 0 || len(second.Quiz) != 0 {
		t.Fatalf("untouched module should be empty: %+v", second)
	}
}

func TestContentHashIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.training.StartSession(ctx, env.tenant, env.policy, "emp-1", env.profile.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	env.completeModule(t, session.ID, 0)
	env.completeModule(t, session.ID, 1)

	evidence, err := env.evsvc.Generate(ctx, env.tenant, env.policy, session.ID)
	if err != nil {
		t.Fatalf("generate evidence: %v", err)
	}

	again, err := ComputeContentHash(evidence.Body)
	if err != nil {
		t.Fatalf("rehash: %v", err)
	}
	if again != evidence.ContentHash {
		t.Fatalf("hash not reproducible: %s vs %s", again, evidence.ContentHash)
	}

	mutated := evidence.Body
	mutated.Summary.EmployeeID = "someone-else"
	different, err := ComputeContentHash(mutated)
	if err != nil {
		t.Fatalf("hash mutated body: %v", err)
	}
	if different == evidence.ContentHash {
		t.Fatal("mutated body must hash differently")
	}
}
