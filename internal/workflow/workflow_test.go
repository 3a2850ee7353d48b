package workflow

import (
	"errors"
	"testing"
)

func TestSessionTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		event SessionEvent
		want  SessionState
	}{
		{"curriculum generated", SessionCurriculumGenerating, EventCurriculumGenerated, SessionInProgress},
		{"all modules scored", SessionInProgress, EventAllModulesScored, SessionEvaluating},
		{"abandon in progress", SessionInProgress, EventSessionAbandoned, SessionAbandoned},
		{"evaluation passed", SessionEvaluating, EventEvaluationPassed, SessionPassed},
		{"evaluation failed", SessionEvaluating, EventEvaluationFailed, SessionFailed},
		{"evaluation exhausted", SessionEvaluating, EventEvaluationExhausted, SessionExhausted},
		{"remediation started", SessionFailed, EventRemediationStarted, SessionInRemediation},
		{"remediation modules ready", SessionInRemediation, EventRemediationModulesReady, SessionInProgress},
		{"abandon in remediation", SessionInRemediation, EventSessionAbandoned, SessionAbandoned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransitionSession(tt.state, tt.event)
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if !CanTransitionSession(tt.state, tt.event) {
				t.Fatalf("CanTransitionSession disagrees with TransitionSession for %q + %q", tt.state, tt.event)
			}
		})
	}
}

func TestSessionIllegalTransitions(t *testing.T) {
	tests := []struct {
		state SessionState
		event SessionEvent
	}{
		{SessionCurriculumGenerating, EventAllModulesScored},
		{SessionInProgress, EventCurriculumGenerated},
		{SessionInProgress, EventEvaluationPassed},
		{SessionEvaluating, EventSessionAbandoned},
		{SessionPassed, EventSessionAbandoned},
		{SessionExhausted, EventRemediationStarted},
		{SessionAbandoned, EventCurriculumGenerated},
		{SessionFailed, EventAllModulesScored},
	}

	for _, tt := range tests {
		t.Run(string(tt.state)+"_"+string(tt.event), func(t *testing.T) {
			_, err := TransitionSession(tt.state, tt.event)
			if err == nil {
				t.Fatalf("expected error for %q + %q", tt.state, tt.event)
			}
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Fatalf("expected InvalidTransitionError, got %T", err)
			}
			if ite.State != string(tt.state) || ite.Event != string(tt.event) {
				t.Fatalf("error fields mismatch: %+v", ite)
			}
			if CanTransitionSession(tt.state, tt.event) {
				t.Fatalf("CanTransitionSession returned true for illegal pair")
			}
		})
	}
}

func TestModuleTransitions(t *testing.T) {
	order := []struct {
		state ModuleState
		event ModuleEvent
		want  ModuleState
	}{
		{ModuleLocked, EventGenerateContent, ModuleContentGenerating},
		{ModuleContentGenerating, EventContentReady, ModuleLearning},
		{ModuleLearning, EventStartScenario, ModuleScenarioActive},
		{ModuleScenarioActive, EventScenariosComplete, ModuleQuizActive},
		{ModuleQuizActive, EventQuizScored, ModuleScored},
	}

	for _, step := range order {
		got, err := TransitionModule(step.state, step.event)
		if err != nil {
			t.Fatalf("transition %q + %q: %v", step.state, step.event, err)
		}
		if got != step.want {
			t.Fatalf("expected %q, got %q", step.want, got)
		}
	}

	if _, err := TransitionModule(ModuleScored, EventGenerateContent); err == nil {
		t.Fatal("expected error leaving terminal module state")
	}
	if _, err := TransitionModule(ModuleLocked, EventQuizScored); err == nil {
		t.Fatal("expected error skipping module states")
	}
}

// Terminal states are exactly the states with no outgoing transitions.
func TestIsTerminalMatchesTables(t *testing.T) {
	wantTerminalSessions := map[SessionState]bool{
		SessionPassed:    true,
		SessionExhausted: true,
		SessionAbandoned: true,
	}
	for _, s := range SessionStates() {
		if IsTerminalSession(s) != wantTerminalSessions[s] {
			t.Fatalf("IsTerminalSession(%q) = %v", s, IsTerminalSession(s))
		}
	}

	for _, m := range ModuleStates() {
		if IsTerminalModule(m) != (m == ModuleScored) {
			t.Fatalf("IsTerminalModule(%q) = %v", m, IsTerminalModule(m))
		}
	}
}
