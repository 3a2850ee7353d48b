// Package workflow holds the pure transition tables for the training
// session and training module lifecycles. Nothing here touches storage;
// every function is a lookup against a fixed table so the legal state
// space can be audited by reading this file alone.
package workflow

import "fmt"

type SessionState string

const (
	SessionCurriculumGenerating SessionState = "curriculum-generating"
	SessionInProgress           SessionState = "in-progress"
	SessionEvaluating           SessionState = "evaluating"
	SessionPassed               SessionState = "passed"
	SessionFailed               SessionState = "failed"
	SessionExhausted            SessionState = "exhausted"
	SessionInRemediation        SessionState = "in-remediation"
	SessionAbandoned            SessionState = "abandoned"
)

type SessionEvent string

const (
	EventCurriculumGenerated     SessionEvent = "curriculum-generated"
	EventAllModulesScored        SessionEvent = "all-modules-scored"
	EventEvaluationPassed        SessionEvent = "evaluation-passed"
	EventEvaluationFailed        SessionEvent = "evaluation-failed"
	EventEvaluationExhausted     SessionEvent = "evaluation-exhausted"
	EventSessionAbandoned        SessionEvent = "session-abandoned"
	EventRemediationStarted      SessionEvent = "remediation-started"
	EventRemediationModulesReady SessionEvent = "remediation-modules-ready"
)

type ModuleState string

const (
	ModuleLocked            ModuleState = "locked"
	ModuleContentGenerating ModuleState = "content-generating"
	ModuleLearning          ModuleState = "learning"
	ModuleScenarioActive    ModuleState = "scenario-active"
	ModuleQuizActive        ModuleState = "quiz-active"
	ModuleScored            ModuleState = "scored"
)

type ModuleEvent string

const (
	EventGenerateContent   ModuleEvent = "generate-content"
	EventContentReady      ModuleEvent = "content-ready"
	EventStartScenario     ModuleEvent = "start-scenario"
	EventScenariosComplete ModuleEvent = "scenarios-complete"
	EventQuizScored        ModuleEvent = "quiz-scored"
)

// InvalidTransitionError reports an (state, event) pair absent from the
// transition table. Callers branch on the type, not the message.
type InvalidTransitionError struct {
	State string
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: no event %q from state %q", e.Event, e.State)
}

var sessionTransitions = map[SessionState]map[SessionEvent]SessionState{
	SessionCurriculumGenerating: {
		EventCurriculumGenerated: SessionInProgress,
	},
	SessionInProgress: {
		EventAllModulesScored: SessionEvaluating,
		EventSessionAbandoned: SessionAbandoned,
	},
	SessionEvaluating: {
		EventEvaluationPassed:    SessionPassed,
		EventEvaluationFailed:    SessionFailed,
		EventEvaluationExhausted: SessionExhausted,
	},
	SessionFailed: {
		EventRemediationStarted: SessionInRemediation,
	},
	SessionInRemediation: {
		EventRemediationModulesReady: SessionInProgress,
		EventSessionAbandoned:        SessionAbandoned,
	},
	SessionPassed:    {},
	SessionExhausted: {},
	SessionAbandoned: {},
}

var moduleTransitions = map[ModuleState]map[ModuleEvent]ModuleState{
	ModuleLocked: {
		EventGenerateContent: ModuleContentGenerating,
	},
	ModuleContentGenerating: {
		EventContentReady: ModuleLearning,
	},
	ModuleLearning: {
		EventStartScenario: ModuleScenarioActive,
	},
	ModuleScenarioActive: {
		EventScenariosComplete: ModuleQuizActive,
	},
	ModuleQuizActive: {
		EventQuizScored: ModuleScored,
	},
	ModuleScored: {},
}

// TransitionSession returns the state reached from current via event, or an
// InvalidTransitionError when the table has no such entry.
func TransitionSession(current SessionState, event SessionEvent) (SessionState, error) {
	next, ok := sessionTransitions[current][event]
	if !ok {
		return "", &InvalidTransitionError{State: string(current), Event: string(event)}
	}
	return next, nil
}

// CanTransitionSession is the non-failing guard variant of TransitionSession.
func CanTransitionSession(current SessionState, event SessionEvent) bool {
	_, ok := sessionTransitions[current][event]
	return ok
}

// IsTerminalSession reports whether state has no outgoing transitions.
func IsTerminalSession(state SessionState) bool {
	return len(sessionTransitions[state]) == 0
}

func TransitionModule(current ModuleState, event ModuleEvent) (ModuleState, error) {
	next, ok := moduleTransitions[current][event]
	if !ok {
		return "", &InvalidTransitionError{State: string(current), Event: string(event)}
	}
	return next, nil
}

func CanTransitionModule(current ModuleState, event ModuleEvent) bool {
	_, ok := moduleTransitions[current][event]
	return ok
}

func IsTerminalModule(state ModuleState) bool {
	return len(moduleTransitions[state]) == 0
}

// SessionStates lists every state known to the session table, for
// exhaustive checks in validation and tests.
func SessionStates() []SessionState {
	states := make([]SessionState, 0, len(sessionTransitions))
	for s := range sessionTransitions {
		states = append(states, s)
	}
	return states
}

func ModuleStates() []ModuleState {
	states := make([]ModuleState, 0, len(moduleTransitions))
	for s := range moduleTransitions {
		states = append(states, s)
	}
	return states
}
