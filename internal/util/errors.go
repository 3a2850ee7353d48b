package util

import (
	"errors"
	"fmt"
)

var (
	ErrActiveSessionExists = errors.New("employee already has an active training session")
	ErrNoActiveSession     = errors.New("no active training session")
	ErrAttemptsExhausted   = errors.New("maximum training attempts reached")
	ErrDuplicateResponse   = errors.New("response already recorded for this item")
	ErrUnknownItem         = errors.New("item does not belong to this module")
	ErrModuleOrder         = errors.New("previous module must be scored first")
	ErrIncompleteQuiz      = errors.New("every quiz question must be answered exactly once")
	ErrIntegrationDisabled = errors.New("compliance integration not configured")
)

// VersionConflictError signals an optimistic-concurrency failure: the
// entity is missing or its version no longer matches what the caller
// read. Never retried internally; the caller re-reads and decides.
type VersionConflictError struct {
	Entity string
	ID     string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s %s", e.Entity, e.ID)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ExpectedTerminalStateError is returned when evidence generation is
// attempted for a session that is still in flight.
type ExpectedTerminalStateError struct {
	SessionID string
	Status    string
}

func (e *ExpectedTerminalStateError) Error() string {
	return fmt.Sprintf("session %s is in %q, expected a terminal status", e.SessionID, e.Status)
}

// Content pipeline error codes. AICodeUnavailable marks a transient
// provider outage; the remaining codes mean the provider answered but
// the response violated structural constraints.
const (
	AICodeUnavailable      = "ai_unavailable"
	AICodeGenerationFailed = "generation_failed"
	AICodeExtractionFailed = "extraction_failed"
	AICodePlanningFailed   = "planning_failed"
	AICodeEvaluationFailed = "evaluation_failed"
)

type AIError struct {
	Code string
	Err  error
}

func (e *AIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *AIError) Unwrap() error { return e.Err }

// Transient reports whether retrying against the provider could help.
func (e *AIError) Transient() bool { return e.Code == AICodeUnavailable }

// Compliance upload error codes, each tagged retryable or not at the
// point of classification.
const (
	UploadCodeEvidenceNotFound = "EVIDENCE_NOT_FOUND"
	UploadCodePDFRenderFailed  = "PDF_RENDER_FAILED"
	UploadCodeAuthFailed       = "AUTH_FAILED"
	UploadCodeServerError      = "SERVER_ERROR"
	UploadCodeNetworkError     = "NETWORK_ERROR"
)

type UploadError struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *UploadError) Unwrap() error { return e.Err }
