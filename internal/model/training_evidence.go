package model

import "time"

// Client-safe projections embedded in the evidence body. Rubric text and
// the Correct flag on quiz options are stripped; the employee's own
// answers, scores and rationales are preserved.

type EvidenceQuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type EvidenceQuizItem struct {
	QuestionID       string               `json:"questionId"`
	Question         string               `json:"question"`
	Options          []EvidenceQuizOption `json:"options"`
	SelectedOptionID string               `json:"selectedOptionId"`
	Score            float64              `json:"score"`
}

type EvidenceScenarioItem struct {
	ScenarioID string  `json:"scenarioId"`
	Situation  string  `json:"situation"`
	Response   string  `json:"response"`
	Score      float64 `json:"score"`
	Rationale  string  `json:"rationale,omitempty"`
}

type EvidenceModule struct {
	ModuleIndex int                    `json:"moduleIndex"`
	Title       string                 `json:"title"`
	TopicArea   string                 `json:"topicArea"`
	Status      string                 `json:"status"`
	ModuleScore *float64               `json:"moduleScore"`
	Scenarios   []EvidenceScenarioItem `json:"scenarios"`
	Quiz        []EvidenceQuizItem     `json:"quiz"`
}

type PolicyAttestation struct {
	ConfigHash         string  `json:"configHash"`
	PassThreshold      float64 `json:"passThreshold"`
	MaxAttempts        int     `json:"maxAttempts"`
	RoleProfileVersion int     `json:"roleProfileVersion"`
	AppVersion         string  `json:"appVersion"`
}

type EvidenceOutcome struct {
	AggregateScore *float64 `json:"aggregateScore"`
	Passed         *bool    `json:"passed"`
	WeakAreas      []string `json:"weakAreas"`
}

type EvidenceSummary struct {
	SessionID     string     `json:"sessionId"`
	TenantID      string     `json:"tenantId"`
	EmployeeID    string     `json:"employeeId"`
	RoleProfileID string     `json:"roleProfileId"`
	Status        string     `json:"status"`
	AttemptNumber int        `json:"attemptNumber"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
}

// EvidenceBody is the hashed portion of the attestation record. The
// content hash is computed over its canonical JSON form, so field
// changes here are a breaking change to hash reproducibility.
type EvidenceBody struct {
	Summary EvidenceSummary   `json:"summary"`
	Policy  PolicyAttestation `json:"policy"`
	Modules []EvidenceModule  `json:"modules"`
	Outcome EvidenceOutcome   `json:"outcome"`
}

// TrainingEvidence is the immutable compliance attestation, one per
// terminal session (session id is the natural key). Never updated after
// creation.
// swagger:model
type TrainingEvidence struct {
	UUIDBase
	TenantID    string       `gorm:"index;type:varchar(36);not null" json:"tenantId"`
	SessionID   string       `gorm:"uniqueIndex;type:varchar(36);not null" json:"sessionId"`
	Body        EvidenceBody `gorm:"serializer:json" json:"body"`
	ContentHash string       `gorm:"size:64;not null" json:"contentHash"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

func (TrainingEvidence) TableName() string {
	return "training_evidence"
}
