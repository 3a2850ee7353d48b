package model

import (
	"time"

	"sectrain_backend/internal/workflow"
)

type QuizOption struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type QuizQuestion struct {
	ID          string       `json:"id"`
	Question    string       `json:"question"`
	Options     []QuizOption `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
}

type Scenario struct {
	ID        string `json:"id"`
	Situation string `json:"situation"`
	Prompt    string `json:"prompt"`
	Rubric    string `json:"rubric"`
}

// ModuleContent is the generated instructional payload. Rubrics and the
// Correct flags are server-side only; client projections strip them.
type ModuleContent struct {
	Instruction string         `json:"instruction"`
	Scenarios   []Scenario     `json:"scenarios"`
	Quiz        []QuizQuestion `json:"quiz"`
}

// ScenarioResponse is immutable once appended; uniqueness per scenario is
// enforced by the submission guard, not by storage.
type ScenarioResponse struct {
	ScenarioID  string    `json:"scenarioId"`
	Response    string    `json:"response"`
	Score       float64   `json:"score"`
	Rationale   string    `json:"rationale,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type QuizAnswer struct {
	QuestionID       string    `json:"questionId"`
	SelectedOptionID string    `json:"selectedOptionId"`
	Correct          bool      `json:"correct"`
	Score            float64   `json:"score"`
	AnsweredAt       time.Time `json:"answeredAt"`
}

// swagger:model
type TrainingModule struct {
	UUIDBase
	TenantID              string               `gorm:"index;type:varchar(36);not null" json:"tenantId"`
	SessionID             string               `gorm:"uniqueIndex:idx_module_session_index;type:varchar(36);not null" json:"sessionId"`
	ModuleIndex           int                  `gorm:"uniqueIndex:idx_module_session_index;not null" json:"moduleIndex"`
	Title                 string               `gorm:"size:255" json:"title"`
	TopicArea             string               `gorm:"size:255" json:"topicArea"`
	JobExpectationIndices []int                `gorm:"serializer:json" json:"jobExpectationIndices"`
	Status                workflow.ModuleState `gorm:"size:32;not null" json:"status"`
	Content               *ModuleContent       `gorm:"serializer:json" json:"-"`
	ScenarioResponses     []ScenarioResponse   `gorm:"serializer:json" json:"scenarioResponses"`
	QuizAnswers           []QuizAnswer         `gorm:"serializer:json" json:"quizAnswers"`
	ModuleScore           *float64             `json:"moduleScore,omitempty"`
	Version               int                  `gorm:"default:1;not null" json:"version"`
}

func (TrainingModule) TableName() string {
	return "training_modules"
}
