package model

import (
	"time"

	"sectrain_backend/internal/workflow"
)

type ModuleOutline struct {
	Title                 string `json:"title"`
	TopicArea             string `json:"topicArea"`
	Summary               string `json:"summary"`
	JobExpectationIndices []int  `json:"jobExpectationIndices"`
}

type Curriculum struct {
	Modules     []ModuleOutline `json:"modules"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// TrainingSession is one employee's attempt lineage through a generated
// curriculum. At most one session per employee may be in a non-terminal
// status; the repository enforces that on creation.
// swagger:model
type TrainingSession struct {
	UUIDBase
	TenantID           string                `gorm:"index:idx_session_tenant_employee;type:varchar(36);not null" json:"tenantId"`
	EmployeeID         string                `gorm:"index:idx_session_tenant_employee;type:varchar(36);not null" json:"employeeId"`
	RoleProfileID      string                `gorm:"type:varchar(36);not null" json:"roleProfileId"`
	RoleProfileVersion int                   `json:"roleProfileVersion"`
	ConfigHash         string                `gorm:"size:64" json:"configHash"`
	AppVersion         string                `gorm:"size:32" json:"appVersion"`
	Status             workflow.SessionState `gorm:"size:32;not null" json:"status"`
	AttemptNumber      int                   `gorm:"default:1" json:"attemptNumber"`
	Curriculum         *Curriculum           `gorm:"serializer:json" json:"curriculum,omitempty"`
	AggregateScore     *float64              `json:"aggregateScore,omitempty"`
	WeakAreas          []string              `gorm:"serializer:json" json:"weakAreas,omitempty"`
	Version            int                   `gorm:"default:1;not null" json:"version"`
	CompletedAt        *time.Time            `json:"completedAt,omitempty"`
}

func (TrainingSession) TableName() string {
	return "training_sessions"
}
