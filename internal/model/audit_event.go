package model

// AuditEvent is one row per state-changing operation. It carries
// identifiers, scores and counts only; raw free text, rubrics and
// AI-generated instructional material never land here.
// swagger:model
type AuditEvent struct {
	UUIDBase
	TenantID   string   `gorm:"index;type:varchar(36);not null" json:"tenantId"`
	EmployeeID string   `gorm:"type:varchar(36)" json:"employeeId,omitempty"`
	SessionID  string   `gorm:"index;type:varchar(36)" json:"sessionId,omitempty"`
	ModuleID   string   `gorm:"type:varchar(36)" json:"moduleId,omitempty"`
	EventType  string   `gorm:"size:64;not null" json:"eventType"`
	Outcome    string   `gorm:"size:64" json:"outcome,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Count      int      `json:"count,omitempty"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
