package model

// TrainingPolicy is the tenant's resolved training configuration. It is
// loaded once per operation and passed around as an immutable snapshot;
// nothing in the engine reads tenant settings through a global.
type TrainingPolicy struct {
	PassThreshold float64 `json:"passThreshold"`
	MaxAttempts   int     `json:"maxAttempts"`
	MaxModules    int     `json:"maxModules"`
}

// ComplianceSettings describes the tenant's compliance provider
// integration. Enabled=false means evidence is generated but never
// dispatched.
type ComplianceSettings struct {
	Enabled         bool   `json:"enabled"`
	Provider        string `json:"provider"`
	Endpoint        string `json:"endpoint"`
	APIKey          string `json:"-"`
	WorkflowCheckID string `json:"workflowCheckId"`
	MaxAttempts     int    `json:"maxAttempts"`
}

// swagger:model
type Tenant struct {
	UUIDBase
	Name       string             `gorm:"size:255;not null" json:"name"`
	Slug       string             `gorm:"size:100;uniqueIndex" json:"slug"`
	Policy     TrainingPolicy     `gorm:"serializer:json" json:"policy"`
	Compliance ComplianceSettings `gorm:"serializer:json" json:"compliance"`
	ConfigHash string             `gorm:"size:64" json:"configHash"`
}

func (Tenant) TableName() string {
	return "tenants"
}
