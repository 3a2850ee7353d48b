package model

// RoleProfile captures the job expectations a curriculum is generated
// against. Profiles are versioned; sessions record the version they were
// generated from so evidence stays reproducible after profile edits.
// swagger:model
type RoleProfile struct {
	UUIDBase
	TenantID        string   `gorm:"index;type:varchar(36);not null" json:"tenantId"`
	Name            string   `gorm:"size:255;not null" json:"name"`
	Version         int      `gorm:"default:1" json:"version"`
	Description     string   `gorm:"type:text" json:"description"`
	JobExpectations []string `gorm:"serializer:json" json:"jobExpectations"`
}

func (RoleProfile) TableName() string {
	return "role_profiles"
}
