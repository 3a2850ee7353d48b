package model

import "time"

type UserRole string

const (
	Admin    UserRole = "admin"
	Employee UserRole = "employee"
)

// swagger:model
type User struct {
	UUIDBase
	TenantID   string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_tenant_email" json:"tenantId"`
	Email      string     `gorm:"size:255;not null;uniqueIndex:idx_tenant_email" json:"email"`
	Password   string     `gorm:"size:255;not null" json:"-"`
	Name       string     `gorm:"size:255" json:"name"`
	Role       UserRole   `gorm:"size:20;default:'employee'" json:"role"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}
