package models

import "github.com/google/uuid"

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	// IsPlatformAdmin is a platform-level attribute outside tenant scope; it
	// is never derived from any membership row.
	IsPlatformAdmin  bool       `gorm:"default:false" json:"is_platform_admin"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	DefaultProjectID *uuid.UUID `gorm:"type:uuid" json:"default_project_id,omitempty"`

	// Relationships
	OrgMemberships     []OrganizationMembership `gorm:"foreignKey:UserID" json:"-"`
	ProjectMemberships []ProjectMembership      `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
