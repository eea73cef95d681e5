package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	Base
	// OrganizationID is immutable once the project is created.
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string    `gorm:"not null" json:"name"`
	Reference      string    `gorm:"index" json:"reference"`

	// Relationships
	Organization *Organization       `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Memberships  []ProjectMembership `gorm:"foreignKey:ProjectID" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMembership links a user to a project with a role. Unique per
// (user, project): a user holds at most one role per project.
type ProjectMembership struct {
	UserID    uuid.UUID   `gorm:"type:uuid;primaryKey" json:"user_id"`
	ProjectID uuid.UUID   `gorm:"type:uuid;primaryKey" json:"project_id"`
	Role      ProjectRole `gorm:"not null" json:"role"`
	IsDefault bool        `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (ProjectMembership) TableName() string {
	return "project_memberships"
}
