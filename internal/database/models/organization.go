package models

import (
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	Base
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
	// Settings holds org-level feature flags and defaults as a JSON blob.
	Settings string `gorm:"default:'{}'" json:"settings"`
	// RetiredAt marks a soft-retired organization. Organizations are never
	// hard-deleted.
	RetiredAt *time.Time `json:"retired_at,omitempty"`

	// Relationships
	Projects    []Project                `gorm:"foreignKey:OrganizationID" json:"-"`
	Memberships []OrganizationMembership `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) IsRetired() bool {
	return o.RetiredAt != nil
}

// OrganizationMembership links a user to an organization with a role.
// Unique per (user, organization). Every organization must keep at least one
// admin membership; that invariant requires counting sibling rows, so it is
// enforced by the membership guard, not by a storage constraint.
type OrganizationMembership struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"organization_id"`
	Role           OrgRole   `gorm:"not null;default:'member'" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (OrganizationMembership) TableName() string {
	return "organization_memberships"
}
