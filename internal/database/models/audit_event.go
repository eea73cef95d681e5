package models

import "github.com/google/uuid"

// AuditEvent is a persisted security-relevant event (impersonation attempts,
// membership mutations, guard violations). Rows are written by the worker,
// never by request handlers.
type AuditEvent struct {
	Base
	ActorID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"actor_id"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	ProjectID      *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	SubjectID      *uuid.UUID `gorm:"type:uuid" json:"subject_id,omitempty"`
	Action         string     `gorm:"index;not null" json:"action"`
	Outcome        string     `gorm:"not null" json:"outcome"` // allowed, denied
	Detail         string     `gorm:"default:'{}'" json:"detail"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
