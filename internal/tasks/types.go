package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeAuditEvent = "audit:event"
)

// AuditEventPayload carries a security-relevant event from a request handler
// to the worker that persists it.
type AuditEventPayload struct {
	ActorID        uuid.UUID  `json:"actor_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	SubjectID      *uuid.UUID `json:"subject_id,omitempty"`
	Action         string     `json:"action"`
	Outcome        string     `json:"outcome"`
	Detail         string     `json:"detail,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

func NewAuditEventTask(payload AuditEventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAuditEvent, data, asynq.Queue("critical")), nil
}
