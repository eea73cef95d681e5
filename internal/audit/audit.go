// Package audit records security-relevant authorization events. Events are
// enqueued and persisted by the worker so request latency never waits on an
// audit write; a failed enqueue degrades to a log line, never to a failed
// request.
package audit

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/projaxis/authcore/internal/tasks"
)

// Actions recorded by the core.
const (
	ActionImpersonationStarted = "impersonation.started"
	ActionImpersonationDenied  = "impersonation.denied"
	ActionImpersonationCleared = "impersonation.cleared"
	ActionOrgMemberAdded       = "org_member.added"
	ActionOrgMemberRemoved     = "org_member.removed"
	ActionOrgRoleChanged       = "org_member.role_changed"
	ActionProjectMemberAdded   = "project_member.added"
	ActionProjectMemberRemoved = "project_member.removed"
	ActionProjectRoleChanged   = "project_member.role_changed"
)

// Outcomes.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

// Event is one security-relevant occurrence.
type Event struct {
	ActorID        uuid.UUID
	OrganizationID *uuid.UUID
	ProjectID      *uuid.UUID
	SubjectID      *uuid.UUID
	Action         string
	Outcome        string
	Detail         string
}

// Recorder enqueues events. A nil asynq client is valid: events then only
// reach the log.
type Recorder struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewRecorder(client *asynq.Client, logger *slog.Logger) *Recorder {
	return &Recorder{client: client, logger: logger}
}

func (r *Recorder) Record(e Event) {
	r.logger.Info("security event",
		"action", e.Action,
		"outcome", e.Outcome,
		"actor_id", e.ActorID,
	)
	if r.client == nil {
		return
	}
	task, err := tasks.NewAuditEventTask(tasks.AuditEventPayload{
		ActorID:        e.ActorID,
		OrganizationID: e.OrganizationID,
		ProjectID:      e.ProjectID,
		SubjectID:      e.SubjectID,
		Action:         e.Action,
		Outcome:        e.Outcome,
		Detail:         e.Detail,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		r.logger.Error("failed to build audit task", "error", err)
		return
	}
	if _, err := r.client.Enqueue(task); err != nil {
		r.logger.Error("failed to enqueue audit event", "action", e.Action, "error", err)
	}
}
