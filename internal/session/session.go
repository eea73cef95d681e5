// Package session owns the per-session state the authorization core derives
// but never persists durably: the resolved actual role snapshot, the active
// project, and the "view as" impersonation state.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/database/models"
)

var (
	// ErrForbidden is returned when the actual role is not in the
	// impersonation allow-list.
	ErrForbidden = errors.New("actual role does not permit impersonation")
	// ErrStaleRole reports that a session's actual-role snapshot no longer
	// matches current membership state and must be recomputed.
	ErrStaleRole = errors.New("session role is stale")
	// ErrNotFound is returned for a missing or expired session.
	ErrNotFound = errors.New("session not found")
)

// impersonationAllowList is the fixed set of actual roles that may view as
// another role. Not configurable.
var impersonationAllowList = map[models.ProjectRole]struct{}{
	models.RoleAdmin:          {},
	models.RoleProjectManager: {},
}

// CanImpersonate reports whether an actual role may start impersonation.
func CanImpersonate(actual models.ProjectRole) bool {
	_, ok := impersonationAllowList[actual]
	return ok
}

// Impersonation is the view-as state. It is an immutable value: transitions
// replace it wholesale rather than mutating it in place.
type Impersonation struct {
	ViewAsRole *models.ProjectRole `json:"view_as_role,omitempty"`
}

// Active reports whether a view-as role is set.
func (i Impersonation) Active() bool {
	return i.ViewAsRole != nil
}

// Session is the server-side session record. ActualRole is a snapshot of the
// last resolution; every request revalidates it against current membership
// before it is trusted.
type Session struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	ActiveProjectID *uuid.UUID         `json:"active_project_id,omitempty"`
	ActualRole      models.ProjectRole `json:"actual_role"`
	Impersonation   Impersonation      `json:"impersonation"`
	CreatedAt       time.Time          `json:"created_at"`
	ExpiresAt       time.Time          `json:"expires_at"`
}

// EffectiveRole is the role UI affordances and permission-matrix lookups are
// gated on: the view-as role when impersonating, the actual role otherwise.
// Data access never uses it.
func (s *Session) EffectiveRole() models.ProjectRole {
	if s.Impersonation.ViewAsRole != nil {
		return *s.Impersonation.ViewAsRole
	}
	return s.ActualRole
}
