package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/authz"
	"github.com/projaxis/authcore/internal/database/models"
)

// Manager drives session lifecycle and the impersonation state machine. All
// transitions write the whole session back to the store; there is no partial
// mutation.
type Manager struct {
	store    Store
	resolver *authz.Resolver
	ttl      time.Duration
}

func NewManager(store Store, resolver *authz.Resolver, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, resolver: resolver, ttl: ttl}
}

// Create starts a session for the principal, resolving the actual role
// against the principal's default project when one exists.
func (m *Manager) Create(ctx context.Context, principal authz.Principal) (*Session, error) {
	projectID := m.resolver.DefaultProjectID(ctx, principal.UserID)
	now := time.Now()
	s := &Session{
		ID:              uuid.New(),
		UserID:          principal.UserID,
		ActiveProjectID: projectID,
		ActualRole:      m.resolver.ActualRole(ctx, principal, projectID),
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get loads the session by ID. Returns ErrNotFound for missing or expired
// sessions, or a session whose principal no longer matches.
func (m *Manager) Get(ctx context.Context, id uuid.UUID, principal authz.Principal) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.UserID != principal.UserID {
		return nil, ErrNotFound
	}
	return s, nil
}

// Revalidate recomputes the actual role from current membership state. When
// the snapshot is stale it is replaced, impersonation eligibility is
// re-checked, and the refreshed session is saved. The returned bool reports
// whether the snapshot had drifted (the StaleRoleState condition).
func (m *Manager) Revalidate(ctx context.Context, s *Session, principal authz.Principal) (*Session, bool, error) {
	current := m.resolver.ActualRole(ctx, principal, s.ActiveProjectID)
	if current == s.ActualRole {
		return s, false, nil
	}
	refreshed := *s
	refreshed.ActualRole = current
	if !CanImpersonate(current) {
		refreshed.Impersonation = Impersonation{}
	}
	if err := m.store.Save(ctx, &refreshed); err != nil {
		return nil, true, err
	}
	return &refreshed, true, nil
}

// SwitchProject changes the active project, re-resolves the actual role and
// clears impersonation when the new role is no longer eligible for it.
func (m *Manager) SwitchProject(ctx context.Context, s *Session, principal authz.Principal, projectID *uuid.UUID) (*Session, error) {
	switched := *s
	switched.ActiveProjectID = projectID
	switched.ActualRole = m.resolver.ActualRole(ctx, principal, projectID)
	if !CanImpersonate(switched.ActualRole) {
		switched.Impersonation = Impersonation{}
	}
	if err := m.store.Save(ctx, &switched); err != nil {
		return nil, err
	}
	return &switched, nil
}

// StartImpersonation sets the view-as role. Eligibility is checked against
// the actual role recomputed from current membership, not the snapshot.
// Fails with ErrForbidden for roles outside the allow-list.
func (m *Manager) StartImpersonation(ctx context.Context, s *Session, principal authz.Principal, viewAs models.ProjectRole) (*Session, error) {
	s, _, err := m.Revalidate(ctx, s, principal)
	if err != nil {
		return nil, err
	}
	if !CanImpersonate(s.ActualRole) {
		return nil, ErrForbidden
	}
	updated := *s
	role := viewAs
	updated.Impersonation = Impersonation{ViewAsRole: &role}
	if err := m.store.Save(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ClearImpersonation removes the view-as role. Always succeeds.
func (m *Manager) ClearImpersonation(ctx context.Context, s *Session) (*Session, error) {
	updated := *s
	updated.Impersonation = Impersonation{}
	if err := m.store.Save(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Destroy ends the session, which also clears any impersonation state.
func (m *Manager) Destroy(ctx context.Context, id uuid.UUID) error {
	return m.store.Delete(ctx, id)
}
