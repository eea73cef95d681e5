package session_test

import (
	"testing"
	"time"

	"github.com/projaxis/authcore/internal/authz"
	"github.com/projaxis/authcore/internal/database/models"
	"github.com/projaxis/authcore/internal/session"
	"github.com/projaxis/authcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestManager(t *testing.T, db *gorm.DB) *session.Manager {
	t.Helper()
	return session.NewManager(session.NewMemoryStore(), authz.NewResolver(db), time.Hour)
}

func principalFor(user *models.User) authz.Principal {
	return authz.Principal{
		UserID:          user.ID,
		Email:           user.Email,
		IsPlatformAdmin: user.IsPlatformAdmin,
	}
}

func TestManager_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	manager := newTestManager(t, db)
	ctx := testutil.TestContext(t)
	org := testutil.CreateTestOrg(t, db)
	project := testutil.CreateTestProject(t, db, org)

	t.Run("resolves default project and role at login", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		m := testutil.AddTestProjectMember(t, db, project, user, models.RoleTeamLead)
		m.IsDefault = true
		require.NoError(t, db.Save(m).Error)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)
		require.NotNil(t, s.ActiveProjectID)
		assert.Equal(t, project.ID, *s.ActiveProjectID)
		assert.Equal(t, models.RoleTeamLead, s.ActualRole)
		assert.False(t, s.Impersonation.Active())
	})

	t.Run("no default project yields unassigned", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)
		assert.Nil(t, s.ActiveProjectID)
		assert.Equal(t, models.RoleUnassigned, s.ActualRole)
	})
}

func TestManager_Get(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	manager := newTestManager(t, db)
	ctx := testutil.TestContext(t)

	user := testutil.CreateTestUser(t, db)
	s, err := manager.Create(ctx, principalFor(user))
	require.NoError(t, err)

	t.Run("returns own session", func(t *testing.T) {
		got, err := manager.Get(ctx, s.ID, principalFor(user))
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
	})

	t.Run("rejects a session belonging to another user", func(t *testing.T) {
		other := testutil.CreateTestUser(t, db)
		_, err := manager.Get(ctx, s.ID, principalFor(other))
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("destroyed session is gone", func(t *testing.T) {
		require.NoError(t, manager.Destroy(ctx, s.ID))
		_, err := manager.Get(ctx, s.ID, principalFor(user))
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}

func TestManager_Revalidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	manager := newTestManager(t, db)
	ctx := testutil.TestContext(t)
	org := testutil.CreateTestOrg(t, db)
	project := testutil.CreateTestProject(t, db, org)

	t.Run("fresh snapshot is untouched", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		m := testutil.AddTestProjectMember(t, db, project, user, models.RoleContributor)
		m.IsDefault = true
		require.NoError(t, db.Save(m).Error)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)

		same, stale, err := manager.Revalidate(ctx, s, principalFor(user))
		require.NoError(t, err)
		assert.False(t, stale)
		assert.Equal(t, models.RoleContributor, same.ActualRole)
	})

	t.Run("role change behind the session is picked up", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		m := testutil.AddTestProjectMember(t, db, project, user, models.RoleContributor)
		m.IsDefault = true
		require.NoError(t, db.Save(m).Error)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)

		require.NoError(t, db.Model(&models.ProjectMembership{}).
			Where("user_id = ? AND project_id = ?", user.ID, project.ID).
			Update("role", models.RoleViewer).Error)

		refreshed, stale, err := manager.Revalidate(ctx, s, principalFor(user))
		require.NoError(t, err)
		assert.True(t, stale)
		assert.Equal(t, models.RoleViewer, refreshed.ActualRole)
	})

	t.Run("demotion below the allow-list clears impersonation", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		m := testutil.AddTestProjectMember(t, db, project, user, models.RoleProjectManager)
		m.IsDefault = true
		require.NoError(t, db.Save(m).Error)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)
		s, err = manager.StartImpersonation(ctx, s, principalFor(user), models.RoleViewer)
		require.NoError(t, err)
		require.True(t, s.Impersonation.Active())

		require.NoError(t, db.Model(&models.ProjectMembership{}).
			Where("user_id = ? AND project_id = ?", user.ID, project.ID).
			Update("role", models.RoleContributor).Error)

		refreshed, stale, err := manager.Revalidate(ctx, s, principalFor(user))
		require.NoError(t, err)
		assert.True(t, stale)
		assert.Equal(t, models.RoleContributor, refreshed.ActualRole)
		assert.False(t, refreshed.Impersonation.Active())
	})
}

func TestManager_SwitchProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	manager := newTestManager(t, db)
	ctx := testutil.TestContext(t)
	org := testutil.CreateTestOrg(t, db)
	first := testutil.CreateTestProject(t, db, org)
	second := testutil.CreateTestProject(t, db, org)

	t.Run("re-resolves the role for the new project", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestProjectMember(t, db, first, user, models.RoleAdmin)
		testutil.AddTestProjectMember(t, db, second, user, models.RoleViewer)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)

		s, err = manager.SwitchProject(ctx, s, principalFor(user), &first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, s.ActualRole)

		s, err = manager.SwitchProject(ctx, s, principalFor(user), &second.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, s.ActualRole)
	})

	t.Run("switching to an ineligible project clears impersonation", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestProjectMember(t, db, first, user, models.RoleAdmin)
		testutil.AddTestProjectMember(t, db, second, user, models.RoleContributor)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)
		s, err = manager.SwitchProject(ctx, s, principalFor(user), &first.ID)
		require.NoError(t, err)
		s, err = manager.StartImpersonation(ctx, s, principalFor(user), models.RoleViewer)
		require.NoError(t, err)

		s, err = manager.SwitchProject(ctx, s, principalFor(user), &second.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleContributor, s.ActualRole)
		assert.False(t, s.Impersonation.Active())
	})

	t.Run("impersonation survives a switch between eligible projects", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestProjectMember(t, db, first, user, models.RoleAdmin)
		testutil.AddTestProjectMember(t, db, second, user, models.RoleProjectManager)

		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)
		s, err = manager.SwitchProject(ctx, s, principalFor(user), &first.ID)
		require.NoError(t, err)
		s, err = manager.StartImpersonation(ctx, s, principalFor(user), models.RoleViewer)
		require.NoError(t, err)

		s, err = manager.SwitchProject(ctx, s, principalFor(user), &second.ID)
		require.NoError(t, err)
		assert.True(t, s.Impersonation.Active())
		assert.Equal(t, models.RoleViewer, s.EffectiveRole())
	})
}

func TestManager_Impersonation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	manager := newTestManager(t, db)
	ctx := testutil.TestContext(t)
	org := testutil.CreateTestOrg(t, db)
	project := testutil.CreateTestProject(t, db, org)

	createWith := func(role models.ProjectRole) (*session.Session, authz.Principal) {
		user := testutil.CreateTestUser(t, db)
		m := testutil.AddTestProjectMember(t, db, project, user, role)
		m.IsDefault = true
		require.NoError(t, db.Save(m).Error)
		s, err := manager.Create(ctx, principalFor(user))
		require.NoError(t, err)
		return s, principalFor(user)
	}

	t.Run("admin may view as any role", func(t *testing.T) {
		s, p := createWith(models.RoleAdmin)
		s, err := manager.StartImpersonation(ctx, s, p, models.RoleViewer)
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, s.EffectiveRole())
		assert.Equal(t, models.RoleAdmin, s.ActualRole)
	})

	t.Run("project manager may view as", func(t *testing.T) {
		s, p := createWith(models.RoleProjectManager)
		s, err := manager.StartImpersonation(ctx, s, p, models.RoleContributor)
		require.NoError(t, err)
		assert.Equal(t, models.RoleContributor, s.EffectiveRole())
	})

	t.Run("roles outside the allow-list are refused", func(t *testing.T) {
		for _, role := range []models.ProjectRole{models.RoleTeamLead, models.RoleContributor, models.RoleViewer} {
			s, p := createWith(role)
			_, err := manager.StartImpersonation(ctx, s, p, models.RoleViewer)
			assert.ErrorIs(t, err, session.ErrForbidden, "role %s", role)
		}
	})

	t.Run("eligibility is checked against current membership, not the snapshot", func(t *testing.T) {
		s, p := createWith(models.RoleAdmin)

		require.NoError(t, db.Model(&models.ProjectMembership{}).
			Where("user_id = ? AND project_id = ?", p.UserID, project.ID).
			Update("role", models.RoleViewer).Error)

		_, err := manager.StartImpersonation(ctx, s, p, models.RoleContributor)
		assert.ErrorIs(t, err, session.ErrForbidden)
	})

	t.Run("clear restores the actual role", func(t *testing.T) {
		s, p := createWith(models.RoleAdmin)
		s, err := manager.StartImpersonation(ctx, s, p, models.RoleViewer)
		require.NoError(t, err)

		s, err = manager.ClearImpersonation(ctx, s)
		require.NoError(t, err)
		assert.False(t, s.Impersonation.Active())
		assert.Equal(t, models.RoleAdmin, s.EffectiveRole())
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s, _ := createWith(models.RoleAdmin)
		s, err := manager.ClearImpersonation(ctx, s)
		require.NoError(t, err)
		assert.False(t, s.Impersonation.Active())
	})
}
