package membership_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/database/models"
	"github.com/projaxis/authcore/internal/membership"
	"github.com/projaxis/authcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGuard_CreateOrgWithAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	guard := membership.NewGuard(db)
	ctx := testutil.TestContext(t)

	t.Run("creates org and first admin atomically", func(t *testing.T) {
		owner := testutil.CreateTestUser(t, db)
		org := &models.Organization{Name: "New Org", Slug: "new-org", Settings: "{}"}
		require.NoError(t, guard.CreateOrgWithAdmin(ctx, org, owner.ID))

		var m models.OrganizationMembership
		require.NoError(t, db.Where("user_id = ? AND organization_id = ?", owner.ID, org.ID).First(&m).Error)
		assert.Equal(t, models.OrgRoleAdmin, m.Role)
	})

	t.Run("unknown admin user rolls back the org", func(t *testing.T) {
		org := &models.Organization{Name: "Orphan Org", Slug: "orphan-org", Settings: "{}"}
		err := guard.CreateOrgWithAdmin(ctx, org, uuid.New())
		assert.ErrorIs(t, err, membership.ErrUserNotFound)

		var n int64
		require.NoError(t, db.Model(&models.Organization{}).Where("slug = ?", "orphan-org").Count(&n).Error)
		assert.Zero(t, n)
	})
}

func TestGuard_OrgMembers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	guard := membership.NewGuard(db)
	ctx := testutil.TestContext(t)

	t.Run("add member", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		user := testutil.CreateTestUser(t, db)

		m, err := guard.AddOrgMember(ctx, org.ID, user.ID, models.OrgRoleMember)
		require.NoError(t, err)
		assert.Equal(t, models.OrgRoleMember, m.Role)
	})

	t.Run("add rejects duplicates", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, user, models.OrgRoleMember)

		_, err := guard.AddOrgMember(ctx, org.ID, user.ID, models.OrgRoleAdmin)
		assert.ErrorIs(t, err, membership.ErrAlreadyMember)
	})

	t.Run("add rejects retired org", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		require.NoError(t, db.Model(org).Update("retired_at", gorm.Expr("CURRENT_TIMESTAMP")).Error)
		user := testutil.CreateTestUser(t, db)

		_, err := guard.AddOrgMember(ctx, org.ID, user.ID, models.OrgRoleMember)
		assert.ErrorIs(t, err, membership.ErrOrganizationNotFound)
	})

	t.Run("add rejects unknown user", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		_, err := guard.AddOrgMember(ctx, org.ID, uuid.New(), models.OrgRoleMember)
		assert.ErrorIs(t, err, membership.ErrUserNotFound)
	})

	t.Run("remove member", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		admin := testutil.CreateTestUser(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, admin, models.OrgRoleAdmin)
		testutil.AddTestOrgMember(t, db, org, user, models.OrgRoleMember)

		require.NoError(t, guard.RemoveOrgMember(ctx, org.ID, user.ID))

		var n int64
		require.NoError(t, db.Model(&models.OrganizationMembership{}).
			Where("user_id = ? AND organization_id = ?", user.ID, org.ID).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("remove unknown membership", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		err := guard.RemoveOrgMember(ctx, org.ID, uuid.New())
		assert.ErrorIs(t, err, membership.ErrMembershipNotFound)
	})
}

func TestGuard_LastAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	guard := membership.NewGuard(db)
	ctx := testutil.TestContext(t)

	t.Run("cannot remove the only admin", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		admin := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, admin, models.OrgRoleAdmin)

		err := guard.RemoveOrgMember(ctx, org.ID, admin.ID)
		assert.ErrorIs(t, err, membership.ErrLastAdmin)

		var n int64
		require.NoError(t, db.Model(&models.OrganizationMembership{}).
			Where("organization_id = ? AND role = ?", org.ID, models.OrgRoleAdmin).Count(&n).Error)
		assert.EqualValues(t, 1, n)
	})

	t.Run("cannot demote the only admin", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		admin := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, admin, models.OrgRoleAdmin)

		_, err := guard.ChangeOrgRole(ctx, org.ID, admin.ID, models.OrgRoleMember)
		assert.ErrorIs(t, err, membership.ErrLastAdmin)
	})

	t.Run("can remove an admin when another remains", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		first := testutil.CreateTestUser(t, db)
		second := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, first, models.OrgRoleAdmin)
		testutil.AddTestOrgMember(t, db, org, second, models.OrgRoleAdmin)

		assert.NoError(t, guard.RemoveOrgMember(ctx, org.ID, first.ID))
	})

	t.Run("can demote an admin when another remains", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		first := testutil.CreateTestUser(t, db)
		second := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, first, models.OrgRoleAdmin)
		testutil.AddTestOrgMember(t, db, org, second, models.OrgRoleAdmin)

		m, err := guard.ChangeOrgRole(ctx, org.ID, first.ID, models.OrgRoleMember)
		require.NoError(t, err)
		assert.Equal(t, models.OrgRoleMember, m.Role)
	})

	t.Run("promoting to admin never trips the check", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		admin := testutil.CreateTestUser(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, admin, models.OrgRoleAdmin)
		testutil.AddTestOrgMember(t, db, org, user, models.OrgRoleMember)

		m, err := guard.ChangeOrgRole(ctx, org.ID, user.ID, models.OrgRoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.OrgRoleAdmin, m.Role)
	})

	t.Run("keeping the last admin at admin is allowed", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		admin := testutil.CreateTestUser(t, db)
		testutil.AddTestOrgMember(t, db, org, admin, models.OrgRoleAdmin)

		_, err := guard.ChangeOrgRole(ctx, org.ID, admin.ID, models.OrgRoleAdmin)
		assert.NoError(t, err)
	})
}

func TestGuard_ProjectMembers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	guard := membership.NewGuard(db)
	ctx := testutil.TestContext(t)
	org := testutil.CreateTestOrg(t, db)
	project := testutil.CreateTestProject(t, db, org)

	t.Run("add member", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		m, err := guard.AddProjectMember(ctx, project.ID, user.ID, models.RoleContributor, true)
		require.NoError(t, err)
		assert.Equal(t, models.RoleContributor, m.Role)
		assert.True(t, m.IsDefault)
	})

	t.Run("add rejects duplicates", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestProjectMember(t, db, project, user, models.RoleViewer)

		_, err := guard.AddProjectMember(ctx, project.ID, user.ID, models.RoleAdmin, false)
		assert.ErrorIs(t, err, membership.ErrAlreadyMember)
	})

	t.Run("add rejects unknown project", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		_, err := guard.AddProjectMember(ctx, uuid.New(), user.ID, models.RoleViewer, false)
		assert.ErrorIs(t, err, membership.ErrProjectNotFound)
	})

	t.Run("remove member", func(t *testing.T) {
		actor := testutil.CreateTestUser(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestProjectMember(t, db, project, user, models.RoleViewer)

		require.NoError(t, guard.RemoveProjectMember(ctx, actor.ID, project.ID, user.ID))
	})

	t.Run("remove unknown membership", func(t *testing.T) {
		actor := testutil.CreateTestUser(t, db)
		err := guard.RemoveProjectMember(ctx, actor.ID, project.ID, uuid.New())
		assert.ErrorIs(t, err, membership.ErrMembershipNotFound)
	})

	t.Run("change role", func(t *testing.T) {
		actor := testutil.CreateTestUser(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestProjectMember(t, db, project, user, models.RoleViewer)

		m, err := guard.ChangeProjectRole(ctx, actor.ID, project.ID, user.ID, models.RoleTeamLead)
		require.NoError(t, err)
		assert.Equal(t, models.RoleTeamLead, m.Role)
	})
}

func TestGuard_SelfModification(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	guard := membership.NewGuard(db)
	ctx := testutil.TestContext(t)
	org := testutil.CreateTestOrg(t, db)
	project := testutil.CreateTestProject(t, db, org)

	actor := testutil.CreateTestUser(t, db)
	testutil.AddTestProjectMember(t, db, project, actor, models.RoleAdmin)

	t.Run("actor cannot remove themselves", func(t *testing.T) {
		err := guard.RemoveProjectMember(ctx, actor.ID, project.ID, actor.ID)
		assert.ErrorIs(t, err, membership.ErrSelfModification)

		var n int64
		require.NoError(t, db.Model(&models.ProjectMembership{}).
			Where("user_id = ? AND project_id = ?", actor.ID, project.ID).Count(&n).Error)
		assert.EqualValues(t, 1, n)
	})

	t.Run("actor cannot change their own role", func(t *testing.T) {
		_, err := guard.ChangeProjectRole(ctx, actor.ID, project.ID, actor.ID, models.RoleViewer)
		assert.ErrorIs(t, err, membership.ErrSelfModification)
	})

	t.Run("not even to the role they already hold", func(t *testing.T) {
		_, err := guard.ChangeProjectRole(ctx, actor.ID, project.ID, actor.ID, models.RoleAdmin)
		assert.ErrorIs(t, err, membership.ErrSelfModification)
	})
}
