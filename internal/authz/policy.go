package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/database/models"
	"gorm.io/gorm"
)

// Evaluator answers the persistence-layer access predicates. Every predicate
// is a pure read against membership rows, parameterized only by IDs already
// known to the caller, and fails toward denial: an unresolvable ID or a
// lookup failure evaluates to false, never to an error.
//
// Impersonation never reaches this layer. The evaluator sees only the
// principal's user ID, so view-as state cannot widen or narrow what data a
// principal can reach.
type Evaluator struct {
	db *gorm.DB
}

func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// IsPlatformAdmin reports whether the user's platform-level attribute marks
// them admin.
func (e *Evaluator) IsPlatformAdmin(ctx context.Context, userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	var n int64
	err := e.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_platform_admin = ? AND is_active = ?", userID, true, true).
		Count(&n).Error
	return err == nil && n > 0
}

// IsOrgAdmin reports whether an organization membership with the admin role
// exists for (user, org).
func (e *Evaluator) IsOrgAdmin(ctx context.Context, userID, orgID uuid.UUID) bool {
	if userID == uuid.Nil || orgID == uuid.Nil {
		return false
	}
	var n int64
	err := e.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Where("user_id = ? AND organization_id = ? AND role = ?", userID, orgID, models.OrgRoleAdmin).
		Count(&n).Error
	return err == nil && n > 0
}

// IsOrgMember reports whether any organization membership exists for
// (user, org). Used by the org settings boundary; project-scoped rules go
// through CanAccessProject instead.
func (e *Evaluator) IsOrgMember(ctx context.Context, userID, orgID uuid.UUID) bool {
	if userID == uuid.Nil || orgID == uuid.Nil {
		return false
	}
	var n int64
	err := e.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Count(&n).Error
	return err == nil && n > 0
}

// CanAccessProject is the single predicate every tenant-scoped read must go
// through. A direct project-membership join is not an acceptable substitute:
// it silently excludes org admins and platform admins.
func (e *Evaluator) CanAccessProject(ctx context.Context, userID, projectID uuid.UUID) bool {
	if userID == uuid.Nil || projectID == uuid.Nil {
		return false
	}
	if e.IsPlatformAdmin(ctx, userID) {
		return true
	}
	orgID, ok := e.projectOrg(ctx, projectID)
	if !ok {
		return false
	}
	if e.IsOrgAdmin(ctx, userID, orgID) {
		return true
	}
	return e.hasProjectMembership(ctx, userID, projectID, nil)
}

// CanManageProject gates tenant-scoped writes: platform admin, org admin of
// the project's org, or a project membership with the admin role.
func (e *Evaluator) CanManageProject(ctx context.Context, userID, projectID uuid.UUID) bool {
	if userID == uuid.Nil || projectID == uuid.Nil {
		return false
	}
	if e.IsPlatformAdmin(ctx, userID) {
		return true
	}
	orgID, ok := e.projectOrg(ctx, projectID)
	if !ok {
		return false
	}
	if e.IsOrgAdmin(ctx, userID, orgID) {
		return true
	}
	role := models.RoleAdmin
	return e.hasProjectMembership(ctx, userID, projectID, &role)
}

// projectOrg resolves a project's owning organization. ok is false for a
// missing project so callers deny instead of erroring.
func (e *Evaluator) projectOrg(ctx context.Context, projectID uuid.UUID) (uuid.UUID, bool) {
	var project models.Project
	err := e.db.WithContext(ctx).
		Select("id", "organization_id").
		First(&project, "id = ?", projectID).Error
	if err != nil {
		return uuid.Nil, false
	}
	return project.OrganizationID, true
}

func (e *Evaluator) hasProjectMembership(ctx context.Context, userID, projectID uuid.UUID, role *models.ProjectRole) bool {
	q := e.db.WithContext(ctx).
		Model(&models.ProjectMembership{}).
		Where("user_id = ? AND project_id = ?", userID, projectID)
	if role != nil {
		q = q.Where("role = ?", *role)
	}
	var n int64
	return q.Count(&n).Error == nil && n > 0
}
