package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/database/models"
	"gorm.io/gorm"
)

// Resolver computes a principal's actual role for a target project by
// walking the precedence chain:
//
//  1. platform admin            -> admin
//  2. org admin of the project  -> admin
//  3. explicit project member   -> the membership's role
//  4. otherwise                 -> unassigned (no access)
//
// Resolution is two membership lookups at most and is recomputed whenever
// the active project changes; resolved roles are never persisted.
type Resolver struct {
	db        *gorm.DB
	evaluator *Evaluator
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db, evaluator: NewEvaluator(db)}
}

// ActualRole resolves the principal's role for projectID. A nil projectID
// resolves platform admins to admin and everyone else to unassigned.
func (r *Resolver) ActualRole(ctx context.Context, principal Principal, projectID *uuid.UUID) models.ProjectRole {
	if r.evaluator.IsPlatformAdmin(ctx, principal.UserID) {
		return models.RoleAdmin
	}
	if projectID == nil || *projectID == uuid.Nil {
		return models.RoleUnassigned
	}

	orgID, ok := r.evaluator.projectOrg(ctx, *projectID)
	if !ok {
		return models.RoleUnassigned
	}
	if r.evaluator.IsOrgAdmin(ctx, principal.UserID, orgID) {
		return models.RoleAdmin
	}

	var membership models.ProjectMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", principal.UserID, *projectID).
		First(&membership).Error
	if err != nil {
		return models.RoleUnassigned
	}
	return membership.Role
}

// DefaultProjectID returns the principal's default project, preferring the
// explicit default on the user row, then any project membership flagged
// default. Returns nil when the user has neither.
func (r *Resolver) DefaultProjectID(ctx context.Context, userID uuid.UUID) *uuid.UUID {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "default_project_id").First(&user, "id = ?", userID).Error; err == nil {
		if user.DefaultProjectID != nil && *user.DefaultProjectID != uuid.Nil {
			return user.DefaultProjectID
		}
	}
	var membership models.ProjectMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		First(&membership).Error
	if err != nil {
		return nil
	}
	id := membership.ProjectID
	return &id
}
