// Package membership is the only writer of membership rows. Every mutation
// runs its invariant check and its write inside one transaction so that two
// concurrent "remove the last admin" requests cannot both succeed.
package membership

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// CreateOrgWithAdmin creates an organization together with its first admin
// membership, so no organization ever exists without an admin.
func (g *Guard) CreateOrgWithAdmin(ctx context.Context, org *models.Organization, adminUserID uuid.UUID) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.checkUser(tx, adminUserID); err != nil {
			return err
		}
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		m := models.OrganizationMembership{
			UserID:         adminUserID,
			OrganizationID: org.ID,
			Role:           models.OrgRoleAdmin,
		}
		return tx.Create(&m).Error
	})
}

// AddOrgMember creates an organization membership for userID with role.
func (g *Guard) AddOrgMember(ctx context.Context, orgID, userID uuid.UUID, role models.OrgRole) (*models.OrganizationMembership, error) {
	var created models.OrganizationMembership
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.checkOrg(tx, orgID); err != nil {
			return err
		}
		if err := g.checkUser(tx, userID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.OrganizationMembership{}).
			Where("user_id = ? AND organization_id = ?", userID, orgID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyMember
		}
		created = models.OrganizationMembership{UserID: userID, OrganizationID: orgID, Role: role}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RemoveOrgMember deletes the membership for (user, org). Removing the last
// admin membership fails with ErrLastAdmin.
func (g *Guard) RemoveOrgMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := g.lockedMembership(tx, orgID, userID)
		if err != nil {
			return err
		}
		if current.Role == models.OrgRoleAdmin {
			remaining, err := g.lockedAdminCount(tx, orgID)
			if err != nil {
				return err
			}
			if remaining <= 1 {
				return ErrLastAdmin
			}
		}
		return tx.
			Where("user_id = ? AND organization_id = ?", userID, orgID).
			Delete(&models.OrganizationMembership{}).Error
	})
}

// ChangeOrgRole updates the membership role for (user, org). Demoting the
// last admin fails with ErrLastAdmin.
func (g *Guard) ChangeOrgRole(ctx context.Context, orgID, userID uuid.UUID, role models.OrgRole) (*models.OrganizationMembership, error) {
	var updated models.OrganizationMembership
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := g.lockedMembership(tx, orgID, userID)
		if err != nil {
			return err
		}
		if current.Role == models.OrgRoleAdmin && role != models.OrgRoleAdmin {
			remaining, err := g.lockedAdminCount(tx, orgID)
			if err != nil {
				return err
			}
			if remaining <= 1 {
				return ErrLastAdmin
			}
		}
		if err := tx.Model(&models.OrganizationMembership{}).
			Where("user_id = ? AND organization_id = ?", userID, orgID).
			Update("role", role).Error; err != nil {
			return err
		}
		updated = *current
		updated.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AddProjectMember creates a project membership for userID with role.
func (g *Guard) AddProjectMember(ctx context.Context, projectID, userID uuid.UUID, role models.ProjectRole, isDefault bool) (*models.ProjectMembership, error) {
	var created models.ProjectMembership
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id").First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		if err := g.checkUser(tx, userID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.ProjectMembership{}).
			Where("user_id = ? AND project_id = ?", userID, projectID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyMember
		}
		created = models.ProjectMembership{UserID: userID, ProjectID: projectID, Role: role, IsDefault: isDefault}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RemoveProjectMember deletes the membership for (user, project). The acting
// principal may not remove themselves; that is enforced here, not left to
// UI discipline.
func (g *Guard) RemoveProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID) error {
	if actorID == userID {
		return ErrSelfModification
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("user_id = ? AND project_id = ?", userID, projectID).
			Delete(&models.ProjectMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMembershipNotFound
		}
		return nil
	})
}

// ChangeProjectRole updates the membership role for (user, project). The
// acting principal may not change their own role, not even to the same one.
func (g *Guard) ChangeProjectRole(ctx context.Context, actorID, projectID, userID uuid.UUID, role models.ProjectRole) (*models.ProjectMembership, error) {
	if actorID == userID {
		return nil, ErrSelfModification
	}
	var updated models.ProjectMembership
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ProjectMembership
		if err := tx.
			Where("user_id = ? AND project_id = ?", userID, projectID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMembershipNotFound
			}
			return err
		}
		if err := tx.Model(&models.ProjectMembership{}).
			Where("user_id = ? AND project_id = ?", userID, projectID).
			Update("role", role).Error; err != nil {
			return err
		}
		updated = current
		updated.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// lockedMembership loads the target org membership with a row lock on
// postgres so the invariant check and the write see one consistent state.
// Sqlite serializes writers on its own, so the clause is dialect-gated.
func (g *Guard) lockedMembership(tx *gorm.DB, orgID, userID uuid.UUID) (*models.OrganizationMembership, error) {
	var m models.OrganizationMembership
	q := tx.Where("user_id = ? AND organization_id = ?", userID, orgID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

// lockedAdminCount counts the org's admin memberships, locking the rows on
// postgres so a concurrent removal cannot slip between the count and the
// write.
func (g *Guard) lockedAdminCount(tx *gorm.DB, orgID uuid.UUID) (int64, error) {
	q := tx.Model(&models.OrganizationMembership{}).
		Where("organization_id = ? AND role = ?", orgID, models.OrgRoleAdmin)
	if tx.Dialector.Name() == "postgres" {
		var admins []models.OrganizationMembership
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ? AND role = ?", orgID, models.OrgRoleAdmin).
			Find(&admins).Error; err != nil {
			return 0, err
		}
		return int64(len(admins)), nil
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (g *Guard) checkOrg(tx *gorm.DB, orgID uuid.UUID) error {
	var org models.Organization
	if err := tx.Select("id", "retired_at").First(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrganizationNotFound
		}
		return err
	}
	if org.IsRetired() {
		return ErrOrganizationNotFound
	}
	return nil
}

func (g *Guard) checkUser(tx *gorm.DB, userID uuid.UUID) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
