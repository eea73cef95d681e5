// Command seed populates a development database with a platform admin,
// a demo organization, two projects, and a user at each project role.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/projaxis/authcore/internal/auth"
	"github.com/projaxis/authcore/internal/database"
	"github.com/projaxis/authcore/internal/database/models"
	"github.com/projaxis/authcore/internal/membership"
	"github.com/projaxis/authcore/pkg/config"
	"github.com/projaxis/authcore/pkg/util"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if err := seed(context.Background(), db, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete")
}

func seed(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	authService := auth.NewService(db)
	guard := membership.NewGuard(db)

	root, err := ensureUser(ctx, db, authService, "root@projaxis.dev", "changeme-root", "Platform Root")
	if err != nil {
		return err
	}
	if !root.IsPlatformAdmin {
		if err := db.WithContext(ctx).Model(root).Update("is_platform_admin", true).Error; err != nil {
			return err
		}
		logger.Info("promoted platform admin", "email", root.Email)
	}

	owner, err := ensureUser(ctx, db, authService, "owner@acme.dev", "changeme-owner", "Acme Owner")
	if err != nil {
		return err
	}

	var org models.Organization
	err = db.WithContext(ctx).Where("slug = ?", "acme").First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		org = models.Organization{Name: "Acme Logistics", Slug: "acme", Settings: "{}"}
		if err := guard.CreateOrgWithAdmin(ctx, &org, owner.ID); err != nil {
			return err
		}
		logger.Info("created organization", "slug", org.Slug)
	} else if err != nil {
		return err
	}

	coAdmin, err := ensureUser(ctx, db, authService, "ops@acme.dev", "changeme-ops", "Acme Ops")
	if err != nil {
		return err
	}
	if _, err := guard.AddOrgMember(ctx, org.ID, coAdmin.ID, models.OrgRoleAdmin); err != nil && !errors.Is(err, membership.ErrAlreadyMember) {
		return err
	}

	projects := []struct {
		name string
		ref  string
	}{
		{"North Depot Rollout", "ACME-001"},
		{"Fleet Telemetry", "ACME-002"},
	}
	for _, p := range projects {
		if err := ensureProject(ctx, db, org.ID, p.name, p.ref); err != nil {
			return err
		}
	}

	var project models.Project
	if err := db.WithContext(ctx).Where("reference = ?", "ACME-001").First(&project).Error; err != nil {
		return err
	}

	members := []struct {
		email string
		name  string
		role  models.ProjectRole
	}{
		{"pm@acme.dev", "Priya Manager", models.RoleProjectManager},
		{"lead@acme.dev", "Lee Lead", models.RoleTeamLead},
		{"dev@acme.dev", "Devon Contributor", models.RoleContributor},
		{"viewer@acme.dev", "Vik Viewer", models.RoleViewer},
	}
	for _, m := range members {
		user, err := ensureUser(ctx, db, authService, m.email, "changeme", m.name)
		if err != nil {
			return err
		}
		_, err = guard.AddProjectMember(ctx, project.ID, user.ID, m.role, true)
		if err != nil && !errors.Is(err, membership.ErrAlreadyMember) {
			return err
		}
		logger.Info("seeded project member", "email", m.email, "role", m.role)
	}

	return nil
}

func ensureUser(ctx context.Context, db *gorm.DB, svc *auth.Service, email, password, name string) (*models.User, error) {
	user, err := svc.Register(ctx, auth.RegisterInput{Email: email, Password: password, Name: name})
	if errors.Is(err, auth.ErrUserExists) {
		var existing models.User
		if err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return user, err
}

func ensureProject(ctx context.Context, db *gorm.DB, orgID uuid.UUID, name, reference string) error {
	var existing models.Project
	err := db.WithContext(ctx).Where("reference = ?", reference).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	project := models.Project{OrganizationID: orgID, Name: name, Reference: reference}
	return db.WithContext(ctx).Create(&project).Error
}
