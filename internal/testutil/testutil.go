package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/auth"
	"github.com/projaxis/authcore/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMembership{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.AuditEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestUser creates a regular active user with no memberships
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
		IsActive:     true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestPlatformAdmin creates an active user with the platform admin flag set
func CreateTestPlatformAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	if err := db.Model(user).Update("is_platform_admin", true).Error; err != nil {
		t.Fatalf("failed to promote platform admin: %v", err)
	}
	user.IsPlatformAdmin = true
	return user
}

// CreateTestOrg creates a test organization
func CreateTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:     "Test Organization",
		Slug:     "test-org-" + uuid.New().String()[:8],
		Settings: "{}",
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

// AddTestOrgMember inserts an org membership row directly, bypassing the guard
func AddTestOrgMember(t *testing.T, db *gorm.DB, org *models.Organization, user *models.User, role models.OrgRole) *models.OrganizationMembership {
	t.Helper()

	m := &models.OrganizationMembership{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           role,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create org membership: %v", err)
	}
	return m
}

// CreateTestProject creates a project under the given organization
func CreateTestProject(t *testing.T, db *gorm.DB, org *models.Organization) *models.Project {
	t.Helper()

	project := &models.Project{
		Base: models.Base{
			ID: uuid.New(),
		},
		OrganizationID: org.ID,
		Name:           "Test Project",
		Reference:      "TP-" + uuid.New().String()[:8],
	}

	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}

	project.Organization = org
	return project
}

// AddTestProjectMember inserts a project membership row directly, bypassing the guard
func AddTestProjectMember(t *testing.T, db *gorm.DB, project *models.Project, user *models.User, role models.ProjectRole) *models.ProjectMembership {
	t.Helper()

	m := &models.ProjectMembership{
		UserID:    user.ID,
		ProjectID: project.ID,
		Role:      role,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create project membership: %v", err)
	}
	return m
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user and session
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User, sessionID uuid.UUID) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, sessionID, user.Email)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds the common dependencies for authorization tests: one
// organization with an org admin, one project, and a contributor on it.
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Org        *models.Organization
	Project    *models.Project
	OrgAdmin   *models.User
	Member     *models.User
}

// NewTestSetup creates a complete test fixture
func NewTestSetup(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	org := CreateTestOrg(t, db)
	project := CreateTestProject(t, db, org)

	orgAdmin := CreateTestUser(t, db)
	AddTestOrgMember(t, db, org, orgAdmin, models.OrgRoleAdmin)

	member := CreateTestUser(t, db)
	AddTestProjectMember(t, db, project, member, models.RoleContributor)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Org:        org,
		Project:    project,
		OrgAdmin:   orgAdmin,
		Member:     member,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
