package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/api/dto"
	"github.com/projaxis/authcore/internal/api/middleware"
	"github.com/projaxis/authcore/internal/audit"
	"github.com/projaxis/authcore/internal/authz"
	"github.com/projaxis/authcore/internal/database/models"
	"github.com/projaxis/authcore/internal/membership"
	"gorm.io/gorm"
)

// ProjectHandler serves projects and project membership management. Reads
// are gated on CanAccessProject and writes on CanManageProject, with the
// project ID taken from the route target, never from a client claim.
type ProjectHandler struct {
	db        *gorm.DB
	evaluator *authz.Evaluator
	guard     *membership.Guard
	recorder  *audit.Recorder
}

func NewProjectHandler(db *gorm.DB, evaluator *authz.Evaluator, guard *membership.Guard, recorder *audit.Recorder) *ProjectHandler {
	return &ProjectHandler{db: db, evaluator: evaluator, guard: guard, recorder: recorder}
}

// Create handles POST /api/v1/orgs/{id}/projects. Requires org admin (or
// platform admin) on the owning org.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w)
		return
	}
	if !h.evaluator.IsPlatformAdmin(r.Context(), principal.UserID) &&
		!h.evaluator.IsOrgAdmin(r.Context(), principal.UserID, orgID) {
		writeNotFound(w)
		return
	}

	var org models.Organization
	if err := h.db.WithContext(r.Context()).First(&org, "id = ?", orgID).Error; err != nil || org.IsRetired() {
		writeNotFound(w)
		return
	}

	var req dto.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}

	project := models.Project{
		OrganizationID: orgID,
		Name:           req.Name,
		Reference:      req.Reference,
	}
	if err := h.db.WithContext(r.Context()).Create(&project).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, projectToResponse(&project))
}

// Get handles GET /api/v1/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w)
		return
	}
	if !h.evaluator.CanAccessProject(r.Context(), principal.UserID, projectID) {
		writeNotFound(w)
		return
	}

	var project models.Project
	if err := h.db.WithContext(r.Context()).First(&project, "id = ?", projectID).Error; err != nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, projectToResponse(&project))
}

// ListMembers handles GET /api/v1/projects/{id}/members.
func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w)
		return
	}
	if !h.evaluator.CanAccessProject(r.Context(), principal.UserID, projectID) {
		writeNotFound(w)
		return
	}

	var memberships []models.ProjectMembership
	if err := h.db.WithContext(r.Context()).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members")
		return
	}

	out := make([]dto.MemberResponse, len(memberships))
	for i, m := range memberships {
		out[i] = dto.MemberResponse{
			UserID:    m.UserID.String(),
			Role:      string(m.Role),
			IsDefault: m.IsDefault,
			JoinedAt:  m.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// AddMember handles POST /api/v1/projects/{id}/members.
func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	projectID, ok := h.parseManageAccess(w, r, principal)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeValidationErrors(w, map[string]string{"user_id": "Invalid user ID format"})
		return
	}
	role, err := models.ParseProjectRole(req.Role)
	if err != nil {
		writeValidationErrors(w, map[string]string{"role": "Invalid project role"})
		return
	}

	created, err := h.guard.AddProjectMember(r.Context(), projectID, userID, role, req.IsDefault)
	if err != nil {
		writeGuardError(w, err)
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:   principal.UserID,
		ProjectID: &projectID,
		SubjectID: &userID,
		Action:    audit.ActionProjectMemberAdded,
		Outcome:   audit.OutcomeAllowed,
		Detail:    `{"role":"` + string(role) + `"}`,
	})
	writeJSON(w, http.StatusCreated, dto.MemberResponse{
		UserID:    created.UserID.String(),
		Role:      string(created.Role),
		IsDefault: created.IsDefault,
		JoinedAt:  created.CreatedAt.Format(time.RFC3339),
	})
}

// RemoveMember handles DELETE /api/v1/projects/{id}/members/{userID}. The
// guard rejects removal of the caller's own membership.
func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	projectID, ok := h.parseManageAccess(w, r, principal)
	if !ok {
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeNotFound(w)
		return
	}

	if err := h.guard.RemoveProjectMember(r.Context(), principal.UserID, projectID, userID); err != nil {
		writeGuardError(w, err)
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:   principal.UserID,
		ProjectID: &projectID,
		SubjectID: &userID,
		Action:    audit.ActionProjectMemberRemoved,
		Outcome:   audit.OutcomeAllowed,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ChangeRole handles PUT /api/v1/projects/{id}/members/{userID}.
func (h *ProjectHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	projectID, ok := h.parseManageAccess(w, r, principal)
	if !ok {
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeNotFound(w)
		return
	}

	var req dto.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}
	role, err := models.ParseProjectRole(req.Role)
	if err != nil {
		writeValidationErrors(w, map[string]string{"role": "Invalid project role"})
		return
	}

	updated, err := h.guard.ChangeProjectRole(r.Context(), principal.UserID, projectID, userID, role)
	if err != nil {
		writeGuardError(w, err)
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:   principal.UserID,
		ProjectID: &projectID,
		SubjectID: &userID,
		Action:    audit.ActionProjectRoleChanged,
		Outcome:   audit.OutcomeAllowed,
		Detail:    `{"role":"` + string(role) + `"}`,
	})
	writeJSON(w, http.StatusOK, dto.MemberResponse{
		UserID:    updated.UserID.String(),
		Role:      string(updated.Role),
		IsDefault: updated.IsDefault,
		JoinedAt:  updated.CreatedAt.Format(time.RFC3339),
	})
}

// parseManageAccess parses the project ID from the route and requires
// CanManageProject. Denial renders 404.
func (h *ProjectHandler) parseManageAccess(w http.ResponseWriter, r *http.Request, principal authz.Principal) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w)
		return uuid.Nil, false
	}
	if !h.evaluator.CanManageProject(r.Context(), principal.UserID, projectID) {
		writeNotFound(w)
		return uuid.Nil, false
	}
	return projectID, true
}

func projectToResponse(project *models.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		ID:             project.ID.String(),
		OrganizationID: project.OrganizationID.String(),
		Name:           project.Name,
		Reference:      project.Reference,
		CreatedAt:      project.CreatedAt.Format(time.RFC3339),
	}
}
