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

// OrgHandler serves organizations and organization membership management.
// All membership writes go through the guard; this handler never touches
// membership rows directly.
type OrgHandler struct {
	db        *gorm.DB
	evaluator *authz.Evaluator
	guard     *membership.Guard
	recorder  *audit.Recorder
}

func NewOrgHandler(db *gorm.DB, evaluator *authz.Evaluator, guard *membership.Guard, recorder *audit.Recorder) *OrgHandler {
	return &OrgHandler{db: db, evaluator: evaluator, guard: guard, recorder: recorder}
}

// Create handles POST /api/v1/orgs. Platform admin only: organizations are
// created by platform action, with their first admin in the same commit.
func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	if !h.evaluator.IsPlatformAdmin(r.Context(), principal.UserID) {
		writeError(w, http.StatusForbidden, "Platform admin required")
		return
	}

	var req dto.CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}
	adminID, err := uuid.Parse(req.AdminUserID)
	if err != nil {
		writeValidationErrors(w, map[string]string{"admin_user_id": "Invalid user ID format"})
		return
	}

	org := models.Organization{Name: req.Name, Slug: req.Slug, Settings: "{}"}
	if err := h.guard.CreateOrgWithAdmin(r.Context(), &org, adminID); err != nil {
		writeGuardError(w, err)
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:        principal.UserID,
		OrganizationID: &org.ID,
		SubjectID:      &adminID,
		Action:         audit.ActionOrgMemberAdded,
		Outcome:        audit.OutcomeAllowed,
		Detail:         `{"role":"admin","org_created":true}`,
	})
	writeJSON(w, http.StatusCreated, orgToResponse(&org))
}

// Get handles GET /api/v1/orgs/{id}. Non-members get 404, not 403: org
// existence is tenant-sensitive.
func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	orgID, ok := h.parseOrgAccess(w, r, principal, false)
	if !ok {
		return
	}

	var org models.Organization
	if err := h.db.WithContext(r.Context()).First(&org, "id = ?", orgID).Error; err != nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, orgToResponse(&org))
}

// UpdateSettings handles PUT /api/v1/orgs/{id}/settings. Org admin required.
func (h *OrgHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	orgID, ok := h.parseOrgAccess(w, r, principal, true)
	if !ok {
		return
	}

	var req dto.UpdateOrgSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}
	if !json.Valid([]byte(req.Settings)) {
		writeValidationErrors(w, map[string]string{"settings": "Settings must be valid JSON"})
		return
	}

	res := h.db.WithContext(r.Context()).
		Model(&models.Organization{}).
		Where("id = ? AND retired_at IS NULL", orgID).
		Update("settings", req.Settings)
	if res.Error != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}
	if res.RowsAffected == 0 {
		writeNotFound(w)
		return
	}

	var org models.Organization
	if err := h.db.WithContext(r.Context()).First(&org, "id = ?", orgID).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load organization")
		return
	}
	writeJSON(w, http.StatusOK, orgToResponse(&org))
}

// Retire handles POST /api/v1/orgs/{id}/retire. Platform admin only.
// Organizations are soft-retired, never deleted.
func (h *OrgHandler) Retire(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	if !h.evaluator.IsPlatformAdmin(r.Context(), principal.UserID) {
		writeNotFound(w)
		return
	}
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w)
		return
	}

	now := time.Now()
	res := h.db.WithContext(r.Context()).
		Model(&models.Organization{}).
		Where("id = ? AND retired_at IS NULL", orgID).
		Update("retired_at", &now)
	if res.Error != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retire organization")
		return
	}
	if res.RowsAffected == 0 {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "retired"})
}

// ListMembers handles GET /api/v1/orgs/{id}/members.
func (h *OrgHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	orgID, ok := h.parseOrgAccess(w, r, principal, false)
	if !ok {
		return
	}

	var memberships []models.OrganizationMembership
	if err := h.db.WithContext(r.Context()).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members")
		return
	}

	out := make([]dto.MemberResponse, len(memberships))
	for i, m := range memberships {
		out[i] = dto.MemberResponse{
			UserID:   m.UserID.String(),
			Role:     string(m.Role),
			JoinedAt: m.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// AddMember handles POST /api/v1/orgs/{id}/members. Org admin required.
func (h *OrgHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	orgID, ok := h.parseOrgAccess(w, r, principal, true)
	if !ok {
		return
	}

	userID, role, ok := h.parseMemberRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.guard.AddOrgMember(r.Context(), orgID, userID, role); err != nil {
		writeGuardError(w, err)
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:        principal.UserID,
		OrganizationID: &orgID,
		SubjectID:      &userID,
		Action:         audit.ActionOrgMemberAdded,
		Outcome:        audit.OutcomeAllowed,
		Detail:         `{"role":"` + string(role) + `"}`,
	})
	writeJSON(w, http.StatusCreated, dto.MemberResponse{
		UserID:   userID.String(),
		Role:     string(role),
		JoinedAt: time.Now().Format(time.RFC3339),
	})
}

// RemoveMember handles DELETE /api/v1/orgs/{id}/members/{userID}.
func (h *OrgHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	orgID, ok := h.parseOrgAccess(w, r, principal, true)
	if !ok {
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeNotFound(w)
		return
	}

	if err := h.guard.RemoveOrgMember(r.Context(), orgID, userID); err != nil {
		writeGuardError(w, err)
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:        principal.UserID,
		OrganizationID: &orgID,
		SubjectID:      &userID,
		Action:         audit.ActionOrgMemberRemoved,
		Outcome:        audit.OutcomeAllowed,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ChangeRole handles PUT /api/v1/orgs/{id}/members/{userID}.
func (h *OrgHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	orgID, ok := h.parseOrgAccess(w, r, principal, true)
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
	role, err := models.ParseOrgRole(req.Role)
	if err != nil {
		writeValidationErrors(w, map[string]string{"role": "Invalid organization role"})
		return
	}

	updated, err := h.guard.ChangeOrgRole(r.Context(), orgID, userID, role)
	if err != nil {
		writeGuardError(w, err)
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:        principal.UserID,
		OrganizationID: &orgID,
		SubjectID:      &userID,
		Action:         audit.ActionOrgRoleChanged,
		Outcome:        audit.OutcomeAllowed,
		Detail:         `{"role":"` + string(role) + `"}`,
	})
	writeJSON(w, http.StatusOK, dto.MemberResponse{
		UserID:   updated.UserID.String(),
		Role:     string(updated.Role),
		JoinedAt: updated.CreatedAt.Format(time.RFC3339),
	})
}

// parseOrgAccess parses the org ID and checks access: platform admins pass,
// org admins pass, plain members pass only when admin is false. Any failure
// renders 404.
func (h *OrgHandler) parseOrgAccess(w http.ResponseWriter, r *http.Request, principal authz.Principal, admin bool) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w)
		return uuid.Nil, false
	}
	if h.evaluator.IsPlatformAdmin(r.Context(), principal.UserID) {
		return orgID, true
	}
	if admin {
		if h.evaluator.IsOrgAdmin(r.Context(), principal.UserID, orgID) {
			return orgID, true
		}
	} else if h.evaluator.IsOrgMember(r.Context(), principal.UserID, orgID) {
		return orgID, true
	}
	writeNotFound(w)
	return uuid.Nil, false
}

func (h *OrgHandler) parseMemberRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, models.OrgRole, bool) {
	var req dto.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return uuid.Nil, "", false
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return uuid.Nil, "", false
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeValidationErrors(w, map[string]string{"user_id": "Invalid user ID format"})
		return uuid.Nil, "", false
	}
	role, err := models.ParseOrgRole(req.Role)
	if err != nil {
		writeValidationErrors(w, map[string]string{"role": "Invalid organization role"})
		return uuid.Nil, "", false
	}
	return userID, role, true
}

func orgToResponse(org *models.Organization) dto.OrgResponse {
	return dto.OrgResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		Settings:  org.Settings,
		Retired:   org.IsRetired(),
		CreatedAt: org.CreatedAt.Format(time.RFC3339),
	}
}
