package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/api/dto"
	"github.com/projaxis/authcore/internal/api/middleware"
	"github.com/projaxis/authcore/internal/audit"
	"github.com/projaxis/authcore/internal/authz"
	"github.com/projaxis/authcore/internal/database/models"
	"github.com/projaxis/authcore/internal/session"
)

// SessionHandler serves the session boundary: who am I, what may I do,
// project switching, and "view as" impersonation.
type SessionHandler struct {
	sessions *session.Manager
	recorder *audit.Recorder
}

func NewSessionHandler(sessions *session.Manager, recorder *audit.Recorder) *SessionHandler {
	return &SessionHandler{sessions: sessions, recorder: recorder}
}

// Me handles GET /api/v1/me.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(principal, sess))
}

// Permissions handles GET /api/v1/me/permissions. The lookup is evaluated on
// the effective role: this is the advisory UI-gating boundary, and unknown
// entities or actions answer false rather than erroring.
func (h *SessionHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	entity := r.URL.Query().Get("entity")
	action := r.URL.Query().Get("action")
	if entity == "" || action == "" {
		writeError(w, http.StatusBadRequest, "entity and action query parameters are required")
		return
	}

	role := sess.EffectiveRole()
	writeJSON(w, http.StatusOK, dto.PermissionResponse{
		Entity:  entity,
		Action:  action,
		Role:    string(role),
		Allowed: authz.HasPermission(role, entity, action),
	})
}

// SwitchProject handles POST /api/v1/session/project. The actual role is
// re-resolved for the new project and impersonation is cleared when the new
// role is no longer eligible for it.
func (h *SessionHandler) SwitchProject(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req dto.SwitchProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		writeNotFound(w)
		return
	}

	updated, err := h.sessions.SwitchProject(r.Context(), sess, principal, &projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to switch project")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(principal, updated))
}

// StartViewAs handles POST /api/v1/session/view-as. Eligibility is decided
// on the recomputed actual role; denial is audited as a security event.
func (h *SessionHandler) StartViewAs(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req dto.ViewAsRequest
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
		writeError(w, http.StatusBadRequest, "Unknown role")
		return
	}

	updated, err := h.sessions.StartImpersonation(r.Context(), sess, principal, role)
	if err != nil {
		if errors.Is(err, session.ErrForbidden) {
			h.recorder.Record(audit.Event{
				ActorID:   principal.UserID,
				ProjectID: sess.ActiveProjectID,
				Action:    audit.ActionImpersonationDenied,
				Outcome:   audit.OutcomeDenied,
				Detail:    `{"requested_role":"` + string(role) + `"}`,
			})
			writeError(w, http.StatusForbidden, "Your role does not permit viewing as another role")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start impersonation")
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:   principal.UserID,
		ProjectID: updated.ActiveProjectID,
		Action:    audit.ActionImpersonationStarted,
		Outcome:   audit.OutcomeAllowed,
		Detail:    `{"view_as_role":"` + string(role) + `"}`,
	})
	writeJSON(w, http.StatusOK, sessionResponse(principal, updated))
}

// ClearViewAs handles DELETE /api/v1/session/view-as. Always succeeds.
func (h *SessionHandler) ClearViewAs(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	updated, err := h.sessions.ClearImpersonation(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear impersonation")
		return
	}

	h.recorder.Record(audit.Event{
		ActorID:   principal.UserID,
		ProjectID: updated.ActiveProjectID,
		Action:    audit.ActionImpersonationCleared,
		Outcome:   audit.OutcomeAllowed,
	})
	writeJSON(w, http.StatusOK, sessionResponse(principal, updated))
}

func sessionResponse(principal authz.Principal, sess *session.Session) dto.SessionResponse {
	resp := dto.SessionResponse{
		UserID:        principal.UserID.String(),
		Email:         principal.Email,
		ActualRole:    string(sess.ActualRole),
		EffectiveRole: string(sess.EffectiveRole()),
		Impersonating: sess.Impersonation.Active(),
		MatrixVersion: authz.MatrixVersion,
	}
	if sess.ActiveProjectID != nil {
		id := sess.ActiveProjectID.String()
		resp.ActiveProjectID = &id
	}
	return resp
}
