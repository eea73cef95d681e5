package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/projaxis/authcore/internal/api/dto"
	"github.com/projaxis/authcore/internal/membership"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

func writeValidationErrors(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: details})
}

// writeNotFound renders tenant denials. Access denial and nonexistence look
// identical on purpose: confirming that an org or project exists is itself a
// leak to non-members.
func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not found")
}

// writeGuardError maps membership guard violations to responses. Each
// violation keeps its precise message; these are trusted-user-facing
// operations, not attacker-facing ones.
func writeGuardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, membership.ErrLastAdmin):
		writeError(w, http.StatusConflict, "An organization must keep at least one admin")
	case errors.Is(err, membership.ErrSelfModification):
		writeError(w, http.StatusForbidden, "You cannot remove or change your own project membership")
	case errors.Is(err, membership.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "User is already a member")
	case errors.Is(err, membership.ErrMembershipNotFound),
		errors.Is(err, membership.ErrOrganizationNotFound),
		errors.Is(err, membership.ErrProjectNotFound),
		errors.Is(err, membership.ErrUserNotFound):
		writeNotFound(w)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}
