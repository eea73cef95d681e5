package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/projaxis/authcore/internal/api/dto"
	"github.com/projaxis/authcore/internal/api/middleware"
	"github.com/projaxis/authcore/internal/auth"
	"github.com/projaxis/authcore/internal/authz"
	"github.com/projaxis/authcore/internal/database/models"
	"github.com/projaxis/authcore/internal/session"
)

type AuthHandler struct {
	service  auth.Authenticator
	jwt      *auth.JWTService
	sessions *session.Manager
}

func NewAuthHandler(service auth.Authenticator, jwt *auth.JWTService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{service: service, jwt: jwt, sessions: sessions}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	resp, err := h.issueSession(r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details := req.Validate(); len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}

	user, err := h.service.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInactiveUser) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	resp, err := h.issueSession(r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout destroys the server-side session, which also drops any
// impersonation state.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if err := h.sessions.Destroy(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// issueSession creates the server-side session with the actual role resolved
// for the user's default project, then binds a token to it.
func (h *AuthHandler) issueSession(r *http.Request, user *models.User) (*dto.AuthResponse, error) {
	principal := authz.Principal{
		UserID:          user.ID,
		Email:           user.Email,
		IsPlatformAdmin: user.IsPlatformAdmin,
	}
	sess, err := h.sessions.Create(r.Context(), principal)
	if err != nil {
		return nil, err
	}
	token, err := h.jwt.GenerateToken(user.ID, sess.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: token,
		User: dto.UserDTO{
			ID:              user.ID.String(),
			Email:           user.Email,
			Name:            user.Name,
			IsPlatformAdmin: user.IsPlatformAdmin,
		},
	}, nil
}
