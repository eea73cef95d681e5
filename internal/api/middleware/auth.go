package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/auth"
	"github.com/projaxis/authcore/internal/authz"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
	SessionIDKey contextKey = "session_id"
)

// Auth validates the bearer token and loads the principal from the user row.
// The platform-admin flag is read from the database on every request, never
// from token claims: tokens carry identity, the membership store carries
// authority.
func Auth(jwtService *auth.JWTService, users auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
			if token == "" {
				if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
					token = cookie.Value
				}
			}

			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil || !user.IsActive {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			principal := authz.Principal{
				UserID:          user.ID,
				Email:           user.Email,
				IsPlatformAdmin: user.IsPlatformAdmin,
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, PrincipalKey, principal)
			ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated principal from context.
func GetPrincipal(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(authz.Principal)
	return p, ok
}

// GetSessionID returns the session ID bound to the request's token.
func GetSessionID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(SessionIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
