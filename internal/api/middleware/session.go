package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/session"
)

const sessionKey contextKey = "session"

// Session loads the request's session and revalidates its actual-role
// snapshot against current membership state. A stale snapshot (e.g. the
// principal was demoted mid-session by another admin) is replaced before the
// handler runs, so the next request always reflects the demotion. Must run
// after Auth.
func Session(manager *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			sessionID := GetSessionID(r.Context())
			if sessionID == uuid.Nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := manager.Get(r.Context(), sessionID, principal)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sess, stale, err := manager.Revalidate(r.Context(), sess, principal)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if stale {
				logger.Warn("stale session role recomputed",
					"user_id", principal.UserID,
					"actual_role", sess.ActualRole,
				)
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession returns the revalidated session from context.
func GetSession(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok
}
