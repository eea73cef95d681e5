package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/auth"
	"github.com/projaxis/authcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_ValidToken_AuthorizationHeader(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	jwtService := testutil.CreateTestJWTService()
	users := auth.NewService(db)
	user := testutil.CreateTestUser(t, db)
	sessionID := uuid.New()

	token, err := jwtService.GenerateToken(user.ID, sessionID, user.Email)
	require.NoError(t, err)

	handler := Auth(jwtService, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		require.True(t, ok)
		assert.Equal(t, user.ID, principal.UserID)
		assert.Equal(t, user.Email, principal.Email)
		assert.False(t, principal.IsPlatformAdmin)
		assert.Equal(t, sessionID, GetSessionID(r.Context()))

		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_ValidToken_Cookie(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	jwtService := testutil.CreateTestJWTService()
	users := auth.NewService(db)
	user := testutil.CreateTestUser(t, db)

	token, err := jwtService.GenerateToken(user.ID, uuid.New(), user.Email)
	require.NoError(t, err)

	handler := Auth(jwtService, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		require.True(t, ok)
		assert.Equal(t, user.ID, principal.UserID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	jwtService := testutil.CreateTestJWTService()
	users := auth.NewService(db)

	newHandler := func() http.Handler {
		return Auth(jwtService, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		}))
	}

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		rec := httptest.NewRecorder()
		newHandler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		newHandler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		shortLived := auth.NewJWTService("test-secret-key-for-testing", 1*time.Millisecond)
		user := testutil.CreateTestUser(t, db)
		token, err := shortLived.GenerateToken(user.ID, uuid.New(), user.Email)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		newHandler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token for a deleted user", func(t *testing.T) {
		token, err := jwtService.GenerateToken(uuid.New(), uuid.New(), "ghost@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		newHandler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token for a deactivated user", func(t *testing.T) {
		user := testutil.CreateTestUser(t, db)
		require.NoError(t, db.Model(user).Update("is_active", false).Error)
		token, err := jwtService.GenerateToken(user.ID, uuid.New(), user.Email)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		newHandler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
