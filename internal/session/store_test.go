package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projaxis/authcore/internal/database/models"
	"github.com/projaxis/authcore/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	newSession := func(ttl time.Duration) *session.Session {
		now := time.Now()
		return &session.Session{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			ActualRole: models.RoleContributor,
			CreatedAt:  now,
			ExpiresAt:  now.Add(ttl),
		}
	}

	t.Run("save and get round trip", func(t *testing.T) {
		s := newSession(time.Hour)
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.UserID, got.UserID)
		assert.Equal(t, s.ActualRole, got.ActualRole)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		s := newSession(time.Hour)
		require.NoError(t, store.Save(ctx, s))

		first, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		first.ActualRole = models.RoleAdmin

		second, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleContributor, second.ActualRole)
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("expired session", func(t *testing.T) {
		s := newSession(-time.Minute)
		require.NoError(t, store.Save(ctx, s))

		_, err := store.Get(ctx, s.ID)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newSession(time.Hour)
		require.NoError(t, store.Save(ctx, s))
		require.NoError(t, store.Delete(ctx, s.ID))

		_, err := store.Get(ctx, s.ID)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}
