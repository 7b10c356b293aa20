package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
)

func setupStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewSessionStore(context.Background(), Options{Addr: mr.Addr(), TTL: 30 * time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func newSession(id, userID string, mustChange bool) *model.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Session{
		ID:                 id,
		UserID:             userID,
		Email:              userID + "@example.com",
		MustChangePassword: mustChange,
		CreatedAt:          now,
		LastSeenAt:         now,
	}
}

func TestNewSessionStore_RejectsZeroTTL(t *testing.T) {
	_, err := NewSessionStore(context.Background(), Options{Addr: "127.0.0.1:0"})
	assert.Error(t, err)
}

func TestCreateAndGet(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	want := newSession("s1", "u1", true)
	require.NoError(t, store.CreateSession(ctx, want))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want.UserID, got.UserID)
	assert.True(t, got.MustChangePassword)
	assert.True(t, got.LastSeenAt.Equal(want.LastSeenAt))
	assert.Equal(t, 30*time.Minute, mr.TTL("session:s1"))
}

func TestGet_Missing(t *testing.T) {
	store, _ := setupStore(t)
	_, err := store.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSessionExpires(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("s1", "u1", false)))

	mr.FastForward(31 * time.Minute)

	_, err := store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTouch_RestartsTTL(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	sess := newSession("s1", "u1", false)
	require.NoError(t, store.CreateSession(ctx, sess))

	mr.FastForward(20 * time.Minute)
	sess.LastSeenAt = sess.LastSeenAt.Add(20 * time.Minute)
	require.NoError(t, store.TouchSession(ctx, sess))
	mr.FastForward(20 * time.Minute)

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.LastSeenAt.Equal(sess.LastSeenAt))
}

func TestClearPasswordChange(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("a", "u1", true)))
	require.NoError(t, store.CreateSession(ctx, newSession("b", "u1", true)))
	require.NoError(t, store.CreateSession(ctx, newSession("c", "u2", true)))

	require.NoError(t, store.ClearPasswordChange(ctx, "u1"))

	for id, want := range map[string]bool{"a": false, "b": false, "c": true} {
		got, err := store.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.MustChangePassword, "session %s", id)
	}
}

func TestClearPasswordChange_SkipsExpired(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("a", "u1", true)))
	mr.Del("session:a")

	require.NoError(t, store.ClearPasswordChange(ctx, "u1"))
	assert.False(t, mr.Exists("session:a"))
	members, _ := mr.Members("user-sessions:u1")
	assert.Empty(t, members)
}

func TestDelete(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("s1", "u1", false)))

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err := store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	members, _ := mr.Members("user-sessions:u1")
	assert.NotContains(t, members, "s1")

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteSession(ctx, "s1"))
}
