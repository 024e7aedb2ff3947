package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	s := New(time.Now().Add(time.Hour))
	s.UserID = "admin-1"
	s.Role = "admin"
	s.User = json.RawMessage(`{"admin_id":"admin-1","username":"desk"}`)
	s.AccessToken = "access-1"
	s.RefreshToken = "refresh-1"
	return s
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newTestSession()

	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", got.UserID)
	assert.Equal(t, "access-1", got.AccessToken)

	got.SidebarCollapsed = true
	require.NoError(t, store.Update(ctx, got))

	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, again.SidebarCollapsed)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting twice is fine
	assert.NoError(t, store.Delete(ctx, s.ID))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newTestSession()
	require.NoError(t, store.Create(ctx, s))

	s.AccessToken = "mutated"
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)

	got.User[0] = '['
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again.User[0])
}

func TestMemoryStore_Expired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newTestSession()
	s.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Create(ctx, s))

	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	err := NewMemoryStore().Update(context.Background(), newTestSession())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newTestSession()
	require.NoError(t, store.Create(ctx, s))

	tokens := Tokens{Store: store, ID: s.ID}
	assert.Equal(t, s.ID, tokens.Key())

	access, refresh, err := tokens.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", access)
	assert.Equal(t, "refresh-1", refresh)

	// Refresh token is kept when none is rotated in
	require.NoError(t, tokens.SetTokens(ctx, "access-2", ""))
	access, refresh, err = tokens.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
	assert.Equal(t, "refresh-1", refresh)

	require.NoError(t, tokens.SetTokens(ctx, "access-3", "refresh-2"))
	_, refresh, err = tokens.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", refresh)

	require.NoError(t, tokens.Clear(ctx))
	access, refresh, err = tokens.Tokens(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	assert.ErrorIs(t, tokens.SetTokens(ctx, "access-4", ""), ErrSessionNotFound)
}
