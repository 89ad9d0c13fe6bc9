package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListsAddAndGet(t *testing.T) {
	ctx := context.Background()
	env := newInboxTestEnv(t)
	alice := env.registerActor(t, "alice")

	body := []byte("bob@evil.example\n@*@spam.example\n")
	w := env.do(t, http.MethodPost, "/alice@example.com/blocklist", body, &alice)
	require.Equal(t, http.StatusOK, w.Code)

	blocked, err := env.store.Blocklist.Contains(ctx, "bob@evil.example")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = env.store.Blocklist.Contains(ctx, "anyone@spam.example")
	require.NoError(t, err)
	assert.True(t, blocked)

	w = env.do(t, http.MethodGet, "/alice@example.com/blocklist", nil, &alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "@bob@evil.example")
	assert.Contains(t, w.Body.String(), "@*@spam.example")
}

func TestListsRemove(t *testing.T) {
	ctx := context.Background()
	env := newInboxTestEnv(t)
	alice := env.registerActor(t, "alice")

	require.NoError(t, env.store.Allowlist.Add(ctx, "carol@friend.example"))

	w := env.do(t, http.MethodDelete, "/alice@example.com/allowlist", []byte("carol@friend.example"), &alice)
	require.Equal(t, http.StatusOK, w.Code)

	allowed, err := env.store.Allowlist.Contains(ctx, "carol@friend.example")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestListsPermissions(t *testing.T) {
	env := newInboxTestEnv(t)
	env.registerActor(t, "alice")
	bob := env.registerActor(t, "bob")

	body := []byte("carol@other.example")
	w := env.do(t, http.MethodPost, "/alice@example.com/blocklist", body, &bob)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/alice@example.com/blocklist", body, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/alice@example.com/blocklist", nil, &bob)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListsUnknownListName(t *testing.T) {
	env := newInboxTestEnv(t)
	alice := env.registerActor(t, "alice")

	w := env.do(t, http.MethodGet, "/alice@example.com/sharklist", nil, &alice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListAdminOnly(t *testing.T) {
	ctx := context.Background()
	env := newInboxTestEnv(t)
	alice := env.registerActor(t, "alice")
	admin := env.registerActor(t, "root")
	require.NoError(t, env.store.Admins.Add(ctx, admin.ActorURL))

	// Non-admins cannot read or grow the admin list.
	w := env.do(t, http.MethodGet, "/admins", nil, &alice)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/admins", []byte(alice.ActorURL), &alice)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/admins", []byte(alice.ActorURL), &admin)
	require.Equal(t, http.StatusOK, w.Code)

	isAdmin, err := env.store.Admins.Contains(ctx, alice.ActorURL)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	w = env.do(t, http.MethodGet, "/admins", nil, &admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "@alice@example.com")

	w = env.do(t, http.MethodDelete, "/admins", []byte(alice.ActorURL), &admin)
	require.Equal(t, http.StatusOK, w.Code)

	isAdmin, err = env.store.Admins.Contains(ctx, alice.ActorURL)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}
