package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpub/modpub/internal/keyvalue"
)

func newTestList(t *testing.T) *AccountListStore {
	t.Helper()
	return NewAccountListStore(keyvalue.NewMemory().Sublevel("blocklist"))
}

func TestAccountListExactMatch(t *testing.T) {
	ctx := context.Background()
	list := newTestList(t)

	require.NoError(t, list.Add(ctx, "bob@evil.example"))

	got, err := list.Contains(ctx, "bob@evil.example")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = list.Contains(ctx, "mallory@evil.example")
	require.NoError(t, err)
	assert.False(t, got)

	got, err = list.Contains(ctx, "bob@good.example")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestAccountListDomainWildcard(t *testing.T) {
	ctx := context.Background()
	list := newTestList(t)

	require.NoError(t, list.Add(ctx, "@*@evil.example"))

	got, err := list.Contains(ctx, "anyone@evil.example")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = list.Contains(ctx, "anyone@other.example")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestAccountListFullWildcard(t *testing.T) {
	ctx := context.Background()
	list := newTestList(t)

	require.NoError(t, list.Add(ctx, FullWildcard))

	got, err := list.Contains(ctx, "anyone@anywhere.example")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestAccountListAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	list := newTestList(t)

	// Both spellings normalize to the same storage key.
	require.NoError(t, list.Add(ctx, "bob@evil.example"))
	require.NoError(t, list.Add(ctx, "@bob@evil.example"))

	entries, err := list.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAccountListRemoveRestoresContains(t *testing.T) {
	ctx := context.Background()
	list := newTestList(t)

	require.NoError(t, list.Add(ctx, "bob@evil.example"))
	require.NoError(t, list.Remove(ctx, "bob@evil.example"))

	got, err := list.Contains(ctx, "bob@evil.example")
	require.NoError(t, err)
	assert.False(t, got)

	// Removing a non-member is a no-op, not an error.
	require.NoError(t, list.Remove(ctx, "nobody@nowhere.example"))
}
