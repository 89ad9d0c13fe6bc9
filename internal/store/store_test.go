package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/models"
)

func TestForActorReturnsSameInstance(t *testing.T) {
	st := New(keyvalue.NewMemory(), 16)

	a := st.ForActor("x@host.example")
	b := st.ForActor("x@host.example")
	assert.Same(t, a, b)

	c := st.ForActor("y@host.example")
	assert.NotSame(t, a, c)
}

func TestForActorConcurrentFirstLookup(t *testing.T) {
	st := New(keyvalue.NewMemory(), 16)

	const workers = 32
	stores := make([]*ActorStore, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i] = st.ForActor("x@host.example")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, stores[0], stores[i])
	}
	assert.Equal(t, 1, st.CachedActors())
}

func TestForActorCacheEviction(t *testing.T) {
	ctx := context.Background()
	st := New(keyvalue.NewMemory(), 2)

	info := models.ActorInfo{ActorURL: "a@host.example", PublicKeyID: "k"}
	require.NoError(t, st.ForActor("a@host.example").SetInfo(ctx, info))

	st.ForActor("b@host.example")
	st.ForActor("c@host.example")
	assert.Equal(t, 2, st.CachedActors())

	// Evicted handles reopen against the same namespace, so durable
	// state survives eviction.
	got, err := st.ForActor("a@host.example").GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestStoreOwnsTrustLists(t *testing.T) {
	ctx := context.Background()
	st := New(keyvalue.NewMemory(), 16)

	require.NoError(t, st.Blocklist.Add(ctx, "bob@evil.example"))
	require.NoError(t, st.Allowlist.Add(ctx, "carol@friend.example"))
	require.NoError(t, st.Admins.Add(ctx, "root@host.example"))

	blocked, err := st.Blocklist.Contains(ctx, "bob@evil.example")
	require.NoError(t, err)
	assert.True(t, blocked)

	// Lists live in separate namespaces.
	allowed, err := st.Allowlist.Contains(ctx, "bob@evil.example")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	st := New(keyvalue.NewMemory(), 16)

	user := models.User{Username: "alice", Email: "alice@mail.example", ActorURL: "alice@host.example"}
	require.NoError(t, st.Users.Add(ctx, user))

	err := st.Users.Add(ctx, user)
	assert.ErrorIs(t, err, keyvalue.ErrExists)

	got, err := st.Users.Get(ctx, "alice@mail.example")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	exists, err := st.Users.Exists(ctx, "alice@mail.example")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.Users.Exists(ctx, "nobody@mail.example")
	require.NoError(t, err)
	assert.False(t, exists)
}
