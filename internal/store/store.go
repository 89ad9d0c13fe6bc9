package store

import (
	"container/list"
	"sync"

	"github.com/modpub/modpub/internal/keyvalue"
)

// DefaultMaxCachedActors bounds the actor-store cache when the
// configured limit is missing or nonsense.
const DefaultMaxCachedActors = 1024

// Store is the process-wide registry mapping actor identities to their
// ActorStores, plus the three trust lists and the local user records.
// One Store value is created at startup and passed explicitly to every
// component that needs storage access.
type Store struct {
	kv       keyvalue.Store
	actorsKV keyvalue.Store

	mu       sync.Mutex
	cache    map[string]*list.Element
	eviction *list.List
	maxSize  int

	Blocklist *AccountListStore
	Allowlist *AccountListStore
	Admins    *AccountListStore
	Users     *UserStore
}

type cacheEntry struct {
	actorURL string
	store    *ActorStore
}

// New builds a Store on top of the key-value engine. maxCachedActors
// bounds the per-actor handle cache; namespace handles are cheap and
// stable, so evicted actors are simply reopened on the next lookup.
func New(kv keyvalue.Store, maxCachedActors int) *Store {
	if maxCachedActors <= 0 {
		maxCachedActors = DefaultMaxCachedActors
	}
	return &Store{
		kv:        kv,
		actorsKV:  kv.Sublevel("actors"),
		cache:     make(map[string]*list.Element),
		eviction:  list.New(),
		maxSize:   maxCachedActors,
		Blocklist: NewAccountListStore(kv.Sublevel("blocklist")),
		Allowlist: NewAccountListStore(kv.Sublevel("allowlist")),
		Admins:    NewAccountListStore(kv.Sublevel("admins")),
		Users:     NewUserStore(kv.Sublevel("users")),
	}
}

// ForActor returns the ActorStore for an identity, constructing and
// caching it on first use. Concurrent first lookups of the same
// identity collapse to a single instance; this never fails for a
// structurally valid identifier and does not check that the actor was
// ever registered.
func (s *Store) ForActor(actorURL string) *ActorStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.cache[actorURL]; ok {
		s.eviction.MoveToFront(elem)
		return elem.Value.(*cacheEntry).store
	}

	actor := NewActorStore(actorURL, s.actorsKV.Sublevel(actorURL))
	s.cache[actorURL] = s.eviction.PushFront(&cacheEntry{actorURL: actorURL, store: actor})

	for s.eviction.Len() > s.maxSize {
		oldest := s.eviction.Back()
		s.eviction.Remove(oldest)
		delete(s.cache, oldest.Value.(*cacheEntry).actorURL)
	}

	return actor
}

// CachedActors returns the number of resident actor handles.
func (s *Store) CachedActors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eviction.Len()
}
