package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modpub/modpub/internal/keyvalue"
)

// FullWildcard is the trust-list entry matching every actor on every
// domain, used for blanket policies such as block-all or allow-all.
const FullWildcard = "@*@*"

// AccountListStore is one trust list (block, allow or admin): a set of
// actor identifiers and domain wildcards backed by a single namespace.
type AccountListStore struct {
	kv keyvalue.Store
}

// NewAccountListStore returns a trust list backed by the namespace.
func NewAccountListStore(kv keyvalue.Store) *AccountListStore {
	return &AccountListStore{kv: kv}
}

// normalizeEntry canonicalizes identifiers to the leading-@ form used
// as storage keys, so "user@host" and "@user@host" are the same entry.
func normalizeEntry(entry string) string {
	if !strings.HasPrefix(entry, "@") {
		return "@" + entry
	}
	return entry
}

// entryDomain extracts the domain part of a normalized entry.
func entryDomain(entry string) string {
	i := strings.LastIndex(entry, "@")
	if i < 0 || i == len(entry)-1 {
		return ""
	}
	return entry[i+1:]
}

// Add inserts an entry. Adding an existing entry is a no-op and never
// creates a duplicate storage key.
func (s *AccountListStore) Add(ctx context.Context, entry string) error {
	key := normalizeEntry(entry)
	if err := s.kv.Put(ctx, key, key); err != nil {
		return fmt.Errorf("failed to add list entry %q: %w", entry, err)
	}
	return nil
}

// Remove deletes an entry. Removing a non-member is a no-op.
func (s *AccountListStore) Remove(ctx context.Context, entry string) error {
	err := s.kv.Delete(ctx, normalizeEntry(entry))
	if err != nil && !errors.Is(err, keyvalue.ErrNotFound) {
		return fmt.Errorf("failed to remove list entry %q: %w", entry, err)
	}
	return nil
}

// Contains reports whether the actor identifier matches the list:
// exact entry first, then a domain wildcard for the actor's host, then
// the full wildcard. Any match short-circuits to true.
func (s *AccountListStore) Contains(ctx context.Context, actor string) (bool, error) {
	key := normalizeEntry(actor)

	candidates := []string{key}
	if domain := entryDomain(key); domain != "" {
		candidates = append(candidates, "@*@"+domain)
	}
	candidates = append(candidates, FullWildcard)

	for _, candidate := range candidates {
		var stored string
		err := s.kv.Get(ctx, candidate, &stored)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, keyvalue.ErrNotFound) {
			return false, fmt.Errorf("failed to check list entry %q: %w", actor, err)
		}
	}
	return false, nil
}

// List returns all entries. Order is insertion order but callers must
// not rely on anything beyond set semantics.
func (s *AccountListStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return keys, nil
}
