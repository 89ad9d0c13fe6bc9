package keyvalue

import (
	"context"
	"encoding/json"
	"errors"
)

// Separator joins nested namespace names into a flat namespace path.
const Separator = "!"

var (
	// ErrNotFound is returned when a key does not exist in the namespace.
	ErrNotFound = errors.New("keyvalue: not found")

	// ErrExists is returned by Insert when the key is already present.
	ErrExists = errors.New("keyvalue: key already exists")
)

// Store is the durable key-value engine boundary. Keys live inside a
// namespace, values are JSON-encoded, and List returns values in
// insertion order. Single-key operations are atomic.
type Store interface {
	// Get decodes the value stored under key into v.
	Get(ctx context.Context, key string, v any) error

	// Put stores v under key, overwriting any existing value.
	Put(ctx context.Context, key string, v any) error

	// Insert stores v under key only if the key is absent. Returns
	// ErrExists otherwise, leaving the stored value untouched.
	Insert(ctx context.Context, key string, v any) error

	// Delete removes key. Returns ErrNotFound if it was absent.
	Delete(ctx context.Context, key string) error

	// List returns all values in the namespace in insertion order.
	List(ctx context.Context) ([]json.RawMessage, error)

	// Keys returns all keys in the namespace in insertion order.
	Keys(ctx context.Context) ([]string, error)

	// Sublevel returns a store scoped to a child namespace.
	Sublevel(name string) Store
}
