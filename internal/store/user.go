package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/models"
)

// UserStore holds local credential records, keyed by email. It backs
// registration and login only; federation never touches it.
type UserStore struct {
	kv keyvalue.Store
}

// NewUserStore returns a user store backed by the namespace.
func NewUserStore(kv keyvalue.Store) *UserStore {
	return &UserStore{kv: kv}
}

// Add stores a new user. Returns keyvalue.ErrExists when the email is
// already registered.
func (s *UserStore) Add(ctx context.Context, user models.User) error {
	return s.kv.Insert(ctx, user.Email, user)
}

// Get returns the user registered under email, or keyvalue.ErrNotFound.
func (s *UserStore) Get(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := s.kv.Get(ctx, email, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Exists reports whether an email is already registered.
func (s *UserStore) Exists(ctx context.Context, email string) (bool, error) {
	var user models.User
	err := s.kv.Get(ctx, email, &user)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, keyvalue.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up user %q: %w", email, err)
}
