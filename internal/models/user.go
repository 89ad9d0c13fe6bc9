package models

import "time"

// User is a local credential record, keyed by email. The password is
// stored as a bcrypt hash; the plaintext is never persisted.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	ActorURL     string    `json:"actor_url"`
	CreatedAt    time.Time `json:"created_at"`
}
