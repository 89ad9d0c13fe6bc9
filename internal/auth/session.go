package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidToken is returned for unknown or expired session tokens.
var ErrInvalidToken = errors.New("invalid session token")

const sessionPrefix = "session:"

// SessionManager issues and validates login session tokens backed by
// Redis with a TTL; expired sessions simply disappear.
type SessionManager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSessionManager creates a SessionManager with the given lifetime.
func NewSessionManager(redisClient *redis.Client, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{redis: redisClient, ttl: ttl}
}

// SessionData is the cached session payload.
type SessionData struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ActorURL  string    `json:"actor_url"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSession issues a fresh token for a logged-in user.
func (sm *SessionManager) CreateSession(ctx context.Context, email, actorURL string) (*SessionData, error) {
	session := &SessionData{
		Token:     uuid.New().String(),
		Email:     email,
		ActorURL:  actorURL,
		CreatedAt: time.Now(),
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := sm.redis.Set(ctx, sessionPrefix+session.Token, raw, sm.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// GetSession resolves a token back to its session data.
func (sm *SessionManager) GetSession(ctx context.Context, token string) (*SessionData, error) {
	raw, err := sm.redis.Get(ctx, sessionPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// DeleteSession invalidates a token; deleting an unknown token is a
// no-op.
func (sm *SessionManager) DeleteSession(ctx context.Context, token string) error {
	return sm.redis.Del(ctx, sessionPrefix+token).Err()
}
