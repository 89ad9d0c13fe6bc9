package activitypub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/models"
	"github.com/modpub/modpub/internal/store"
)

const keyCachePrefix = "pubkey:"

// Options configures a System.
type Options struct {
	// Domain is the host this server federates as; actors whose keyId
	// lives on this domain resolve against local storage.
	Domain string

	// MaxClockSkew bounds how stale a signed Date header may be.
	MaxClockSkew time.Duration

	// KeyCacheTTL is how long fetched remote public keys stay cached.
	KeyCacheTTL time.Duration

	// UserAgent is sent on outbound actor fetches.
	UserAgent string
}

// System is the trust and ingestion engine: it verifies request
// signatures, authorizes moderation actions and runs activities
// through the allow/block moderation pipeline.
type System struct {
	store  *store.Store
	cache  *redis.Client
	client *http.Client
	logger *zap.Logger
	opts   Options
}

// NewSystem wires the engine to its storage, remote-key cache and
// logger. cache may be nil; key lookups then always hit the network.
func NewSystem(st *store.Store, cache *redis.Client, logger *zap.Logger, opts Options) *System {
	if opts.MaxClockSkew <= 0 {
		opts.MaxClockSkew = 5 * time.Minute
	}
	if opts.KeyCacheTTL <= 0 {
		opts.KeyCacheTTL = time.Hour
	}
	return &System{
		store:  st,
		cache:  cache,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		opts:   opts,
	}
}

// cachedKey is the redis representation of a resolved remote key.
type cachedKey struct {
	Actor        string `json:"actor"`
	PublicKeyPEM string `json:"publicKeyPem"`
}

// VerifySignedRequest proves that the request was produced by the
// holder of the signing actor's private key and returns that actor's
// identifier in user@host form. All failures wrap ErrAuthentication.
// Callers must still compare the result against the activity's claimed
// actor; a mismatch there is a consistency failure, not an
// authentication one.
func (s *System) VerifySignedRequest(ctx context.Context, r *http.Request, body []byte) (string, error) {
	keyID, err := SignatureKeyID(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	actor, publicKeyPEM, err := s.resolvePublicKey(ctx, keyID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if err := VerifyRequest(r, body, publicKeyPEM, s.opts.MaxClockSkew); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return actor, nil
}

// HasPermissionActorRequest authorizes a moderation action against an
// actor's inbox: the request must be signed by the actor itself or by
// a member of the admin list. Returns false for everything else,
// never an error.
func (s *System) HasPermissionActorRequest(ctx context.Context, actor string, r *http.Request, body []byte) bool {
	signer, err := s.VerifySignedRequest(ctx, r, body)
	if err != nil {
		s.logger.Debug("permission check failed signature verification",
			zap.String("actor", actor),
			zap.Error(err))
		return false
	}
	if signer == actor {
		return true
	}

	isAdmin, err := s.store.Admins.Contains(ctx, signer)
	if err != nil {
		s.logger.Warn("admin list lookup failed",
			zap.String("signer", signer),
			zap.Error(err))
		return false
	}
	return isAdmin
}

// IsAdminRequest reports whether the request is validly signed by a
// member of the admin list.
func (s *System) IsAdminRequest(ctx context.Context, r *http.Request, body []byte) bool {
	signer, err := s.VerifySignedRequest(ctx, r, body)
	if err != nil {
		return false
	}
	isAdmin, err := s.store.Admins.Contains(ctx, signer)
	return err == nil && isAdmin
}

// IngestActivity admits a verified activity into an actor's moderation
// queue. Blocked origins are discarded without being stored; storing
// rejected entries for audit would let abusive senders grow storage
// without bound. Allowed origins are admitted as approved with their
// side effects applied; everything else waits as pending. A duplicate
// id fails with keyvalue.ErrExists and never regresses stored state.
func (s *System) IngestActivity(ctx context.Context, actorURL string, activity models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}

	blocked, err := s.store.Blocklist.Contains(ctx, activity.Actor)
	if err != nil {
		return fmt.Errorf("failed to check blocklist: %w", err)
	}
	if blocked {
		s.logger.Info("discarded activity from blocked origin",
			zap.String("inbox", actorURL),
			zap.String("origin", activity.Actor),
			zap.String("id", activity.ID))
		return nil
	}

	status := models.StatusPending
	allowed, err := s.store.Allowlist.Contains(ctx, activity.Actor)
	if err != nil {
		return fmt.Errorf("failed to check allowlist: %w", err)
	}
	if allowed {
		status = models.StatusApproved
	}

	if err := s.store.ForActor(actorURL).Inbox.Add(ctx, activity, status); err != nil {
		if errors.Is(err, keyvalue.ErrExists) {
			return fmt.Errorf("activity %s already ingested: %w", activity.ID, err)
		}
		return fmt.Errorf("failed to store activity %s: %w", activity.ID, err)
	}

	s.logger.Info("ingested activity",
		zap.String("inbox", actorURL),
		zap.String("origin", activity.Actor),
		zap.String("id", activity.ID),
		zap.String("status", string(status)))
	return nil
}

// ApproveActivity transitions a pending activity to approved, copying
// reply-shaped notes into the actor's replies collection.
func (s *System) ApproveActivity(ctx context.Context, actorURL, id string) error {
	if err := s.store.ForActor(actorURL).Inbox.Approve(ctx, id); err != nil {
		return err
	}
	s.logger.Info("approved activity",
		zap.String("inbox", actorURL),
		zap.String("id", id))
	return nil
}

// RejectActivity deletes a stored activity; a rejected activity that
// is absent afterwards is indistinguishable from one never admitted.
func (s *System) RejectActivity(ctx context.Context, actorURL, id string) error {
	if err := s.store.ForActor(actorURL).Inbox.Reject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("rejected activity",
		zap.String("inbox", actorURL),
		zap.String("id", id))
	return nil
}

// resolvePublicKey maps a signature keyId to the signer's identifier
// and public key. Local actors resolve against their own store; remote
// keys are served from the redis cache or fetched from the key's host.
func (s *System) resolvePublicKey(ctx context.Context, keyID string) (actor, publicKeyPEM string, err error) {
	keyURL, err := url.Parse(keyID)
	if err != nil || keyURL.Host == "" {
		return "", "", fmt.Errorf("malformed keyId %q", keyID)
	}

	if keyURL.Host == s.opts.Domain {
		return s.resolveLocalKey(ctx, keyURL)
	}
	return s.resolveRemoteKey(ctx, keyID, keyURL)
}

func (s *System) resolveLocalKey(ctx context.Context, keyURL *url.URL) (string, string, error) {
	username := strings.TrimPrefix(keyURL.Path, "/users/")
	if username == "" || strings.Contains(username, "/") {
		return "", "", fmt.Errorf("keyId %q does not name a local actor", keyURL)
	}

	actor := username + "@" + s.opts.Domain
	info, err := s.store.ForActor(actor).GetInfo(ctx)
	if err != nil {
		if errors.Is(err, keyvalue.ErrNotFound) {
			return "", "", fmt.Errorf("unknown local actor %s", actor)
		}
		return "", "", fmt.Errorf("failed to load actor %s: %w", actor, err)
	}
	return actor, info.Keypair.PublicKeyPEM, nil
}

func (s *System) resolveRemoteKey(ctx context.Context, keyID string, keyURL *url.URL) (string, string, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, keyCachePrefix+keyID).Result()
		if err == nil {
			var ck cachedKey
			if json.Unmarshal([]byte(raw), &ck) == nil {
				return ck.Actor, ck.PublicKeyPEM, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("key cache read failed", zap.Error(err))
		}
	}

	docURL := *keyURL
	docURL.Fragment = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL.String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to build key fetch request: %w", err)
	}
	req.Header.Set("Accept", "application/activity+json, application/ld+json")
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch key %q: %w", keyID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("key fetch for %q returned status %d", keyID, resp.StatusCode)
	}

	var doc struct {
		PreferredUsername string                `json:"preferredUsername"`
		PublicKey         models.ActorPublicKey `json:"publicKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", "", fmt.Errorf("failed to decode actor document for %q: %w", keyID, err)
	}
	if doc.PreferredUsername == "" || doc.PublicKey.PublicKeyPem == "" {
		return "", "", fmt.Errorf("actor document for %q has no usable key", keyID)
	}

	ck := cachedKey{
		Actor:        doc.PreferredUsername + "@" + keyURL.Host,
		PublicKeyPEM: doc.PublicKey.PublicKeyPem,
	}
	if s.cache != nil {
		raw, _ := json.Marshal(ck)
		if err := s.cache.Set(ctx, keyCachePrefix+keyID, raw, s.opts.KeyCacheTTL).Err(); err != nil {
			s.logger.Warn("key cache write failed", zap.Error(err))
		}
	}
	return ck.Actor, ck.PublicKeyPEM, nil
}
