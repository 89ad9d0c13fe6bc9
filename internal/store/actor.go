package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/models"
)

// ErrAlreadyResolved is returned when approving an activity that has
// already left the pending state.
var ErrAlreadyResolved = errors.New("activity already resolved")

const infoKey = "info"

// ActorStore holds all durable state for one actor identity, split
// into info, inbox and replies sub-namespaces.
type ActorStore struct {
	actorURL string
	infoKV   keyvalue.Store

	Inbox   *InboxStore
	Replies *ReplyStore
}

// NewActorStore binds an actor's store to its namespace.
func NewActorStore(actorURL string, kv keyvalue.Store) *ActorStore {
	replies := &ReplyStore{kv: kv.Sublevel("replies")}
	return &ActorStore{
		actorURL: actorURL,
		infoKV:   kv.Sublevel("info"),
		Inbox: &InboxStore{
			owner:   actorURL,
			kv:      kv.Sublevel("inbox"),
			replies: replies,
		},
		Replies: replies,
	}
}

// ActorURL returns the identity this store is bound to.
func (s *ActorStore) ActorURL() string {
	return s.actorURL
}

// SetInfo stores the actor's metadata. Called once at registration;
// the registration collaborator guards against overwriting.
func (s *ActorStore) SetInfo(ctx context.Context, info models.ActorInfo) error {
	if err := s.infoKV.Put(ctx, infoKey, info); err != nil {
		return fmt.Errorf("failed to store info for %s: %w", s.actorURL, err)
	}
	return nil
}

// GetInfo retrieves the actor's metadata. Returns keyvalue.ErrNotFound
// for identities that were never registered.
func (s *ActorStore) GetInfo(ctx context.Context) (models.ActorInfo, error) {
	var info models.ActorInfo
	if err := s.infoKV.Get(ctx, infoKey, &info); err != nil {
		return models.ActorInfo{}, err
	}
	return info, nil
}

// InboxStore is an actor's moderation queue. Mutations are serialized
// by a per-actor mutex so an approve and a reject racing on the same
// id cannot interleave.
type InboxStore struct {
	owner   string
	mu      sync.Mutex
	kv      keyvalue.Store
	replies *ReplyStore
}

// Add stores a new activity under its id with the given initial
// status. A duplicate id fails with keyvalue.ErrExists so replayed
// deliveries cannot clobber or regress the stored entry. When the
// initial status is approved the reply side effect applies as part of
// the same admission.
func (in *InboxStore) Add(ctx context.Context, activity models.Activity, status models.ModerationStatus) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	activity.Status = status
	if err := in.kv.Insert(ctx, activity.ID, activity); err != nil {
		return err
	}
	if status == models.StatusApproved {
		if err := in.threadReply(ctx, &activity); err != nil {
			// Fall back to pending rather than leave an approved
			// entry whose side effects never applied.
			in.setStatusLocked(ctx, activity.ID, models.StatusPending)
			return err
		}
	}
	return nil
}

// Get returns the stored activity or keyvalue.ErrNotFound.
func (in *InboxStore) Get(ctx context.Context, id string) (models.Activity, error) {
	var activity models.Activity
	if err := in.kv.Get(ctx, id, &activity); err != nil {
		return models.Activity{}, err
	}
	return activity, nil
}

// List returns all stored activities regardless of status, in
// insertion order. Callers filter by status as needed.
func (in *InboxStore) List(ctx context.Context) ([]models.Activity, error) {
	raws, err := in.kv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox for %s: %w", in.owner, err)
	}
	activities := make([]models.Activity, 0, len(raws))
	for _, raw := range raws {
		var activity models.Activity
		if err := json.Unmarshal(raw, &activity); err != nil {
			return nil, fmt.Errorf("failed to decode inbox entry: %w", err)
		}
		activities = append(activities, activity)
	}
	return activities, nil
}

// SetStatus transitions an existing activity's status. Fails with
// keyvalue.ErrNotFound if the activity does not exist.
func (in *InboxStore) SetStatus(ctx context.Context, id string, status models.ModerationStatus) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.setStatusLocked(ctx, id, status)
}

func (in *InboxStore) setStatusLocked(ctx context.Context, id string, status models.ModerationStatus) error {
	var activity models.Activity
	if err := in.kv.Get(ctx, id, &activity); err != nil {
		return err
	}
	activity.Status = status
	return in.kv.Put(ctx, id, activity)
}

// Approve transitions a pending activity to approved and, when it is a
// Note reply attributed to the inbox owner, copies it into the replies
// collection. The whole transition runs under the inbox lock.
func (in *InboxStore) Approve(ctx context.Context, id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	var activity models.Activity
	if err := in.kv.Get(ctx, id, &activity); err != nil {
		return err
	}
	if activity.Status != models.StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, activity.Status)
	}

	activity.Status = models.StatusApproved
	if err := in.kv.Put(ctx, id, activity); err != nil {
		return fmt.Errorf("failed to approve %s: %w", id, err)
	}
	if err := in.threadReply(ctx, &activity); err != nil {
		in.setStatusLocked(ctx, id, models.StatusPending)
		return err
	}
	return nil
}

// Reject permanently removes the activity. Fails with
// keyvalue.ErrNotFound if it does not exist.
func (in *InboxStore) Reject(ctx context.Context, id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.kv.Delete(ctx, id)
}

func (in *InboxStore) threadReply(ctx context.Context, activity *models.Activity) error {
	note, ok := activity.ReplyNote(in.owner)
	if !ok {
		return nil
	}
	if err := in.replies.Add(ctx, *note); err != nil {
		return fmt.Errorf("failed to thread reply for %s: %w", activity.ID, err)
	}
	return nil
}

// ReplyStore is an actor's publicly visible replies collection,
// append-only from the moderation pipeline's perspective.
type ReplyStore struct {
	kv keyvalue.Store
}

// Add appends a reply record keyed by the note's id.
func (r *ReplyStore) Add(ctx context.Context, note models.Note) error {
	return r.kv.Put(ctx, note.ID, note)
}

// List returns all replies in insertion order.
func (r *ReplyStore) List(ctx context.Context) ([]models.Note, error) {
	raws, err := r.kv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	notes := make([]models.Note, 0, len(raws))
	for _, raw := range raws {
		var note models.Note
		if err := json.Unmarshal(raw, &note); err != nil {
			return nil, fmt.Errorf("failed to decode reply: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, nil
}
