package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/modpub/modpub/internal/activitypub"
	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/models"
	"github.com/modpub/modpub/internal/store"
)

// InboxHandler serves an actor's moderation queue: listing, federation
// delivery, approval and rejection.
type InboxHandler struct {
	store  *store.Store
	system *activitypub.System
	logger *zap.Logger
}

// NewInboxHandler creates a new inbox handler.
func NewInboxHandler(st *store.Store, system *activitypub.System, logger *zap.Logger) *InboxHandler {
	return &InboxHandler{store: st, system: system, logger: logger}
}

// List returns the full moderation queue as an OrderedCollection.
// Follows, boosts and replies are all mixed in here; only the actor
// itself or an admin may read it.
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := chi.URLParam(r, "actor")

	if !h.system.HasPermissionActorRequest(ctx, actor, r, nil) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	items, err := h.store.ForActor(actor).Inbox.List(ctx)
	if err != nil {
		h.logger.Error("failed to list inbox", zap.String("actor", actor), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeActivityJSON(w, http.StatusOK, models.OrderedCollection{
		Context:      activityStreamsContext,
		ID:           r.URL.String(),
		Type:         "OrderedCollection",
		TotalItems:   len(items),
		OrderedItems: items,
	})
}

// Receive is what remote instances POST to in order to deliver
// follows, replies and the rest. The request must be signed, and the
// activity's claimed actor must be the signer.
func (h *InboxHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := chi.URLParam(r, "actor")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	signer, err := h.system.VerifySignedRequest(ctx, r, body)
	if err != nil {
		h.logger.Info("rejected unsigned or invalid delivery",
			zap.String("actor", actor), zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var activity models.Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if activity.Actor != signer {
		h.logger.Warn("activity actor mismatch",
			zap.String("claimed", activity.Actor),
			zap.String("signer", signer))
		http.Error(w, activitypub.ErrConsistency.Error(), http.StatusBadRequest)
		return
	}

	if err := h.system.IngestActivity(ctx, actor, activity); err != nil {
		if errors.Is(err, keyvalue.ErrExists) {
			http.Error(w, "Duplicate activity", http.StatusConflict)
			return
		}
		h.logger.Error("failed to ingest activity",
			zap.String("actor", actor), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// Approve accepts an item from the moderation queue. The id is the
// URL-encoded activity id.
func (h *InboxHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := chi.URLParam(r, "actor")

	if !h.system.HasPermissionActorRequest(ctx, actor, r, nil) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid activity id", http.StatusBadRequest)
		return
	}

	if err := h.system.ApproveActivity(ctx, actor, id); err != nil {
		switch {
		case errors.Is(err, keyvalue.ErrNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		case errors.Is(err, store.ErrAlreadyResolved):
			http.Error(w, "Already resolved", http.StatusConflict)
		default:
			h.logger.Error("failed to approve activity",
				zap.String("actor", actor), zap.String("id", id), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Write([]byte("ok"))
}

// Reject denies an item from the moderation queue, removing it.
func (h *InboxHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := chi.URLParam(r, "actor")

	if !h.system.HasPermissionActorRequest(ctx, actor, r, nil) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid activity id", http.StatusBadRequest)
		return
	}

	if err := h.system.RejectActivity(ctx, actor, id); err != nil {
		if errors.Is(err, keyvalue.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to reject activity",
			zap.String("actor", actor), zap.String("id", id), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Write([]byte("ok"))
}
