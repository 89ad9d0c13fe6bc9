package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/modpub/modpub/internal/activitypub"
	"github.com/modpub/modpub/internal/store"
)

// ListsHandler administers the trust lists. Block and allow lists are
// managed through an actor's moderation surface (owner or admin);
// the admin list itself is admin-only.
type ListsHandler struct {
	store  *store.Store
	system *activitypub.System
	logger *zap.Logger
}

// NewListsHandler creates a new trust-list handler.
func NewListsHandler(st *store.Store, system *activitypub.System, logger *zap.Logger) *ListsHandler {
	return &ListsHandler{store: st, system: system, logger: logger}
}

// namedList resolves the list a route addresses.
func (h *ListsHandler) namedList(name string) *store.AccountListStore {
	switch name {
	case "blocklist":
		return h.store.Blocklist
	case "allowlist":
		return h.store.Allowlist
	default:
		return nil
	}
}

// Get returns the list entries as a newline-delimited string.
func (h *ListsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	list := h.namedList(chi.URLParam(r, "list"))
	if list == nil {
		http.Error(w, "Unknown list", http.StatusNotFound)
		return
	}

	if !h.system.HasPermissionActorRequest(r.Context(), actor, r, nil) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	h.respondEntries(w, r, list)
}

// Add inserts the newline-delimited entries from the request body.
func (h *ListsHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	list := h.namedList(chi.URLParam(r, "list"))
	if list == nil {
		http.Error(w, "Unknown list", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !h.system.HasPermissionActorRequest(r.Context(), actor, r, body) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	for _, entry := range splitEntries(body) {
		if err := list.Add(r.Context(), entry); err != nil {
			h.logger.Error("failed to add list entry", zap.String("entry", entry), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	w.Write([]byte("ok"))
}

// Remove deletes the newline-delimited entries from the request body.
func (h *ListsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	list := h.namedList(chi.URLParam(r, "list"))
	if list == nil {
		http.Error(w, "Unknown list", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !h.system.HasPermissionActorRequest(r.Context(), actor, r, body) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	for _, entry := range splitEntries(body) {
		if err := list.Remove(r.Context(), entry); err != nil {
			h.logger.Error("failed to remove list entry", zap.String("entry", entry), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	w.Write([]byte("ok"))
}

// GetAdmins returns the global admin list, newline delimited.
func (h *ListsHandler) GetAdmins(w http.ResponseWriter, r *http.Request) {
	if !h.system.IsAdminRequest(r.Context(), r, nil) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}
	h.respondEntries(w, r, h.store.Admins)
}

// AddAdmins inserts admin entries; admin-only.
func (h *ListsHandler) AddAdmins(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !h.system.IsAdminRequest(r.Context(), r, body) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	for _, entry := range splitEntries(body) {
		if err := h.store.Admins.Add(r.Context(), entry); err != nil {
			h.logger.Error("failed to add admin", zap.String("entry", entry), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	w.Write([]byte("ok"))
}

// RemoveAdmins deletes admin entries; admin-only.
func (h *ListsHandler) RemoveAdmins(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !h.system.IsAdminRequest(r.Context(), r, body) {
		http.Error(w, "Not Allowed", http.StatusConflict)
		return
	}

	for _, entry := range splitEntries(body) {
		if err := h.store.Admins.Remove(r.Context(), entry); err != nil {
			h.logger.Error("failed to remove admin", zap.String("entry", entry), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	w.Write([]byte("ok"))
}

func (h *ListsHandler) respondEntries(w http.ResponseWriter, r *http.Request, list *store.AccountListStore) {
	entries, err := list.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list entries", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(strings.Join(entries, "\n")))
}

func splitEntries(body []byte) []string {
	var entries []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries
}
