package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/modpub/modpub/internal/config"
	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/models"
	"github.com/modpub/modpub/internal/store"
)

// DiscoveryHandler serves webfinger lookups and actor documents for
// locally hosted identities.
type DiscoveryHandler struct {
	store  *store.Store
	config *config.Config
	logger *zap.Logger
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(st *store.Store, cfg *config.Config, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{store: st, config: cfg, logger: logger}
}

// WebFinger handles /.well-known/webfinger requests.
func (h *DiscoveryHandler) WebFinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		http.Error(w, "Missing resource parameter", http.StatusBadRequest)
		return
	}

	if !strings.HasPrefix(resource, "acct:") {
		http.Error(w, "Invalid resource format", http.StatusBadRequest)
		return
	}

	acct := strings.TrimPrefix(resource, "acct:")
	parts := strings.Split(acct, "@")
	if len(parts) != 2 {
		http.Error(w, "Invalid account format", http.StatusBadRequest)
		return
	}
	username, domain := parts[0], parts[1]

	if domain != h.config.Server.Domain {
		http.Error(w, "Unknown domain", http.StatusNotFound)
		return
	}

	if _, err := h.store.ForActor(acct).GetInfo(r.Context()); err != nil {
		if errors.Is(err, keyvalue.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load actor info", zap.String("actor", acct), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	profileURL := fmt.Sprintf("%s/users/%s", h.config.Server.BaseURL, username)
	response := models.WebfingerResponse{
		Subject: resource,
		Aliases: []string{profileURL},
		Links: []models.WebfingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: profileURL,
			},
			{
				Rel:  "http://webfinger.net/rel/profile-page",
				Type: "text/html",
				Href: fmt.Sprintf("%s/@%s", h.config.Server.BaseURL, username),
			},
		},
	}

	w.Header().Set("Content-Type", "application/jrd+json; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(response)
}

// Actor serves the ActivityPub actor document at /users/{username};
// this is the document a publicKeyId dereferences to.
func (h *DiscoveryHandler) Actor(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		http.Error(w, "Missing username", http.StatusBadRequest)
		return
	}

	acct := username + "@" + h.config.Server.Domain
	info, err := h.store.ForActor(acct).GetInfo(r.Context())
	if err != nil {
		if errors.Is(err, keyvalue.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load actor info", zap.String("actor", acct), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	actorID := fmt.Sprintf("%s/users/%s", h.config.Server.BaseURL, username)
	doc := models.Actor{
		Context: []string{
			"https://www.w3.org/ns/activitystreams",
			"https://w3id.org/security/v1",
		},
		ID:                actorID,
		Type:              "Person",
		PreferredUsername: username,
		Inbox:             fmt.Sprintf("%s/%s/inbox", h.config.Server.BaseURL, acct),
		URL:               fmt.Sprintf("%s/@%s", h.config.Server.BaseURL, username),
		PublicKey: models.ActorPublicKey{
			ID:           info.PublicKeyID,
			Owner:        actorID,
			PublicKeyPem: info.Keypair.PublicKeyPEM,
		},
	}

	writeActivityJSON(w, http.StatusOK, doc)
}
