package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/modpub/modpub/internal/activitypub"
	"github.com/modpub/modpub/internal/auth"
	"github.com/modpub/modpub/internal/config"
	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/models"
	"github.com/modpub/modpub/internal/store"
)

// AuthHandler handles local account registration and login.
type AuthHandler struct {
	store    *store.Store
	sessions *auth.SessionManager
	config   *config.Config
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(st *store.Store, sessions *auth.SessionManager, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: st, sessions: sessions, config: cfg, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// Register creates a local user plus its federated actor identity:
// a fresh keypair, the actorUrl handle and the publicKeyId the key is
// published under. One identity, one keypair; duplicate emails fail.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		http.Error(w, "email, password and username are required", http.StatusBadRequest)
		return
	}

	exists, err := h.store.Users.Exists(ctx, req.Email)
	if err != nil {
		h.logger.Error("failed to check user existence", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "user already exists", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	keypair, err := activitypub.GenerateKeypair()
	if err != nil {
		h.logger.Error("failed to generate keypair", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	actorURL := fmt.Sprintf("%s@%s", req.Username, h.config.Server.Domain)
	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		ActorURL:     actorURL,
		CreatedAt:    time.Now(),
	}

	if err := h.store.Users.Add(ctx, user); err != nil {
		if errors.Is(err, keyvalue.ErrExists) {
			http.Error(w, "user already exists", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to store user", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	info := models.ActorInfo{
		ActorURL:    actorURL,
		Keypair:     keypair,
		PublicKeyID: fmt.Sprintf("%s/users/%s#main-key", h.config.Server.BaseURL, req.Username),
	}
	if err := h.store.ForActor(actorURL).SetInfo(ctx, info); err != nil {
		h.logger.Error("failed to store actor info", zap.String("actor", actorURL), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("registered actor", zap.String("actor", actorURL))
	w.Write([]byte("user added"))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.store.Users.Get(ctx, req.Email)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.CreateSession(ctx, user.Email, user.ActorURL)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": session.Token})
}
