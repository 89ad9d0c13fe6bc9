package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/modpub/modpub/internal/config"
	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/store"
)

func newAuthTestEnv(t *testing.T) (*store.Store, *AuthHandler) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.Domain = testDomain
	cfg.Server.BaseURL = "https://" + testDomain

	st := store.New(keyvalue.NewMemory(), 16)
	return st, NewAuthHandler(st, nil, cfg, zap.NewNop())
}

func TestRegisterCreatesUserAndActor(t *testing.T) {
	ctx := context.Background()
	st, h := newAuthTestEnv(t)

	body := []byte(`{"email":"alice@mail.example","password":"hunter22","username":"alice"}`)
	r := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	user, err := st.Users.Get(ctx, "alice@mail.example")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.ActorURL)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))

	info, err := st.ForActor("alice@example.com").GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/users/alice#main-key", info.PublicKeyID)
	assert.NotEmpty(t, info.Keypair.PrivateKeyPEM)
	assert.NotEmpty(t, info.Keypair.PublicKeyPEM)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, h := newAuthTestEnv(t)

	body := `{"email":"alice@mail.example","password":"hunter22","username":"alice"}`
	r := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	h.Register(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte(body)))
	w = httptest.NewRecorder()
	h.Register(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	_, h := newAuthTestEnv(t)

	cases := []string{
		`{"password":"hunter22","username":"alice"}`,
		`{"email":"alice@mail.example","username":"alice"}`,
		`{"email":"alice@mail.example","password":"hunter22"}`,
		`not json`,
	}
	for _, body := range cases {
		r := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()
		h.Register(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, h := newAuthTestEnv(t)

	body := `{"email":"alice@mail.example","password":"hunter22","username":"alice"}`
	r := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	h.Register(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	// Unknown account.
	r = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{"email":"nobody@mail.example","password":"x"}`)))
	w = httptest.NewRecorder()
	h.Login(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong password.
	r = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{"email":"alice@mail.example","password":"wrong"}`)))
	w = httptest.NewRecorder()
	h.Login(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
