package activitypub

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpub/modpub/internal/models"
)

func signedTestRequest(t *testing.T, method, target string, body []byte, keypair models.Keypair, keyID string) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, target, reader)
	require.NoError(t, SignRequest(r, body, keypair.PrivateKeyPEM, keyID))
	return r
}

func TestSignAndVerifyRequest(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)

	body := []byte(`{"type":"Create"}`)
	r := signedTestRequest(t, http.MethodPost, "http://example.com/alice@example.com/inbox", body, keypair, "https://example.com/users/alice#main-key")

	require.NoError(t, VerifyRequest(r, body, keypair.PublicKeyPEM, 5*time.Minute))
}

func TestVerifyRequestNoBody(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)

	r := signedTestRequest(t, http.MethodGet, "http://example.com/alice@example.com/inbox", nil, keypair, "key")
	require.NoError(t, VerifyRequest(r, nil, keypair.PublicKeyPEM, 5*time.Minute))
}

func TestVerifyRequestTamperedBody(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)

	body := []byte(`{"type":"Create"}`)
	r := signedTestRequest(t, http.MethodPost, "http://example.com/alice@example.com/inbox", body, keypair, "key")

	err = VerifyRequest(r, []byte(`{"type":"Delete"}`), keypair.PublicKeyPEM, 5*time.Minute)
	assert.ErrorContains(t, err, "digest mismatch")
}

func TestVerifyRequestWrongKey(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)
	other, err := GenerateKeypair()
	require.NoError(t, err)

	body := []byte(`{"type":"Create"}`)
	r := signedTestRequest(t, http.MethodPost, "http://example.com/alice@example.com/inbox", body, keypair, "key")

	assert.Error(t, VerifyRequest(r, body, other.PublicKeyPEM, 5*time.Minute))
}

func TestVerifyRequestStaleDate(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)

	r := signedTestRequest(t, http.MethodGet, "http://example.com/alice@example.com/inbox", nil, keypair, "key")

	time.Sleep(5 * time.Millisecond)
	err = VerifyRequest(r, nil, keypair.PublicKeyPEM, time.Millisecond)
	assert.ErrorContains(t, err, "outside acceptable window")
}

func TestVerifyRequestMissingSignature(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://example.com/alice@example.com/inbox", nil)
	assert.Error(t, VerifyRequest(r, nil, keypair.PublicKeyPEM, 5*time.Minute))
}

func TestVerifyRequestTamperedDate(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)

	r := signedTestRequest(t, http.MethodGet, "http://example.com/alice@example.com/inbox", nil, keypair, "key")

	// Moving the date invalidates the signature over it, even though
	// the new value is inside the freshness window.
	r.Header.Set("Date", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
	assert.Error(t, VerifyRequest(r, nil, keypair.PublicKeyPEM, 5*time.Minute))
}

func TestSignatureKeyID(t *testing.T) {
	keypair, err := GenerateKeypair()
	require.NoError(t, err)

	r := signedTestRequest(t, http.MethodGet, "http://example.com/x", nil, keypair, "https://example.com/users/alice#main-key")

	keyID, err := SignatureKeyID(r)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/users/alice#main-key", keyID)

	r = httptest.NewRequest(http.MethodGet, "http://example.com/x", nil)
	_, err = SignatureKeyID(r)
	assert.Error(t, err)
}
