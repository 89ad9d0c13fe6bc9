package activitypub

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

// httpSignature is the parsed form of a Signature header.
type httpSignature struct {
	KeyID     string
	Algorithm string
	Headers   []string
	Signature string
}

// SignRequest signs an HTTP request with the actor's private key. The
// signature covers the request target, host and date, plus the SHA-256
// body digest when a body is present.
func SignRequest(r *http.Request, body []byte, privateKeyPEM, keyID string) error {
	r.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	headers := []string{"(request-target)", "host", "date"}
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		r.Header.Set("Digest", "SHA-256="+base64.StdEncoding.EncodeToString(sum[:]))
		headers = append(headers, "digest")
	}

	signature, err := signString(signingString(r, headers), privateKeyPEM)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	r.Header.Set("Signature", fmt.Sprintf(
		`keyId="%s",algorithm="rsa-sha256",headers="%s",signature="%s"`,
		keyID, strings.Join(headers, " "), signature,
	))
	return nil
}

// SignatureKeyID extracts the keyId from a request's Signature header.
func SignatureKeyID(r *http.Request) (string, error) {
	header := r.Header.Get("Signature")
	if header == "" {
		return "", fmt.Errorf("missing Signature header")
	}
	sig, err := parseSignatureHeader(header)
	if err != nil {
		return "", err
	}
	return sig.KeyID, nil
}

// VerifyRequest checks that the request carries a valid signature by
// the given public key over the canonical components, that the signed
// Date is within maxSkew of now, and that the Digest header matches
// the body when one is present.
func VerifyRequest(r *http.Request, body []byte, publicKeyPEM string, maxSkew time.Duration) error {
	sigHeader := r.Header.Get("Signature")
	if sigHeader == "" {
		return fmt.Errorf("missing Signature header")
	}

	sig, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return fmt.Errorf("failed to parse signature: %w", err)
	}

	if !slices.Contains(sig.Headers, "(request-target)") || !slices.Contains(sig.Headers, "date") {
		return fmt.Errorf("signature does not cover request target and date")
	}

	date, err := http.ParseTime(r.Header.Get("Date"))
	if err != nil {
		return fmt.Errorf("missing or malformed Date header: %w", err)
	}
	if skew := time.Since(date); skew > maxSkew || skew < -maxSkew {
		return fmt.Errorf("request date outside acceptable window: %s", date)
	}

	if len(body) > 0 {
		if !slices.Contains(sig.Headers, "digest") {
			return fmt.Errorf("signature does not cover body digest")
		}
		sum := sha256.Sum256(body)
		want := "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
		if got := r.Header.Get("Digest"); got != want {
			return fmt.Errorf("digest mismatch")
		}
	}

	return verifyString(signingString(r, sig.Headers), sig.Signature, publicKeyPEM)
}

// signingString builds the canonical string covered by the signature.
func signingString(r *http.Request, headers []string) string {
	parts := make([]string, 0, len(headers))
	for _, header := range headers {
		var value string
		switch header {
		case "(request-target)":
			value = fmt.Sprintf("%s %s", strings.ToLower(r.Method), r.URL.Path)
		case "host":
			value = r.Host
			if value == "" {
				value = r.URL.Host
			}
		default:
			value = r.Header.Get(http.CanonicalHeaderKey(header))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", header, value))
	}
	return strings.Join(parts, "\n")
}

// parseSignatureHeader splits a Signature header into its components.
func parseSignatureHeader(header string) (*httpSignature, error) {
	sig := &httpSignature{}
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		value := strings.Trim(kv[1], `"`)
		switch kv[0] {
		case "keyId":
			sig.KeyID = value
		case "algorithm":
			sig.Algorithm = value
		case "headers":
			sig.Headers = strings.Split(value, " ")
		case "signature":
			sig.Signature = value
		}
	}

	if sig.KeyID == "" || sig.Signature == "" {
		return nil, fmt.Errorf("invalid signature header: missing keyId or signature")
	}
	return sig, nil
}

func signString(data string, privateKeyPEM string) (string, error) {
	privateKey, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}
	hashed := sha256.Sum256([]byte(data))
	signature, err := rsaSign(privateKey, hashed[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

func verifyString(data string, signature string, publicKeyPEM string) error {
	publicKey, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return err
	}
	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}
	hashed := sha256.Sum256([]byte(data))
	if err := rsaVerify(publicKey, hashed[:], sigBytes); err != nil {
		return fmt.Errorf("signature does not verify: %w", err)
	}
	return nil
}
