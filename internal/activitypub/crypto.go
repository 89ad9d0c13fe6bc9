package activitypub

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/modpub/modpub/internal/models"
)

// GenerateKeypair creates a fresh 2048-bit RSA keypair for a newly
// registered actor, PEM-encoded for storage.
func GenerateKeypair() (models.Keypair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return models.Keypair{}, fmt.Errorf("failed to generate private key: %w", err)
	}

	privateBlock := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}

	publicBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return models.Keypair{}, fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicBytes,
	}

	return models.Keypair{
		PrivateKeyPEM: string(pem.EncodeToMemory(privateBlock)),
		PublicKeyPEM:  string(pem.EncodeToMemory(publicBlock)),
	}, nil
}

// parsePrivateKey parses a PEM-encoded RSA private key in PKCS1 or
// PKCS8 form.
func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		key, ok = keyAny.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA private key")
		}
	}
	return key, nil
}

// parsePublicKey parses a PEM-encoded RSA public key in PKIX or PKCS1
// form.
func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		return key, nil
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaPub, nil
}

func rsaSign(privateKey *rsa.PrivateKey, hashed []byte) ([]byte, error) {
	return rsa.SignPKCS1v15(rand.Reader, privateKey, crypto.SHA256, hashed)
}

func rsaVerify(publicKey *rsa.PublicKey, hashed []byte, signature []byte) error {
	return rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, hashed, signature)
}
