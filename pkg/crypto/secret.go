package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var randomRead = rand.Read

// SecretBox encrypts small secrets at rest (subscription session credentials).
type SecretBox struct {
	key []byte
}

// NewSecretBox creates a SecretBox from a 32-byte hex-encoded key.
func NewSecretBox(keyHex string) (*SecretBox, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, errors.New("invalid encryption key hex")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("encryption key must be 32 bytes (64 hex chars)")
	}
	return &SecretBox{key: key}, nil
}

// Seal encrypts plaintext and returns a hex string of nonce||ciphertext.
func (b *SecretBox) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aead.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(ciphertext), nil
}

// Open decrypts a hex string produced by Seal.
func (b *SecretBox) Open(sealedHex string) ([]byte, error) {
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

// GenerateRandomToken generates a random token of specified byte length
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := randomRead(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateWebhookSecret generates a 32-byte shared secret for webhook signing
func GenerateWebhookSecret() (string, error) {
	return GenerateRandomToken(32)
}
