// Package vault encrypts and decrypts stored card numbers with AES-GCM.
// Ciphertexts are authenticated with a 128-bit tag; any tampering with the
// ciphertext or IV fails decryption. Plaintext card numbers are never
// logged at any level.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"bankcards/internal/apperrors"
)

const ivLengthBytes = 12

// EncryptedData holds a base64 ciphertext and the IV it was sealed with.
type EncryptedData struct {
	CipherText string
	IV         string
}

// Service seals and opens card numbers with a single AES key.
type Service interface {
	Encrypt(plaintext string) (EncryptedData, error)
	Decrypt(data EncryptedData) (string, error)
}

type service struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewService builds a vault from the configured key. The key must be 16,
// 24, or 32 bytes; the caller treats a failure here as fatal at startup.
// The random source is injected so tests can control nonce generation;
// pass nil to use crypto/rand.
func NewService(key []byte, random io.Reader) (Service, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("crypto key must be 16, 24, or 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if random == nil {
		random = rand.Reader
	}
	return &service{aead: aead, random: random}, nil
}

func (s *service) Encrypt(plaintext string) (EncryptedData, error) {
	iv := make([]byte, ivLengthBytes)
	if _, err := io.ReadFull(s.random, iv); err != nil {
		return EncryptedData{}, apperrors.Crypto("failed to encrypt card number", err)
	}

	sealed := s.aead.Seal(nil, iv, []byte(plaintext), nil)
	return EncryptedData{
		CipherText: base64.StdEncoding.EncodeToString(sealed),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

func (s *service) Decrypt(data EncryptedData) (string, error) {
	iv, err := base64.StdEncoding.DecodeString(data.IV)
	if err != nil {
		return "", apperrors.Crypto("failed to decrypt card number", err)
	}
	if len(iv) != s.aead.NonceSize() {
		return "", apperrors.Crypto("failed to decrypt card number", fmt.Errorf("invalid IV length %d", len(iv)))
	}
	sealed, err := base64.StdEncoding.DecodeString(data.CipherText)
	if err != nil {
		return "", apperrors.Crypto("failed to decrypt card number", err)
	}

	plaintext, err := s.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", apperrors.Crypto("failed to decrypt card number", err)
	}
	return string(plaintext), nil
}
