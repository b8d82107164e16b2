package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrCiphertext reports data that could not be opened: truncated, tampered
// or sealed under another key or label.
var ErrCiphertext = errors.New("cryptox: invalid ciphertext")

// Sealer encrypts small values with AES-256-GCM. The key is derived from a
// master secret with HKDF-SHA256, so one master key can serve several
// purposes without reuse.
//
// Output format: [12-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a purpose-bound key from master and returns a Sealer.
func NewSealer(master []byte, purpose string) (*Sealer, error) {
	if len(master) == 0 {
		return nil, errors.New("cryptox: empty master key")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext. label is authenticated but not encrypted; the same
// label must be passed to Open. Stores use the row key so a value cannot be
// swapped between keys.
func (s *Sealer) Seal(plaintext []byte, label string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(label)), nil
}

// Open decrypts data produced by Seal with the same label.
func (s *Sealer) Open(data []byte, label string) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(data) < n+s.aead.Overhead() {
		return nil, ErrCiphertext
	}

	plaintext, err := s.aead.Open(nil, data[:n], data[n:], []byte(label))
	if err != nil {
		return nil, ErrCiphertext
	}
	return plaintext, nil
}
