// Package crypto seals secret values with AES-GCM before they are stored.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrKeySize = errors.New("crypto: key must be 32 bytes")

type AEAD struct{ aead cipher.AEAD }

func New(key []byte) (*AEAD, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	a, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: a}, nil
}

// FromBase64 builds an AEAD from a standard or raw base64 key.
func FromBase64(s string) (*AEAD, error) {
	s = strings.TrimSpace(s)
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		key, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("crypto: decode key: %w", err)
	}
	return New(key)
}

// Seal encrypts plaintext bound to label; Open must be given the same
// label.
func (a *AEAD) Seal(plaintext, label string) (string, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	buf := a.aead.Seal(nonce, nonce, []byte(plaintext), []byte(label))
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func (a *AEAD) Open(sealed, label string) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	ns := a.aead.NonceSize()
	if len(buf) < ns {
		return "", fmt.Errorf("crypto: ciphertext too short")
	}
	pt, err := a.aead.Open(nil, buf[:ns], buf[ns:], []byte(label))
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
