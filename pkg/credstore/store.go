// Package credstore stores the HR backend token at rest. The token is
// encrypted with NaCl secretbox under a key derived from machine identity,
// so a copied file is useless on another host.
package credstore

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keySize   = 32
)

// ErrNotFound is returned when no token has been saved.
var ErrNotFound = errors.New("no stored token")

// ErrDecrypt is returned when the stored token cannot be opened, typically
// because it was written on a different machine or tampered with.
var ErrDecrypt = errors.New("failed to decrypt stored token")

// Store persists a single token at a fixed path.
type Store struct {
	path    string
	encrypt bool
	key     [keySize]byte
}

// New returns a store writing to path. With encryption enabled the key is
// derived from this machine's identity.
func New(path string, encrypt bool) (*Store, error) {
	s := &Store{path: path, encrypt: encrypt}
	if encrypt {
		s.key = deriveKey()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating token directory: %w", err)
	}
	return s, nil
}

// deriveKey derives the encryption key from machine-specific identity.
func deriveKey() [keySize]byte {
	var identity strings.Builder

	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("faceclock-v1-salt")

	return sha256.Sum256([]byte(identity.String()))
}

// Save writes the token, replacing any previous one.
func (s *Store) Save(token string) error {
	data := []byte(token)

	if s.encrypt {
		var nonce [nonceSize]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return fmt.Errorf("generating nonce: %w", err)
		}
		data = secretbox.Seal(nonce[:], data, &nonce, &s.key)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

// Load reads the stored token.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading token: %w", err)
	}

	if !s.encrypt {
		return string(data), nil
	}

	if len(data) < nonceSize {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])

	plaintext, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token: %w", err)
	}
	return nil
}
