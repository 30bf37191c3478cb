// Package storage persists the client's authentication token: a single
// opaque string in a small JSON file, optionally sealed with AES-GCM.
package storage

import (
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrSealed is returned when the token file is sealed but the store has no key.
var ErrSealed = errors.New("token file is sealed; a token key is required")

// tokenFile is the on-disk layout.
type tokenFile struct {
	Token  string `json:"token"`
	Sealed bool   `json:"sealed,omitempty"`
}

// TokenStore keeps the token under a well-known path.
type TokenStore struct {
	path string
	aead cipher.AEAD
	mu   sync.Mutex
}

// NewTokenStore returns a store at path. A nil aead stores the token in
// plain text.
func NewTokenStore(path string, aead cipher.AEAD) *TokenStore {
	return &TokenStore{path: path, aead: aead}
}

// Path returns the token file location.
func (s *TokenStore) Path() string {
	return s.path
}

// Load returns the persisted token, or "" when none is stored.
func (s *TokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parse token file: %w", err)
	}
	if !tf.Sealed {
		return tf.Token, nil
	}
	if s.aead == nil {
		return "", ErrSealed
	}
	return open(s.aead, tf.Token)
}

// Save replaces the persisted token.
func (s *TokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf := tokenFile{Token: token}
	if s.aead != nil {
		sealed, err := seal(s.aead, token)
		if err != nil {
			return err
		}
		tf = tokenFile{Token: sealed, Sealed: true}
	}
	data, err := json.Marshal(tf)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear removes the persisted token. Clearing an absent token is not an error.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
