// Package file implements an encrypted, file-backed credential store.
//
// The file holds a random scrypt salt, a nonce and a NaCl secretbox sealing
// the JSON-encoded credentials. Every write uses a fresh nonce.
package file

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"restoadmin/internal/domain"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// ErrDecrypt is returned when the file cannot be opened with the passphrase.
var ErrDecrypt = errors.New("credential file: wrong passphrase or corrupted file")

// Store is a domain.CredentialStore persisted to a single encrypted file.
type Store struct {
	path string

	mu     sync.Mutex
	salt   [saltSize]byte
	key    [keySize]byte
	values map[domain.CredentialKey]string
}

var _ domain.CredentialStore = (*Store)(nil)

// Open loads the store at path, creating it on first write. The passphrase
// must match the one the file was created with.
func Open(path, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("credential file: passphrase is required")
	}
	s := &Store{path: path, values: make(map[domain.CredentialKey]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if _, err := io.ReadFull(rand.Reader, s.salt[:]); err != nil {
			return nil, fmt.Errorf("credential file: salt: %w", err)
		}
		if err := s.derive(passphrase); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("credential file: %w", err)
	}

	if len(data) < saltSize+nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	copy(s.salt[:], data[:saltSize])
	if err := s.derive(passphrase); err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], data[saltSize:saltSize+nonceSize])
	plain, ok := secretbox.Open(nil, data[saltSize+nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrDecrypt
	}
	if err := json.Unmarshal(plain, &s.values); err != nil {
		return nil, fmt.Errorf("credential file: decode: %w", err)
	}
	return s, nil
}

func (s *Store) derive(passphrase string) error {
	k, err := scrypt.Key([]byte(passphrase), s.salt[:], 1<<15, 8, 1, keySize)
	if err != nil {
		return fmt.Errorf("credential file: derive key: %w", err)
	}
	copy(s.key[:], k)
	return nil
}

// Get returns the value for key, or "" when it is not set.
func (s *Store) Get(_ context.Context, key domain.CredentialKey) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Set stores value under key and rewrites the file.
func (s *Store) Set(_ context.Context, key domain.CredentialKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Delete removes keys and rewrites the file.
func (s *Store) Delete(_ context.Context, keys ...domain.CredentialKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flush()
}

// flush seals the current values and atomically replaces the file. Callers hold mu.
func (s *Store) flush() error {
	plain, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("credential file: encode: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("credential file: nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, s.salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plain, &nonce, &s.key)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credential file: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("credential file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credential file: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credential file: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credential file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("credential file: %w", err)
	}
	return nil
}
