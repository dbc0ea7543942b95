// Package memory implements an in-memory credential store for development and testing.
package memory

import (
	"context"
	"sync"

	"restoadmin/internal/domain"
)

// DB holds credentials in process memory. Nothing survives a restart.
type DB struct {
	mu     sync.Mutex
	values map[domain.CredentialKey]string
}

// New creates an empty in-memory store.
func New() *DB {
	return &DB{values: make(map[domain.CredentialKey]string)}
}

// Ensure interfaces are met.
var _ domain.CredentialStore = (*DB)(nil)

// Get returns the value for key, or "" when it is not set.
func (db *DB) Get(_ context.Context, key domain.CredentialKey) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.values[key], nil
}

// Set stores value under key. An empty value removes the key.
func (db *DB) Set(_ context.Context, key domain.CredentialKey, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if value == "" {
		delete(db.values, key)
		return nil
	}
	db.values[key] = value
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (db *DB) Delete(_ context.Context, keys ...domain.CredentialKey) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, k := range keys {
		delete(db.values, k)
	}
	return nil
}
