// Package redisstore implements the credential store on Redis, for clients
// that share one session across processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restoadmin/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Config configures the Redis connection.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// Store is a domain.CredentialStore backed by Redis string keys.
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ domain.CredentialStore = (*Store)(nil)

// Open connects to Redis and pings it.
func Open(cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, cfg.Namespace), nil
}

// New wraps an existing client. Keys are stored as "restoadmin:<namespace>:<key>".
func New(rdb *redis.Client, namespace string) *Store {
	if namespace == "" {
		namespace = "default"
	}
	return &Store{rdb: rdb, prefix: "restoadmin:" + namespace + ":"}
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(k domain.CredentialKey) string {
	return s.prefix + string(k)
}

// Get returns the value for key, or "" when it is not set.
func (s *Store) Get(ctx context.Context, key domain.CredentialKey) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key domain.CredentialKey, value string) error {
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

// Delete removes keys in one round trip.
func (s *Store) Delete(ctx context.Context, keys ...domain.CredentialKey) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = s.key(k)
	}
	return s.rdb.Del(ctx, names...).Err()
}
