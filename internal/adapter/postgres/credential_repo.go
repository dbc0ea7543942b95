package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"restoadmin/internal/domain"

	"github.com/lib/pq"
)

var _ domain.CredentialStore = (*DB)(nil)

// Get retrieves a credential. A missing key yields "".
func (d *DB) Get(ctx context.Context, key domain.CredentialKey) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx,
		"SELECT value FROM client_credentials WHERE namespace = $1 AND key = $2",
		d.namespace, string(key),
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Set upserts a credential.
func (d *DB) Set(ctx context.Context, key domain.CredentialKey, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO client_credentials (namespace, key, value, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		d.namespace, string(key), value, time.Now(),
	)
	return err
}

// Delete removes the given credentials in one statement.
func (d *DB) Delete(ctx context.Context, keys ...domain.CredentialKey) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	_, err := d.sql.ExecContext(ctx,
		"DELETE FROM client_credentials WHERE namespace = $1 AND key = ANY($2)",
		d.namespace, pq.Array(names),
	)
	return err
}
