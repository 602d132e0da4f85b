package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when an entry is absent or expired
var ErrNotFound = errors.New("storage entry not found")

// StorageRepository keeps small named string values per client,
// the way a browser keeps cookies for a site
type StorageRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStorageRepository creates a new repository instance
func NewStorageRepository(db *sqlx.DB) *StorageRepository {
	return &StorageRepository{db: db, now: time.Now}
}

// Get returns the live value stored under name for a client
func (r *StorageRepository) Get(ctx context.Context, clientID, name string) (string, error) {
	query := r.db.Rebind(`
		SELECT value FROM client_storage
		WHERE client_id = ? AND name = ? AND (expires_at IS NULL OR expires_at > ?)`)

	var value string
	err := r.db.GetContext(ctx, &value, query, clientID, name, r.now().Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s for client %s: %v", name, clientID, err)
	}
	return value, nil
}

// Put stores value under name, replacing any previous value.
// A zero ttl keeps the entry until it is deleted.
func (r *StorageRepository) Put(ctx context.Context, clientID, name, value string, ttl time.Duration) error {
	now := r.now()
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}

	query := r.db.Rebind(`
		INSERT INTO client_storage (client_id, name, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (client_id, name) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`)

	if _, err := r.db.ExecContext(ctx, query, clientID, name, value, expiresAt, now.Unix()); err != nil {
		return fmt.Errorf("failed to put %s for client %s: %v", name, clientID, err)
	}
	return nil
}

// Delete removes the entry; deleting a missing entry is not an error
func (r *StorageRepository) Delete(ctx context.Context, clientID, name string) error {
	query := r.db.Rebind(`DELETE FROM client_storage WHERE client_id = ? AND name = ?`)
	if _, err := r.db.ExecContext(ctx, query, clientID, name); err != nil {
		return fmt.Errorf("failed to delete %s for client %s: %v", name, clientID, err)
	}
	return nil
}

// PurgeExpired deletes every expired entry and returns how many were removed
func (r *StorageRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := r.db.Rebind(`DELETE FROM client_storage WHERE expires_at IS NOT NULL AND expires_at <= ?`)
	result, err := r.db.ExecContext(ctx, query, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %v", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged entries: %v", err)
	}
	return count, nil
}
