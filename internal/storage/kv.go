// internal/storage/kv.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mcp-prenatal-log/internal/cache"
)

// Get and Set make SQLiteStorage a cache.KVStore backed by the
// resolution_cache table, so cached resolutions survive restarts without a
// separate cache server.
func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM resolution_cache WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", cache.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to read cache: %w", err)
	}
	if expiresAt.Valid && time.Now().UnixMilli() >= expiresAt.Int64 {
		return "", cache.ErrCacheMiss
	}
	return value, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO resolution_cache (key, value, expires_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at
    `, key, value, expiresAt, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}
