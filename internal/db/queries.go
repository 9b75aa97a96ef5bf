package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/hpungsan/critter/internal/errors"
)

// CodeStorageFull marks a write rejected because the database or disk is full.
const CodeStorageFull errors.ErrorCode = "STORAGE_FULL"

// ErrStorageFull is returned when SQLite reports SQLITE_FULL.
var ErrStorageFull = &errors.GameError{
	Code:    CodeStorageFull,
	Status:  507,
	Message: "database or disk is full",
}

// isDiskFullError checks if the error is a SQLite "database or disk is full" failure.
func isDiskFullError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "SQLITE_FULL")
}

func writeError(err error) error {
	if isDiskFullError(err) {
		return &errors.GameError{
			Code:    ErrStorageFull.Code,
			Status:  ErrStorageFull.Status,
			Message: ErrStorageFull.Message,
			Cause:   err,
		}
	}
	return errors.NewInternal(err)
}

// GetValue returns the document stored under key.
func GetValue(ctx context.Context, db *sql.DB, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound("key", key)
		}
		return nil, errors.NewInternal(err)
	}
	return value, nil
}

// PutValue stores value under key, replacing any previous document.
func PutValue(ctx context.Context, db *sql.DB, key string, value []byte) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, time.Now().UnixMilli()); err != nil {
		return writeError(err)
	}
	return nil
}

// DeleteValue removes key. Deleting a missing key is not an error.
func DeleteValue(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetCached returns a cached catalog document and when it was fetched.
func GetCached(ctx context.Context, db *sql.DB, resource string) ([]byte, time.Time, error) {
	var (
		body      []byte
		fetchedAt int64
	)
	err := db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM catalog_cache WHERE resource = ?`, resource,
	).Scan(&body, &fetchedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, errors.NewNotFound("cache entry", resource)
		}
		return nil, time.Time{}, errors.NewInternal(err)
	}
	return body, time.UnixMilli(fetchedAt), nil
}

// PutCached stores a catalog document.
func PutCached(ctx context.Context, db *sql.DB, resource string, body []byte) error {
	query := `
		INSERT INTO catalog_cache (resource, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at
	`
	if _, err := db.ExecContext(ctx, query, resource, body, time.Now().UnixMilli()); err != nil {
		return writeError(err)
	}
	return nil
}

// ClearCache drops every cached catalog document and returns how many were removed.
func ClearCache(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM catalog_cache`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// CountCached returns the number of cached catalog documents.
func CountCached(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_cache`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}
