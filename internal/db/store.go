package db

import (
	"context"
	"database/sql"
	"time"
)

// Store binds the query functions to one database handle so callers can
// depend on small interfaces instead of *sql.DB.
type Store struct {
	db *sql.DB
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return GetValue(ctx, s.db, key)
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return PutValue(ctx, s.db, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return DeleteValue(ctx, s.db, key)
}

func (s *Store) GetCached(ctx context.Context, resource string) ([]byte, time.Time, error) {
	return GetCached(ctx, s.db, resource)
}

func (s *Store) PutCached(ctx context.Context, resource string, body []byte) error {
	return PutCached(ctx, s.db, resource, body)
}

func (s *Store) ClearCache(ctx context.Context) (int64, error) {
	return ClearCache(ctx, s.db)
}
