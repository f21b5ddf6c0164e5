// Package sqlite provides a SQLite implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwulff/dosecalc-go/internal/bloodsugar"
	"github.com/jwulff/dosecalc-go/internal/dosing"
	"github.com/jwulff/dosecalc-go/internal/storage"

	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

// NewMemoryStore creates an in-memory SQLite store.
func NewMemoryStore() (*Store, error) {
	store, err := newStore(":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" opens a separate database.
	store.db.SetMaxOpenConns(1)
	return store, nil
}

// NewFileStore creates a file-based SQLite store.
func NewFileStore(path string) (*Store, error) {
	return newStore(path)
}

func newStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reading cache methods

func (s *Store) CacheReading(ctx context.Context, reading bloodsugar.Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reading_cache (id, glucose, trend, raw_trend, taken_at, cached_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, reading.Glucose, reading.Trend.String(), reading.RawTrend, reading.Timestamp.UTC(), time.Now().UTC())
	return err
}

func (s *Store) GetCachedReading(ctx context.Context) (bloodsugar.Reading, error) {
	var (
		reading bloodsugar.Reading
		trend   string
		raw     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT glucose, trend, raw_trend, taken_at FROM reading_cache WHERE id = 1
	`).Scan(&reading.Glucose, &trend, &raw, &reading.Timestamp)

	if errors.Is(err, sql.ErrNoRows) {
		return bloodsugar.Reading{}, storage.ErrNotFound{Resource: "reading_cache", ID: "1"}
	}
	if err != nil {
		return bloodsugar.Reading{}, err
	}

	reading.Trend, err = dosing.ParseTrend(trend)
	if err != nil {
		return bloodsugar.Reading{}, fmt.Errorf("failed to parse cached trend: %w", err)
	}
	reading.RawTrend = raw.String
	return reading, nil
}

// Config methods

func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound{Resource: "config", ID: key}
	}
	return value, err
}

func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO config (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, value, time.Now().UTC())
	return err
}

func (s *Store) DeleteConfig(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM config WHERE key = ?", key)
	return err
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
