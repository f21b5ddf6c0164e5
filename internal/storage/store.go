// Package storage provides storage abstractions for the dose calculator's
// adapters. The calculator itself keeps no state.
package storage

import (
	"context"
	"errors"

	"github.com/jwulff/dosecalc-go/internal/bloodsugar"
)

// Store is the interface for persistent storage.
type Store interface {
	// Reading cache. Holds only the most recent CGM reading.
	CacheReading(ctx context.Context, reading bloodsugar.Reading) error
	GetCachedReading(ctx context.Context) (bloodsugar.Reading, error)

	// Settings
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
	DeleteConfig(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}

// Well-known settings keys.
const (
	KeyDexcomSession = "dexcom.session_id"
)

// ErrNotFound is returned when a record is not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

// IsNotFound checks if an error is, or wraps, a not found error.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
