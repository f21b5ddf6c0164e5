// Package cgm resolves the current CGM reading, persisting the sensor session
// and falling back to the last cached reading when the sensor is unreachable.
package cgm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jwulff/dosecalc-go/internal/bloodsugar"
	"github.com/jwulff/dosecalc-go/internal/storage"
)

// ErrStaleReading is returned when the newest available reading is older than
// bloodsugar.StaleThreshold.
var ErrStaleReading = errors.New("latest reading is stale")

// Fetcher returns the newest reading from a CGM service.
type Fetcher interface {
	Latest(ctx context.Context) (bloodsugar.Reading, error)
}

// SessionHolder is implemented by fetchers whose login session can be saved
// and restored between runs.
type SessionHolder interface {
	SessionID() string
	SetSessionID(id string)
}

// Current is the reading a dose should be based on.
type Current struct {
	Reading bloodsugar.Reading
	Cached  bool // true when the sensor could not be reached
}

// Source combines a Fetcher with a Store.
type Source struct {
	Fetcher Fetcher
	Store   storage.Store
	Now     func() time.Time
}

// NewSource creates a Source.
func NewSource(fetcher Fetcher, store storage.Store) *Source {
	return &Source{
		Fetcher: fetcher,
		Store:   store,
		Now:     time.Now,
	}
}

// Current fetches the latest reading. When the sensor cannot be reached a
// cached reading is used if it is still fresh; a stale reading is never
// returned. A reading without a usable trend is an error, never a cache hit.
func (s *Source) Current(ctx context.Context) (Current, error) {
	s.restoreSession(ctx)

	reading, err := s.Fetcher.Latest(ctx)
	if errors.Is(err, bloodsugar.ErrTrendNotComputable) {
		return Current{}, fmt.Errorf("fetch reading: %w", err)
	}
	if err != nil {
		cached, cacheErr := s.Store.GetCachedReading(ctx)
		if cacheErr != nil {
			return Current{}, fmt.Errorf("fetch reading: %w", err)
		}
		if cached.IsStale(s.Now()) {
			return Current{}, fmt.Errorf("fetch reading: %w (cached reading is %s old)", err, cached.Age(s.Now()).Round(time.Minute))
		}
		log.Printf("[WARN] CGM fetch failed, using cached reading: %v", err)
		return Current{Reading: cached, Cached: true}, nil
	}

	s.saveSession(ctx)

	if err := s.Store.CacheReading(ctx, reading); err != nil {
		log.Printf("[WARN] cache reading: %v", err)
	}

	if reading.IsStale(s.Now()) {
		return Current{}, fmt.Errorf("%w: taken %s ago", ErrStaleReading, reading.Age(s.Now()).Round(time.Minute))
	}
	return Current{Reading: reading}, nil
}

func (s *Source) restoreSession(ctx context.Context) {
	holder, ok := s.Fetcher.(SessionHolder)
	if !ok || holder.SessionID() != "" {
		return
	}
	id, err := s.Store.GetConfig(ctx, storage.KeyDexcomSession)
	if err != nil {
		if !storage.IsNotFound(err) {
			log.Printf("[WARN] load CGM session: %v", err)
		}
		return
	}
	holder.SetSessionID(id)
}

func (s *Source) saveSession(ctx context.Context) {
	holder, ok := s.Fetcher.(SessionHolder)
	if !ok || holder.SessionID() == "" {
		return
	}
	if err := s.Store.SetConfig(ctx, storage.KeyDexcomSession, holder.SessionID()); err != nil {
		log.Printf("[WARN] save CGM session: %v", err)
	}
}
