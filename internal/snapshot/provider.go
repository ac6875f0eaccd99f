// Package snapshot drives periodic re-evaluation of the alert pipeline over
// fresh domain data.
package snapshot

import (
	"context"
	"sync"

	"github.com/opsdesk/console-core/internal/models"
)

// Provider supplies the current domain snapshot. Transport, retry, and
// authentication all live behind this interface; the core never fetches
// anything itself.
type Provider interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// ProviderFunc adapts a plain function to the Provider interface
type ProviderFunc func(ctx context.Context) (*models.Snapshot, error)

// Fetch calls f
func (f ProviderFunc) Fetch(ctx context.Context) (*models.Snapshot, error) {
	return f(ctx)
}

// StaticProvider serves a settable snapshot, useful for tests and for the
// push-style snapshot ingest endpoint
type StaticProvider struct {
	mu   sync.RWMutex
	snap *models.Snapshot
}

// NewStaticProvider creates a provider serving snap
func NewStaticProvider(snap *models.Snapshot) *StaticProvider {
	return &StaticProvider{snap: snap}
}

// Set replaces the served snapshot
func (s *StaticProvider) Set(snap *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Fetch returns the stored snapshot
func (s *StaticProvider) Fetch(ctx context.Context) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, nil
}
