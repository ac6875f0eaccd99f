// Package worker owns the lifecycle of the background loops that keep the
// alert set fresh.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker is a long-running background loop with an explicit lifecycle
type Worker interface {
	Start(ctx context.Context) error
	Stop()
	Name() string
}

// Manager starts and stops a set of workers as a unit
type Manager struct {
	mu      sync.RWMutex
	workers []Worker
	logger  *zap.Logger
}

// NewManager creates an empty manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a worker. Registration order is start order; stop order is
// the reverse.
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
}

// StartAll starts every registered worker in registration order. If one
// fails, the workers already started are stopped before returning.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	workers := make([]Worker, len(m.workers))
	copy(workers, m.workers)
	m.mu.RUnlock()

	for i, w := range workers {
		if err := w.Start(ctx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("name", w.Name()),
				zap.Error(err))
			for j := i - 1; j >= 0; j-- {
				workers[j].Stop()
			}
			return err
		}
		m.logger.Info("Worker started", zap.String("name", w.Name()))
	}
	return nil
}

// StopAll stops all workers in reverse registration order
func (m *Manager) StopAll() {
	m.mu.RLock()
	workers := make([]Worker, len(m.workers))
	copy(workers, m.workers)
	m.mu.RUnlock()

	for i := len(workers) - 1; i >= 0; i-- {
		w := workers[i]
		w.Stop()
		m.logger.Info("Worker stopped", zap.String("name", w.Name()))
	}
}

// Count returns the number of registered workers
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}
