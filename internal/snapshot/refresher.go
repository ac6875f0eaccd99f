package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/models"
	"github.com/opsdesk/console-core/internal/presentation"
	"github.com/opsdesk/console-core/internal/rules"
)

// Refresher re-runs the snapshot → rules → presentation pipeline on two
// independent timers: a data tick that re-fetches the snapshot, and a clock
// tick that only re-derives urgency from the cached snapshot with a fresh
// "now". Both are cancelled by Stop.
type Refresher struct {
	provider Provider
	engine   *rules.Engine
	policy   *presentation.Policy
	clock    presentation.Clock
	logger   *zap.Logger

	refreshInterval time.Duration // data re-fetch tick
	clockInterval   time.Duration // urgency re-derive tick

	onUpdate func(presentation.Presentation)

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	lastSnap  *models.Snapshot
	lastPres  presentation.Presentation
}

// NewRefresher creates a refresher. onUpdate, when non-nil, is invoked with
// the visible alert set after every evaluation pass.
func NewRefresher(
	provider Provider,
	engine *rules.Engine,
	policy *presentation.Policy,
	clock presentation.Clock,
	refreshInterval time.Duration,
	clockInterval time.Duration,
	onUpdate func(presentation.Presentation),
	logger *zap.Logger,
) *Refresher {
	return &Refresher{
		provider:        provider,
		engine:          engine,
		policy:          policy,
		clock:           clock,
		logger:          logger,
		refreshInterval: refreshInterval,
		clockInterval:   clockInterval,
		onUpdate:        onUpdate,
	}
}

// Start launches the refresh loop
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("refresher is already running")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.isRunning = true

	r.logger.Info("Refresher started",
		zap.Duration("refresh_interval", r.refreshInterval),
		zap.Duration("clock_interval", r.clockInterval))

	go r.loop()

	return nil
}

// Stop cancels both timers and tears down the presentation policy's
// auto-dismiss timers. Explicit teardown, nothing is left to the collector.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}

	r.isRunning = false
	if r.cancel != nil {
		r.cancel()
	}
	r.policy.Stop()

	r.logger.Info("Refresher stopped")
}

// Name returns the worker name for identification
func (r *Refresher) Name() string {
	return "Refresher"
}

// Latest returns the most recent visible alert set
func (r *Refresher) Latest() presentation.Presentation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastPres
}

// Refresh fetches a fresh snapshot and re-evaluates immediately. The ingest
// endpoint calls this after pushing new data.
func (r *Refresher) Refresh(ctx context.Context) error {
	snap, err := r.provider.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}

	r.mu.Lock()
	r.lastSnap = snap
	r.mu.Unlock()

	r.evaluate()
	return nil
}

// loop multiplexes the two tickers until the context is cancelled
func (r *Refresher) loop() {
	dataTicker := time.NewTicker(r.refreshInterval)
	defer dataTicker.Stop()
	clockTicker := time.NewTicker(r.clockInterval)
	defer clockTicker.Stop()

	// Evaluate immediately on start.
	if err := r.Refresh(r.ctx); err != nil {
		r.logger.Warn("Initial snapshot fetch failed", zap.Error(err))
	}

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("Refresh loop context cancelled")
			return

		case <-dataTicker.C:
			if err := r.Refresh(r.ctx); err != nil {
				// Keep presenting from the cached snapshot; the next data
				// tick retries.
				r.logger.Warn("Snapshot refresh failed", zap.Error(err))
			}

		case <-clockTicker.C:
			r.evaluate()
		}
	}
}

// evaluate runs rules and presentation against the cached snapshot with a
// fresh now
func (r *Refresher) evaluate() {
	r.mu.RLock()
	snap := r.lastSnap
	r.mu.RUnlock()

	if snap == nil {
		return
	}

	now := r.clock.Now()
	candidates := r.engine.Evaluate(snap, now)
	pres := r.policy.Present(candidates)

	r.mu.Lock()
	r.lastPres = pres
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(pres)
	}
}
