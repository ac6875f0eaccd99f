package presentation

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/models"
)

// Tone selects the message register for the current time of day
type Tone string

// Tones
const (
	ToneDefault Tone = "default"
	ToneSoft    Tone = "soft"
)

// softSuffix is appended to messages lacking a dedicated soft variant when
// tone is soft
const softSuffix = " (no rush)"

// Config tunes presentation behavior
type Config struct {
	QuietStartHour     int           // local hour quiet window opens, inclusive
	QuietEndHour       int           // local hour quiet window closes, exclusive
	DedupeWindow       time.Duration // minimum gap before re-showing an unchanged alert id
	MaxImportantToasts int           // cap on newly introduced toasts per evaluation
	DefaultSnooze      time.Duration // snooze length when the caller gives none
}

// DefaultConfig returns the standard tuning: quiet hours 22:00-07:00,
// two-hour dedupe window, three new toasts per pass, 30 minute snooze
func DefaultConfig() Config {
	return Config{
		QuietStartHour:     22,
		QuietEndHour:       7,
		DedupeWindow:       120 * time.Minute,
		MaxImportantToasts: 3,
		DefaultSnooze:      30 * time.Minute,
	}
}

// ToneAt returns the tone in effect at t. The quiet window may wrap
// midnight (22-07) or not (0-6).
func (c Config) ToneAt(t time.Time) Tone {
	h := t.Hour()
	if c.QuietStartHour == c.QuietEndHour {
		return ToneDefault
	}
	if c.QuietStartHour < c.QuietEndHour {
		if h >= c.QuietStartHour && h < c.QuietEndHour {
			return ToneSoft
		}
		return ToneDefault
	}
	if h >= c.QuietStartHour || h < c.QuietEndHour {
		return ToneSoft
	}
	return ToneDefault
}

// Presentation is the visible alert set after filtering: at most one
// blocking critical plus the ranked toast queue
type Presentation struct {
	Critical *models.AlertCandidate  `json:"critical,omitempty"`
	Toasts   []models.AlertCandidate `json:"toasts"`
}

// Policy applies deduplication and presentation state to rule candidates.
// It owns the per-toast auto-dismiss timers; Stop must be called at session
// teardown so no timer outlives its session.
type Policy struct {
	state  *State
	clock  Clock
	cfg    Config
	logger *zap.Logger

	mu           sync.Mutex
	visible      map[string]models.AlertCandidate // toasts currently on screen
	visibleOrder []string
	timers       map[string]*time.Timer
}

// NewPolicy creates a presentation policy over the given session state
func NewPolicy(state *State, clock Clock, cfg Config, logger *zap.Logger) *Policy {
	return &Policy{
		state:   state,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
		visible: make(map[string]models.AlertCandidate),
		timers:  make(map[string]*time.Timer),
	}
}

// Present filters and ranks candidates into the visible alert set.
// Already-visible toasts from a prior evaluation are preserved; only user
// action or an auto-dismiss timer removes a toast.
func (p *Policy) Present(candidates []models.AlertCandidate) Presentation {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	nowMs := now.UnixMilli()
	tone := p.cfg.ToneAt(now)

	// Stable sort preserves catalogue order within a priority tier.
	sorted := make([]models.AlertCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	var critical *models.AlertCandidate
	var toastPool []models.AlertCandidate

	for _, c := range sorted {
		c := c
		switch {
		case c.Priority == models.PriorityCritical:
			if tone == ToneSoft && !c.Blocking {
				// Quiet hours demote non-blocking criticals out of the
				// modal path into the toast pool for this evaluation.
				toastPool = append(toastPool, c)
				continue
			}
			if critical != nil {
				continue
			}
			if p.state.Acknowledged[c.ID] != 0 || p.state.Dismissed[c.ID] {
				continue
			}
			critical = &c
		case c.Priority == models.PriorityImportant:
			toastPool = append(toastPool, c)
		}
	}

	// Preserve toasts already on screen, dropping any the user has since
	// dismissed or snoozed.
	var toasts []models.AlertCandidate
	stillVisible := make([]string, 0, len(p.visibleOrder))
	for _, id := range p.visibleOrder {
		c, ok := p.visible[id]
		if !ok {
			continue
		}
		if p.state.Dismissed[id] || p.state.Snoozed[id] > nowMs {
			delete(p.visible, id)
			continue
		}
		toasts = append(toasts, c)
		stillVisible = append(stillVisible, id)
	}
	p.visibleOrder = stillVisible

	introduced := 0
	for _, c := range toastPool {
		if _, onScreen := p.visible[c.ID]; onScreen {
			continue
		}
		if p.state.Dismissed[c.ID] {
			continue
		}
		if until := p.state.Snoozed[c.ID]; until > nowMs {
			continue
		}
		if shownAt, ok := p.state.Shown[c.ID]; ok && nowMs-shownAt < p.cfg.DedupeWindow.Milliseconds() {
			continue
		}
		if introduced >= p.cfg.MaxImportantToasts {
			continue
		}

		c = withTone(c, tone)
		toasts = append(toasts, c)
		p.visible[c.ID] = c
		p.visibleOrder = append(p.visibleOrder, c.ID)
		p.state.Shown[c.ID] = nowMs
		introduced++

		p.startAutoDismissLocked(c)
	}
	if introduced > 0 {
		p.state.flushShown()
	}

	if critical != nil {
		tuned := withTone(*critical, tone)
		critical = &tuned
	}

	p.logger.Debug("Presentation evaluated",
		zap.String("tone", string(tone)),
		zap.Bool("critical", critical != nil),
		zap.Int("toasts", len(toasts)),
		zap.Int("introduced", introduced))

	return Presentation{Critical: critical, Toasts: toasts}
}

// Acknowledge records the critical modal's acknowledge action. The same
// semantic condition never re-opens the modal for the rest of the session.
func (p *Policy) Acknowledge(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.Acknowledged[id] = p.clock.Now().UnixMilli()
	p.state.Dismissed[id] = true
	p.state.flushAckDismissed()
	p.removeVisibleLocked(id)

	p.logger.Info("Alert acknowledged", zap.String("alert_id", id))
}

// Dismiss permanently suppresses the toast id for the session
func (p *Policy) Dismiss(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissLocked(id)
	p.logger.Info("Alert dismissed", zap.String("alert_id", id))
}

// Snooze hides the alert until the snooze window lapses, after which it is
// re-eligible (not auto-restored) if its condition still holds.
// minutes <= 0 uses the configured default.
func (p *Policy) Snooze(id string, minutes int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := time.Duration(minutes) * time.Minute
	if minutes <= 0 {
		d = p.cfg.DefaultSnooze
	}
	until := p.clock.Now().Add(d).UnixMilli()
	p.state.Snoozed[id] = until
	p.state.flushSnoozed()
	p.removeVisibleLocked(id)

	p.logger.Info("Alert snoozed",
		zap.String("alert_id", id),
		zap.Int64("until_ms", until))
}

// Reset forgets everything the session has seen, dismissed, acknowledged,
// or snoozed: the in-memory maps, the visible toast set, and every pending
// auto-dismiss timer. The caller wipes the backing store; after Reset the
// next evaluation starts from a blank session.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.Reset()
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
	p.visible = make(map[string]models.AlertCandidate)
	p.visibleOrder = nil

	p.logger.Info("Presentation state reset")
}

// Stop cancels every pending auto-dismiss timer. Must run at session
// teardown so recurring callbacks do not leak past the session.
func (p *Policy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
}

// Visible returns the current visible toast set in display order
func (p *Policy) Visible() []models.AlertCandidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.AlertCandidate, 0, len(p.visibleOrder))
	for _, id := range p.visibleOrder {
		if c, ok := p.visible[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// startAutoDismissLocked registers the auto-dismiss timer for a toast.
// Registering an id that already has a pending timer is a no-op so the same
// id reappearing across two consecutive evaluations cannot double-fire.
func (p *Policy) startAutoDismissLocked(c models.AlertCandidate) {
	if c.AutoDismiss <= 0 {
		return
	}
	if _, pending := p.timers[c.ID]; pending {
		return
	}
	id := c.ID
	p.timers[id] = time.AfterFunc(c.AutoDismiss, func() {
		p.autoDismiss(id)
	})
}

// autoDismiss is the timer callback: it behaves exactly like a manual
// dismiss for the toast id
func (p *Policy) autoDismiss(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissLocked(id)
	p.logger.Debug("Alert auto-dismissed", zap.String("alert_id", id))
}

func (p *Policy) dismissLocked(id string) {
	p.state.Dismissed[id] = true
	p.state.flushDismissed()
	p.removeVisibleLocked(id)
}

func (p *Policy) removeVisibleLocked(id string) {
	if t, ok := p.timers[id]; ok {
		t.Stop()
		delete(p.timers, id)
	}
	if _, ok := p.visible[id]; !ok {
		return
	}
	delete(p.visible, id)
	for i, v := range p.visibleOrder {
		if v == id {
			p.visibleOrder = append(p.visibleOrder[:i], p.visibleOrder[i+1:]...)
			break
		}
	}
}

// withTone applies the soft-tone message substitution
func withTone(c models.AlertCandidate, tone Tone) models.AlertCandidate {
	if tone != ToneSoft {
		return c
	}
	if c.SoftMessage != "" {
		c.Message = c.SoftMessage
	} else {
		c.Message += softSuffix
	}
	return c
}
