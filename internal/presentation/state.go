// Package presentation decides which alert candidates are actually surfaced,
// remembering per-session what the user has already seen, dismissed,
// acknowledged, or snoozed.
package presentation

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/store"
)

// Storage map names, each persisted under its own scoped key
const (
	mapDismissed    = "dismissed"
	mapShown        = "shown"
	mapAcknowledged = "acknowledged"
	mapSnoozed      = "snoozed"
)

// State holds the four presentation memory maps for one session scope.
// All timestamps are unix milliseconds. Every mutation is flushed to the
// backing store before the next evaluation can read it.
type State struct {
	Dismissed    map[string]bool  `json:"dismissed"`
	Shown        map[string]int64 `json:"shown"`
	Acknowledged map[string]int64 `json:"acknowledged"`
	Snoozed      map[string]int64 `json:"snoozed"`

	kv     store.KV
	scope  store.Scope
	logger *zap.Logger
}

// LoadState reads the session's presentation memory from the store.
// A read failure or corrupt JSON degrades to an empty map for that key:
// the user must still see alerts even if their dismiss history was lost.
func LoadState(kv store.KV, scope store.Scope, logger *zap.Logger) *State {
	s := &State{
		Dismissed:    map[string]bool{},
		Shown:        map[string]int64{},
		Acknowledged: map[string]int64{},
		Snoozed:      map[string]int64{},
		kv:           kv,
		scope:        scope,
		logger:       logger,
	}

	loadMap(kv, scope, mapDismissed, &s.Dismissed, logger)
	loadMap(kv, scope, mapShown, &s.Shown, logger)
	loadMap(kv, scope, mapAcknowledged, &s.Acknowledged, logger)
	loadMap(kv, scope, mapSnoozed, &s.Snoozed, logger)

	return s
}

func loadMap[V bool | int64](kv store.KV, scope store.Scope, name string, dst *map[string]V, logger *zap.Logger) {
	raw, err := kv.Get(scope.Key(name))
	if err != nil {
		logger.Warn("Presentation state read failed, starting empty",
			zap.String("map", name),
			zap.Error(err))
		return
	}
	if raw == nil {
		return
	}
	var decoded map[string]V
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.Warn("Presentation state corrupt, starting empty",
			zap.String("map", name),
			zap.Error(err))
		return
	}
	*dst = decoded
}

// flush persists one named map immediately. A write failure is logged but
// never propagated: losing memory must not block rule evaluation.
func (s *State) flush(name string, m any) {
	raw, err := json.Marshal(m)
	if err != nil {
		s.logger.Error("Failed to encode presentation state",
			zap.String("map", name),
			zap.Error(err))
		return
	}
	if err := s.kv.Set(s.scope.Key(name), raw); err != nil {
		s.logger.Error("Failed to persist presentation state",
			zap.String("map", name),
			zap.Error(err))
	}
}

// flushAckDismissed persists the acknowledged and dismissed maps as one
// atomic write: an acknowledge mutates both, and a partial flush would let
// an acknowledged critical come back after a crash.
func (s *State) flushAckDismissed() {
	acked, err := json.Marshal(s.Acknowledged)
	if err != nil {
		s.logger.Error("Failed to encode presentation state", zap.Error(err))
		return
	}
	dismissed, err := json.Marshal(s.Dismissed)
	if err != nil {
		s.logger.Error("Failed to encode presentation state", zap.Error(err))
		return
	}
	if err := s.kv.SetMany(map[string][]byte{
		s.scope.Key(mapAcknowledged): acked,
		s.scope.Key(mapDismissed):    dismissed,
	}); err != nil {
		s.logger.Error("Failed to persist presentation state", zap.Error(err))
	}
}

// Reset empties all four maps in place. The caller is responsible for wiping
// the backing store; Reset deliberately does not write, so the cleared maps
// cannot resurrect deleted keys on the next flush.
func (s *State) Reset() {
	s.Dismissed = map[string]bool{}
	s.Shown = map[string]int64{}
	s.Acknowledged = map[string]int64{}
	s.Snoozed = map[string]int64{}
}

func (s *State) flushDismissed() { s.flush(mapDismissed, s.Dismissed) }
func (s *State) flushShown()     { s.flush(mapShown, s.Shown) }
func (s *State) flushSnoozed()   { s.flush(mapSnoozed, s.Snoozed) }
