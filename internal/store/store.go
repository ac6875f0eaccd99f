// Package store provides the session-scoped key/value storage backing
// presentation state. The core is storage-agnostic: anything implementing KV
// can hold dismiss/shown/acknowledge/snooze memory.
package store

import "fmt"

// KV is the minimal storage contract the presentation layer needs.
// Get returns (nil, nil) for a missing key. SetMany applies all writes as
// one unit: a backend with transactions must persist either all entries or
// none.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	SetMany(items map[string][]byte) error
	Delete(key string) error
	DeletePrefix(prefix string) error
}

// Scope identifies one user session's storage namespace. Presentation memory
// is never shared across roles or sessions; a new login gets a fresh scope.
type Scope struct {
	Role    string `json:"role"`
	Session string `json:"session"`
}

// Key builds the storage key for one named map inside the scope
func (s Scope) Key(mapName string) string {
	return fmt.Sprintf("%s:%s:%s", s.Role, s.Session, mapName)
}

// Prefix returns the common prefix of every key in the scope
func (s Scope) Prefix() string {
	return fmt.Sprintf("%s:%s:", s.Role, s.Session)
}

// Clear wipes all persisted state for the scope. This is the explicit user
// "clear"/logout boundary; nothing else ever discards presentation memory.
func Clear(kv KV, scope Scope) error {
	return kv.DeletePrefix(scope.Prefix())
}
