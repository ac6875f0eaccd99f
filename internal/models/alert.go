package models

import "time"

// Priority ranks an alert candidate; lower rank sorts first
type Priority int

// Priority levels
const (
	PriorityCritical Priority = iota
	PriorityImportant
	PriorityInfo
)

// String returns the lowercase name of the priority
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityImportant:
		return "important"
	case PriorityInfo:
		return "info"
	}
	return "unknown"
}

// AlertCandidate is a potential user-facing alert produced by one rule.
// ID is a stable semantic key derived from the rule category and the
// magnitude of the triggering condition (e.g. "overdue_tasks_critical_3"),
// never from volatile record ids. Two evaluation passes describing the same
// situation therefore collapse to the same identity even when the underlying
// record set changed membership.
type AlertCandidate struct {
	ID          string        `json:"id"`
	Priority    Priority      `json:"priority"`
	Title       string        `json:"title"`
	Message     string        `json:"message"`
	SoftMessage string        `json:"soft_message,omitempty"`
	ActionRef   string        `json:"action_ref,omitempty"`
	Blocking    bool          `json:"blocking"`
	Dismissible bool          `json:"dismissible"`
	AutoDismiss time.Duration `json:"auto_dismiss,omitempty"`
}

// Snapshot aggregates the domain records a single evaluation pass consumes.
// Requests are grouped by kind; all fields are already-resolved in-memory
// data, the core never fetches anything itself.
type Snapshot struct {
	Tasks                []Task          `json:"tasks"`
	ModificationRequests []RequestRecord `json:"modification_requests"`
	ExtensionRequests    []RequestRecord `json:"extension_requests"`
	ReopenRequests       []RequestRecord `json:"reopen_requests"`
	Meetings             []Meeting       `json:"meetings"`
	Notifications        []Notification  `json:"notifications"`
	FetchedAt            time.Time       `json:"fetched_at"`
}
