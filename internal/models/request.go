package models

import "time"

// RequestKind identifies the flavor of an approval-style request
type RequestKind string

// Request kinds
const (
	RequestKindModification RequestKind = "modification"
	RequestKindExtension    RequestKind = "extension"
	RequestKindReopen       RequestKind = "reopen"
)

// RequestRecord represents one approval-style request raised against a task.
// RawStatus is a free-form string copied verbatim from the upstream system;
// it must never be read directly where an expiry-aware state is needed;
// use lifecycle.Classify instead.
type RequestRecord struct {
	ID             int64       `json:"id"`
	TaskID         int64       `json:"task_id"`
	Kind           RequestKind `json:"kind"`
	RawStatus      string      `json:"raw_status"`
	ExpiresAt      *time.Time  `json:"expires_at,omitempty"` // SLA deadline, sole authority for lapsing a pending request
	ResponseDueAt  *time.Time  `json:"response_due_at,omitempty"` // kind-specific deadline field some upstreams use instead
	RequestedAt    time.Time   `json:"requested_at"`
	Reason         string      `json:"reason,omitempty"`
	AdminInitiated bool        `json:"admin_initiated"`
}

// Deadline returns the effective SLA deadline for the request, preferring
// ExpiresAt over the kind-specific ResponseDueAt field.
func (r *RequestRecord) Deadline() *time.Time {
	if r.ExpiresAt != nil {
		return r.ExpiresAt
	}
	return r.ResponseDueAt
}

// Notification represents a raw in-app notification row
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	TaskID    int64     `json:"task_id,omitempty"` // 0 when the notification is not task-specific
	CreatedAt time.Time `json:"created_at"`
}
