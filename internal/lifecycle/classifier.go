// Package lifecycle reconciles raw upstream request statuses with SLA expiry
// into a single canonical status. The upstream may still report "pending" for
// a request whose deadline has already passed; this package is the single
// source of truth for that reconciliation.
package lifecycle

import (
	"strings"
	"time"

	"github.com/opsdesk/console-core/internal/models"
)

// Status is the canonical, derived lifecycle status of a request
type Status string

// Canonical statuses. Unrecognized raw statuses pass through lowercased
// so a new upstream value degrades to display rather than failure.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
	StatusExpired  Status = "expired"
)

// synonyms maps raw upstream statuses onto canonical statuses.
// Reopen and extension variants use accepted/declined for approved/rejected.
var synonyms = map[string]Status{
	"pending":          StatusPending,
	"counter_proposed": StatusPending,
	"new":              StatusPending,
	"approved":         StatusApproved,
	"accepted":         StatusApproved,
	"rejected":         StatusRejected,
	"declined":         StatusRejected,
	"executed":         StatusExecuted,
	"completed":        StatusExecuted,
	"expired":          StatusExpired,
	"timed_out":        StatusExpired,
}

// Classify derives the canonical status of a request at the given instant.
// Expiry converts an unresolved pending-like status into expired; it never
// overrides a recorded approval, rejection, or execution.
func Classify(rec models.RequestRecord, now time.Time) Status {
	raw := strings.ToLower(strings.TrimSpace(rec.RawStatus))

	if mapped, ok := synonyms[raw]; ok {
		if mapped != StatusPending {
			return mapped
		}
		if deadlinePassed(rec, now) {
			return StatusExpired
		}
		return StatusPending
	}

	// Unknown raw status: still honor a lapsed deadline, otherwise pass
	// the value through for forward compatibility.
	if deadlinePassed(rec, now) {
		return StatusExpired
	}
	return Status(raw)
}

// IsExpired reports whether the request should be treated as lapsed at the
// given instant. It is the cheap filtering variant of Classify: IsExpired is
// true iff Classify returns expired, provided the raw status is not already
// a terminal non-pending value.
func IsExpired(rec models.RequestRecord, now time.Time) bool {
	raw := strings.ToLower(strings.TrimSpace(rec.RawStatus))
	if mapped, ok := synonyms[raw]; ok {
		switch mapped {
		case StatusApproved, StatusRejected, StatusExecuted:
			return false
		case StatusExpired:
			return true
		}
	}
	return deadlinePassed(rec, now)
}

// deadlinePassed checks the raw expiry markers: an explicit expired raw
// status or a lapsed deadline field
func deadlinePassed(rec models.RequestRecord, now time.Time) bool {
	raw := strings.ToLower(strings.TrimSpace(rec.RawStatus))
	if raw == "expired" || raw == "timed_out" {
		return true
	}
	if d := rec.Deadline(); d != nil && !d.After(now) {
		return true
	}
	return false
}

// ClassifyAll classifies a batch of requests, returning statuses index-aligned
// with the input slice
func ClassifyAll(recs []models.RequestRecord, now time.Time) []Status {
	out := make([]Status, len(recs))
	for i, rec := range recs {
		out[i] = Classify(rec, now)
	}
	return out
}
