// Package sla derives remaining-time and urgency information for a deadline.
package sla

import (
	"fmt"
	"time"
)

// WarningWindow is how far ahead of a deadline the urgency level switches
// from neutral to warning.
const WarningWindow = 12 * time.Hour

// Level represents the urgency tier of a deadline
type Level string

// Urgency levels
const (
	LevelNeutral Level = "neutral"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Meta holds the derived SLA state for a single deadline
type Meta struct {
	Remaining time.Duration `json:"remaining_ms"`
	Level     Level         `json:"level"`
	Label     string        `json:"label"`
}

// Evaluate computes the SLA state of deadline relative to now.
// Returns nil iff deadline is nil. Remaining == 0 is danger, not warning;
// remaining of exactly WarningWindow is warning, not neutral.
func Evaluate(deadline *time.Time, now time.Time) *Meta {
	if deadline == nil {
		return nil
	}

	remaining := deadline.Sub(now)

	var level Level
	switch {
	case remaining <= 0:
		level = LevelDanger
	case remaining <= WarningWindow:
		level = LevelWarning
	default:
		level = LevelNeutral
	}

	return &Meta{
		Remaining: remaining,
		Level:     level,
		Label:     formatLabel(remaining),
	}
}

// formatLabel renders a positive remaining duration as a compact "Xd Yh Zm"
// string, or "SLA expired" once the deadline passed
func formatLabel(remaining time.Duration) string {
	if remaining <= 0 {
		return "SLA expired"
	}

	days := int(remaining / (24 * time.Hour))
	hours := int(remaining % (24 * time.Hour) / time.Hour)
	minutes := int(remaining % time.Hour / time.Minute)

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
