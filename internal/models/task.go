package models

import "time"

// Task represents an assigned work item as delivered by the snapshot provider
type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"` // ASSIGNED, ACCEPTED, IN_PROGRESS, SUBMITTED, REOPENED, COMPLETED, CANCELLED
	AssigneeID    string     `json:"assignee_id"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	AssignedAt    time.Time  `json:"assigned_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	ReopenedAt    *time.Time `json:"reopened_at,omitempty"`
	ReopenSLA     *time.Time `json:"reopen_sla,omitempty"` // deadline for responding to a reopen
	Overdue       bool       `json:"overdue"`
	HasSubmission bool       `json:"has_submission"`
}

// Task status constants
const (
	TaskStatusAssigned   = "ASSIGNED"
	TaskStatusAccepted   = "ACCEPTED"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusSubmitted  = "SUBMITTED"
	TaskStatusReopened   = "REOPENED"
	TaskStatusCompleted  = "COMPLETED"
	TaskStatusCancelled  = "CANCELLED"
)

// Meeting represents a scheduled meeting attached to a task
type Meeting struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"` // SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Meeting status constants
const (
	MeetingStatusScheduled  = "SCHEDULED"
	MeetingStatusInProgress = "IN_PROGRESS"
	MeetingStatusCompleted  = "COMPLETED"
	MeetingStatusCancelled  = "CANCELLED"
)
