package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func newTestEngine() *Engine {
	return NewEngine(zap.NewNop())
}

func findByPrefix(candidates []models.AlertCandidate, prefix string) *models.AlertCandidate {
	for i := range candidates {
		if len(candidates[i].ID) >= len(prefix) && candidates[i].ID[:len(prefix)] == prefix {
			return &candidates[i]
		}
	}
	return nil
}

func TestEvaluateEmptySnapshot(t *testing.T) {
	engine := newTestEngine()
	got := engine.Evaluate(&models.Snapshot{}, time.Now())
	assert.Empty(t, got, "no records should emit no candidates")

	assert.Nil(t, engine.Evaluate(nil, time.Now()))
}

func TestOverdueTasksCriticalAt48h(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Two overdue tasks, 50h and 10h past due: rule fires critical, count 2,
	// targeting the 50h-overdue task.
	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusAccepted, Overdue: true, DueAt: timePtr(now.Add(-10 * time.Hour))},
			{ID: 2, Status: models.TaskStatusInProgress, Overdue: true, DueAt: timePtr(now.Add(-50 * time.Hour))},
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, "overdue_tasks_critical_2", got[0].ID)
	assert.Equal(t, models.PriorityCritical, got[0].Priority)
	assert.True(t, got[0].Blocking)
	assert.Equal(t, "task:2", got[0].ActionRef)
	assert.Contains(t, got[0].Message, "2")
}

func TestOverdueTasksImportantBelow48h(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusAccepted, Overdue: true, DueAt: timePtr(now.Add(-10 * time.Hour))},
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, "overdue_tasks_important_1", got[0].ID)
	assert.Equal(t, models.PriorityImportant, got[0].Priority)
	assert.True(t, got[0].Blocking)
}

func TestReopenSLABreached(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 5, Status: models.TaskStatusReopened, ReopenSLA: timePtr(now.Add(-72 * time.Hour))},
			{ID: 6, Status: models.TaskStatusReopened, ReopenSLA: timePtr(now.Add(-time.Hour))},
			{ID: 7, Status: models.TaskStatusReopened, ReopenSLA: timePtr(now.Add(time.Hour))}, // still inside SLA
		},
	}

	got := engine.Evaluate(snap, now)

	breached := findByPrefix(got, "reopen_sla_breached_")
	require.NotNil(t, breached)
	assert.Equal(t, "reopen_sla_breached_critical_2", breached.ID)
	assert.Equal(t, "task:5", breached.ActionRef)

	within := findByPrefix(got, "reopened_within_sla_")
	require.NotNil(t, within)
	assert.Equal(t, "reopened_within_sla_1", within.ID)
	assert.Equal(t, "task:7", within.ActionRef)
	assert.Equal(t, models.PriorityImportant, within.Priority)
}

func TestNewAssignmentsTargetsNewest(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusAssigned, AssignedAt: now.Add(-2 * time.Hour)},
			{ID: 2, Status: models.TaskStatusAssigned, AssignedAt: now.Add(-time.Minute)},
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, "new_assignments_2", got[0].ID)
	assert.Equal(t, "task:2", got[0].ActionRef)
	assert.False(t, got[0].Blocking)
	assert.Equal(t, ToastAutoDismiss, got[0].AutoDismiss)
}

func TestTasksDueSoonWindow(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusAccepted, DueAt: timePtr(now.Add(3 * time.Hour))},
			{ID: 2, Status: models.TaskStatusInProgress, DueAt: timePtr(now.Add(20 * time.Hour))},
			{ID: 3, Status: models.TaskStatusAccepted, DueAt: timePtr(now.Add(30 * time.Hour))},  // outside window
			{ID: 4, Status: models.TaskStatusAccepted, DueAt: timePtr(now.Add(-time.Hour))},      // already past
			{ID: 5, Status: models.TaskStatusSubmitted, DueAt: timePtr(now.Add(2 * time.Hour))}, // not active
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, "tasks_due_soon_2", got[0].ID)
	assert.Equal(t, "task:1", got[0].ActionRef, "action should target the soonest-due task")
}

func TestInProgressNoSubmissionTargetsOldest(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusInProgress, AssignedAt: now.Add(-24 * time.Hour)},
			{ID: 2, Status: models.TaskStatusInProgress, AssignedAt: now.Add(-72 * time.Hour)},
			{ID: 3, Status: models.TaskStatusInProgress, AssignedAt: now.Add(-time.Hour), HasSubmission: true},
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, "in_progress_no_submission_2", got[0].ID)
	assert.Equal(t, "task:2", got[0].ActionRef)
}

func TestPendingModificationRequestsSkipsExpired(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		ModificationRequests: []models.RequestRecord{
			{ID: 1, TaskID: 11, Kind: models.RequestKindModification, RawStatus: "pending", AdminInitiated: true, ExpiresAt: timePtr(now.Add(time.Hour))},
			{ID: 2, TaskID: 12, Kind: models.RequestKindModification, RawStatus: "pending", AdminInitiated: true, ExpiresAt: timePtr(now.Add(-time.Hour))}, // expired
			{ID: 3, TaskID: 13, Kind: models.RequestKindModification, RawStatus: "approved", AdminInitiated: true},                                         // resolved
			{ID: 4, TaskID: 14, Kind: models.RequestKindModification, RawStatus: "pending"},                                                               // not admin-initiated
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, "pending_modification_requests_1", got[0].ID)
	assert.Equal(t, "requests:task:11", got[0].ActionRef)
	assert.Zero(t, got[0].AutoDismiss, "request queue alerts stay until handled")
}

func TestReopenResponseNotices(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Notifications: []models.Notification{
			{ID: 1, Message: "Your reopen request was approved", TaskID: 42},
			{ID: 2, Message: "Your reopen request was declined"},
			{ID: 3, Message: "Your reopen request was approved", Read: true},
			{ID: 4, Message: "Reminder: submit timesheet"},
		},
	}

	got := engine.Evaluate(snap, now)

	reopen := findByPrefix(got, "reopen_response_notices_")
	require.NotNil(t, reopen)
	assert.Equal(t, "reopen_response_notices_2", reopen.ID)
	assert.Equal(t, "requests:task:42", reopen.ActionRef)
}

func TestRequestResponseNoticesExcludesReopen(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Notifications: []models.Notification{
			{ID: 1, Message: "Your extension request was approved"},
			{ID: 2, Message: "Modification request rejected by admin"},
			{ID: 3, Message: "Your reopen request was approved"}, // owned by the reopen rule
			{ID: 4, Message: "Welcome to the console", Read: true},
		},
	}

	got := engine.Evaluate(snap, now)

	resp := findByPrefix(got, "request_response_notices_")
	require.NotNil(t, resp)
	assert.Equal(t, "request_response_notices_2", resp.ID)
	assert.Equal(t, "requests", resp.ActionRef, "no task id resolvable, generic queue route")
}

func TestMeetingsToday(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Meetings: []models.Meeting{
			{ID: 1, Status: models.MeetingStatusScheduled, ScheduledAt: now.Add(4 * time.Hour)},
			{ID: 2, Status: models.MeetingStatusInProgress, ScheduledAt: now.Add(-time.Hour)},
			{ID: 3, Status: models.MeetingStatusScheduled, ScheduledAt: now.Add(25 * time.Hour)}, // tomorrow
			{ID: 4, Status: models.MeetingStatusCancelled, ScheduledAt: now},
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, "meetings_today_2", got[0].ID)
	assert.Equal(t, "meetings", got[0].ActionRef)
}

func TestUnreadNotificationCount(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Notifications: []models.Notification{
			{ID: 1, Message: "hello"},
			{ID: 2, Message: "world"},
			{ID: 3, Message: "seen", Read: true},
		},
	}

	got := engine.Evaluate(snap, now)

	unread := findByPrefix(got, "unread_notifications_")
	require.NotNil(t, unread)
	assert.Equal(t, "unread_notifications_2", unread.ID)
	assert.Equal(t, ToastAutoDismiss, unread.AutoDismiss)
}

// Evaluating the same snapshot twice must yield identical candidate id sets;
// a changed count must yield a different id.
func TestEvaluateIdempotent(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusAssigned, AssignedAt: now.Add(-time.Hour)},
		},
		Notifications: []models.Notification{
			{ID: 1, Message: "ping"},
		},
	}

	first := engine.Evaluate(snap, now)
	second := engine.Evaluate(snap, now)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	// Membership churn with an unchanged count keeps the same identity.
	snap.Tasks[0].ID = 99
	churned := engine.Evaluate(snap, now)
	assert.Equal(t, first[0].ID, churned[0].ID)

	// A changed count forces a new identity.
	snap.Tasks = append(snap.Tasks, models.Task{ID: 2, Status: models.TaskStatusAssigned, AssignedAt: now})
	grown := engine.Evaluate(snap, now)
	assert.NotEqual(t, first[0].ID, grown[0].ID)
}

// Catalogue order is the blocking tie-break: overdue tasks come before
// reopen breaches in the returned slice.
func TestCatalogueOrder(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusAccepted, Overdue: true, DueAt: timePtr(now.Add(-60 * time.Hour))},
			{ID: 2, Status: models.TaskStatusReopened, ReopenSLA: timePtr(now.Add(-60 * time.Hour))},
		},
	}

	got := engine.Evaluate(snap, now)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].ID, "overdue_tasks_")
	assert.Contains(t, got[1].ID, "reopen_sla_breached_")
}
