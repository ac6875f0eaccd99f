// Package rules evaluates the alert rule catalogue against a domain snapshot.
// Evaluation is a pure function of the snapshot and "now": no hidden state,
// no I/O. Deduplication and presentation filtering happen downstream in the
// presentation package.
package rules

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/lifecycle"
	"github.com/opsdesk/console-core/internal/models"
)

const (
	// CriticalOverdueAge is the overdue/breach age at which a blocking alert
	// escalates from important to critical.
	CriticalOverdueAge = 48 * time.Hour

	// DueSoonWindow is how far ahead the "due soon" rule looks.
	DueSoonWindow = 24 * time.Hour

	// ToastAutoDismiss is the display duration for transient toasts.
	ToastAutoDismiss = 10 * time.Second
)

// Engine evaluates the ordered rule catalogue. Catalogue order defines the
// tie-break rank when multiple blocking-eligible conditions hold at once:
// the first rule to emit wins the single blocking slot downstream.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a rule engine
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// rule is one entry in the catalogue. A rule that has nothing to report, or
// cannot compute from the snapshot it was given, returns nil rather than
// failing; no rule can abort the others.
type rule func(snap *models.Snapshot, now time.Time) *models.AlertCandidate

// Evaluate runs every rule in catalogue order and returns all candidates.
// Calling it twice with an identical snapshot and now yields identical
// candidate id sets.
func (e *Engine) Evaluate(snap *models.Snapshot, now time.Time) []models.AlertCandidate {
	if snap == nil {
		return nil
	}

	catalogue := []rule{
		e.overdueActiveTasks,
		e.reopenSLABreached,
		e.newAssignments,
		e.tasksDueSoon,
		e.inProgressNoSubmission,
		e.pendingModificationRequests,
		e.reopenedWithinSLA,
		e.reopenResponseNotices,
		e.requestResponseNotices,
		e.meetingsToday,
		e.unreadNotifications,
	}

	var out []models.AlertCandidate
	for _, r := range catalogue {
		if c := r(snap, now); c != nil {
			out = append(out, *c)
		}
	}

	e.logger.Debug("Rule catalogue evaluated",
		zap.Int("candidates", len(out)),
		zap.Time("now", now))

	return out
}

// overdueActiveTasks fires when accepted or in-progress tasks are flagged
// overdue. Critical once the most-overdue task is 48h past due.
func (e *Engine) overdueActiveTasks(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var overdue []models.Task
	for _, t := range snap.Tasks {
		if (t.Status == models.TaskStatusAccepted || t.Status == models.TaskStatusInProgress) && t.Overdue {
			overdue = append(overdue, t)
		}
	}
	if len(overdue) == 0 {
		return nil
	}

	// Most overdue task wins the action target.
	worst := overdue[0]
	var worstAge time.Duration
	for _, t := range overdue {
		if t.DueAt == nil {
			continue
		}
		if age := now.Sub(*t.DueAt); age > worstAge {
			worstAge = age
			worst = t
		}
	}

	priority := models.PriorityImportant
	tier := "important"
	if worstAge >= CriticalOverdueAge {
		priority = models.PriorityCritical
		tier = "critical"
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("overdue_tasks_%s_%d", tier, len(overdue)),
		Priority:    priority,
		Title:       "Overdue tasks",
		Message:     fmt.Sprintf("You have %d overdue task(s) that need attention", len(overdue)),
		SoftMessage: fmt.Sprintf("%d task(s) are past due, when you get a moment", len(overdue)),
		ActionRef:   taskRef(worst.ID),
		Blocking:    true,
		Dismissible: true,
	}
}

// reopenSLABreached fires when reopened tasks have blown their response
// deadline. Same critical split at 48h breach age as overdue tasks.
func (e *Engine) reopenSLABreached(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var breached []models.Task
	var worst models.Task
	var worstAge time.Duration
	for _, t := range snap.Tasks {
		if t.Status != models.TaskStatusReopened || t.ReopenSLA == nil || t.ReopenSLA.After(now) {
			continue
		}
		breached = append(breached, t)
		if age := now.Sub(*t.ReopenSLA); age > worstAge || len(breached) == 1 {
			worstAge = age
			worst = t
		}
	}
	if len(breached) == 0 {
		return nil
	}

	priority := models.PriorityImportant
	tier := "important"
	if worstAge >= CriticalOverdueAge {
		priority = models.PriorityCritical
		tier = "critical"
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("reopen_sla_breached_%s_%d", tier, len(breached)),
		Priority:    priority,
		Title:       "Reopen response overdue",
		Message:     fmt.Sprintf("%d reopened task(s) have passed their response deadline", len(breached)),
		SoftMessage: fmt.Sprintf("%d reopened task(s) are waiting past deadline", len(breached)),
		ActionRef:   taskRef(worst.ID),
		Blocking:    true,
		Dismissible: true,
	}
}

// newAssignments fires for tasks still awaiting acceptance
func (e *Engine) newAssignments(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var assigned []models.Task
	newest := models.Task{}
	for _, t := range snap.Tasks {
		if t.Status != models.TaskStatusAssigned {
			continue
		}
		assigned = append(assigned, t)
		if len(assigned) == 1 || t.AssignedAt.After(newest.AssignedAt) {
			newest = t
		}
	}
	if len(assigned) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("new_assignments_%d", len(assigned)),
		Priority:    models.PriorityImportant,
		Title:       "New assignments",
		Message:     fmt.Sprintf("%d new task(s) are waiting for you to accept", len(assigned)),
		ActionRef:   taskRef(newest.ID),
		Dismissible: true,
		AutoDismiss: ToastAutoDismiss,
	}
}

// tasksDueSoon fires for active tasks whose due date is in the future but
// within the 24h window
func (e *Engine) tasksDueSoon(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var due []models.Task
	var soonest models.Task
	for _, t := range snap.Tasks {
		if t.Status != models.TaskStatusAccepted && t.Status != models.TaskStatusInProgress {
			continue
		}
		if t.DueAt == nil || !t.DueAt.After(now) || t.DueAt.Sub(now) > DueSoonWindow {
			continue
		}
		due = append(due, t)
		if soonest.DueAt == nil || t.DueAt.Before(*soonest.DueAt) {
			soonest = t
		}
	}
	if len(due) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("tasks_due_soon_%d", len(due)),
		Priority:    models.PriorityImportant,
		Title:       "Due within 24 hours",
		Message:     fmt.Sprintf("%d task(s) are due within the next 24 hours", len(due)),
		ActionRef:   taskRef(soonest.ID),
		Dismissible: true,
		AutoDismiss: ToastAutoDismiss,
	}
}

// inProgressNoSubmission nudges about started tasks with nothing submitted yet
func (e *Engine) inProgressNoSubmission(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var stale []models.Task
	var oldest models.Task
	for _, t := range snap.Tasks {
		if t.Status != models.TaskStatusInProgress || t.HasSubmission {
			continue
		}
		stale = append(stale, t)
		if len(stale) == 1 || t.AssignedAt.Before(oldest.AssignedAt) {
			oldest = t
		}
	}
	if len(stale) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("in_progress_no_submission_%d", len(stale)),
		Priority:    models.PriorityImportant,
		Title:       "No submission yet",
		Message:     fmt.Sprintf("%d in-progress task(s) have no submission yet", len(stale)),
		ActionRef:   taskRef(oldest.ID),
		Dismissible: true,
		AutoDismiss: ToastAutoDismiss,
	}
}

// pendingModificationRequests surfaces admin-initiated modification requests
// that are still pending and inside their SLA
func (e *Engine) pendingModificationRequests(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	statuses := lifecycle.ClassifyAll(snap.ModificationRequests, now)

	var pending []models.RequestRecord
	for i, r := range snap.ModificationRequests {
		if !r.AdminInitiated {
			continue
		}
		if statuses[i] == lifecycle.StatusPending {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("pending_modification_requests_%d", len(pending)),
		Priority:    models.PriorityImportant,
		Title:       "Modification requests",
		Message:     fmt.Sprintf("%d modification request(s) from admin await your response", len(pending)),
		ActionRef:   requestQueueRef(pending[0].TaskID),
		Dismissible: true,
	}
}

// reopenedWithinSLA surfaces reopened tasks whose response window is still open
func (e *Engine) reopenedWithinSLA(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var open []models.Task
	for _, t := range snap.Tasks {
		if t.Status == models.TaskStatusReopened && t.ReopenSLA != nil && t.ReopenSLA.After(now) {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("reopened_within_sla_%d", len(open)),
		Priority:    models.PriorityImportant,
		Title:       "Reopened tasks",
		Message:     fmt.Sprintf("%d reopened task(s) are awaiting your response", len(open)),
		ActionRef:   taskRef(open[0].ID),
		Dismissible: true,
	}
}

// resolutionKeywords mark a notification as describing a request outcome
var resolutionKeywords = []string{"approved", "rejected", "declined", "accepted", "response", "updated"}

// reopenResponseNotices matches unread notifications whose text indicates a
// response to a reopen request
func (e *Engine) reopenResponseNotices(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var matched []models.Notification
	for _, n := range snap.Notifications {
		if n.Read {
			continue
		}
		text := strings.ToLower(n.Message)
		if strings.Contains(text, "reopen") && containsAny(text, resolutionKeywords) {
			matched = append(matched, n)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("reopen_response_notices_%d", len(matched)),
		Priority:    models.PriorityImportant,
		Title:       "Reopen request update",
		Message:     fmt.Sprintf("%d update(s) on your reopen request(s)", len(matched)),
		ActionRef:   requestQueueRef(matched[0].TaskID),
		Dismissible: true,
	}
}

// requestResponseNotices matches unread notifications indicating a response
// to a modification or extension request, excluding reopen traffic which the
// previous rule owns
func (e *Engine) requestResponseNotices(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var matched []models.Notification
	for _, n := range snap.Notifications {
		if n.Read {
			continue
		}
		text := strings.ToLower(n.Message)
		if strings.Contains(text, "reopen") {
			continue
		}
		if containsAny(text, []string{"request", "modification", "extension"}) && containsAny(text, resolutionKeywords) {
			matched = append(matched, n)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("request_response_notices_%d", len(matched)),
		Priority:    models.PriorityImportant,
		Title:       "Request update",
		Message:     fmt.Sprintf("%d update(s) on your request(s)", len(matched)),
		ActionRef:   requestQueueRef(matched[0].TaskID),
		Dismissible: true,
	}
}

// meetingsToday fires when meetings are scheduled for the current day
func (e *Engine) meetingsToday(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	var today []models.Meeting
	for _, m := range snap.Meetings {
		if m.Status != models.MeetingStatusScheduled && m.Status != models.MeetingStatusInProgress {
			continue
		}
		if sameDay(m.ScheduledAt, now) {
			today = append(today, m)
		}
	}
	if len(today) == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("meetings_today_%d", len(today)),
		Priority:    models.PriorityImportant,
		Title:       "Meetings today",
		Message:     fmt.Sprintf("You have %d meeting(s) scheduled today", len(today)),
		ActionRef:   "meetings",
		Dismissible: true,
	}
}

// unreadNotifications fires whenever any unread in-app notification exists
func (e *Engine) unreadNotifications(snap *models.Snapshot, now time.Time) *models.AlertCandidate {
	count := 0
	for _, n := range snap.Notifications {
		if !n.Read {
			count++
		}
	}
	if count == 0 {
		return nil
	}

	return &models.AlertCandidate{
		ID:          fmt.Sprintf("unread_notifications_%d", count),
		Priority:    models.PriorityImportant,
		Title:       "Unread notifications",
		Message:     fmt.Sprintf("You have %d unread notification(s)", count),
		ActionRef:   "notifications",
		Dismissible: true,
		AutoDismiss: ToastAutoDismiss,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func taskRef(id int64) string {
	return fmt.Sprintf("task:%d", id)
}

// requestQueueRef routes to the request queue, task-specific when the task
// is resolvable, generic otherwise
func requestQueueRef(taskID int64) string {
	if taskID == 0 {
		return "requests"
	}
	return fmt.Sprintf("requests:task:%d", taskID)
}
