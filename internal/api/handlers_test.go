package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/models"
	"github.com/opsdesk/console-core/internal/presentation"
	"github.com/opsdesk/console-core/internal/rules"
	"github.com/opsdesk/console-core/internal/snapshot"
	"github.com/opsdesk/console-core/internal/store"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

// newTestServer wires the full core behind an in-memory store with a fixed
// clock at 10:00 local (outside quiet hours)
func newTestServer(t *testing.T) (*Server, *snapshot.Refresher) {
	t.Helper()
	logger := zap.NewNop()
	clock := fixedClock{now: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)}
	kv := store.NewMemoryStore()
	scope := store.Scope{Role: "employee", Session: "test-session"}

	state := presentation.LoadState(kv, scope, logger)
	policy := presentation.NewPolicy(state, clock, presentation.DefaultConfig(), logger)
	t.Cleanup(policy.Stop)

	provider := snapshot.NewStaticProvider(&models.Snapshot{})
	hub := NewHub(logger)
	t.Cleanup(hub.Close)

	refresher := snapshot.NewRefresher(provider, rules.NewEngine(logger), policy, clock,
		time.Hour, time.Hour, hub.Broadcast, logger)
	t.Cleanup(refresher.Stop)

	handlers := NewHandlers(refresher, policy, provider, clock, kv, scope, hub, logger)
	srv := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, handlers, logger)
	return srv, refresher
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSnapshotIngestProducesAlerts(t *testing.T) {
	srv, _ := newTestServer(t)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	due := now.Add(-50 * time.Hour)
	snap := models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusInProgress, Overdue: true, DueAt: &due},
		},
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)

	var pres presentation.Presentation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pres))
	require.NotNil(t, pres.Critical)
	assert.Equal(t, "overdue_tasks_critical_1", pres.Critical.ID)
}

func TestSnapshotIngestRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshot", bytes.NewBufferString("{broken"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcknowledgeSuppressesCritical(t *testing.T) {
	srv, refresher := newTestServer(t)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	due := now.Add(-50 * time.Hour)
	snap := models.Snapshot{
		Tasks: []models.Task{
			{ID: 1, Status: models.TaskStatusInProgress, Overdue: true, DueAt: &due},
		},
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, refresher.Latest().Critical)

	id := refresher.Latest().Critical.ID
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/alerts/%s/acknowledge", id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Re-ingest the same snapshot: the acknowledged condition stays closed.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, refresher.Latest().Critical)
}

func TestDismissAndSnoozeEndpoints(t *testing.T) {
	srv, refresher := newTestServer(t)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	snap := models.Snapshot{
		Meetings: []models.Meeting{
			{ID: 1, Status: models.MeetingStatusScheduled, ScheduledAt: now.Add(2 * time.Hour)},
		},
		Notifications: []models.Notification{
			{ID: 1, Message: "Your extension request was approved"},
		},
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, refresher.Latest().Toasts)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alerts/meetings_today_1/dismiss", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alerts/request_response_notices_1/snooze", snoozeRequest{Minutes: 15})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, toast := range refresher.Latest().Toasts {
		assert.NotEqual(t, "meetings_today_1", toast.ID)
		assert.NotEqual(t, "request_response_notices_1", toast.ID)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	expires := now.Add(-time.Millisecond)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/classify", models.RequestRecord{
		ID:        7,
		TaskID:    12,
		Kind:      models.RequestKindModification,
		RawStatus: "pending",
		ExpiresAt: &expires,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp classifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "expired", string(resp.Status))
	assert.True(t, resp.Expired)
	require.NotNil(t, resp.SlaMeta)
	assert.Equal(t, "SLA expired", resp.SlaMeta.Label)
}

func TestClassifyEndpointNoDeadline(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/classify", models.RequestRecord{
		ID:        8,
		Kind:      models.RequestKindExtension,
		RawStatus: "accepted",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp classifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "approved", string(resp.Status))
	assert.Nil(t, resp.SlaMeta, "no deadline yields no SLA meta")
}

func TestClearSessionStateRestoresDismissed(t *testing.T) {
	srv, refresher := newTestServer(t)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	snap := models.Snapshot{
		Tasks: []models.Task{
			{ID: 3, Status: models.TaskStatusAssigned, AssignedAt: now.Add(-time.Hour)},
		},
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, refresher.Latest().Toasts, 1)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alerts/new_assignments_1/dismiss", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, refresher.Latest().Toasts)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/session/state", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The clear wipes live state too: the same snapshot surfaces the
	// dismissed alert again immediately, not just after a restart.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/snapshot", snap)
	require.Equal(t, http.StatusOK, rec.Code)

	toasts := refresher.Latest().Toasts
	require.Len(t, toasts, 1)
	assert.Equal(t, "new_assignments_1", toasts[0].ID)
}

func TestGetAlertsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pres presentation.Presentation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pres))
	assert.Nil(t, pres.Critical)
	assert.Empty(t, pres.Toasts)
}
