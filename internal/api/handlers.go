package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/lifecycle"
	"github.com/opsdesk/console-core/internal/models"
	"github.com/opsdesk/console-core/internal/presentation"
	"github.com/opsdesk/console-core/internal/sla"
	"github.com/opsdesk/console-core/internal/snapshot"
	"github.com/opsdesk/console-core/internal/store"
)

// Handlers translate HTTP requests into core calls
type Handlers struct {
	refresher *snapshot.Refresher
	policy    *presentation.Policy
	ingest    *snapshot.StaticProvider
	clock     presentation.Clock
	kv        store.KV
	scope     store.Scope
	hub       *Hub
	logger    *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(
	refresher *snapshot.Refresher,
	policy *presentation.Policy,
	ingest *snapshot.StaticProvider,
	clock presentation.Clock,
	kv store.KV,
	scope store.Scope,
	hub *Hub,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		refresher: refresher,
		policy:    policy,
		ingest:    ingest,
		clock:     clock,
		kv:        kv,
		scope:     scope,
		hub:       hub,
		logger:    logger,
	}
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "console-core",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// GetAlerts returns the latest visible alert set
func (h *Handlers) GetAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.refresher.Latest())
}

// AcknowledgeAlert records the critical modal's acknowledge action
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	h.policy.Acknowledge(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// DismissAlert permanently suppresses a toast id for the session
func (h *Handlers) DismissAlert(c *gin.Context) {
	h.policy.Dismiss(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// snoozeRequest is the snooze endpoint's optional body
type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

// SnoozeAlert hides the alert until the snooze window lapses
func (h *Handlers) SnoozeAlert(c *gin.Context) {
	var req snoozeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snooze body: " + err.Error()})
			return
		}
	}
	if req.Minutes == 0 {
		if m, err := strconv.Atoi(c.Query("minutes")); err == nil {
			req.Minutes = m
		}
	}

	h.policy.Snooze(c.Param("id"), req.Minutes)
	c.Status(http.StatusNoContent)
}

// IngestSnapshot accepts a pushed domain snapshot and re-evaluates
// immediately
func (h *Handlers) IngestSnapshot(c *gin.Context) {
	var snap models.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot: " + err.Error()})
		return
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = h.clock.Now()
	}

	h.ingest.Set(&snap)
	if err := h.refresher.Refresh(c.Request.Context()); err != nil {
		h.logger.Error("Snapshot re-evaluation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.refresher.Latest())
}

// classifyResponse pairs the canonical status with the derived SLA state
type classifyResponse struct {
	Status  lifecycle.Status `json:"status"`
	Expired bool             `json:"expired"`
	SlaMeta *sla.Meta        `json:"sla_meta,omitempty"`
}

// ClassifyRequest classifies a single request record against "now"
func (h *Handlers) ClassifyRequest(c *gin.Context) {
	var rec models.RequestRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request record: " + err.Error()})
		return
	}

	now := h.clock.Now()
	c.JSON(http.StatusOK, classifyResponse{
		Status:  lifecycle.Classify(rec, now),
		Expired: lifecycle.IsExpired(rec, now),
		SlaMeta: sla.Evaluate(rec.Deadline(), now),
	})
}

// ClearSessionState wipes the session's presentation memory. This is the
// explicit user "clear" boundary: both the persisted scope and the live
// in-memory state are emptied, so previously suppressed alerts become
// eligible again on the next evaluation.
func (h *Handlers) ClearSessionState(c *gin.Context) {
	if err := store.Clear(h.kv, h.scope); err != nil {
		h.logger.Error("Failed to clear session state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.policy.Reset()
	c.Status(http.StatusNoContent)
}

// WebSocket upgrades the connection and streams presentation updates
func (h *Handlers) WebSocket(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}
