package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	eventapp "github.com/bizhub/backend/internal/application/event"
	"github.com/bizhub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeadLetters lists and retries work that exhausted its retries
type DeadLetters interface {
	List(ctx context.Context, filter eventapp.DeadLetterFilter) (*eventapp.DeadLetterList, error)
	RetryEntry(ctx context.Context, id uuid.UUID) (*eventapp.OutboxEntryDTO, error)
	RetryAllEntries(ctx context.Context) (int64, error)
	RetryTask(ctx context.Context, taskID string) error
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// SystemHandler serves health checks and the dead letter admin endpoints
type SystemHandler struct {
	BaseHandler
	deadLetters DeadLetters
	checks      map[string]HealthCheck
	version     string
	startTime   time.Time
}

// NewSystemHandler creates a new SystemHandler. checks are run by Ready.
func NewSystemHandler(deadLetters DeadLetters, version string, checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{
		deadLetters: deadLetters,
		checks:      checks,
		version:     version,
		startTime:   time.Now(),
	}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports liveness
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ready runs every dependency check and answers 503 when one fails
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Version: h.version, Checks: map[string]string{}}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp,
			Error: &dto.ErrorInfo{Code: "UNAVAILABLE", Message: "Dependency check failed"}})
		return
	}
	h.Success(c, resp)
}

// ListDeadLetters pages dead outbox entries and shows the newest dead tasks
func (h *SystemHandler) ListDeadLetters(c *gin.Context) {
	var filter eventapp.DeadLetterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	list, err := h.deadLetters.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

func (h *SystemHandler) RetryDeadLetter(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.deadLetters.RetryEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

func (h *SystemHandler) RetryAllDeadLetters(c *gin.Context) {
	n, err := h.deadLetters.RetryAllEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"retried": n})
}

func (h *SystemHandler) RetryDeadTask(c *gin.Context) {
	if err := h.deadLetters.RetryTask(c.Request.Context(), c.Param("task_id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"task_id": c.Param("task_id"), "retried": true})
}
