package queue

import (
	"context"

	"github.com/bizhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InlineQueue runs each task once on the caller's goroutine. Failures are
// logged and not returned, matching the fire-and-forget contract of Enqueue.
type InlineQueue struct {
	registry *Registry
	logger   *zap.Logger
}

// NewInlineQueue creates a new InlineQueue
func NewInlineQueue(registry *Registry, logger *zap.Logger) *InlineQueue {
	return &InlineQueue{registry: registry, logger: logger}
}

// Enqueue runs the task immediately
func (q *InlineQueue) Enqueue(ctx context.Context, task *shared.Task) error {
	task.Attempts = 1
	if err := q.registry.run(ctx, task); err != nil {
		q.logger.Error("Inline task failed",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type),
			zap.String("tenant_id", task.TenantID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// Start is a no-op
func (q *InlineQueue) Start(context.Context) error { return nil }

// Stop is a no-op
func (q *InlineQueue) Stop(context.Context) error { return nil }

var _ Queue = (*InlineQueue)(nil)
