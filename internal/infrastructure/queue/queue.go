// Package queue runs background tasks. The Redis queue delivers each task at
// least once with retries and a dead-letter list; the inline queue runs tasks
// on the caller's goroutine and is used when Redis is not configured.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 2 * time.Second
)

// Registry maps task types to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]shared.TaskHandler
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]shared.TaskHandler)}
}

// Register adds a handler for every type it declares. A later registration
// for the same type replaces the earlier one.
func (r *Registry) Register(h shared.TaskHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range h.TaskTypes() {
		r.handlers[t] = h
	}
}

// Handler returns the handler for a task type
func (r *Registry) Handler(taskType string) (shared.TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskType]
	return h, ok
}

// run dispatches a task, turning a panic into an error
func (r *Registry) run(ctx context.Context, task *shared.Task) (err error) {
	h, ok := r.Handler(task.Type)
	if !ok {
		return fmt.Errorf("no handler for task type %s", task.Type)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task handler panicked: %v", rec)
		}
	}()
	return h.Handle(ctx, task)
}

// Queue is a task queue with a lifecycle
type Queue interface {
	shared.TaskQueue
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// New returns a Redis queue when client is non-nil and an inline queue
// otherwise
func New(cfg config.QueueConfig, client redis.UniversalClient, registry *Registry, logger *zap.Logger) Queue {
	if client == nil {
		logger.Warn("Redis not configured, background tasks run inline without retries")
		return NewInlineQueue(registry, logger)
	}
	return NewRedisQueue(client, registry, Options{
		Name:        cfg.Name,
		Workers:     cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff,
	}, logger)
}
