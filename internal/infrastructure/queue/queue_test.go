package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu    sync.Mutex
	types []string
	seen  []*shared.Task
	fail  int // number of calls that fail before succeeding
	panic bool
}

func (h *recordingHandler) TaskTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, task *shared.Task) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, task)
	if h.panic {
		panic("boom")
	}
	if h.fail > 0 {
		h.fail--
		return errors.New("provider unavailable")
	}
	return nil
}

func (h *recordingHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func mustTask(t *testing.T, taskType string) *shared.Task {
	t.Helper()
	task, err := shared.NewTask(taskType, uuid.New(), map[string]string{"to": "ama@example.com"})
	require.NoError(t, err)
	return task
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	h := &recordingHandler{types: []string{"notification.email", "notification.sms"}}
	registry.Register(h)

	got, ok := registry.Handler("notification.sms")
	require.True(t, ok)
	assert.Same(t, h, got)

	_, ok = registry.Handler("cart.track")
	assert.False(t, ok)

	err := registry.run(context.Background(), mustTask(t, "cart.track"))
	assert.EqualError(t, err, "no handler for task type cart.track")
}

func TestRegistry_PanicBecomesError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&recordingHandler{types: []string{"cart.track"}, panic: true})

	err := registry.run(context.Background(), mustTask(t, "cart.track"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task handler panicked: boom")
}

func TestInlineQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the task synchronously", func(t *testing.T) {
		registry := NewRegistry()
		h := &recordingHandler{types: []string{"cart.track"}}
		registry.Register(h)
		q := NewInlineQueue(registry, zap.NewNop())

		require.NoError(t, q.Enqueue(ctx, mustTask(t, "cart.track")))
		assert.Equal(t, 1, h.calls())
		assert.Equal(t, 1, h.seen[0].Attempts)
	})

	t.Run("failure is swallowed and not retried", func(t *testing.T) {
		registry := NewRegistry()
		h := &recordingHandler{types: []string{"cart.track"}, fail: 1}
		registry.Register(h)
		q := NewInlineQueue(registry, zap.NewNop())

		assert.NoError(t, q.Enqueue(ctx, mustTask(t, "cart.track")))
		assert.Equal(t, 1, h.calls())
	})

	t.Run("unknown task type is logged", func(t *testing.T) {
		q := NewInlineQueue(NewRegistry(), zap.NewNop())
		assert.NoError(t, q.Enqueue(ctx, mustTask(t, "cart.track")))
	})
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	cause := errors.New("smtp timeout")

	task := &shared.Task{MaxAttempts: 3, Attempts: 1}
	retryAt, dead := nextAttempt(task, cause, now, 2*time.Second)
	assert.False(t, dead)
	assert.Equal(t, now.Add(2*time.Second), retryAt)
	assert.Equal(t, "smtp timeout", task.LastError)

	task.Attempts = 2
	retryAt, dead = nextAttempt(task, cause, now, 2*time.Second)
	assert.False(t, dead)
	assert.Equal(t, now.Add(4*time.Second), retryAt)

	task.Attempts = 3
	_, dead = nextAttempt(task, cause, now, 2*time.Second)
	assert.True(t, dead)

	unset := &shared.Task{Attempts: DefaultMaxAttempts}
	_, dead = nextAttempt(unset, cause, now, time.Second)
	assert.True(t, dead)
}

func TestNew_FallsBackToInline(t *testing.T) {
	q := New(config.QueueConfig{}, nil, NewRegistry(), zap.NewNop())
	assert.IsType(t, &InlineQueue{}, q)
}
