package queue

import (
	"context"
	"testing"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestRedisQueue(client *redis.Client, registry *Registry) *RedisQueue {
	return NewRedisQueue(client, registry, Options{
		Name:         "test:tasks",
		Workers:      2,
		MaxAttempts:  3,
		BaseBackoff:  10 * time.Millisecond,
		PollTimeout:  50 * time.Millisecond,
		PromoteEvery: 10 * time.Millisecond,
	}, zap.NewNop())
}

func TestRedisQueue_DeliversTask(t *testing.T) {
	client := newRedisClient(t)
	registry := NewRegistry()
	h := &recordingHandler{types: []string{"notification.email"}}
	registry.Register(h)
	q := newTestRedisQueue(client, registry)

	ctx := context.Background()
	task := mustTask(t, "notification.email")
	require.NoError(t, q.Enqueue(ctx, task))
	require.NoError(t, q.Start(ctx))
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	assert.Eventually(t, func() bool { return h.calls() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, task.ID, h.seen[0].ID)

	assert.Eventually(t, func() bool {
		n, err := client.LLen(ctx, q.processingKey).Result()
		return err == nil && n == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedisQueue_RetriesThenSucceeds(t *testing.T) {
	client := newRedisClient(t)
	registry := NewRegistry()
	h := &recordingHandler{types: []string{"notification.sms"}, fail: 2}
	registry.Register(h)
	q := newTestRedisQueue(client, registry)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, mustTask(t, "notification.sms")))
	require.NoError(t, q.Start(ctx))
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	assert.Eventually(t, func() bool { return h.calls() == 3 }, 5*time.Second, 20*time.Millisecond)

	dead, err := q.DeadTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestRedisQueue_DeadLetterAndRequeue(t *testing.T) {
	client := newRedisClient(t)
	registry := NewRegistry()
	h := &recordingHandler{types: []string{"notification.email"}, fail: 3}
	registry.Register(h)
	q := newTestRedisQueue(client, registry)

	ctx := context.Background()
	task := mustTask(t, "notification.email")
	require.NoError(t, q.Enqueue(ctx, task))
	require.NoError(t, q.Start(ctx))
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	var dead []*shared.Task
	require.Eventually(t, func() bool {
		var err error
		dead, err = q.DeadTasks(ctx, 10)
		return err == nil && len(dead) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, task.ID, dead[0].ID)
	assert.Equal(t, 3, dead[0].Attempts)
	assert.Equal(t, "provider unavailable", dead[0].LastError)

	require.NoError(t, q.RequeueDead(ctx, task.ID))
	assert.Eventually(t, func() bool { return h.calls() == 4 }, 5*time.Second, 20*time.Millisecond)

	dead, err := q.DeadTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, dead)

	var domainErr *shared.DomainError
	assert.ErrorAs(t, q.RequeueDead(ctx, "missing"), &domainErr)
}

func TestRedisQueue_Recover(t *testing.T) {
	client := newRedisClient(t)
	q := newTestRedisQueue(client, NewRegistry())
	ctx := context.Background()

	require.NoError(t, client.LPush(ctx, q.processingKey, "a", "b").Err())
	moved, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	ready, _, _, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ready)
}
