package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	appevent "github.com/bizhub/backend/internal/application/event"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const deadListCap = 1000

// Options configures a RedisQueue
type Options struct {
	Name         string
	Workers      int
	MaxAttempts  int
	BaseBackoff  time.Duration
	PollTimeout  time.Duration
	PromoteEvery time.Duration
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = "bizhub:tasks"
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = DefaultBaseBackoff
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = time.Second
	}
	if o.PromoteEvery <= 0 {
		o.PromoteEvery = 500 * time.Millisecond
	}
}

// RedisQueue keeps tasks in Redis lists. Workers move a task from the ready
// list to the processing list with BLMOVE, so a task is removed only after
// its handler finished. Failed tasks wait in a sorted set scored by their
// retry time; tasks out of attempts are pushed to the dead list.
type RedisQueue struct {
	client   redis.UniversalClient
	registry *Registry
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	readyKey      string
	processingKey string
	delayedKey    string
	deadKey       string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisQueue creates a new RedisQueue
func NewRedisQueue(client redis.UniversalClient, registry *Registry, opts Options, logger *zap.Logger) *RedisQueue {
	opts.applyDefaults()
	return &RedisQueue{
		client:        client,
		registry:      registry,
		opts:          opts,
		logger:        logger,
		now:           time.Now,
		readyKey:      opts.Name + ":ready",
		processingKey: opts.Name + ":processing",
		delayedKey:    opts.Name + ":delayed",
		deadKey:       opts.Name + ":dead",
	}
}

// Enqueue pushes a task to the ready list
func (q *RedisQueue) Enqueue(ctx context.Context, task *shared.Task) error {
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = q.opts.MaxAttempts
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.readyKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.Type, err)
	}
	return nil
}

// Start launches the workers and the retry promoter
func (q *RedisQueue) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.workLoop(ctx)
	}
	q.wg.Add(1)
	go q.promoteLoop(ctx)

	q.logger.Info("Task queue started",
		zap.String("queue", q.opts.Name),
		zap.Int("workers", q.opts.Workers),
		zap.Int("max_attempts", q.opts.MaxAttempts),
	)
	return nil
}

// Stop waits for in-flight tasks to finish
func (q *RedisQueue) Stop(ctx context.Context) error {
	if q.cancel != nil {
		q.cancel()
	}
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("Task queue stopped", zap.String("queue", q.opts.Name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recover moves tasks left in the processing list by a crashed process back
// to the ready list. Call it before Start, and only when no other process
// consumes the same queue.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processingKey, q.readyKey, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		q.logger.Warn("Requeued orphaned tasks", zap.Int("count", moved))
	}
	return moved, nil
}

func (q *RedisQueue) workLoop(ctx context.Context) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		raw, err := q.client.BLMove(ctx, q.readyKey, q.processingKey, "RIGHT", "LEFT", q.opts.PollTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Error("Failed to pop task", zap.Error(err))
			sleep(ctx, q.opts.PollTimeout)
			continue
		}
		// the task runs to completion even when shutdown starts
		q.process(context.WithoutCancel(ctx), raw)
	}
}

func (q *RedisQueue) process(ctx context.Context, raw string) {
	defer func() {
		if err := q.client.LRem(ctx, q.processingKey, 1, raw).Err(); err != nil {
			q.logger.Error("Failed to ack task", zap.Error(err))
		}
	}()

	var task shared.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		q.logger.Error("Dropping undecodable task", zap.String("raw", raw), zap.Error(err))
		q.pushDead(ctx, raw)
		return
	}

	task.Attempts++
	err := q.registry.run(ctx, &task)
	if err == nil {
		q.logger.Debug("Task done",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type),
		)
		return
	}

	retryAt, dead := nextAttempt(&task, err, q.now(), q.opts.BaseBackoff)
	encoded, encErr := json.Marshal(&task)
	if encErr != nil {
		q.logger.Error("Failed to encode task", zap.Error(encErr))
		return
	}
	if dead {
		q.logger.Warn("Task moved to dead list",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type),
			zap.String("tenant_id", task.TenantID.String()),
			zap.Int("attempts", task.Attempts),
			zap.Error(err),
		)
		q.pushDead(ctx, string(encoded))
		return
	}

	q.logger.Warn("Task failed, will retry",
		zap.String("task_id", task.ID),
		zap.String("task_type", task.Type),
		zap.Int("attempts", task.Attempts),
		zap.Time("retry_at", retryAt),
		zap.Error(err),
	)
	if err := q.client.ZAdd(ctx, q.delayedKey, redis.Z{
		Score:  float64(retryAt.UnixMilli()),
		Member: string(encoded),
	}).Err(); err != nil {
		q.logger.Error("Failed to schedule retry", zap.String("task_id", task.ID), zap.Error(err))
	}
}

// nextAttempt records the failure on the task and returns when to retry it,
// or dead=true once attempts are spent
func nextAttempt(task *shared.Task, cause error, now time.Time, base time.Duration) (time.Time, bool) {
	task.LastError = cause.Error()
	limit := task.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	if task.Attempts >= limit {
		return time.Time{}, true
	}
	return now.Add(shared.ExponentialBackoff(base, task.Attempts)), false
}

func (q *RedisQueue) pushDead(ctx context.Context, raw string) {
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.deadKey, raw)
	pipe.LTrim(ctx, q.deadKey, 0, deadListCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error("Failed to store dead task", zap.Error(err))
	}
}

func (q *RedisQueue) promoteLoop(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.opts.PromoteEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error("Failed to promote retries", zap.Error(err))
			}
		}
	}
}

// PromoteDue moves retries whose time has come back to the ready list
func (q *RedisQueue) PromoteDue(ctx context.Context) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: 100,
	}).Result()
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, raw := range due {
		// ZREM decides which process owns the promotion
		removed, err := q.client.ZRem(ctx, q.delayedKey, raw).Result()
		if err != nil {
			return promoted, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.readyKey, raw).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// DeadTasks returns the most recent dead tasks, newest first
func (q *RedisQueue) DeadTasks(ctx context.Context, limit int) ([]*shared.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	raws, err := q.client.LRange(ctx, q.deadKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]*shared.Task, 0, len(raws))
	for _, raw := range raws {
		var t shared.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// RequeueDead moves a dead task back to the ready list with fresh attempts
func (q *RedisQueue) RequeueDead(ctx context.Context, taskID string) error {
	raws, err := q.client.LRange(ctx, q.deadKey, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, raw := range raws {
		var t shared.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil || t.ID != taskID {
			continue
		}
		removed, err := q.client.LRem(ctx, q.deadKey, 1, raw).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			return appevent.ErrTaskNotFound
		}
		t.Attempts = 0
		t.LastError = ""
		if err := q.Enqueue(ctx, &t); err != nil {
			return err
		}
		q.logger.Info("Dead task requeued", zap.String("task_id", t.ID), zap.String("task_type", t.Type))
		return nil
	}
	return appevent.ErrTaskNotFound
}

// Depth reports the number of tasks in each list
func (q *RedisQueue) Depth(ctx context.Context) (ready, delayed, dead int64, err error) {
	pipe := q.client.Pipeline()
	r := pipe.LLen(ctx, q.readyKey)
	d := pipe.ZCard(ctx, q.delayedKey)
	x := pipe.LLen(ctx, q.deadKey)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, err
	}
	return r.Val(), d.Val(), x.Val(), nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var (
	_ Queue                  = (*RedisQueue)(nil)
	_ appevent.DeadTaskStore = (*RedisQueue)(nil)
)
