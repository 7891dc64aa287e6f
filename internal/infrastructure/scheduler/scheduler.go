// Package scheduler runs recurring background jobs on fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunStatus represents the outcome of one job run
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// Job is a recurring unit of work
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means the interval
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// JobRun records one execution of a job
type JobRun struct {
	ID          uuid.UUID
	JobName     string
	Status      RunStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (r *JobRun) finish(err error) {
	now := time.Now()
	r.CompletedAt = &now
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusSuccess
}

type jobState struct {
	job     Job
	running bool
	last    *JobRun
}

// Scheduler runs each registered job on its own ticker. A run that is still
// in progress when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	logger *zap.Logger

	mu        sync.Mutex
	jobs      map[string]*jobState
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		jobs:   make(map[string]*jobState),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: job %q needs a name, a run func and a positive interval", ErrInvalidConfig, job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: job %q registered twice", ErrInvalidConfig, job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = job.Interval
	}
	s.jobs[job.Name] = &jobState{job: job}
	return nil
}

// Start starts one loop per registered job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, state := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, state.job)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels the loops and waits for running jobs to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.execute(ctx, job.Name); err != nil && !errors.Is(err, ErrJobAlreadyRunning) {
				s.logger.Debug("Scheduled run not completed", zap.String("job", job.Name), zap.Error(err))
			}
		}
	}
}

// RunNow executes a job immediately on the caller's goroutine
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobRun, error) {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return nil, ErrSchedulerNotRunning
	}
	return s.execute(ctx, name)
}

// LastRun returns the most recent run of a job, or nil if it never ran
func (s *Scheduler) LastRun(name string) (*JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.jobs[name]
	if !ok {
		return nil, ErrJobNotFound
	}
	if state.last == nil {
		return nil, nil
	}
	run := *state.last
	return &run, nil
}

func (s *Scheduler) execute(ctx context.Context, name string) (*JobRun, error) {
	s.mu.Lock()
	state, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return nil, ErrJobNotFound
	}
	if state.running {
		s.mu.Unlock()
		s.logger.Warn("Skipping overlapping job run", zap.String("job", name))
		return nil, ErrJobAlreadyRunning
	}
	state.running = true
	run := &JobRun{ID: uuid.New(), JobName: name, Status: RunStatusRunning, StartedAt: time.Now()}
	state.last = run
	job := state.job
	s.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	err := s.safeRun(jobCtx, job)

	s.mu.Lock()
	run.finish(err)
	state.running = false
	result := *run
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Job failed",
			zap.String("job", name),
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
		return &result, err
	}
	s.logger.Debug("Job completed",
		zap.String("job", name),
		zap.String("run_id", run.ID.String()),
		zap.Duration("duration", result.CompletedAt.Sub(result.StartedAt)),
	)
	return &result, nil
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
