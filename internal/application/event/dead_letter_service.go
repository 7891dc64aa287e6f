package event

import (
	"context"
	"errors"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDeadPageSize = 20
	maxDeadPageSize     = 100
)

// DeadTaskStore exposes work queue tasks that exhausted their attempts
type DeadTaskStore interface {
	DeadTasks(ctx context.Context, limit int) ([]*shared.Task, error)
	RequeueDead(ctx context.Context, taskID string) error
}

// ErrTaskNotFound is returned by DeadTaskStore.RequeueDead for an unknown task
var ErrTaskNotFound = shared.NewDomainError("TASK_NOT_FOUND", "Dead task not found")

// DeadLetterService lists and requeues outbox entries and queue tasks
// that ran out of retries
type DeadLetterService struct {
	repo   shared.OutboxRepository
	tasks  DeadTaskStore
	logger *zap.Logger
}

// NewDeadLetterService creates a new dead letter service. tasks may be nil
// when the work queue has no dead letter storage.
func NewDeadLetterService(
	repo shared.OutboxRepository,
	tasks DeadTaskStore,
	logger *zap.Logger,
) *DeadLetterService {
	return &DeadLetterService{
		repo:   repo,
		tasks:  tasks,
		logger: logger,
	}
}

// OutboxEntryDTO represents an outbox entry data transfer object
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DeadTaskDTO is a work queue task in the dead letter list
type DeadTaskDTO struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DeadLetterFilter pages through dead outbox entries
type DeadLetterFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// DeadLetterList is one page of dead outbox entries plus the newest dead tasks
type DeadLetterList struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Tasks      []DeadTaskDTO    `json:"tasks"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// List returns dead outbox entries with pagination and up to one page of dead tasks
func (s *DeadLetterService) List(ctx context.Context, filter DeadLetterFilter) (*DeadLetterList, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultDeadPageSize
	}
	if pageSize > maxDeadPageSize {
		pageSize = maxDeadPageSize
	}

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to find dead letter entries", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	result := &DeadLetterList{
		Entries:    make([]OutboxEntryDTO, len(entries)),
		Tasks:      []DeadTaskDTO{},
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
	for i, entry := range entries {
		result.Entries[i] = toOutboxEntryDTO(entry)
	}

	if s.tasks != nil {
		tasks, err := s.tasks.DeadTasks(ctx, pageSize)
		if err != nil {
			s.logger.Error("Failed to read dead tasks", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead tasks")
		}
		for _, t := range tasks {
			result.Tasks = append(result.Tasks, DeadTaskDTO{
				ID:         t.ID,
				Type:       t.Type,
				TenantID:   t.TenantID,
				Attempts:   t.Attempts,
				LastError:  t.LastError,
				EnqueuedAt: t.EnqueuedAt,
			})
		}
	}
	return result, nil
}

// RetryEntry resets a dead outbox entry for redelivery
func (s *DeadLetterService) RetryEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil || entry == nil {
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("Failed to find outbox entry", zap.Error(err), zap.String("id", id.String()))
		}
		return nil, shared.NewDomainError("ENTRY_NOT_FOUND", "Outbox entry not found")
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATUS", err.Error())
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to update outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retry entry")
	}

	s.logger.Info("Dead letter entry reset for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllEntries resets every dead outbox entry and returns how many were reset
func (s *DeadLetterService) RetryAllEntries(ctx context.Context) (int64, error) {
	var count int64
	for {
		// reset entries leave the dead set, so the first page always holds the rest
		entries, _, err := s.repo.FindDead(ctx, 1, maxDeadPageSize)
		if err != nil {
			s.logger.Error("Failed to find dead letter entries", zap.Error(err))
			return count, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
		}

		progressed := false
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("Failed to update outbox entry", zap.Error(err), zap.String("id", entry.ID.String()))
				continue
			}
			progressed = true
			count++
		}

		if len(entries) < maxDeadPageSize || !progressed {
			break
		}
	}

	s.logger.Info("Retried dead letter entries", zap.Int64("count", count))
	return count, nil
}

// RetryTask moves a dead queue task back onto the queue
func (s *DeadLetterService) RetryTask(ctx context.Context, taskID string) error {
	if s.tasks == nil {
		return ErrTaskNotFound
	}
	if err := s.tasks.RequeueDead(ctx, taskID); err != nil {
		return err
	}
	s.logger.Info("Dead task requeued", zap.String("task_id", taskID))
	return nil
}

// toOutboxEntryDTO converts domain OutboxEntry to OutboxEntryDTO
func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		TenantID:      entry.TenantID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
