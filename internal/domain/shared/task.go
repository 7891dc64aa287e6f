package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of background work delivered at least once
type Task struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// NewTask builds a task with a JSON encoded payload
func NewTask(taskType string, tenantID uuid.UUID, payload any) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	return &Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		TenantID:   tenantID,
		Payload:    raw,
		EnqueuedAt: time.Now(),
	}, nil
}

// Decode unmarshals the payload into v
func (t *Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type, err)
	}
	return nil
}

// TaskQueue accepts background work
type TaskQueue interface {
	Enqueue(ctx context.Context, task *Task) error
}

// TaskHandler processes tasks of the types it declares. Handlers must be
// idempotent since a task can be delivered more than once.
type TaskHandler interface {
	Handle(ctx context.Context, task *Task) error
	TaskTypes() []string
}
