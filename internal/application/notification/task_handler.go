package notification

import (
	"context"
	"fmt"

	"github.com/bizhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TaskHandler delivers queued notifications. A returned error makes the
// queue retry the task.
type TaskHandler struct {
	email  EmailSender
	sms    SMSSender
	logger *zap.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(email EmailSender, sms SMSSender, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{email: email, sms: sms, logger: logger}
}

// TaskTypes returns the task types this handler processes
func (h *TaskHandler) TaskTypes() []string {
	return []string{TaskTypeEmail, TaskTypeSMS}
}

// Handle sends one message
func (h *TaskHandler) Handle(ctx context.Context, task *shared.Task) error {
	switch task.Type {
	case TaskTypeEmail:
		var msg EmailMessage
		if err := task.Decode(&msg); err != nil {
			return err
		}
		if err := h.email.SendEmail(ctx, task.TenantID, msg); err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		h.logger.Debug("Email sent", zap.String("task_id", task.ID), zap.String("subject", msg.Subject))
	case TaskTypeSMS:
		var msg SMSMessage
		if err := task.Decode(&msg); err != nil {
			return err
		}
		if err := h.sms.SendSMS(ctx, task.TenantID, msg); err != nil {
			return fmt.Errorf("send sms: %w", err)
		}
		h.logger.Debug("SMS sent", zap.String("task_id", task.ID))
	default:
		return fmt.Errorf("unexpected task type: %s", task.Type)
	}
	return nil
}

var _ shared.TaskHandler = (*TaskHandler)(nil)
