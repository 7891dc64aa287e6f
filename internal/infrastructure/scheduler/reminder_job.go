package scheduler

import (
	"context"
	"time"

	appstorefront "github.com/bizhub/backend/internal/application/storefront"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderJobName identifies the abandoned cart reminder job
const ReminderJobName = "abandoned_cart_reminders"

// ReminderRunner dispatches abandoned cart reminders
type ReminderRunner interface {
	Dispatch(ctx context.Context, tenantID *uuid.UUID) (*appstorefront.ReminderReport, error)
}

// NewReminderJob runs the dispatcher across all tenants every interval
func NewReminderJob(runner ReminderRunner, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     ReminderJobName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			report, err := runner.Dispatch(ctx, nil)
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				logger.Warn("Reminder run finished with failures",
					zap.Int("sent", report.Sent),
					zap.Int("failed", report.Failed),
				)
			}
			return nil
		},
	}
}
