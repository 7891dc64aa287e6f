package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizhub/backend/internal/application/notification"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// reminderBatchLimit caps the carts examined per dispatch run
	reminderBatchLimit = 100
	// reminderSummaryLines caps the items listed in a reminder email
	reminderSummaryLines = 5
)

// Reminder outcomes reported to metrics
const (
	ReminderOutcomeSent    = "sent"
	ReminderOutcomeSkipped = "skipped"
	ReminderOutcomeFailed  = "failed"
)

// ReminderDispatcher emails shoppers who left items in their cart
type ReminderDispatcher struct {
	carts      storefront.AbandonedCartRepository
	customers  partner.CustomerRepository
	email      notification.EmailSender
	settings   TenantSettings
	batchLimit int
	format     notification.MoneyFormatter
	shopURL    string
	metrics    Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewReminderDispatcher creates a new ReminderDispatcher
func NewReminderDispatcher(
	carts storefront.AbandonedCartRepository,
	customers partner.CustomerRepository,
	email notification.EmailSender,
	settings TenantSettings,
	shopURL string,
	logger *zap.Logger,
) *ReminderDispatcher {
	return &ReminderDispatcher{
		carts:      carts,
		customers:  customers,
		email:      email,
		settings:   settings,
		batchLimit: reminderBatchLimit,
		format:     notification.PlainMoney,
		shopURL:    shopURL,
		logger:     logger,
		now:        time.Now,
	}
}

// SetMetrics sets the business metrics recorder
func (d *ReminderDispatcher) SetMetrics(m Metrics) {
	d.metrics = m
}

// SetBatchLimit caps the carts examined per run; n <= 0 keeps the default
func (d *ReminderDispatcher) SetBatchLimit(n int) {
	if n > 0 {
		d.batchLimit = n
	}
}

// SetMoneyFormatter sets how totals are rendered in emails
func (d *ReminderDispatcher) SetMoneyFormatter(f notification.MoneyFormatter) {
	if f != nil {
		d.format = f
	}
}

// Dispatch sends one reminder to every due cart, for one tenant or all of
// them when tenantID is nil. Each tenant is scanned with its own reminder
// delay and batch limit. A failing cart is recorded in the report and does
// not stop the batch.
func (d *ReminderDispatcher) Dispatch(ctx context.Context, tenantID *uuid.UUID) (*ReminderReport, error) {
	now := d.now()
	report := &ReminderReport{Failures: []ReminderFailure{}}

	if tenantID != nil {
		if err := d.dispatchTenant(ctx, *tenantID, now, report); err != nil {
			return nil, err
		}
	} else {
		tenants, err := d.carts.FindTenantsWithOpenCarts(ctx)
		if err != nil {
			return nil, fmt.Errorf("find tenants with open carts: %w", err)
		}
		for _, id := range tenants {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			if err := d.dispatchTenant(ctx, id, now, report); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return report, err
				}
				d.logger.Warn("Tenant reminder run failed",
					zap.String("tenant_id", id.String()),
					zap.Error(err),
				)
			}
		}
	}

	d.logger.Info("Cart reminders dispatched",
		zap.Int("scanned", report.Scanned),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (d *ReminderDispatcher) dispatchTenant(ctx context.Context, tenantID uuid.UUID, now time.Time, report *ReminderReport) error {
	delay, err := d.settings.ReminderDelay(ctx, tenantID)
	if err != nil {
		return err
	}
	carts, err := d.carts.FindDueForReminder(ctx, storefront.ReminderQuery{
		TenantID:           &tenantID,
		LastActivityBefore: now.Add(-delay),
		ReminderBefore:     now.Add(-storefront.MinReminderInterval),
		Limit:              d.batchLimit,
	})
	if err != nil {
		return fmt.Errorf("find carts due for reminder: %w", err)
	}

	for _, cart := range carts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.Scanned++

		outcome, err := d.remind(ctx, cart, now, delay)
		switch outcome {
		case ReminderOutcomeSent:
			report.Sent++
		case ReminderOutcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
			report.Failures = append(report.Failures, ReminderFailure{
				CartID:    cart.ID,
				SessionID: cart.SessionID,
				Reason:    err.Error(),
			})
			d.logger.Warn("Cart reminder failed",
				zap.String("cart_id", cart.ID.String()),
				zap.String("tenant_id", cart.TenantID.String()),
				zap.Error(err),
			)
		}
		if d.metrics != nil {
			d.metrics.RecordReminder(ctx, cart.TenantID, outcome)
		}
	}
	return nil
}

func (d *ReminderDispatcher) remind(ctx context.Context, cart *storefront.AbandonedCart, now time.Time, delay time.Duration) (string, error) {
	if !cart.IsDueForReminder(now, delay) {
		return ReminderOutcomeSkipped, nil
	}

	to, err := d.contact(ctx, cart)
	if err != nil {
		return ReminderOutcomeFailed, err
	}
	if to == "" {
		return ReminderOutcomeSkipped, nil
	}

	previous := cart.ReminderSentAt
	if err := cart.RecordReminder(now); err != nil {
		return ReminderOutcomeFailed, err
	}
	msg := d.render(cart)
	msg.To = to
	if err := d.email.SendEmail(ctx, cart.TenantID, msg); err != nil {
		return ReminderOutcomeFailed, fmt.Errorf("send reminder: %w", err)
	}
	if err := d.carts.SaveReminder(ctx, cart, previous); err != nil {
		return ReminderOutcomeFailed, fmt.Errorf("save reminder: %w", err)
	}
	return ReminderOutcomeSent, nil
}

// contact returns the cart email, falling back to the linked customer's
func (d *ReminderDispatcher) contact(ctx context.Context, cart *storefront.AbandonedCart) (string, error) {
	if cart.Email != "" {
		return cart.Email, nil
	}
	if cart.CustomerID == nil {
		return "", nil
	}
	customer, err := d.customers.FindByID(ctx, cart.TenantID, *cart.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return customer.Email, nil
}

func (d *ReminderDispatcher) render(cart *storefront.AbandonedCart) notification.EmailMessage {
	var b strings.Builder
	b.WriteString("You left these items in your cart:\n\n")
	for i, line := range cart.Items {
		if i == reminderSummaryLines {
			fmt.Fprintf(&b, "and %d more item(s)\n", len(cart.Items)-reminderSummaryLines)
			break
		}
		name := line.Name
		if name == "" {
			name = "Item"
		}
		fmt.Fprintf(&b, "- %d x %s (%s)\n", line.Quantity, name, d.format(line.Amount(), cart.Currency))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", d.format(cart.Total, cart.Currency))
	if d.shopURL != "" {
		fmt.Fprintf(&b, "\nComplete your order at %s\n", d.shopURL)
	}
	return notification.EmailMessage{
		Subject: "You left something in your cart",
		Body:    b.String(),
	}
}
