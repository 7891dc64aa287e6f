package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics counts storefront and finance outcomes per tenant
type BusinessMetrics struct {
	reminders       *Counter
	reconciliations *Counter
	checkouts       *Counter
	checkoutAmount  *Histogram
	payments        *Counter
	settlements     *Counter
}

// NewBusinessMetrics registers the business instruments on the meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	var err error
	bm := &BusinessMetrics{}
	if bm.reminders, err = NewCounter(meter, "storefront_reminders_total",
		"Abandoned cart reminders by outcome", "{reminder}"); err != nil {
		return nil, err
	}
	if bm.reconciliations, err = NewCounter(meter, "storefront_reconciliations_total",
		"Shop orders moved by sales order status changes", "{order}"); err != nil {
		return nil, err
	}
	if bm.checkouts, err = NewCounter(meter, "storefront_checkouts_total",
		"Carts converted into shop orders", "{order}"); err != nil {
		return nil, err
	}
	if bm.checkoutAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "storefront_checkout_amount",
		Description: "Order totals at checkout",
		Unit:        "{currency}",
		Boundaries:  []float64{10, 50, 100, 250, 500, 1000, 5000},
	}); err != nil {
		return nil, err
	}
	if bm.payments, err = NewCounter(meter, "finance_payments_total",
		"Payment verifications by resulting status", "{payment}"); err != nil {
		return nil, err
	}
	if bm.settlements, err = NewCounter(meter, "trade_return_settlements_total",
		"Approved returns settled into credit notes", "{return}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordReminder counts one reminder attempt
func (m *BusinessMetrics) RecordReminder(ctx context.Context, tenantID uuid.UUID, outcome string) {
	m.reminders.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrOutcome.String(outcome))
}

// RecordReconciliation counts a shop order status transition
func (m *BusinessMetrics) RecordReconciliation(ctx context.Context, tenantID uuid.UUID, status string) {
	m.reconciliations.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrStatus.String(status))
}

// RecordCheckout counts a completed checkout and its total
func (m *BusinessMetrics) RecordCheckout(ctx context.Context, tenantID uuid.UUID, total decimal.Decimal) {
	tenant := AttrTenantID.String(tenantID.String())
	m.checkouts.Inc(ctx, tenant)
	m.checkoutAmount.Record(ctx, total.InexactFloat64(), tenant)
}

// RecordPayment counts a verified payment by status
func (m *BusinessMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, status string) {
	m.payments.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrStatus.String(status))
}

// RecordReturnSettlement counts a settlement attempt
func (m *BusinessMetrics) RecordReturnSettlement(ctx context.Context, tenantID uuid.UUID, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.settlements.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrOutcome.String(outcome))
}
