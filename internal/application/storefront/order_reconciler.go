package storefront

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderReconciler copies back-office fulfillment status onto ecommerce
// orders. It runs as the outbox handler for sales order status changes and
// as an explicit repair operation. Applying the same status twice writes
// nothing.
type OrderReconciler struct {
	orders      storefront.EcommerceOrderRepository
	salesOrders trade.SalesOrderRepository
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderReconciler creates a new OrderReconciler
func NewOrderReconciler(orders storefront.EcommerceOrderRepository, salesOrders trade.SalesOrderRepository, logger *zap.Logger) *OrderReconciler {
	return &OrderReconciler{
		orders:      orders,
		salesOrders: salesOrders,
		logger:      logger,
		now:         time.Now,
	}
}

// SetMetrics sets the business metrics recorder
func (r *OrderReconciler) SetMetrics(m Metrics) {
	r.metrics = m
}

// EventTypes returns the event types this handler is interested in
func (r *OrderReconciler) EventTypes() []string {
	return []string{trade.EventTypeSalesOrderStatusChanged}
}

// Handle reconciles the ecommerce order fulfilled by the changed sales order.
// Sales orders not placed through the storefront are ignored. The event only
// names the order: its current status is re-read, so a late or retried event
// never moves the ecommerce order back.
func (r *OrderReconciler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*trade.SalesOrderStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected *SalesOrderStatusChangedEvent, got %T", event)
	}

	order, err := r.findOrder(ctx, e.TenantID(), e.OrderID, e.InvoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			r.logger.Debug("No ecommerce order for sales order",
				zap.String("sales_order_id", e.OrderID.String()),
				zap.String("order_number", e.OrderNumber),
			)
			return nil
		}
		return err
	}

	so, err := r.salesOrders.FindByID(ctx, e.TenantID(), e.OrderID)
	if err != nil {
		return fmt.Errorf("load sales order %s: %w", e.OrderID, err)
	}
	at := e.OccurredAt()
	if so.Status != e.ToStatus {
		r.logger.Debug("Sales order moved on since event",
			zap.String("sales_order_id", so.ID.String()),
			zap.String("event_status", string(e.ToStatus)),
			zap.String("current_status", string(so.Status)),
		)
		at = r.now()
	}

	_, err = r.apply(ctx, order, string(so.Status), at)
	return err
}

// Reconcile re-reads the sales order behind an ecommerce order and applies
// its status. It reports whether the order changed.
func (r *OrderReconciler) Reconcile(ctx context.Context, tenantID, orderID uuid.UUID) (*EcommerceOrderResponse, bool, error) {
	order, err := r.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, false, err
	}

	var so *trade.SalesOrder
	switch {
	case order.SalesOrderID != nil:
		so, err = r.salesOrders.FindByID(ctx, tenantID, *order.SalesOrderID)
	case order.InvoiceID != nil:
		so, err = r.salesOrders.FindByInvoiceID(ctx, tenantID, *order.InvoiceID)
	default:
		return nil, false, shared.NewDomainError("NOT_FULFILLED", "Order has no linked sales order")
	}
	if err != nil {
		return nil, false, err
	}

	changed, err := r.apply(ctx, order, string(so.Status), r.now())
	if err != nil {
		return nil, false, err
	}
	resp := ToEcommerceOrderResponse(order)
	return &resp, changed, nil
}

func (r *OrderReconciler) findOrder(ctx context.Context, tenantID, salesOrderID uuid.UUID, invoiceID *uuid.UUID) (*storefront.EcommerceOrder, error) {
	order, err := r.orders.FindBySalesOrderID(ctx, tenantID, salesOrderID)
	if err == nil || !errors.Is(err, shared.ErrNotFound) || invoiceID == nil {
		return order, err
	}
	return r.orders.FindByInvoiceID(ctx, tenantID, *invoiceID)
}

func (r *OrderReconciler) apply(ctx context.Context, order *storefront.EcommerceOrder, salesOrderStatus string, at time.Time) (bool, error) {
	target, ok := storefront.MapFulfillmentStatus(salesOrderStatus)
	if !ok {
		return false, nil
	}
	from := order.Status
	if !order.ApplyFulfillmentStatus(target, at) {
		return false, nil
	}
	if err := r.orders.SaveWithLock(ctx, order); err != nil {
		return false, err
	}

	if r.metrics != nil {
		r.metrics.RecordReconciliation(ctx, order.TenantID, string(target))
	}
	r.logger.Info("Ecommerce order reconciled",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(target)),
	)
	return true, nil
}

// OrderNotifier tells shoppers about order status changes
type OrderNotifier interface {
	OrderStatusChanged(ctx context.Context, event *storefront.EcommerceOrderStatusChangedEvent)
}

// OrderStatusNotificationHandler notifies shoppers when reconciliation moves their order
type OrderStatusNotificationHandler struct {
	notifier OrderNotifier
}

// NewOrderStatusNotificationHandler creates a new OrderStatusNotificationHandler
func NewOrderStatusNotificationHandler(notifier OrderNotifier) *OrderStatusNotificationHandler {
	return &OrderStatusNotificationHandler{notifier: notifier}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderStatusNotificationHandler) EventTypes() []string {
	return []string{storefront.EventTypeEcommerceOrderStatusChanged}
}

// Handle queues the shopper notification
func (h *OrderStatusNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*storefront.EcommerceOrderStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected *EcommerceOrderStatusChangedEvent, got %T", event)
	}
	h.notifier.OrderStatusChanged(ctx, e)
	return nil
}

var (
	_ shared.EventHandler = (*OrderReconciler)(nil)
	_ shared.EventHandler = (*OrderStatusNotificationHandler)(nil)
)
