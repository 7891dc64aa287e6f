package storefront

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the customer-facing order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// IsValid checks if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// PaymentStatus is the payment state of an ecommerce order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// EcommerceOrder is the order as the shopper sees it. Fulfillment status is
// copied from the back-office sales order, never edited here directly.
type EcommerceOrder struct {
	shared.TenantAggregateRoot
	OrderNumber   string
	SessionID     string
	InvoiceID     *uuid.UUID
	SalesOrderID  *uuid.UUID
	CustomerID    *uuid.UUID
	Email         string
	Items         []CartLine
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Currency      string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	ShippedAt     *time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
}

// NewEcommerceOrder creates a pending order from checked-out cart lines
func NewEcommerceOrder(tenantID uuid.UUID, orderNumber, sessionID string, lines []CartLine, totals CartTotals, currency string) (*EcommerceOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_CART", "Cannot place an order for an empty cart")
	}
	return &EcommerceOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		SessionID:           sessionID,
		Items:               append([]CartLine(nil), lines...),
		Subtotal:            totals.Subtotal,
		Tax:                 totals.Tax,
		Total:               totals.Total,
		Currency:            currency,
		Status:              OrderStatusPending,
		PaymentStatus:       PaymentStatusPending,
	}, nil
}

// LinkFulfillment sets the invoice and sales order this order is fulfilled by
func (o *EcommerceOrder) LinkFulfillment(invoiceID, salesOrderID uuid.UUID) {
	o.InvoiceID = &invoiceID
	o.SalesOrderID = &salesOrderID
}

// ApplyFulfillmentStatus moves the order to status and stamps the matching
// timestamp if it is unset. It reports false and changes nothing when the
// order already has that status.
func (o *EcommerceOrder) ApplyFulfillmentStatus(status OrderStatus, at time.Time) bool {
	if o.Status == status {
		return false
	}
	from := o.Status
	o.Status = status
	switch status {
	case OrderStatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &at
		}
	case OrderStatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &at
		}
	case OrderStatusCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &at
		}
	}
	o.UpdatedAt = at
	o.AddDomainEvent(NewEcommerceOrderStatusChangedEvent(o, from))
	return true
}

// MarkPaid records a confirmed payment
func (o *EcommerceOrder) MarkPaid() {
	o.PaymentStatus = PaymentStatusPaid
	o.UpdatedAt = time.Now()
}

// MarkPaymentFailed records a failed payment attempt
func (o *EcommerceOrder) MarkPaymentFailed() {
	if o.PaymentStatus == PaymentStatusPaid {
		return
	}
	o.PaymentStatus = PaymentStatusFailed
	o.UpdatedAt = time.Now()
}
