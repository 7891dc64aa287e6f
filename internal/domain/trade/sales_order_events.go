package trade

import (
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	AggregateTypeSalesOrder = "SalesOrder"

	EventTypeSalesOrderStatusChanged = "SalesOrderStatusChanged"
)

// SalesOrderStatusChangedEvent is saved to the outbox with every status change
type SalesOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	InvoiceID   *uuid.UUID  `json:"invoice_id,omitempty"`
	FromStatus  OrderStatus `json:"from_status"`
	ToStatus    OrderStatus `json:"to_status"`
	ChangedBy   *uuid.UUID  `json:"changed_by,omitempty"`
}

// NewSalesOrderStatusChangedEvent creates the event
func NewSalesOrderStatusChangedEvent(o *SalesOrder, from OrderStatus, changedBy *uuid.UUID) *SalesOrderStatusChangedEvent {
	return &SalesOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesOrderStatusChanged, AggregateTypeSalesOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		InvoiceID:       o.InvoiceID,
		FromStatus:      from,
		ToStatus:        o.Status,
		ChangedBy:       changedBy,
	}
}
