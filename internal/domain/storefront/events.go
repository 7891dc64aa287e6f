package storefront

import (
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeEcommerceOrder is the aggregate type name used in events
const AggregateTypeEcommerceOrder = "EcommerceOrder"

// EventTypeEcommerceOrderStatusChanged is raised when reconciliation changes the status
const EventTypeEcommerceOrderStatusChanged = "EcommerceOrderStatusChanged"

// EcommerceOrderStatusChangedEvent tells the shopper-facing side that fulfillment moved
type EcommerceOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	Email       string      `json:"email"`
	CustomerID  *uuid.UUID  `json:"customer_id,omitempty"`
	FromStatus  OrderStatus `json:"from_status"`
	ToStatus    OrderStatus `json:"to_status"`
}

// NewEcommerceOrderStatusChangedEvent creates the event
func NewEcommerceOrderStatusChangedEvent(o *EcommerceOrder, from OrderStatus) *EcommerceOrderStatusChangedEvent {
	return &EcommerceOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEcommerceOrderStatusChanged, AggregateTypeEcommerceOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Email:           o.Email,
		CustomerID:      o.CustomerID,
		FromStatus:      from,
		ToStatus:        o.Status,
	}
}
