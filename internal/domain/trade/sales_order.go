package trade

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the back-office fulfillment status of a sales order
type OrderStatus string

const (
	OrderStatusDraft       OrderStatus = "DRAFT"
	OrderStatusConfirmed   OrderStatus = "CONFIRMED"
	OrderStatusProcessing  OrderStatus = "PROCESSING"
	OrderStatusReadyToShip OrderStatus = "READY_TO_SHIP"
	OrderStatusShipped     OrderStatus = "SHIPPED"
	OrderStatusDelivered   OrderStatus = "DELIVERED"
	OrderStatusCompleted   OrderStatus = "COMPLETED"
	OrderStatusCancelled   OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusReadyToShip,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusProcessing || target == OrderStatusReadyToShip ||
			target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusReadyToShip || target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusReadyToShip:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusCompleted
	case OrderStatusDelivered:
		return target == OrderStatusCompleted
	case OrderStatusCompleted, OrderStatusCancelled:
		return false
	}
	return false
}

// IsReturnable reports whether goods have left the warehouse
func (s OrderStatus) IsReturnable() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered || s == OrderStatusCompleted
}

// SalesOrderItem is a line of a sales order
type SalesOrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// NewSalesOrderItem creates a line, computing its amount
func NewSalesOrderItem(orderID, productID uuid.UUID, productName string, quantity, unitPrice decimal.Decimal) (*SalesOrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return &SalesOrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      shared.RoundMoney(quantity.Mul(unitPrice)),
	}, nil
}

// SalesOrder is the authoritative fulfillment record
type SalesOrder struct {
	shared.TenantAggregateRoot
	OrderNumber  string
	CustomerID   *uuid.UUID
	InvoiceID    *uuid.UUID
	Items        []SalesOrderItem
	TotalAmount  decimal.Decimal
	Status       OrderStatus
	ConfirmedAt  *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewSalesOrder creates a draft sales order
func NewSalesOrder(tenantID uuid.UUID, orderNumber string, customerID *uuid.UUID) (*SalesOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	return &SalesOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		CustomerID:          customerID,
		Items:               make([]SalesOrderItem, 0),
		TotalAmount:         decimal.Zero,
		Status:              OrderStatusDraft,
	}, nil
}

// AddItem appends a line while the order is a draft
func (o *SalesOrder) AddItem(productID uuid.UUID, productName string, quantity, unitPrice decimal.Decimal) (*SalesOrderItem, error) {
	if o.Status != OrderStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Items can only be added to draft orders")
	}
	item, err := NewSalesOrderItem(o.ID, productID, productName, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	o.Items = append(o.Items, *item)
	o.TotalAmount = o.TotalAmount.Add(item.Amount)
	o.UpdatedAt = time.Now()
	return item, nil
}

// AttachInvoice links the invoice billed for this order
func (o *SalesOrder) AttachInvoice(invoiceID uuid.UUID) {
	o.InvoiceID = &invoiceID
}

// Item returns the line for a product
func (o *SalesOrder) Item(productID uuid.UUID) (*SalesOrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// ChangeStatus moves the order along its lifecycle and raises SalesOrderStatusChanged
func (o *SalesOrder) ChangeStatus(target OrderStatus, changedBy *uuid.UUID, reason string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown sales order status: "+string(target))
	}
	if target == OrderStatusConfirmed && len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot confirm an order without items")
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", "Cannot move sales order from "+string(o.Status)+" to "+string(target))
	}

	now := time.Now()
	from := o.Status
	o.Status = target
	switch target {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &now
	case OrderStatusShipped:
		o.ShippedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	case OrderStatusCompleted:
		o.CompletedAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
		o.CancelReason = reason
	}
	o.UpdatedAt = now
	o.AddDomainEvent(NewSalesOrderStatusChangedEvent(o, from, changedBy))
	return nil
}
