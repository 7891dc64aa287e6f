package trade

import (
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeSalesReturn = "SalesReturn"

	EventTypeSalesReturnSubmitted = "SalesReturnSubmitted"
	EventTypeSalesReturnApproved  = "SalesReturnApproved"
	EventTypeSalesReturnRejected  = "SalesReturnRejected"
)

// SalesReturnSubmittedEvent is raised when a return awaits approval
type SalesReturnSubmittedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID       `json:"return_id"`
	ReturnNumber string          `json:"return_number"`
	SalesOrderID uuid.UUID       `json:"sales_order_id"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// NewSalesReturnSubmittedEvent creates the event
func NewSalesReturnSubmittedEvent(r *SalesReturn) *SalesReturnSubmittedEvent {
	return &SalesReturnSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesReturnSubmitted, AggregateTypeSalesReturn, r.ID, r.TenantID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		SalesOrderID:    r.SalesOrderID,
		TotalAmount:     r.TotalAmount,
	}
}

// SalesReturnApprovedEvent triggers restocking and the credit note
type SalesReturnApprovedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID       `json:"return_id"`
	ReturnNumber string          `json:"return_number"`
	SalesOrderID uuid.UUID       `json:"sales_order_id"`
	InvoiceID    *uuid.UUID      `json:"invoice_id,omitempty"`
	ApprovedBy   uuid.UUID       `json:"approved_by"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// NewSalesReturnApprovedEvent creates the event
func NewSalesReturnApprovedEvent(r *SalesReturn) *SalesReturnApprovedEvent {
	e := &SalesReturnApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesReturnApproved, AggregateTypeSalesReturn, r.ID, r.TenantID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		SalesOrderID:    r.SalesOrderID,
		InvoiceID:       r.InvoiceID,
		TotalAmount:     r.TotalAmount,
	}
	if r.ApprovedBy != nil {
		e.ApprovedBy = *r.ApprovedBy
	}
	return e
}

// SalesReturnRejectedEvent notifies the customer that the return was declined
type SalesReturnRejectedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID  `json:"return_id"`
	ReturnNumber string     `json:"return_number"`
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	Reason       string     `json:"reason"`
}

// NewSalesReturnRejectedEvent creates the event
func NewSalesReturnRejectedEvent(r *SalesReturn) *SalesReturnRejectedEvent {
	return &SalesReturnRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesReturnRejected, AggregateTypeSalesReturn, r.ID, r.TenantID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		CustomerID:      r.CustomerID,
		Reason:          r.RejectionReason,
	}
}
