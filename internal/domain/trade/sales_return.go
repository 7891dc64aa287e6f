package trade

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnStatus is the approval status of a sales return
type ReturnStatus string

const (
	ReturnStatusDraft     ReturnStatus = "DRAFT"
	ReturnStatusPending   ReturnStatus = "PENDING"
	ReturnStatusApproved  ReturnStatus = "APPROVED"
	ReturnStatusRejected  ReturnStatus = "REJECTED"
	ReturnStatusCancelled ReturnStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusDraft, ReturnStatusPending, ReturnStatusApproved, ReturnStatusRejected, ReturnStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusDraft:
		return target == ReturnStatusPending || target == ReturnStatusCancelled
	case ReturnStatusPending:
		return target == ReturnStatusApproved || target == ReturnStatusRejected || target == ReturnStatusCancelled
	}
	return false
}

// ReturnReason is why the customer sent goods back
type ReturnReason string

const (
	ReturnReasonDamaged        ReturnReason = "DAMAGED"
	ReturnReasonDefective      ReturnReason = "DEFECTIVE"
	ReturnReasonWrongItem      ReturnReason = "WRONG_ITEM"
	ReturnReasonNotAsDescribed ReturnReason = "NOT_AS_DESCRIBED"
	ReturnReasonChangedMind    ReturnReason = "CHANGED_MIND"
	ReturnReasonOther          ReturnReason = "OTHER"
)

// ReturnReasons lists every accepted reason
var ReturnReasons = []ReturnReason{
	ReturnReasonDamaged, ReturnReasonDefective, ReturnReasonWrongItem,
	ReturnReasonNotAsDescribed, ReturnReasonChangedMind, ReturnReasonOther,
}

// IsValid checks if the reason is known
func (r ReturnReason) IsValid() bool {
	for _, v := range ReturnReasons {
		if r == v {
			return true
		}
	}
	return false
}

// SettlementStatus tracks the stock and credit note work that follows approval
type SettlementStatus string

const (
	SettlementNone    SettlementStatus = "NONE"
	SettlementPending SettlementStatus = "PENDING"
	SettlementSettled SettlementStatus = "SETTLED"
	SettlementFailed  SettlementStatus = "FAILED"
)

// SalesReturnLine is one returned product
type SalesReturnLine struct {
	ID          uuid.UUID
	ReturnID    uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// SalesReturn is a customer return against one sales order.
// At most one return exists per sales order.
type SalesReturn struct {
	shared.TenantAggregateRoot
	ReturnNumber     string
	SalesOrderID     uuid.UUID
	SalesOrderNumber string
	InvoiceID        *uuid.UUID
	CustomerID       *uuid.UUID
	Reason           ReturnReason
	Note             string
	Status           ReturnStatus
	Lines            []SalesReturnLine
	TotalAmount      decimal.Decimal
	RequestedBy      *uuid.UUID
	ApprovedBy       *uuid.UUID
	ApprovedAt       *time.Time
	RejectedBy       *uuid.UUID
	RejectedAt       *time.Time
	RejectionReason  string
	CancelledAt      *time.Time
	SettlementStatus SettlementStatus
	SettlementError  string
	SettledAt        *time.Time
	CreditNoteID     *uuid.UUID

	order *SalesOrder
}

// NewSalesReturn starts a draft return for a shipped sales order
func NewSalesReturn(tenantID uuid.UUID, returnNumber string, order *SalesOrder, reason ReturnReason, note string, requestedBy uuid.UUID) (*SalesReturn, error) {
	if order == nil {
		return nil, shared.NewDomainError("INVALID_SALES_ORDER", "Sales order is required")
	}
	if order.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_RETURN_REASON", "Unknown return reason: "+string(reason))
	}
	if !order.Status.IsReturnable() {
		return nil, shared.NewDomainError("ORDER_NOT_RETURNABLE", "Only shipped, delivered or completed orders can be returned")
	}
	if returnNumber == "" {
		return nil, shared.NewDomainError("INVALID_RETURN_NUMBER", "Return number cannot be empty")
	}

	r := &SalesReturn{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReturnNumber:        returnNumber,
		SalesOrderID:        order.ID,
		SalesOrderNumber:    order.OrderNumber,
		InvoiceID:           order.InvoiceID,
		CustomerID:          order.CustomerID,
		Reason:              reason,
		Note:                note,
		Status:              ReturnStatusDraft,
		Lines:               make([]SalesReturnLine, 0),
		TotalAmount:         decimal.Zero,
		SettlementStatus:    SettlementNone,
		order:               order,
	}
	if requestedBy != uuid.Nil {
		r.RequestedBy = &requestedBy
		r.SetCreatedBy(requestedBy)
	}
	return r, nil
}

// AddLine returns quantity of a product from the order at the ordered price
func (r *SalesReturn) AddLine(productID uuid.UUID, quantity decimal.Decimal) error {
	if r.Status != ReturnStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be added to draft returns")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be positive")
	}
	if r.order == nil {
		return shared.NewDomainError("INVALID_SALES_ORDER", "Sales order is required")
	}
	item, ok := r.order.Item(productID)
	if !ok {
		return shared.NewDomainError("PRODUCT_NOT_IN_ORDER", "Product was not part of the sales order")
	}
	for _, l := range r.Lines {
		if l.ProductID == productID {
			return shared.NewDomainError("DUPLICATE_RETURN_LINE", "Product already has a return line")
		}
	}
	if quantity.GreaterThan(item.Quantity) {
		return shared.NewDomainError("RETURN_QUANTITY_EXCEEDED", "Return quantity exceeds ordered quantity")
	}

	line := SalesReturnLine{
		ID:          uuid.New(),
		ReturnID:    r.ID,
		ProductID:   productID,
		ProductName: item.ProductName,
		Quantity:    quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      shared.RoundMoney(quantity.Mul(item.UnitPrice)),
	}
	r.Lines = append(r.Lines, line)
	r.TotalAmount = r.TotalAmount.Add(line.Amount)
	r.UpdatedAt = time.Now()
	return nil
}

// Submit sends the draft for approval
func (r *SalesReturn) Submit() error {
	if !r.Status.CanTransitionTo(ReturnStatusPending) {
		return shared.NewDomainError("INVALID_STATE", "Only draft returns can be submitted")
	}
	if len(r.Lines) == 0 {
		return shared.NewDomainError("NO_RETURN_LINES", "A return needs at least one line")
	}
	r.Status = ReturnStatusPending
	r.UpdatedAt = time.Now()
	r.AddDomainEvent(NewSalesReturnSubmittedEvent(r))
	return nil
}

// Approve accepts the return and queues its settlement
func (r *SalesReturn) Approve(approverID uuid.UUID) error {
	if !r.Status.CanTransitionTo(ReturnStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", "Only pending returns can be approved")
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver is required")
	}
	now := time.Now()
	r.Status = ReturnStatusApproved
	r.ApprovedBy = &approverID
	r.ApprovedAt = &now
	r.SettlementStatus = SettlementPending
	r.UpdatedAt = now
	r.AddDomainEvent(NewSalesReturnApprovedEvent(r))
	return nil
}

// Reject declines a pending return
func (r *SalesReturn) Reject(rejecterID uuid.UUID, reason string) error {
	if !r.Status.CanTransitionTo(ReturnStatusRejected) {
		return shared.NewDomainError("INVALID_STATE", "Only pending returns can be rejected")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	now := time.Now()
	r.Status = ReturnStatusRejected
	r.RejectedBy = &rejecterID
	r.RejectedAt = &now
	r.RejectionReason = reason
	r.UpdatedAt = now
	r.AddDomainEvent(NewSalesReturnRejectedEvent(r))
	return nil
}

// Cancel withdraws a draft or pending return
func (r *SalesReturn) Cancel() error {
	if !r.Status.CanTransitionTo(ReturnStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", "Only draft or pending returns can be cancelled")
	}
	now := time.Now()
	r.Status = ReturnStatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkSettled records that stock and the credit note were written
func (r *SalesReturn) MarkSettled(creditNoteID *uuid.UUID) {
	now := time.Now()
	r.SettlementStatus = SettlementSettled
	r.SettlementError = ""
	r.SettledAt = &now
	r.CreditNoteID = creditNoteID
	r.UpdatedAt = now
}

// MarkSettlementFailed flags an approved return whose settlement did not complete
func (r *SalesReturn) MarkSettlementFailed(errMsg string) {
	r.SettlementStatus = SettlementFailed
	r.SettlementError = errMsg
	r.UpdatedAt = time.Now()
}

// IsSettled reports whether settlement already ran
func (r *SalesReturn) IsSettled() bool {
	return r.SettlementStatus == SettlementSettled
}

// TotalQuantity sums the returned quantities
func (r *SalesReturn) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}
