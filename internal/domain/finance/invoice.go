package finance

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the settlement state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid            InvoiceStatus = "UNPAID"
	InvoiceStatusPaid              InvoiceStatus = "PAID"
	InvoiceStatusPartiallyCredited InvoiceStatus = "PARTIALLY_CREDITED"
	InvoiceStatusCredited          InvoiceStatus = "CREDITED"
	InvoiceStatusVoid              InvoiceStatus = "VOID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPaid, InvoiceStatusPartiallyCredited,
		InvoiceStatusCredited, InvoiceStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is the bill raised for a sales order
type Invoice struct {
	shared.TenantAggregateRoot
	Number           string
	CustomerID       *uuid.UUID
	SalesOrderID     *uuid.UUID
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	CreditedAmount   decimal.Decimal
	Currency         string
	Status           InvoiceStatus
	PaymentProvider  string
	PaymentReference string
	PaidAt           *time.Time
}

// NewInvoice creates an unpaid invoice
func NewInvoice(tenantID uuid.UUID, number string, customerID *uuid.UUID, subtotal, tax decimal.Decimal, currency string) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if subtotal.IsNegative() || tax.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amounts cannot be negative")
	}
	if currency == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency is required")
	}
	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		CustomerID:          customerID,
		Subtotal:            subtotal,
		Tax:                 tax,
		Total:               subtotal.Add(tax),
		CreditedAmount:      decimal.Zero,
		Currency:            currency,
		Status:              InvoiceStatusUnpaid,
	}, nil
}

// AttachSalesOrder links the fulfilling sales order
func (i *Invoice) AttachSalesOrder(salesOrderID uuid.UUID) {
	i.SalesOrderID = &salesOrderID
}

// AmountDue is the total less credits
func (i *Invoice) AmountDue() decimal.Decimal {
	return i.Total.Sub(i.CreditedAmount)
}

// CanAcceptPayment reports whether a payment session may be started
func (i *Invoice) CanAcceptPayment() error {
	switch i.Status {
	case InvoiceStatusPaid:
		return shared.NewDomainError("INVOICE_ALREADY_PAID", "Invoice is already paid")
	case InvoiceStatusVoid, InvoiceStatusCredited:
		return shared.NewDomainError("INVALID_STATE", "Invoice cannot be paid in status "+string(i.Status))
	}
	if !i.AmountDue().IsPositive() {
		return shared.NewDomainError("NOTHING_DUE", "Invoice has no amount due")
	}
	return nil
}

// RecordPaymentAttempt stores the gateway correlation reference
func (i *Invoice) RecordPaymentAttempt(provider, reference string) {
	i.PaymentProvider = provider
	i.PaymentReference = reference
	i.UpdatedAt = time.Now()
}

// MarkPaid settles the invoice
func (i *Invoice) MarkPaid(reference string, at time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return nil
	}
	if i.Status == InvoiceStatusVoid {
		return shared.NewDomainError("INVALID_STATE", "Void invoices cannot be paid")
	}
	if reference != "" {
		i.PaymentReference = reference
	}
	i.Status = InvoiceStatusPaid
	i.PaidAt = &at
	i.UpdatedAt = at
	return nil
}

// ApplyCredit reduces the invoice by a credit note amount
func (i *Invoice) ApplyCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}
	if i.CreditedAmount.Add(amount).GreaterThan(i.Total) {
		return shared.NewDomainError("CREDIT_EXCEEDS_TOTAL", "Credit exceeds the invoice total")
	}
	i.CreditedAmount = i.CreditedAmount.Add(amount)
	if i.CreditedAmount.Equal(i.Total) {
		i.Status = InvoiceStatusCredited
	} else if i.Status != InvoiceStatusPaid {
		i.Status = InvoiceStatusPartiallyCredited
	}
	i.UpdatedAt = time.Now()
	return nil
}
