package finance

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditNoteStatus represents the status of a credit note
type CreditNoteStatus string

const (
	CreditNoteStatusIssued CreditNoteStatus = "ISSUED"
	CreditNoteStatusVoided CreditNoteStatus = "VOIDED"
)

// CreditNoteLine is one credited product
type CreditNoteLine struct {
	ID           uuid.UUID
	CreditNoteID uuid.UUID
	ReturnLineID uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Amount       decimal.Decimal
}

// CreditNote reduces what a customer owes on an invoice after a return.
// One credit note exists per return.
type CreditNote struct {
	shared.TenantAggregateRoot
	CreditNoteNumber string
	InvoiceID        uuid.UUID
	InvoiceNumber    string
	SalesOrderID     uuid.UUID
	ReturnID         uuid.UUID
	ReturnNumber     string
	CustomerID       *uuid.UUID
	Reason           string
	Amount           decimal.Decimal
	Currency         string
	Status           CreditNoteStatus
	Lines            []CreditNoteLine
	IssuedAt         time.Time
}

// CreditNoteSource carries the return fields a credit note is built from
type CreditNoteSource struct {
	ReturnID     uuid.UUID
	ReturnNumber string
	SalesOrderID uuid.UUID
	CustomerID   *uuid.UUID
	Reason       string
	Lines        []CreditNoteLine
}

// NewCreditNote issues a credit note against an invoice
func NewCreditNote(number string, invoice *Invoice, src CreditNoteSource) (*CreditNote, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_CREDIT_NOTE_NUMBER", "Credit note number cannot be empty")
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice is required")
	}
	if len(src.Lines) == 0 {
		return nil, shared.NewDomainError("NO_CREDIT_LINES", "A credit note needs at least one line")
	}

	cn := &CreditNote{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(invoice.TenantID),
		CreditNoteNumber:    number,
		InvoiceID:           invoice.ID,
		InvoiceNumber:       invoice.Number,
		SalesOrderID:        src.SalesOrderID,
		ReturnID:            src.ReturnID,
		ReturnNumber:        src.ReturnNumber,
		CustomerID:          src.CustomerID,
		Reason:              src.Reason,
		Currency:            invoice.Currency,
		Status:              CreditNoteStatusIssued,
		Lines:               make([]CreditNoteLine, 0, len(src.Lines)),
		Amount:              decimal.Zero,
		IssuedAt:            time.Now(),
	}
	for _, l := range src.Lines {
		l.ID = uuid.New()
		l.CreditNoteID = cn.ID
		l.Amount = shared.RoundMoney(l.Quantity.Mul(l.UnitPrice))
		cn.Lines = append(cn.Lines, l)
		cn.Amount = cn.Amount.Add(l.Amount)
	}
	// credit never exceeds what is still owed on the invoice
	if due := invoice.Total.Sub(invoice.CreditedAmount); cn.Amount.GreaterThan(due) {
		cn.Amount = due
	}
	return cn, nil
}
