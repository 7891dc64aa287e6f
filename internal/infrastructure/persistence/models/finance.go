package models

import (
	"time"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	TenantAggregateModel
	Number           string                `gorm:"type:varchar(50);not null"`
	CustomerID       *uuid.UUID            `gorm:"type:uuid;index"`
	SalesOrderID     *uuid.UUID            `gorm:"type:uuid;index"`
	Subtotal         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Tax              decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Total            decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	CreditedAmount   decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Currency         string                `gorm:"type:varchar(3);not null"`
	Status           finance.InvoiceStatus `gorm:"type:varchar(30);not null;default:'UNPAID'"`
	PaymentProvider  string                `gorm:"type:varchar(30)"`
	PaymentReference string                `gorm:"type:varchar(100);index"`
	PaidAt           *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	return &finance.Invoice{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Number:              m.Number,
		CustomerID:          m.CustomerID,
		SalesOrderID:        m.SalesOrderID,
		Subtotal:            m.Subtotal,
		Tax:                 m.Tax,
		Total:               m.Total,
		CreditedAmount:      m.CreditedAmount,
		Currency:            m.Currency,
		Status:              m.Status,
		PaymentProvider:     m.PaymentProvider,
		PaymentReference:    m.PaymentReference,
		PaidAt:              m.PaidAt,
	}
}

// InvoiceModelFromDomain creates a model from a domain Invoice
func InvoiceModelFromDomain(i *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:           i.Number,
		CustomerID:       i.CustomerID,
		SalesOrderID:     i.SalesOrderID,
		Subtotal:         i.Subtotal,
		Tax:              i.Tax,
		Total:            i.Total,
		CreditedAmount:   i.CreditedAmount,
		Currency:         i.Currency,
		Status:           i.Status,
		PaymentProvider:  i.PaymentProvider,
		PaymentReference: i.PaymentReference,
		PaidAt:           i.PaidAt,
	}
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	return m
}

// CreditNoteModel is the persistence model for credit notes.
// return_id is unique so a replayed settlement cannot issue twice.
type CreditNoteModel struct {
	TenantAggregateModel
	CreditNoteNumber string                   `gorm:"type:varchar(50);not null"`
	InvoiceID        uuid.UUID                `gorm:"type:uuid;not null;index"`
	InvoiceNumber    string                   `gorm:"type:varchar(50);not null"`
	SalesOrderID     uuid.UUID                `gorm:"type:uuid;not null"`
	ReturnID         uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex"`
	ReturnNumber     string                   `gorm:"type:varchar(50);not null"`
	CustomerID       *uuid.UUID               `gorm:"type:uuid"`
	Reason           string                   `gorm:"type:varchar(200)"`
	Amount           decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Currency         string                   `gorm:"type:varchar(3);not null"`
	Status           finance.CreditNoteStatus `gorm:"type:varchar(20);not null;default:'ISSUED'"`
	Lines            []CreditNoteLineModel    `gorm:"foreignKey:CreditNoteID;references:ID"`
	IssuedAt         time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// ToDomain converts the model to a domain CreditNote
func (m *CreditNoteModel) ToDomain() *finance.CreditNote {
	cn := &finance.CreditNote{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		CreditNoteNumber:    m.CreditNoteNumber,
		InvoiceID:           m.InvoiceID,
		InvoiceNumber:       m.InvoiceNumber,
		SalesOrderID:        m.SalesOrderID,
		ReturnID:            m.ReturnID,
		ReturnNumber:        m.ReturnNumber,
		CustomerID:          m.CustomerID,
		Reason:              m.Reason,
		Amount:              m.Amount,
		Currency:            m.Currency,
		Status:              m.Status,
		IssuedAt:            m.IssuedAt,
		Lines:               make([]finance.CreditNoteLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		cn.Lines[i] = finance.CreditNoteLine{
			ID:           l.ID,
			CreditNoteID: l.CreditNoteID,
			ReturnLineID: l.ReturnLineID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Amount:       l.Amount,
		}
	}
	return cn
}

// CreditNoteModelFromDomain creates a model from a domain CreditNote
func CreditNoteModelFromDomain(cn *finance.CreditNote) *CreditNoteModel {
	m := &CreditNoteModel{
		CreditNoteNumber: cn.CreditNoteNumber,
		InvoiceID:        cn.InvoiceID,
		InvoiceNumber:    cn.InvoiceNumber,
		SalesOrderID:     cn.SalesOrderID,
		ReturnID:         cn.ReturnID,
		ReturnNumber:     cn.ReturnNumber,
		CustomerID:       cn.CustomerID,
		Reason:           cn.Reason,
		Amount:           cn.Amount,
		Currency:         cn.Currency,
		Status:           cn.Status,
		IssuedAt:         cn.IssuedAt,
		Lines:            make([]CreditNoteLineModel, len(cn.Lines)),
	}
	m.FromDomainTenantAggregateRoot(cn.TenantAggregateRoot)
	for i, l := range cn.Lines {
		m.Lines[i] = CreditNoteLineModel{
			ID:           l.ID,
			CreditNoteID: cn.ID,
			ReturnLineID: l.ReturnLineID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Amount:       l.Amount,
		}
	}
	return m
}

// CreditNoteLineModel is the persistence model for credit note lines
type CreditNoteLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CreditNoteID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReturnLineID uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName  string          `gorm:"type:varchar(200);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (CreditNoteLineModel) TableName() string {
	return "credit_note_lines"
}
