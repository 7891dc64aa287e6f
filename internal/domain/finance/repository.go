package finance

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Invoice, error)
	FindByPaymentReference(ctx context.Context, reference string) (*Invoice, error)
	Create(ctx context.Context, invoice *Invoice) error
	Save(ctx context.Context, invoice *Invoice) error
}

// CreditNoteRepository persists credit notes
type CreditNoteRepository interface {
	FindByReturnID(ctx context.Context, tenantID, returnID uuid.UUID) (*CreditNote, error)
	Create(ctx context.Context, cn *CreditNote) error
}
