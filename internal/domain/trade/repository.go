package trade

import (
	"context"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SalesOrderRepository persists sales orders
type SalesOrderRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrder, error)
	FindByInvoiceID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SalesOrder, error)
	// Create inserts a new order with its items
	Create(ctx context.Context, order *SalesOrder) error
	// SaveWithLock updates the header under an optimistic version check and
	// writes pending domain events to the outbox in the same transaction
	SaveWithLock(ctx context.Context, order *SalesOrder) error
}

// SalesReturnFilter narrows return listings
type SalesReturnFilter struct {
	shared.Filter
	Status           *ReturnStatus
	SettlementStatus *SettlementStatus
	SalesOrderID     *uuid.UUID
}

// SalesReturnRepository persists sales returns
type SalesReturnRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SalesReturn, error)
	FindBySalesOrderID(ctx context.Context, tenantID, salesOrderID uuid.UUID) (*SalesReturn, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter SalesReturnFilter) ([]*SalesReturn, int64, error)
	// Create inserts the return; a second return for the same sales order
	// fails with ErrReturnExists
	Create(ctx context.Context, r *SalesReturn) error
	// Save updates the header and writes pending events to the outbox
	Save(ctx context.Context, r *SalesReturn) error
	// NextReturnNumber allocates a tenant-unique return number
	NextReturnNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// ErrReturnExists is returned when a sales order already has a return
var ErrReturnExists = shared.NewDomainError("RETURN_EXISTS", "A return already exists for this sales order")

// ErrReturnNumberTaken is returned when a concurrent create took the number
var ErrReturnNumberTaken = shared.NewDomainError("RETURN_NUMBER_TAKEN", "Return number already exists")
