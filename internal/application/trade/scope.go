package trade

import (
	"context"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/trade"
)

// SettlementRepositories exposes the repositories bound to one settlement transaction
type SettlementRepositories interface {
	Returns() trade.SalesReturnRepository
	Warehouses() inventory.WarehouseRepository
	StockItems() inventory.StockItemRepository
	Movements() inventory.StockMovementRepository
	Invoices() finance.InvoiceRepository
	CreditNotes() finance.CreditNoteRepository
}

// SettlementScope runs fn in a single database transaction. Any error
// returned by fn rolls the whole settlement back.
type SettlementScope interface {
	Execute(ctx context.Context, fn func(repos SettlementRepositories) error) error
}
