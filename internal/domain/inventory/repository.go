package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WarehouseRepository reads warehouses
type WarehouseRepository interface {
	FindDefault(ctx context.Context, tenantID uuid.UUID) (*Warehouse, error)
	Create(ctx context.Context, w *Warehouse) error
}

// StockItemRepository persists stock records
type StockItemRepository interface {
	// FindForUpdate loads and row-locks the stock record, returning ErrNotFound when absent
	FindForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*StockItem, error)
	Create(ctx context.Context, item *StockItem) error
	Save(ctx context.Context, item *StockItem) error
	// AvailableByProducts sums available quantity across warehouses per product
	AvailableByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// StockMovementRepository appends to the stock ledger
type StockMovementRepository interface {
	Create(ctx context.Context, m *StockMovement) error
	ExistsForSourceLine(ctx context.Context, sourceType string, sourceLineID uuid.UUID) (bool, error)
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType string, sourceID uuid.UUID) ([]*StockMovement, error)
}
