package inventory

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeReturn     MovementType = "RETURN"
	MovementTypeSale       MovementType = "SALE"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
)

// SourceTypeSalesReturn marks movements written by return settlement
const SourceTypeSalesReturn = "SALES_RETURN"

// StockMovement is an immutable ledger row for one quantity change.
// (SourceType, SourceLineID) is unique so a replayed source cannot post twice.
type StockMovement struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	StockItemID   uuid.UUID
	WarehouseID   uuid.UUID
	ProductID     uuid.UUID
	Type          MovementType
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	SourceType    string
	SourceID      uuid.UUID
	SourceLineID  uuid.UUID
	Reference     string
	OperatorID    *uuid.UUID
	CreatedAt     time.Time
}

// NewReturnMovement records goods coming back from a customer return line
func NewReturnMovement(item *StockItem, quantity, unitCost, before, after decimal.Decimal, returnID, lineID uuid.UUID, reference string, operatorID *uuid.UUID) (*StockMovement, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
	}
	return &StockMovement{
		ID:            uuid.New(),
		TenantID:      item.TenantID,
		StockItemID:   item.ID,
		WarehouseID:   item.WarehouseID,
		ProductID:     item.ProductID,
		Type:          MovementTypeReturn,
		Quantity:      quantity,
		UnitCost:      unitCost,
		BalanceBefore: before,
		BalanceAfter:  after,
		SourceType:    SourceTypeSalesReturn,
		SourceID:      returnID,
		SourceLineID:  lineID,
		Reference:     reference,
		OperatorID:    operatorID,
		CreatedAt:     time.Now(),
	}, nil
}
