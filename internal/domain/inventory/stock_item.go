package inventory

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItem is the quantity and cost of one product in one warehouse
type StockItem struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	WarehouseID       uuid.UUID
	ProductID         uuid.UUID
	Quantity          decimal.Decimal
	AvailableQuantity decimal.Decimal
	ReservedQuantity  decimal.Decimal
	AverageCost       decimal.Decimal
	TotalValue        decimal.Decimal
}

// NewStockItem creates an empty stock record
func NewStockItem(tenantID, warehouseID, productID uuid.UUID) (*StockItem, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	return &StockItem{
		BaseEntity:        shared.NewBaseEntity(),
		TenantID:          tenantID,
		WarehouseID:       warehouseID,
		ProductID:         productID,
		Quantity:          decimal.Zero,
		AvailableQuantity: decimal.Zero,
		ReservedQuantity:  decimal.Zero,
		AverageCost:       decimal.Zero,
		TotalValue:        decimal.Zero,
	}, nil
}

// WeightedAverageCost returns (oldQty*oldCost + qty*cost) / (oldQty+qty)
// rounded to 4 places. With no existing stock the incoming cost wins.
func WeightedAverageCost(oldQty, oldCost, qty, cost decimal.Decimal) decimal.Decimal {
	if oldQty.LessThanOrEqual(decimal.Zero) {
		return cost.Round(shared.CostScale)
	}
	totalQty := oldQty.Add(qty)
	if totalQty.IsZero() {
		return oldCost
	}
	value := oldQty.Mul(oldCost).Add(qty.Mul(cost))
	return value.Div(totalQty).Round(shared.CostScale)
}

// Receive adds returned or purchased goods at unitCost, recomputing the
// weighted-average cost. It returns the quantity before and after.
func (s *StockItem) Receive(quantity, unitCost decimal.Decimal) (before, after decimal.Decimal, err error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return decimal.Zero, decimal.Zero, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	before = s.Quantity
	s.AverageCost = WeightedAverageCost(s.Quantity, s.AverageCost, quantity, unitCost)
	s.Quantity = s.Quantity.Add(quantity)
	s.AvailableQuantity = s.AvailableQuantity.Add(quantity)
	s.TotalValue = shared.RoundMoney(s.Quantity.Mul(s.AverageCost))
	s.UpdatedAt = time.Now()
	return before, s.Quantity, nil
}

// AvailableUnits returns the available quantity as whole units
func (s *StockItem) AvailableUnits() int {
	return int(s.AvailableQuantity.Floor().IntPart())
}
