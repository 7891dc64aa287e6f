package models

import (
	"time"

	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WarehouseModel is the persistence model for warehouses
type WarehouseModel struct {
	BaseModel
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Code      string    `gorm:"type:varchar(50);not null"`
	Name      string    `gorm:"type:varchar(200);not null"`
	IsDefault bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *inventory.Warehouse {
	return &inventory.Warehouse{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		Code:       m.Code,
		Name:       m.Name,
		IsDefault:  m.IsDefault,
	}
}

// WarehouseModelFromDomain creates a model from a domain Warehouse
func WarehouseModelFromDomain(w *inventory.Warehouse) *WarehouseModel {
	m := &WarehouseModel{TenantID: w.TenantID, Code: w.Code, Name: w.Name, IsDefault: w.IsDefault}
	m.FromDomainBaseEntity(w.BaseEntity)
	return m
}

// StockItemModel is the persistence model for per-warehouse stock records
type StockItemModel struct {
	BaseModel
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_wh_product,priority:1"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_wh_product,priority:2"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AverageCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalValue        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockItemModel) TableName() string {
	return "stock_items"
}

// ToDomain converts the model to a domain StockItem
func (m *StockItemModel) ToDomain() *inventory.StockItem {
	return &inventory.StockItem{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		WarehouseID:       m.WarehouseID,
		ProductID:         m.ProductID,
		Quantity:          m.Quantity,
		AvailableQuantity: m.AvailableQuantity,
		ReservedQuantity:  m.ReservedQuantity,
		AverageCost:       m.AverageCost,
		TotalValue:        m.TotalValue,
	}
}

// StockItemModelFromDomain creates a model from a domain StockItem
func StockItemModelFromDomain(s *inventory.StockItem) *StockItemModel {
	m := &StockItemModel{
		TenantID:          s.TenantID,
		WarehouseID:       s.WarehouseID,
		ProductID:         s.ProductID,
		Quantity:          s.Quantity,
		AvailableQuantity: s.AvailableQuantity,
		ReservedQuantity:  s.ReservedQuantity,
		AverageCost:       s.AverageCost,
		TotalValue:        s.TotalValue,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// StockMovementModel is the persistence model for the append-only stock ledger
type StockMovementModel struct {
	ID            uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	StockItemID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	WarehouseID   uuid.UUID              `gorm:"type:uuid;not null"`
	ProductID     uuid.UUID              `gorm:"type:uuid;not null"`
	Type          inventory.MovementType `gorm:"type:varchar(20);not null"`
	Quantity      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	UnitCost      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	SourceType    string                 `gorm:"type:varchar(30);not null;uniqueIndex:idx_stock_movement_source_line,priority:1;index:idx_stock_movement_source,priority:1"`
	SourceID      uuid.UUID              `gorm:"type:uuid;not null;index:idx_stock_movement_source,priority:2"`
	SourceLineID  uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_stock_movement_source_line,priority:2"`
	Reference     string                 `gorm:"type:varchar(100)"`
	OperatorID    *uuid.UUID             `gorm:"type:uuid"`
	CreatedAt     time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the model to a domain StockMovement
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		ID:            m.ID,
		TenantID:      m.TenantID,
		StockItemID:   m.StockItemID,
		WarehouseID:   m.WarehouseID,
		ProductID:     m.ProductID,
		Type:          m.Type,
		Quantity:      m.Quantity,
		UnitCost:      m.UnitCost,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		SourceType:    m.SourceType,
		SourceID:      m.SourceID,
		SourceLineID:  m.SourceLineID,
		Reference:     m.Reference,
		OperatorID:    m.OperatorID,
		CreatedAt:     m.CreatedAt,
	}
}

// StockMovementModelFromDomain creates a model from a domain StockMovement
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:            s.ID,
		TenantID:      s.TenantID,
		StockItemID:   s.StockItemID,
		WarehouseID:   s.WarehouseID,
		ProductID:     s.ProductID,
		Type:          s.Type,
		Quantity:      s.Quantity,
		UnitCost:      s.UnitCost,
		BalanceBefore: s.BalanceBefore,
		BalanceAfter:  s.BalanceAfter,
		SourceType:    s.SourceType,
		SourceID:      s.SourceID,
		SourceLineID:  s.SourceLineID,
		Reference:     s.Reference,
		OperatorID:    s.OperatorID,
		CreatedAt:     s.CreatedAt,
	}
}
