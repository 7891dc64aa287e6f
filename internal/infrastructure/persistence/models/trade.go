package models

import (
	"time"

	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderModel is the persistence model for the SalesOrder aggregate root.
type SalesOrderModel struct {
	TenantAggregateModel
	OrderNumber  string                `gorm:"type:varchar(50);not null"`
	CustomerID   *uuid.UUID            `gorm:"type:uuid;index"`
	InvoiceID    *uuid.UUID            `gorm:"type:uuid;index"`
	Items        []SalesOrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
	TotalAmount  decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Status       trade.OrderStatus     `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	ConfirmedAt  *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SalesOrderModel) TableName() string {
	return "sales_orders"
}

// ToDomain converts the persistence model to a domain SalesOrder.
func (m *SalesOrderModel) ToDomain() *trade.SalesOrder {
	order := &trade.SalesOrder{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		OrderNumber:         m.OrderNumber,
		CustomerID:          m.CustomerID,
		InvoiceID:           m.InvoiceID,
		TotalAmount:         m.TotalAmount,
		Status:              m.Status,
		ConfirmedAt:         m.ConfirmedAt,
		ShippedAt:           m.ShippedAt,
		DeliveredAt:         m.DeliveredAt,
		CompletedAt:         m.CompletedAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		Items:               make([]trade.SalesOrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = trade.SalesOrderItem{
			ID:          item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		}
	}
	return order
}

// SalesOrderModelFromDomain creates a persistence model from a domain SalesOrder.
func SalesOrderModelFromDomain(o *trade.SalesOrder) *SalesOrderModel {
	m := &SalesOrderModel{
		OrderNumber:  o.OrderNumber,
		CustomerID:   o.CustomerID,
		InvoiceID:    o.InvoiceID,
		TotalAmount:  o.TotalAmount,
		Status:       o.Status,
		ConfirmedAt:  o.ConfirmedAt,
		ShippedAt:    o.ShippedAt,
		DeliveredAt:  o.DeliveredAt,
		CompletedAt:  o.CompletedAt,
		CancelledAt:  o.CancelledAt,
		CancelReason: o.CancelReason,
		Items:        make([]SalesOrderItemModel, len(o.Items)),
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	for i, item := range o.Items {
		m.Items[i] = SalesOrderItemModel{
			ID:          item.ID,
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		}
	}
	return m
}

// SalesOrderItemModel is the persistence model for a sales order line.
type SalesOrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SalesOrderItemModel) TableName() string {
	return "sales_order_items"
}

// SalesReturnModel is the persistence model for the SalesReturn aggregate root.
// sales_order_id is unique: one return per sales order.
type SalesReturnModel struct {
	TenantAggregateModel
	ReturnNumber     string                 `gorm:"type:varchar(50);not null"`
	SalesOrderID     uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_sales_return_order"`
	SalesOrderNumber string                 `gorm:"type:varchar(50);not null"`
	InvoiceID        *uuid.UUID             `gorm:"type:uuid"`
	CustomerID       *uuid.UUID             `gorm:"type:uuid;index"`
	Reason           trade.ReturnReason     `gorm:"type:varchar(30);not null"`
	Note             string                 `gorm:"type:text"`
	Status           trade.ReturnStatus     `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Lines            []SalesReturnLineModel `gorm:"foreignKey:ReturnID;references:ID"`
	TotalAmount      decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	RequestedBy      *uuid.UUID             `gorm:"type:uuid"`
	ApprovedBy       *uuid.UUID             `gorm:"type:uuid"`
	ApprovedAt       *time.Time
	RejectedBy       *uuid.UUID `gorm:"type:uuid"`
	RejectedAt       *time.Time
	RejectionReason  string `gorm:"type:varchar(500)"`
	CancelledAt      *time.Time
	SettlementStatus trade.SettlementStatus `gorm:"type:varchar(20);not null;default:'NONE';index"`
	SettlementError  string                 `gorm:"type:text"`
	SettledAt        *time.Time
	CreditNoteID     *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (SalesReturnModel) TableName() string {
	return "sales_returns"
}

// ToDomain converts the persistence model to a domain SalesReturn.
func (m *SalesReturnModel) ToDomain() *trade.SalesReturn {
	r := &trade.SalesReturn{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ReturnNumber:        m.ReturnNumber,
		SalesOrderID:        m.SalesOrderID,
		SalesOrderNumber:    m.SalesOrderNumber,
		InvoiceID:           m.InvoiceID,
		CustomerID:          m.CustomerID,
		Reason:              m.Reason,
		Note:                m.Note,
		Status:              m.Status,
		TotalAmount:         m.TotalAmount,
		RequestedBy:         m.RequestedBy,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		RejectedBy:          m.RejectedBy,
		RejectedAt:          m.RejectedAt,
		RejectionReason:     m.RejectionReason,
		CancelledAt:         m.CancelledAt,
		SettlementStatus:    m.SettlementStatus,
		SettlementError:     m.SettlementError,
		SettledAt:           m.SettledAt,
		CreditNoteID:        m.CreditNoteID,
		Lines:               make([]trade.SalesReturnLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		r.Lines[i] = trade.SalesReturnLine{
			ID:          l.ID,
			ReturnID:    l.ReturnID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		}
	}
	return r
}

// SalesReturnModelFromDomain creates a persistence model from a domain SalesReturn.
func SalesReturnModelFromDomain(r *trade.SalesReturn) *SalesReturnModel {
	m := &SalesReturnModel{
		ReturnNumber:     r.ReturnNumber,
		SalesOrderID:     r.SalesOrderID,
		SalesOrderNumber: r.SalesOrderNumber,
		InvoiceID:        r.InvoiceID,
		CustomerID:       r.CustomerID,
		Reason:           r.Reason,
		Note:             r.Note,
		Status:           r.Status,
		TotalAmount:      r.TotalAmount,
		RequestedBy:      r.RequestedBy,
		ApprovedBy:       r.ApprovedBy,
		ApprovedAt:       r.ApprovedAt,
		RejectedBy:       r.RejectedBy,
		RejectedAt:       r.RejectedAt,
		RejectionReason:  r.RejectionReason,
		CancelledAt:      r.CancelledAt,
		SettlementStatus: r.SettlementStatus,
		SettlementError:  r.SettlementError,
		SettledAt:        r.SettledAt,
		CreditNoteID:     r.CreditNoteID,
		Lines:            make([]SalesReturnLineModel, len(r.Lines)),
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	for i, l := range r.Lines {
		m.Lines[i] = SalesReturnLineModel{
			ID:          l.ID,
			ReturnID:    r.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		}
	}
	return m
}

// SalesReturnLineModel is the persistence model for a returned product line.
type SalesReturnLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReturnID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SalesReturnLineModel) TableName() string {
	return "sales_return_lines"
}
