package models

import (
	"time"

	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AbandonedCartModel is the persistence model for abandoned cart tracking rows
type AbandonedCartModel struct {
	BaseModel
	TenantID         uuid.UUID                                `gorm:"type:uuid;not null;uniqueIndex:idx_abandoned_cart_session,priority:1"`
	SessionID        string                                   `gorm:"type:varchar(64);not null;uniqueIndex:idx_abandoned_cart_session,priority:2"`
	CustomerID       *uuid.UUID                               `gorm:"type:uuid"`
	Email            string                                   `gorm:"type:varchar(200)"`
	Items            datatypes.JSONSlice[storefront.CartLine] `gorm:"not null"`
	Subtotal         decimal.Decimal                          `gorm:"type:decimal(18,2);not null;default:0"`
	Tax              decimal.Decimal                          `gorm:"type:decimal(18,2);not null;default:0"`
	Total            decimal.Decimal                          `gorm:"type:decimal(18,2);not null;default:0"`
	Currency         string                                   `gorm:"type:varchar(3);not null"`
	LastActivityAt   time.Time                                `gorm:"not null;index"`
	ReminderSentAt   *time.Time
	ReminderCount    int  `gorm:"not null;default:0"`
	ConvertedToOrder bool `gorm:"not null;default:false;index"`
	ConvertedAt      *time.Time
	OrderID          *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AbandonedCartModel) TableName() string {
	return "abandoned_carts"
}

// ToDomain converts the model to a domain AbandonedCart
func (m *AbandonedCartModel) ToDomain() *storefront.AbandonedCart {
	items := make([]storefront.CartLine, len(m.Items))
	copy(items, m.Items)
	return &storefront.AbandonedCart{
		BaseEntity:       m.BaseModel.ToDomain(),
		TenantID:         m.TenantID,
		SessionID:        m.SessionID,
		CustomerID:       m.CustomerID,
		Email:            m.Email,
		Items:            items,
		Subtotal:         m.Subtotal,
		Tax:              m.Tax,
		Total:            m.Total,
		Currency:         m.Currency,
		LastActivityAt:   m.LastActivityAt,
		ReminderSentAt:   m.ReminderSentAt,
		ReminderCount:    m.ReminderCount,
		ConvertedToOrder: m.ConvertedToOrder,
		ConvertedAt:      m.ConvertedAt,
		OrderID:          m.OrderID,
	}
}

// AbandonedCartModelFromDomain creates a model from a domain AbandonedCart
func AbandonedCartModelFromDomain(c *storefront.AbandonedCart) *AbandonedCartModel {
	m := &AbandonedCartModel{
		TenantID:         c.TenantID,
		SessionID:        c.SessionID,
		CustomerID:       c.CustomerID,
		Email:            c.Email,
		Items:            datatypes.JSONSlice[storefront.CartLine](c.Items),
		Subtotal:         c.Subtotal,
		Tax:              c.Tax,
		Total:            c.Total,
		Currency:         c.Currency,
		LastActivityAt:   c.LastActivityAt,
		ReminderSentAt:   c.ReminderSentAt,
		ReminderCount:    c.ReminderCount,
		ConvertedToOrder: c.ConvertedToOrder,
		ConvertedAt:      c.ConvertedAt,
		OrderID:          c.OrderID,
	}
	if m.Items == nil {
		m.Items = datatypes.JSONSlice[storefront.CartLine]{}
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// EcommerceOrderModel is the persistence model for customer-facing orders.
// invoice_id is a nullable unique foreign key.
type EcommerceOrderModel struct {
	TenantAggregateModel
	OrderNumber   string                                   `gorm:"type:varchar(50);not null"`
	SessionID     string                                   `gorm:"type:varchar(64);index"`
	InvoiceID     *uuid.UUID                               `gorm:"type:uuid;uniqueIndex"`
	SalesOrderID  *uuid.UUID                               `gorm:"type:uuid;index"`
	CustomerID    *uuid.UUID                               `gorm:"type:uuid;index"`
	Email         string                                   `gorm:"type:varchar(200)"`
	Items         datatypes.JSONSlice[storefront.CartLine] `gorm:"not null"`
	Subtotal      decimal.Decimal                          `gorm:"type:decimal(18,2);not null"`
	Tax           decimal.Decimal                          `gorm:"type:decimal(18,2);not null"`
	Total         decimal.Decimal                          `gorm:"type:decimal(18,2);not null"`
	Currency      string                                   `gorm:"type:varchar(3);not null"`
	Status        storefront.OrderStatus                   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentStatus storefront.PaymentStatus                 `gorm:"type:varchar(20);not null;default:'PENDING'"`
	ShippedAt     *time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (EcommerceOrderModel) TableName() string {
	return "ecommerce_orders"
}

// ToDomain converts the model to a domain EcommerceOrder
func (m *EcommerceOrderModel) ToDomain() *storefront.EcommerceOrder {
	items := make([]storefront.CartLine, len(m.Items))
	copy(items, m.Items)
	return &storefront.EcommerceOrder{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		OrderNumber:         m.OrderNumber,
		SessionID:           m.SessionID,
		InvoiceID:           m.InvoiceID,
		SalesOrderID:        m.SalesOrderID,
		CustomerID:          m.CustomerID,
		Email:               m.Email,
		Items:               items,
		Subtotal:            m.Subtotal,
		Tax:                 m.Tax,
		Total:               m.Total,
		Currency:            m.Currency,
		Status:              m.Status,
		PaymentStatus:       m.PaymentStatus,
		ShippedAt:           m.ShippedAt,
		DeliveredAt:         m.DeliveredAt,
		CancelledAt:         m.CancelledAt,
	}
}

// EcommerceOrderModelFromDomain creates a model from a domain EcommerceOrder
func EcommerceOrderModelFromDomain(o *storefront.EcommerceOrder) *EcommerceOrderModel {
	m := &EcommerceOrderModel{
		OrderNumber:   o.OrderNumber,
		SessionID:     o.SessionID,
		InvoiceID:     o.InvoiceID,
		SalesOrderID:  o.SalesOrderID,
		CustomerID:    o.CustomerID,
		Email:         o.Email,
		Items:         datatypes.JSONSlice[storefront.CartLine](o.Items),
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Total:         o.Total,
		Currency:      o.Currency,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		ShippedAt:     o.ShippedAt,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	return m
}
