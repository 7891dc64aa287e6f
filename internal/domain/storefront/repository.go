package storefront

import (
	"context"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AbandonedCartFilter narrows abandoned cart listings
type AbandonedCartFilter struct {
	shared.Filter
	Converted *bool
}

// ReminderQuery selects carts eligible for a reminder
type ReminderQuery struct {
	TenantID           *uuid.UUID
	LastActivityBefore time.Time
	ReminderBefore     time.Time
	Limit              int
}

// AbandonedCartRepository persists abandoned cart tracking rows
type AbandonedCartRepository interface {
	// Upsert inserts or replaces the row for (tenant, session). Rows already
	// linked to an order are left untouched.
	Upsert(ctx context.Context, cart *AbandonedCart) error
	FindBySession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*AbandonedCart, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*AbandonedCart, error)
	MarkConverted(ctx context.Context, tenantID uuid.UUID, sessionID string, orderID uuid.UUID, at time.Time) error
	// FindDueForReminder returns only carts with an email or a linked customer
	FindDueForReminder(ctx context.Context, q ReminderQuery) ([]*AbandonedCart, error)
	FindTenantsWithOpenCarts(ctx context.Context) ([]uuid.UUID, error)
	// SaveReminder persists reminder fields, guarding against a concurrent send
	SaveReminder(ctx context.Context, cart *AbandonedCart, previous *time.Time) error
	FindAll(ctx context.Context, tenantID uuid.UUID, filter AbandonedCartFilter) ([]*AbandonedCart, int64, error)
}

// EcommerceOrderFilter narrows ecommerce order listings
type EcommerceOrderFilter struct {
	shared.Filter
	Status     *OrderStatus
	CustomerID *uuid.UUID
	Email      string
}

// EcommerceOrderRepository persists ecommerce orders
type EcommerceOrderRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*EcommerceOrder, error)
	FindBySalesOrderID(ctx context.Context, tenantID, salesOrderID uuid.UUID) (*EcommerceOrder, error)
	FindByInvoiceID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*EcommerceOrder, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter EcommerceOrderFilter) ([]*EcommerceOrder, int64, error)
	Save(ctx context.Context, order *EcommerceOrder) error
	// SaveWithLock saves with an optimistic version check and writes pending events to the outbox
	SaveWithLock(ctx context.Context, order *EcommerceOrder) error
}
