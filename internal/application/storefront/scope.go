package storefront

import (
	"context"
	"time"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRepositories exposes the repositories bound to one checkout transaction
type CheckoutRepositories interface {
	Invoices() finance.InvoiceRepository
	SalesOrders() trade.SalesOrderRepository
	Orders() storefront.EcommerceOrderRepository
	Carts() storefront.AbandonedCartRepository
	Customers() partner.CustomerRepository
}

// CheckoutScope runs fn in a single database transaction
type CheckoutScope interface {
	Execute(ctx context.Context, fn func(repos CheckoutRepositories) error) error
}

// TenantSettings resolves per-tenant storefront settings
type TenantSettings interface {
	TaxRate(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
	Currency(ctx context.Context, tenantID uuid.UUID) (string, error)
	ReminderDelay(ctx context.Context, tenantID uuid.UUID) (time.Duration, error)
}

// Metrics records storefront business outcomes
type Metrics interface {
	RecordReminder(ctx context.Context, tenantID uuid.UUID, outcome string)
	RecordReconciliation(ctx context.Context, tenantID uuid.UUID, status string)
	RecordCheckout(ctx context.Context, tenantID uuid.UUID, total decimal.Decimal)
}
