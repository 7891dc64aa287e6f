package persistence

import (
	"context"

	appstorefront "github.com/bizhub/backend/internal/application/storefront"
	apptrade "github.com/bizhub/backend/internal/application/trade"
	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormSettlementScope implements SettlementScope using GORM transactions.
// Repositories handed to fn share the transaction, and the ones that raise
// events write them to the outbox inside it.
type GormSettlementScope struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormSettlementScope creates a new GormSettlementScope
func NewGormSettlementScope(db *gorm.DB, outboxSaver shared.OutboxEventSaver) *GormSettlementScope {
	return &GormSettlementScope{db: db, outboxSaver: outboxSaver}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormSettlementScope) Execute(ctx context.Context, fn func(repos apptrade.SettlementRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSettlementRepositories{tx: tx, outboxSaver: s.outboxSaver})
	})
}

type gormSettlementRepositories struct {
	tx          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

func (r *gormSettlementRepositories) Returns() trade.SalesReturnRepository {
	repo := NewGormSalesReturnRepository(r.tx)
	repo.SetOutboxEventSaver(r.outboxSaver)
	return repo
}

func (r *gormSettlementRepositories) Warehouses() inventory.WarehouseRepository {
	return NewGormWarehouseRepository(r.tx)
}

func (r *gormSettlementRepositories) StockItems() inventory.StockItemRepository {
	return NewGormStockItemRepository(r.tx)
}

func (r *gormSettlementRepositories) Movements() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

func (r *gormSettlementRepositories) Invoices() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormSettlementRepositories) CreditNotes() finance.CreditNoteRepository {
	return NewGormCreditNoteRepository(r.tx)
}

// GormCheckoutScope implements CheckoutScope using GORM transactions
type GormCheckoutScope struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormCheckoutScope creates a new GormCheckoutScope
func NewGormCheckoutScope(db *gorm.DB, outboxSaver shared.OutboxEventSaver) *GormCheckoutScope {
	return &GormCheckoutScope{db: db, outboxSaver: outboxSaver}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormCheckoutScope) Execute(ctx context.Context, fn func(repos appstorefront.CheckoutRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCheckoutRepositories{tx: tx, outboxSaver: s.outboxSaver})
	})
}

type gormCheckoutRepositories struct {
	tx          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

func (r *gormCheckoutRepositories) Invoices() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormCheckoutRepositories) SalesOrders() trade.SalesOrderRepository {
	repo := NewGormSalesOrderRepository(r.tx)
	repo.SetOutboxEventSaver(r.outboxSaver)
	return repo
}

func (r *gormCheckoutRepositories) Orders() storefront.EcommerceOrderRepository {
	repo := NewGormEcommerceOrderRepository(r.tx)
	repo.SetOutboxEventSaver(r.outboxSaver)
	return repo
}

func (r *gormCheckoutRepositories) Carts() storefront.AbandonedCartRepository {
	return NewGormAbandonedCartRepository(r.tx)
}

func (r *gormCheckoutRepositories) Customers() partner.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

var (
	_ apptrade.SettlementScope           = (*GormSettlementScope)(nil)
	_ apptrade.SettlementRepositories    = (*gormSettlementRepositories)(nil)
	_ appstorefront.CheckoutScope        = (*GormCheckoutScope)(nil)
	_ appstorefront.CheckoutRepositories = (*gormCheckoutRepositories)(nil)
)
