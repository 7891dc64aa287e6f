package persistence

import (
	"context"
	"fmt"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/bizhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSalesOrderRepository implements SalesOrderRepository using GORM
type GormSalesOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *gorm.DB) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormSalesOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a sales order with its items
func (r *GormSalesOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesOrder, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByInvoiceID finds the sales order billed by an invoice
func (r *GormSalesOrderRepository) FindByInvoiceID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*trade.SalesOrder, error) {
	return r.findOne(ctx, "tenant_id = ? AND invoice_id = ?", tenantID, invoiceID)
}

func (r *GormSalesOrderRepository) findOne(ctx context.Context, where string, args ...any) (*trade.SalesOrder, error) {
	var model models.SalesOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where(where, args...).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new order with its items
func (r *GormSalesOrderRepository) Create(ctx context.Context, order *trade.SalesOrder) error {
	model := models.SalesOrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.NewDomainError("ALREADY_EXISTS", "Sales order number already exists")
			}
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		return r.saveEvents(ctx, tx, order)
	})
}

// SaveWithLock updates the header under an optimistic version check and
// writes pending domain events to the outbox in the same transaction.
// Items are immutable once the order leaves draft and are not rewritten.
func (r *GormSalesOrderRepository) SaveWithLock(ctx context.Context, order *trade.SalesOrder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currentVersion := order.Version
		order.Version++

		result := tx.Model(&models.SalesOrderModel{}).
			Where("tenant_id = ? AND id = ? AND version = ?", order.TenantID, order.ID, currentVersion).
			Updates(map[string]any{
				"customer_id":   order.CustomerID,
				"invoice_id":    order.InvoiceID,
				"total_amount":  order.TotalAmount,
				"status":        order.Status,
				"confirmed_at":  order.ConfirmedAt,
				"shipped_at":    order.ShippedAt,
				"delivered_at":  order.DeliveredAt,
				"completed_at":  order.CompletedAt,
				"cancelled_at":  order.CancelledAt,
				"cancel_reason": order.CancelReason,
				"version":       order.Version,
				"updated_at":    order.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The order has been modified by another user")
		}
		return r.saveEvents(ctx, tx, order)
	})
	if err != nil {
		order.Version--
		return err
	}
	order.ClearDomainEvents()
	return nil
}

func (r *GormSalesOrderRepository) saveEvents(ctx context.Context, tx *gorm.DB, order *trade.SalesOrder) error {
	events := order.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

var _ trade.SalesOrderRepository = (*GormSalesOrderRepository)(nil)
