package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAbandonedCartRepository implements AbandonedCartRepository using GORM
type GormAbandonedCartRepository struct {
	db *gorm.DB
}

// NewGormAbandonedCartRepository creates a new GormAbandonedCartRepository
func NewGormAbandonedCartRepository(db *gorm.DB) *GormAbandonedCartRepository {
	return &GormAbandonedCartRepository{db: db}
}

// Upsert inserts the tracking row or replaces its contents. A row that has
// already been linked to an order is never overwritten.
func (r *GormAbandonedCartRepository) Upsert(ctx context.Context, cart *storefront.AbandonedCart) error {
	model := models.AbandonedCartModelFromDomain(cart)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_id", "email", "items", "subtotal", "tax", "total", "currency",
				"last_activity_at", "converted_to_order", "converted_at", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "abandoned_carts.order_id IS NULL"},
			}},
		}).
		Create(model).Error
}

// FindBySession finds the tracking row for a storefront session
func (r *GormAbandonedCartRepository) FindBySession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*storefront.AbandonedCart, error) {
	var model models.AbandonedCartModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a tracking row by ID within a tenant
func (r *GormAbandonedCartRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*storefront.AbandonedCart, error) {
	var model models.AbandonedCartModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// MarkConverted flags the session's row as converted. A session that never
// had a tracked cart has nothing to mark.
func (r *GormAbandonedCartRepository) MarkConverted(ctx context.Context, tenantID uuid.UUID, sessionID string, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AbandonedCartModel{}).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Updates(map[string]any{
			"converted_to_order": true,
			"converted_at":       gorm.Expr("COALESCE(converted_at, ?)", at),
			"order_id":           orderID,
			"updated_at":         at,
		}).Error
}

// FindDueForReminder selects unconverted, non-empty, contactable carts idle
// since LastActivityBefore whose last reminder, if any, is older than
// ReminderBefore
func (r *GormAbandonedCartRepository) FindDueForReminder(ctx context.Context, q storefront.ReminderQuery) ([]*storefront.AbandonedCart, error) {
	query := r.db.WithContext(ctx).
		Where("converted_to_order = ?", false).
		Where("(COALESCE(email, '') <> '' OR customer_id IS NOT NULL)").
		Where("last_activity_at < ?", q.LastActivityBefore).
		Where("(reminder_sent_at IS NULL OR reminder_sent_at <= ?)", q.ReminderBefore)
	if q.TenantID != nil {
		query = query.Where("tenant_id = ?", *q.TenantID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []models.AbandonedCartModel
	if err := query.Order("last_activity_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	carts := make([]*storefront.AbandonedCart, 0, len(rows))
	for i := range rows {
		cart := rows[i].ToDomain()
		if len(cart.Items) == 0 {
			continue
		}
		carts = append(carts, cart)
	}
	return carts, nil
}

// FindTenantsWithOpenCarts lists tenants that have unconverted carts
func (r *GormAbandonedCartRepository) FindTenantsWithOpenCarts(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.AbandonedCartModel{}).
		Where("converted_to_order = ?", false).
		Order("tenant_id").
		Distinct().
		Pluck("tenant_id", &ids).Error
	return ids, err
}

// SaveReminder writes the reminder fields only if reminder_sent_at still
// holds the value the caller read, so two dispatchers cannot both send
func (r *GormAbandonedCartRepository) SaveReminder(ctx context.Context, cart *storefront.AbandonedCart, previous *time.Time) error {
	query := r.db.WithContext(ctx).
		Model(&models.AbandonedCartModel{}).
		Where("tenant_id = ? AND id = ?", cart.TenantID, cart.ID)
	if previous == nil {
		query = query.Where("reminder_sent_at IS NULL")
	} else {
		query = query.Where("reminder_sent_at = ?", *previous)
	}

	result := query.Updates(map[string]any{
		"reminder_sent_at": cart.ReminderSentAt,
		"reminder_count":   cart.ReminderCount,
		"updated_at":       cart.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindAll lists tracking rows for a tenant
func (r *GormAbandonedCartRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter storefront.AbandonedCartFilter) ([]*storefront.AbandonedCart, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AbandonedCartModel{}).Where("tenant_id = ?", tenantID)
	if filter.Converted != nil {
		query = query.Where("converted_to_order = ?", *filter.Converted)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AbandonedCartModel
	if err := applyPaging(query, filter.Filter, AbandonedCartSortFields, "last_activity_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	carts := make([]*storefront.AbandonedCart, len(rows))
	for i := range rows {
		carts[i] = rows[i].ToDomain()
	}
	return carts, total, nil
}

// GormEcommerceOrderRepository implements EcommerceOrderRepository using GORM
type GormEcommerceOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormEcommerceOrderRepository creates a new GormEcommerceOrderRepository
func NewGormEcommerceOrderRepository(db *gorm.DB) *GormEcommerceOrderRepository {
	return &GormEcommerceOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormEcommerceOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an order by ID within a tenant
func (r *GormEcommerceOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*storefront.EcommerceOrder, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindBySalesOrderID finds the order fulfilled by a sales order
func (r *GormEcommerceOrderRepository) FindBySalesOrderID(ctx context.Context, tenantID, salesOrderID uuid.UUID) (*storefront.EcommerceOrder, error) {
	return r.findOne(ctx, "tenant_id = ? AND sales_order_id = ?", tenantID, salesOrderID)
}

// FindByInvoiceID finds the order linked to an invoice
func (r *GormEcommerceOrderRepository) FindByInvoiceID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*storefront.EcommerceOrder, error) {
	return r.findOne(ctx, "tenant_id = ? AND invoice_id = ?", tenantID, invoiceID)
}

func (r *GormEcommerceOrderRepository) findOne(ctx context.Context, where string, args ...any) (*storefront.EcommerceOrder, error) {
	var model models.EcommerceOrderModel
	if err := r.db.WithContext(ctx).Where(where, args...).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists orders for a tenant
func (r *GormEcommerceOrderRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter storefront.EcommerceOrderFilter) ([]*storefront.EcommerceOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.EcommerceOrderModel{}).Where("tenant_id = ?", tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Email != "" {
		query = query.Where("LOWER(email) = ?", strings.ToLower(filter.Email))
	}
	if filter.Search != "" {
		query = query.Where("order_number LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.EcommerceOrderModel
	if err := applyPaging(query, filter.Filter, EcommerceOrderSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]*storefront.EcommerceOrder, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}
	return orders, total, nil
}

// Save creates or fully replaces an order. A second order claiming the same
// invoice, or the tenant's order number, fails with ALREADY_EXISTS.
func (r *GormEcommerceOrderRepository) Save(ctx context.Context, order *storefront.EcommerceOrder) error {
	model := models.EcommerceOrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "Order number or invoice is already taken")
		}
		return err
	}
	return nil
}

// SaveWithLock updates the order under an optimistic version check and
// writes its pending events to the outbox in the same transaction
func (r *GormEcommerceOrderRepository) SaveWithLock(ctx context.Context, order *storefront.EcommerceOrder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currentVersion := order.Version
		order.Version++

		result := tx.Model(&models.EcommerceOrderModel{}).
			Where("tenant_id = ? AND id = ? AND version = ?", order.TenantID, order.ID, currentVersion).
			Updates(map[string]any{
				"invoice_id":     order.InvoiceID,
				"sales_order_id": order.SalesOrderID,
				"customer_id":    order.CustomerID,
				"email":          order.Email,
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
				"shipped_at":     order.ShippedAt,
				"delivered_at":   order.DeliveredAt,
				"cancelled_at":   order.CancelledAt,
				"version":        order.Version,
				"updated_at":     order.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The order has been modified by another process")
		}

		events := order.GetDomainEvents()
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		order.Version--
		return err
	}
	order.ClearDomainEvents()
	return nil
}

var (
	_ storefront.AbandonedCartRepository  = (*GormAbandonedCartRepository)(nil)
	_ storefront.EcommerceOrderRepository = (*GormEcommerceOrderRepository)(nil)
)
