package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/bizhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSalesReturnRepository implements SalesReturnRepository using GORM
type GormSalesReturnRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
	now         func() time.Time
}

// NewGormSalesReturnRepository creates a new GormSalesReturnRepository
func NewGormSalesReturnRepository(db *gorm.DB) *GormSalesReturnRepository {
	return &GormSalesReturnRepository{db: db, now: time.Now}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormSalesReturnRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a sales return by ID within a tenant
func (r *GormSalesReturnRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesReturn, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindBySalesOrderID finds the return raised against a sales order
func (r *GormSalesReturnRepository) FindBySalesOrderID(ctx context.Context, tenantID, salesOrderID uuid.UUID) (*trade.SalesReturn, error) {
	return r.findOne(ctx, "tenant_id = ? AND sales_order_id = ?", tenantID, salesOrderID)
}

func (r *GormSalesReturnRepository) findOne(ctx context.Context, where string, args ...any) (*trade.SalesReturn, error) {
	var model models.SalesReturnModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where(where, args...).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists sales returns for a tenant
func (r *GormSalesReturnRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter trade.SalesReturnFilter) ([]*trade.SalesReturn, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SalesReturnModel{}).Where("tenant_id = ?", tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SettlementStatus != nil {
		query = query.Where("settlement_status = ?", *filter.SettlementStatus)
	}
	if filter.SalesOrderID != nil {
		query = query.Where("sales_order_id = ?", *filter.SalesOrderID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("return_number LIKE ? OR sales_order_number LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SalesReturnModel
	if err := applyPaging(query.Preload("Lines"), filter.Filter, SalesReturnSortFields, "created_at").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	returns := make([]*trade.SalesReturn, len(rows))
	for i := range rows {
		returns[i] = rows[i].ToDomain()
	}
	return returns, total, nil
}

// Create inserts the return and its lines. The unique index on
// sales_order_id turns a second return for the same order into
// ErrReturnExists; a clash on (tenant_id, return_number) is
// ErrReturnNumberTaken.
func (r *GormSalesReturnRepository) Create(ctx context.Context, sr *trade.SalesReturn) error {
	model := models.SalesReturnModelFromDomain(sr)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}
		return r.saveEvents(ctx, tx, sr)
	})
	if err == nil {
		sr.ClearDomainEvents()
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}
	if _, findErr := r.FindBySalesOrderID(ctx, sr.TenantID, sr.SalesOrderID); findErr == nil {
		return trade.ErrReturnExists
	}
	return trade.ErrReturnNumberTaken
}

// Save updates the header and writes pending events to the outbox. Lines
// are fixed at creation.
func (r *GormSalesReturnRepository) Save(ctx context.Context, sr *trade.SalesReturn) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currentVersion := sr.Version
		sr.Version++

		result := tx.Model(&models.SalesReturnModel{}).
			Where("tenant_id = ? AND id = ? AND version = ?", sr.TenantID, sr.ID, currentVersion).
			Updates(map[string]any{
				"note":              sr.Note,
				"status":            sr.Status,
				"total_amount":      sr.TotalAmount,
				"approved_by":       sr.ApprovedBy,
				"approved_at":       sr.ApprovedAt,
				"rejected_by":       sr.RejectedBy,
				"rejected_at":       sr.RejectedAt,
				"rejection_reason":  sr.RejectionReason,
				"cancelled_at":      sr.CancelledAt,
				"settlement_status": sr.SettlementStatus,
				"settlement_error":  sr.SettlementError,
				"settled_at":        sr.SettledAt,
				"credit_note_id":    sr.CreditNoteID,
				"version":           sr.Version,
				"updated_at":        sr.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The return has been modified by another user")
		}
		return r.saveEvents(ctx, tx, sr)
	})
	if err != nil {
		sr.Version--
		return err
	}
	sr.ClearDomainEvents()
	return nil
}

func (r *GormSalesReturnRepository) saveEvents(ctx context.Context, tx *gorm.DB, sr *trade.SalesReturn) error {
	events := sr.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// NextReturnNumber generates a return number for a tenant.
// Format: SR-YYYY-NNNNN (e.g., SR-2026-00001)
func (r *GormSalesReturnRepository) NextReturnNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("SR-%d-", r.now().Year())

	var last models.SalesReturnModel
	err := r.db.WithContext(ctx).
		Select("return_number").
		Where("tenant_id = ? AND return_number LIKE ?", tenantID, prefix+"%").
		Order("return_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	next := 1
	if err == nil {
		var n int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.ReturnNumber, prefix), "%d", &n); scanErr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

var _ trade.SalesReturnRepository = (*GormSalesReturnRepository)(nil)
