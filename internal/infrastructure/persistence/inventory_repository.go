package persistence

import (
	"context"

	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindForUpdate loads the stock record with a row lock. Only meaningful
// inside a transaction.
func (r *GormStockItemRepository) FindForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND warehouse_id = ? AND product_id = ?", tenantID, warehouseID, productID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a stock record
func (r *GormStockItemRepository) Create(ctx context.Context, item *inventory.StockItem) error {
	if err := r.db.WithContext(ctx).Create(models.StockItemModelFromDomain(item)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "Stock record already exists for this warehouse and product")
		}
		return err
	}
	return nil
}

// Save writes quantities and cost
func (r *GormStockItemRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockItemModel{}).
		Where("tenant_id = ? AND id = ?", item.TenantID, item.ID).
		Updates(map[string]any{
			"quantity":           item.Quantity,
			"available_quantity": item.AvailableQuantity,
			"reserved_quantity":  item.ReservedQuantity,
			"average_cost":       item.AverageCost,
			"total_value":        item.TotalValue,
			"updated_at":         item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AvailableByProducts sums available quantity across warehouses per product.
// Products without stock records are absent from the result.
func (r *GormStockItemRepository) AvailableByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	result := make(map[uuid.UUID]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	var rows []models.StockItemModel
	if err := r.db.WithContext(ctx).
		Select("product_id", "available_quantity").
		Where("tenant_id = ? AND product_id IN ?", tenantID, productIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ProductID] = result[row.ProductID].Add(row.AvailableQuantity)
	}
	return result, nil
}

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a movement. The (source_type, source_line_id) unique index
// rejects a second movement for the same source line.
func (r *GormStockMovementRepository) Create(ctx context.Context, m *inventory.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(models.StockMovementModelFromDomain(m)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "A stock movement already exists for this source line")
		}
		return err
	}
	return nil
}

// ExistsForSourceLine reports whether a movement was already recorded for a source line
func (r *GormStockMovementRepository) ExistsForSourceLine(ctx context.Context, sourceType string, sourceLineID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.StockMovementModel{}).
		Where("source_type = ? AND source_line_id = ?", sourceType, sourceLineID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindBySource lists movements recorded for a source document
func (r *GormStockMovementRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType string, sourceID uuid.UUID) ([]*inventory.StockMovement, error) {
	var rows []models.StockMovementModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, sourceType, sourceID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	movements := make([]*inventory.StockMovement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements, nil
}

var (
	_ inventory.StockItemRepository     = (*GormStockItemRepository)(nil)
	_ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
)
