package persistence

import (
	"context"

	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindDefault finds the tenant's default warehouse
func (r *GormWarehouseRepository) FindDefault(ctx context.Context, tenantID uuid.UUID) (*inventory.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a warehouse
func (r *GormWarehouseRepository) Create(ctx context.Context, w *inventory.Warehouse) error {
	if err := r.db.WithContext(ctx).Create(models.WarehouseModelFromDomain(w)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "Warehouse code already exists")
		}
		return err
	}
	return nil
}

var _ inventory.WarehouseRepository = (*GormWarehouseRepository)(nil)
