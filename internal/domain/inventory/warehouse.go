package inventory

import (
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Warehouse is a stock location. Each tenant has one default warehouse
// that receives returned goods.
type Warehouse struct {
	shared.BaseEntity
	TenantID  uuid.UUID
	Code      string
	Name      string
	IsDefault bool
}

// NewWarehouse creates a warehouse
func NewWarehouse(tenantID uuid.UUID, code, name string, isDefault bool) (*Warehouse, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Warehouse code cannot be empty")
	}
	if name == "" {
		name = code
	}
	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Code:       code,
		Name:       name,
		IsDefault:  isDefault,
	}, nil
}
