package partner

import (
	"context"
	"strings"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Customer is a buyer known to the tenant
type Customer struct {
	shared.TenantAggregateRoot
	Name  string
	Email string
	Phone string
}

// NewCustomer creates a customer
func NewCustomer(tenantID uuid.UUID, name, email, phone string) (*Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	return &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Email:               strings.ToLower(strings.TrimSpace(email)),
		Phone:               strings.TrimSpace(phone),
	}, nil
}

// CustomerRepository reads customers
type CustomerRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Customer, error)
	Create(ctx context.Context, customer *Customer) error
}
