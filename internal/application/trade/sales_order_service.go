package trade

import (
	"context"
	"strings"

	"github.com/bizhub/backend/internal/domain/identity"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
)

// SalesOrderService handles back-office sales order operations
type SalesOrderService struct {
	orderRepo trade.SalesOrderRepository
}

// NewSalesOrderService creates a new SalesOrderService
func NewSalesOrderService(orderRepo trade.SalesOrderRepository) *SalesOrderService {
	return &SalesOrderService{orderRepo: orderRepo}
}

// GetByID retrieves a sales order by ID
func (s *SalesOrderService) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*SalesOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToSalesOrderResponse(order)
	return &response, nil
}

// ChangeStatus moves the order to the requested status. The status change
// event is written to the outbox with the order, which drives the
// storefront order reconciliation.
func (s *SalesOrderService) ChangeStatus(ctx context.Context, actor identity.Actor, orderID uuid.UUID, req ChangeSalesOrderStatusRequest) (*SalesOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, actor.TenantID, orderID)
	if err != nil {
		return nil, err
	}

	var changedBy *uuid.UUID
	if actor.UserID != uuid.Nil {
		changedBy = &actor.UserID
	}
	target := trade.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := order.ChangeStatus(target, changedBy, req.Reason); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToSalesOrderResponse(order)
	return &response, nil
}
