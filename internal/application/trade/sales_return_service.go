package trade

import (
	"context"
	"errors"
	"strings"

	"github.com/bizhub/backend/internal/domain/identity"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const returnNumberAttempts = 3

// SalesReturnService handles sales return business operations
type SalesReturnService struct {
	returnRepo trade.SalesReturnRepository
	orderRepo  trade.SalesOrderRepository
	logger     *zap.Logger
}

// NewSalesReturnService creates a new SalesReturnService
func NewSalesReturnService(
	returnRepo trade.SalesReturnRepository,
	orderRepo trade.SalesOrderRepository,
	logger *zap.Logger,
) *SalesReturnService {
	return &SalesReturnService{
		returnRepo: returnRepo,
		orderRepo:  orderRepo,
		logger:     logger,
	}
}

// Create raises a return against a sales order. Admins approve in the same
// step, which schedules settlement; everyone else leaves the return PENDING.
func (s *SalesReturnService) Create(ctx context.Context, actor identity.Actor, req CreateSalesReturnRequest) (*SalesReturnResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, actor.TenantID, req.SalesOrderID)
	if err != nil {
		return nil, err
	}

	// numbers are read-max-plus-one, so a concurrent create can take ours
	var sr *trade.SalesReturn
	for attempt := 1; ; attempt++ {
		returnNumber, err := s.returnRepo.NextReturnNumber(ctx, actor.TenantID)
		if err != nil {
			return nil, err
		}
		if sr, err = s.buildReturn(actor, order, returnNumber, req); err != nil {
			return nil, err
		}
		err = s.returnRepo.Create(ctx, sr)
		if err == nil {
			break
		}
		if !errors.Is(err, trade.ErrReturnNumberTaken) || attempt == returnNumberAttempts {
			return nil, err
		}
		s.logger.Debug("Return number taken, retrying",
			zap.String("return_number", returnNumber),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Info("Sales return created",
		zap.String("return_id", sr.ID.String()),
		zap.String("return_number", sr.ReturnNumber),
		zap.String("sales_order_id", sr.SalesOrderID.String()),
		zap.String("status", string(sr.Status)),
	)

	response := ToSalesReturnResponse(sr)
	return &response, nil
}

func (s *SalesReturnService) buildReturn(actor identity.Actor, order *trade.SalesOrder, returnNumber string, req CreateSalesReturnRequest) (*trade.SalesReturn, error) {
	reason := trade.ReturnReason(strings.ToUpper(strings.TrimSpace(req.Reason)))
	sr, err := trade.NewSalesReturn(actor.TenantID, returnNumber, order, reason, req.Note, actor.UserID)
	if err != nil {
		return nil, err
	}
	for _, line := range req.Lines {
		if err := sr.AddLine(line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}
	if err := sr.Submit(); err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		if err := sr.Approve(actor.UserID); err != nil {
			return nil, err
		}
	}
	return sr, nil
}

// GetByID retrieves a sales return by ID
func (s *SalesReturnService) GetByID(ctx context.Context, tenantID, returnID uuid.UUID) (*SalesReturnResponse, error) {
	sr, err := s.returnRepo.FindByID(ctx, tenantID, returnID)
	if err != nil {
		return nil, err
	}
	response := ToSalesReturnResponse(sr)
	return &response, nil
}

// List retrieves sales returns with filtering and pagination
func (s *SalesReturnService) List(ctx context.Context, tenantID uuid.UUID, filter SalesReturnListFilter) ([]SalesReturnResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := trade.SalesReturnFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		SalesOrderID: filter.SalesOrderID,
	}
	if filter.Status != "" {
		status := trade.ReturnStatus(strings.ToUpper(filter.Status))
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown return status: "+filter.Status)
		}
		domainFilter.Status = &status
	}
	if filter.SettlementStatus != "" {
		settlement := trade.SettlementStatus(strings.ToUpper(filter.SettlementStatus))
		domainFilter.SettlementStatus = &settlement
	}

	returns, total, err := s.returnRepo.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToSalesReturnResponses(returns), total, nil
}

// Approve accepts a pending return. Only admins may approve.
func (s *SalesReturnService) Approve(ctx context.Context, actor identity.Actor, returnID uuid.UUID) (*SalesReturnResponse, error) {
	if !actor.IsAdmin() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only administrators can approve returns")
	}
	return s.transition(ctx, actor.TenantID, returnID, func(sr *trade.SalesReturn) error {
		return sr.Approve(actor.UserID)
	})
}

// Reject declines a pending return. Only admins may reject.
func (s *SalesReturnService) Reject(ctx context.Context, actor identity.Actor, returnID uuid.UUID, req RejectSalesReturnRequest) (*SalesReturnResponse, error) {
	if !actor.IsAdmin() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only administrators can reject returns")
	}
	return s.transition(ctx, actor.TenantID, returnID, func(sr *trade.SalesReturn) error {
		return sr.Reject(actor.UserID, strings.TrimSpace(req.Reason))
	})
}

// Cancel withdraws a draft or pending return. The requester or an admin may cancel.
func (s *SalesReturnService) Cancel(ctx context.Context, actor identity.Actor, returnID uuid.UUID) (*SalesReturnResponse, error) {
	return s.transition(ctx, actor.TenantID, returnID, func(sr *trade.SalesReturn) error {
		if !actor.IsAdmin() && (sr.RequestedBy == nil || *sr.RequestedBy != actor.UserID) {
			return shared.NewDomainError("FORBIDDEN", "Only the requester or an administrator can cancel this return")
		}
		return sr.Cancel()
	})
}

func (s *SalesReturnService) transition(ctx context.Context, tenantID, returnID uuid.UUID, apply func(*trade.SalesReturn) error) (*SalesReturnResponse, error) {
	sr, err := s.returnRepo.FindByID(ctx, tenantID, returnID)
	if err != nil {
		return nil, err
	}
	if err := apply(sr); err != nil {
		return nil, err
	}
	if err := s.returnRepo.Save(ctx, sr); err != nil {
		return nil, err
	}

	s.logger.Info("Sales return status changed",
		zap.String("return_id", sr.ID.String()),
		zap.String("return_number", sr.ReturnNumber),
		zap.String("status", string(sr.Status)),
	)

	response := ToSalesReturnResponse(sr)
	return &response, nil
}
