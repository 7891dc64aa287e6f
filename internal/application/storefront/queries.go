package storefront

import (
	"context"
	"strings"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/google/uuid"
)

// OrderQueryService serves read-only ecommerce order listings. Reads never
// reconcile; status is kept current by OrderReconciler.
type OrderQueryService struct {
	orders storefront.EcommerceOrderRepository
	carts  storefront.AbandonedCartRepository
}

// NewOrderQueryService creates a new OrderQueryService
func NewOrderQueryService(orders storefront.EcommerceOrderRepository, carts storefront.AbandonedCartRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders, carts: carts}
}

// GetOrder returns one ecommerce order
func (s *OrderQueryService) GetOrder(ctx context.Context, tenantID, id uuid.UUID) (*EcommerceOrderResponse, error) {
	order, err := s.orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToEcommerceOrderResponse(order)
	return &resp, nil
}

// ListOrders returns a page of ecommerce orders
func (s *OrderQueryService) ListOrders(ctx context.Context, tenantID uuid.UUID, filter EcommerceOrderListFilter) ([]EcommerceOrderResponse, int64, error) {
	domainFilter := storefront.EcommerceOrderFilter{
		Filter:     pageFilter(filter.Search, filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir),
		CustomerID: filter.CustomerID,
		Email:      strings.ToLower(strings.TrimSpace(filter.Email)),
	}
	if filter.Status != "" {
		status := storefront.OrderStatus(strings.ToUpper(filter.Status))
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+filter.Status)
		}
		domainFilter.Status = &status
	}

	orders, total, err := s.orders.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EcommerceOrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToEcommerceOrderResponse(o)
	}
	return out, total, nil
}

// ListAbandonedCarts returns a page of tracked carts
func (s *OrderQueryService) ListAbandonedCarts(ctx context.Context, tenantID uuid.UUID, filter AbandonedCartListFilter) ([]AbandonedCartResponse, int64, error) {
	carts, total, err := s.carts.FindAll(ctx, tenantID, storefront.AbandonedCartFilter{
		Filter:    pageFilter(filter.Search, filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir),
		Converted: filter.Converted,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]AbandonedCartResponse, len(carts))
	for i, c := range carts {
		out[i] = ToAbandonedCartResponse(c)
	}
	return out, total, nil
}

func pageFilter(search string, page, pageSize int, orderBy, orderDir string) shared.Filter {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if orderDir == "" {
		orderDir = "desc"
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Search:   search,
	}
}
