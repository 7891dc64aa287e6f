package storefront

import (
	"context"
	"time"

	"github.com/bizhub/backend/internal/domain/catalog"
	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartSnapshotTracker receives the cart after every mutation
type CartSnapshotTracker interface {
	Track(ctx context.Context, snap storefront.CartSnapshot)
}

// CartService implements the cookie-held storefront cart. The cart itself is
// loaded and stored by the HTTP layer; the service revalidates it against
// the catalog and stock, prices it and reports it to the tracker.
type CartService struct {
	products catalog.ProductRepository
	stock    inventory.StockItemRepository
	settings TenantSettings
	tracker  CartSnapshotTracker
	logger   *zap.Logger
	now      func() time.Time
}

// NewCartService creates a new CartService
func NewCartService(
	products catalog.ProductRepository,
	stock inventory.StockItemRepository,
	settings TenantSettings,
	tracker CartSnapshotTracker,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		products: products,
		stock:    stock,
		settings: settings,
		tracker:  tracker,
		logger:   logger,
		now:      time.Now,
	}
}

// View revalidates and prices the cart. Lines dropped or clamped by
// revalidation are reported to the tracker like any other change.
func (s *CartService) View(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*CartView, error) {
	view, err := s.refresh(ctx, tenantID, cart)
	if err != nil {
		return nil, err
	}
	if len(view.Adjustments) > 0 {
		s.track(ctx, tenantID, cart, view)
	}
	return view, nil
}

// AddItem adds quantity of a product to the cart
func (s *CartService) AddItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, req AddCartItemRequest) (*CartView, error) {
	product, err := s.products.FindByID(ctx, tenantID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
	}

	available, err := s.available(ctx, tenantID, req.ProductID)
	if err != nil {
		return nil, err
	}
	current, _ := cart.Line(req.ProductID)
	if int64(current.Quantity+req.Quantity) > available.IntPart() {
		return nil, shared.ErrInsufficientStock
	}

	if err := cart.AddItem(req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	cart.SetEmail(req.Email)
	return s.mutated(ctx, tenantID, cart)
}

// UpdateItem replaces a line quantity; zero removes the line
func (s *CartService) UpdateItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, productID uuid.UUID, req UpdateCartItemRequest) (*CartView, error) {
	if req.Quantity > 0 {
		available, err := s.available(ctx, tenantID, productID)
		if err != nil {
			return nil, err
		}
		if int64(req.Quantity) > available.IntPart() {
			return nil, shared.ErrInsufficientStock
		}
	}
	if err := cart.SetQuantity(productID, req.Quantity); err != nil {
		return nil, err
	}
	return s.mutated(ctx, tenantID, cart)
}

// RemoveItem drops a product from the cart
func (s *CartService) RemoveItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, productID uuid.UUID) (*CartView, error) {
	if err := cart.RemoveItem(productID); err != nil {
		return nil, err
	}
	return s.mutated(ctx, tenantID, cart)
}

// Clear empties the cart. The tracker records the empty cart as converted.
func (s *CartService) Clear(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*CartView, error) {
	cart.Clear()
	return s.mutated(ctx, tenantID, cart)
}

func (s *CartService) mutated(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*CartView, error) {
	view, err := s.refresh(ctx, tenantID, cart)
	if err != nil {
		return nil, err
	}
	s.track(ctx, tenantID, cart, view)
	return view, nil
}

// refresh revalidates every line and computes totals with the tenant's tax rate
func (s *CartService) refresh(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*CartView, error) {
	var adjustments []storefront.CartAdjustment
	if !cart.IsEmpty() {
		catalogView, err := s.availability(ctx, tenantID, cart.ProductIDs())
		if err != nil {
			return nil, err
		}
		adjustments = cart.Revalidate(catalogView)
	}

	rate, err := s.settings.TaxRate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	currency, err := s.settings.Currency(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	totals := storefront.ComputeTotals(cart.Lines, rate)
	return toCartView(cart, totals, currency, adjustments), nil
}

func (s *CartService) availability(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]storefront.ProductAvailability, error) {
	products, err := s.products.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	stock, err := s.stock.AvailableByProducts(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]storefront.ProductAvailability, len(products))
	for _, p := range products {
		out[p.ID] = storefront.ProductAvailability{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Available: int(stock[p.ID].IntPart()),
			Active:    p.IsActive(),
		}
	}
	return out, nil
}

func (s *CartService) available(ctx context.Context, tenantID, productID uuid.UUID) (decimal.Decimal, error) {
	stock, err := s.stock.AvailableByProducts(ctx, tenantID, []uuid.UUID{productID})
	if err != nil {
		return decimal.Zero, err
	}
	return stock[productID], nil
}

func (s *CartService) track(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, view *CartView) {
	s.tracker.Track(ctx, storefront.CartSnapshot{
		TenantID:  tenantID,
		SessionID: cart.SessionID,
		Email:     cart.Email,
		Lines:     append([]storefront.CartLine(nil), cart.Lines...),
		Totals: storefront.CartTotals{
			Subtotal: view.Subtotal,
			TaxRate:  view.TaxRate,
			Tax:      view.Tax,
			Total:    view.Total,
		},
		Currency:   view.Currency,
		OccurredAt: s.now(),
	})
}
