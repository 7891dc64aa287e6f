package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrCartChanged is returned when revalidation changed the cart at checkout.
// The shopper must review the updated cart before placing the order.
var ErrCartChanged = shared.NewDomainError("CART_CHANGED", "Cart changed since it was last viewed, please review it")

// PaymentInitiator opens a hosted payment session for an invoice
type PaymentInitiator interface {
	Initiate(ctx context.Context, tenantID, invoiceID uuid.UUID, email, callbackURL string) (*finance.PaymentSession, error)
}

// CheckoutService turns a cart into an order. The invoice, sales order and
// ecommerce order are created in one transaction, linked to each other.
type CheckoutService struct {
	scope       CheckoutScope
	carts       *CartService
	payments    PaymentInitiator
	orderPrefix string
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(scope CheckoutScope, carts *CartService, payments PaymentInitiator, orderPrefix string, logger *zap.Logger) *CheckoutService {
	if orderPrefix == "" {
		orderPrefix = "WEB"
	}
	return &CheckoutService{
		scope:       scope,
		carts:       carts,
		payments:    payments,
		orderPrefix: orderPrefix,
		logger:      logger,
		now:         time.Now,
	}
}

// SetMetrics sets the business metrics recorder
func (s *CheckoutService) SetMetrics(m Metrics) {
	s.metrics = m
}

// Checkout places an order for the cart, clears it and starts a new session. When req.Pay is set a
// payment session is opened after the order is committed; a gateway failure
// is reported in the response without undoing the order.
func (s *CheckoutService) Checkout(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, req CheckoutRequest) (*CheckoutResponse, error) {
	if cart.IsEmpty() {
		return nil, shared.NewDomainError("EMPTY_CART", "Cart is empty")
	}
	cart.SetEmail(req.Email)

	view, err := s.carts.refresh(ctx, tenantID, cart)
	if err != nil {
		return nil, err
	}
	if len(view.Adjustments) > 0 {
		return nil, ErrCartChanged
	}
	if cart.IsEmpty() {
		return nil, shared.NewDomainError("EMPTY_CART", "Cart is empty")
	}

	now := s.now()
	orderNumber := s.nextOrderNumber(now)
	totals := storefront.CartTotals{Subtotal: view.Subtotal, TaxRate: view.TaxRate, Tax: view.Tax, Total: view.Total}

	var (
		invoice    *finance.Invoice
		salesOrder *trade.SalesOrder
		order      *storefront.EcommerceOrder
	)
	err = s.scope.Execute(ctx, func(repos CheckoutRepositories) error {
		customer, err := s.findOrCreateCustomer(ctx, repos.Customers(), tenantID, req)
		if err != nil {
			return err
		}

		invoice, err = finance.NewInvoice(tenantID, orderNumber, &customer.ID, totals.Subtotal, totals.Tax, view.Currency)
		if err != nil {
			return err
		}
		salesOrder, err = trade.NewSalesOrder(tenantID, "SO-"+orderNumber, &customer.ID)
		if err != nil {
			return err
		}
		for _, line := range cart.Lines {
			if _, err := salesOrder.AddItem(line.ProductID, line.Name, decimal.NewFromInt(int64(line.Quantity)), line.UnitPrice); err != nil {
				return err
			}
		}
		salesOrder.AttachInvoice(invoice.ID)
		invoice.AttachSalesOrder(salesOrder.ID)

		if err := repos.Invoices().Create(ctx, invoice); err != nil {
			return err
		}
		if err := repos.SalesOrders().Create(ctx, salesOrder); err != nil {
			return err
		}

		order, err = storefront.NewEcommerceOrder(tenantID, orderNumber, cart.SessionID, cart.Lines, totals, view.Currency)
		if err != nil {
			return err
		}
		order.LinkFulfillment(invoice.ID, salesOrder.ID)
		order.CustomerID = &customer.ID
		order.Email = customer.Email
		if err := repos.Orders().Save(ctx, order); err != nil {
			return err
		}

		return s.convertCart(ctx, repos.Carts(), tenantID, cart, customer.ID, order.ID, totals, view.Currency, now)
	})
	if err != nil {
		return nil, err
	}

	cart.Clear()
	cart.RenewSession()
	if s.metrics != nil {
		s.metrics.RecordCheckout(ctx, tenantID, order.Total)
	}
	s.logger.Info("Order placed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.Total.String()),
	)

	resp := &CheckoutResponse{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		InvoiceID:    invoice.ID,
		SalesOrderID: salesOrder.ID,
		Total:        order.Total,
		Currency:     order.Currency,
	}
	if req.Pay && s.payments != nil {
		session, err := s.payments.Initiate(ctx, tenantID, invoice.ID, order.Email, req.CallbackURL)
		if err != nil {
			s.logger.Warn("Payment initiation failed after checkout",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
			resp.PaymentError = err.Error()
		} else {
			resp.PaymentURL = session.AuthorizationURL
			resp.PaymentReference = session.Reference
		}
	}
	return resp, nil
}

func (s *CheckoutService) findOrCreateCustomer(ctx context.Context, customers partner.CustomerRepository, tenantID uuid.UUID, req CheckoutRequest) (*partner.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	customer, err := customers.FindByEmail(ctx, tenantID, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	customer, err = partner.NewCustomer(tenantID, req.Name, email, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// convertCart marks the session's tracking row converted. A row is created
// when none exists yet so a late tracking task cannot resurrect the cart.
func (s *CheckoutService) convertCart(
	ctx context.Context,
	carts storefront.AbandonedCartRepository,
	tenantID uuid.UUID,
	cart *storefront.Cart,
	customerID, orderID uuid.UUID,
	totals storefront.CartTotals,
	currency string,
	now time.Time,
) error {
	_, err := carts.FindBySession(ctx, tenantID, cart.SessionID)
	if err == nil {
		return carts.MarkConverted(ctx, tenantID, cart.SessionID, orderID, now)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	tracked, err := storefront.NewAbandonedCart(storefront.CartSnapshot{
		TenantID:   tenantID,
		SessionID:  cart.SessionID,
		CustomerID: &customerID,
		Email:      cart.Email,
		Lines:      cart.Lines,
		Totals:     totals,
		Currency:   currency,
		OccurredAt: now,
	})
	if err != nil {
		return err
	}
	tracked.MarkConverted(orderID, now)
	return carts.Upsert(ctx, tracked)
}

// nextOrderNumber returns e.g. WEB-20261017-3FA2C9
func (s *CheckoutService) nextOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", s.orderPrefix, now.Format("20060102"), suffix)
}
