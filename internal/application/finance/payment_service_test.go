package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTenantID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Name() string { return "paystack" }

func (m *MockPaymentGateway) InitializeTransaction(ctx context.Context, req *finance.PaymentRequest) (*finance.PaymentSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentSession), args.Error(1)
}

func (m *MockPaymentGateway) VerifyTransaction(ctx context.Context, tenantID uuid.UUID, reference string) (*finance.PaymentVerification, error) {
	args := m.Called(ctx, tenantID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentVerification), args.Error(1)
}

type memInvoices struct {
	rows  map[uuid.UUID]*finance.Invoice
	saves int
}

func (r *memInvoices) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	if inv, ok := r.rows[id]; ok && inv.TenantID == tenantID {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoices) FindByNumber(context.Context, uuid.UUID, string) (*finance.Invoice, error) {
	return nil, shared.ErrNotFound
}

func (r *memInvoices) FindByPaymentReference(_ context.Context, reference string) (*finance.Invoice, error) {
	for _, inv := range r.rows {
		if inv.PaymentReference == reference {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoices) Create(_ context.Context, inv *finance.Invoice) error {
	r.rows[inv.ID] = inv
	return nil
}

func (r *memInvoices) Save(_ context.Context, inv *finance.Invoice) error {
	r.rows[inv.ID] = inv
	r.saves++
	return nil
}

type memOrders struct {
	order *storefront.EcommerceOrder
	saves int
}

func (r *memOrders) FindByID(context.Context, uuid.UUID, uuid.UUID) (*storefront.EcommerceOrder, error) {
	return nil, shared.ErrNotFound
}

func (r *memOrders) FindBySalesOrderID(context.Context, uuid.UUID, uuid.UUID) (*storefront.EcommerceOrder, error) {
	return nil, shared.ErrNotFound
}

func (r *memOrders) FindByInvoiceID(_ context.Context, _ uuid.UUID, invoiceID uuid.UUID) (*storefront.EcommerceOrder, error) {
	if r.order != nil && r.order.InvoiceID != nil && *r.order.InvoiceID == invoiceID {
		return r.order, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memOrders) FindAll(context.Context, uuid.UUID, storefront.EcommerceOrderFilter) ([]*storefront.EcommerceOrder, int64, error) {
	return nil, 0, nil
}

func (r *memOrders) Save(_ context.Context, o *storefront.EcommerceOrder) error {
	r.order = o
	r.saves++
	return nil
}

func (r *memOrders) SaveWithLock(ctx context.Context, o *storefront.EcommerceOrder) error {
	return r.Save(ctx, o)
}

type memSalesOrders struct {
	order *trade.SalesOrder
	saves int
}

func (r *memSalesOrders) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*trade.SalesOrder, error) {
	if r.order != nil && r.order.ID == id {
		return r.order, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSalesOrders) FindByInvoiceID(context.Context, uuid.UUID, uuid.UUID) (*trade.SalesOrder, error) {
	return nil, shared.ErrNotFound
}

func (r *memSalesOrders) Create(_ context.Context, o *trade.SalesOrder) error {
	r.order = o
	return nil
}

func (r *memSalesOrders) SaveWithLock(_ context.Context, o *trade.SalesOrder) error {
	r.order = o
	r.saves++
	return nil
}

type paymentFixture struct {
	invoices    *memInvoices
	orders      *memOrders
	salesOrders *memSalesOrders
	gateway     *MockPaymentGateway
	svc         *PaymentService
	invoice     *finance.Invoice
	now         time.Time
}

// newPaymentFixture builds a checked-out order: invoice of 112.50, draft
// sales order and pending storefront order, all linked
func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		invoices:    &memInvoices{rows: map[uuid.UUID]*finance.Invoice{}},
		orders:      &memOrders{},
		salesOrders: &memSalesOrders{},
		gateway:     new(MockPaymentGateway),
		now:         time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}

	inv, err := finance.NewInvoice(testTenantID, "WEB-20261017-ABC123", nil, decimal.NewFromInt(100), decimal.RequireFromString("12.5"), "GHS")
	require.NoError(t, err)
	so, err := trade.NewSalesOrder(testTenantID, "SO-WEB-20261017-ABC123", nil)
	require.NoError(t, err)
	_, err = so.AddItem(uuid.New(), "Widget", decimal.NewFromInt(2), decimal.NewFromInt(50))
	require.NoError(t, err)
	so.AttachInvoice(inv.ID)
	inv.AttachSalesOrder(so.ID)

	lines := []storefront.CartLine{{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(50)}}
	order, err := storefront.NewEcommerceOrder(testTenantID, inv.Number, "sess", lines, storefront.ComputeTotals(lines, decimal.RequireFromString("12.5")), "GHS")
	require.NoError(t, err)
	order.LinkFulfillment(inv.ID, so.ID)
	order.Email = "ama@example.com"

	f.invoices.rows[inv.ID] = inv
	f.orders.order = order
	f.salesOrders.order = so
	f.invoice = inv

	f.svc = NewPaymentService(f.invoices, f.orders, f.salesOrders, f.gateway, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestPaymentService_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a session and stores the reference", func(t *testing.T) {
		f := newPaymentFixture(t)
		wantRef := "INV-WEB-20261017-ABC123-1792238400"
		f.gateway.On("InitializeTransaction", ctx, mock.MatchedBy(func(req *finance.PaymentRequest) bool {
			return req.Reference == wantRef &&
				req.Amount.Equal(decimal.RequireFromString("112.5")) &&
				req.Email == "ama@example.com" &&
				req.Currency == "GHS" &&
				req.CallbackURL == "https://shop.example.com/paid"
		})).Return(&finance.PaymentSession{Reference: wantRef, AuthorizationURL: "https://checkout.paystack.com/x"}, nil)

		session, err := f.svc.Initiate(ctx, testTenantID, f.invoice.ID, "", "https://shop.example.com/paid")
		require.NoError(t, err)

		assert.Equal(t, "https://checkout.paystack.com/x", session.AuthorizationURL)
		assert.Equal(t, wantRef, f.invoice.PaymentReference)
		assert.Equal(t, "paystack", f.invoice.PaymentProvider)
		f.gateway.AssertExpectations(t)
	})

	t.Run("paid invoice is rejected", func(t *testing.T) {
		f := newPaymentFixture(t)
		require.NoError(t, f.invoice.MarkPaid("ref", f.now))

		_, err := f.svc.Initiate(ctx, testTenantID, f.invoice.ID, "a@example.com", "")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVOICE_ALREADY_PAID", domainErr.Code)
		f.gateway.AssertNotCalled(t, "InitializeTransaction", mock.Anything, mock.Anything)
	})

	t.Run("gateway failure surfaces as upstream error", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.gateway.On("InitializeTransaction", ctx, mock.Anything).Return(nil, finance.ErrGatewayRequestFailed)

		_, err := f.svc.Initiate(ctx, testTenantID, f.invoice.ID, "a@example.com", "")
		assert.ErrorIs(t, err, shared.ErrUpstream)
		assert.Empty(t, f.invoice.PaymentReference)
		assert.Zero(t, f.invoices.saves)
	})

	t.Run("missing gateway", func(t *testing.T) {
		f := newPaymentFixture(t)
		svc := NewPaymentService(f.invoices, f.orders, f.salesOrders, nil, zap.NewNop())
		_, err := svc.Initiate(ctx, testTenantID, f.invoice.ID, "a@example.com", "")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PAYMENT_NOT_CONFIGURED", domainErr.Code)
	})

	t.Run("invoice of another tenant", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.svc.Initiate(ctx, uuid.New(), f.invoice.ID, "a@example.com", "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestPaymentService_Verify(t *testing.T) {
	ctx := context.Background()
	const ref = "INV-WEB-20261017-ABC123-1792238400"

	paid := &finance.PaymentVerification{Reference: ref, Status: finance.GatewayPaymentStatusPaid, Amount: decimal.RequireFromString("112.50"), Currency: "GHS"}

	t.Run("success settles invoice, order and sales order", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.invoice.RecordPaymentAttempt("paystack", ref)
		f.gateway.On("VerifyTransaction", ctx, testTenantID, ref).Return(paid, nil).Once()

		resp, err := f.svc.Verify(ctx, testTenantID, ref)
		require.NoError(t, err)

		assert.Equal(t, "PAID", resp.InvoiceStatus)
		assert.Equal(t, "PAID", resp.GatewayStatus)
		assert.Equal(t, finance.InvoiceStatusPaid, f.invoice.Status)
		assert.True(t, f.invoice.PaidAt.Equal(f.now))
		assert.Equal(t, storefront.PaymentStatusPaid, f.orders.order.PaymentStatus)
		assert.Equal(t, trade.OrderStatusConfirmed, f.salesOrders.order.Status)
		require.NotNil(t, resp.OrderID)

		events := f.salesOrders.order.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, trade.EventTypeSalesOrderStatusChanged, events[0].EventType())
	})

	t.Run("second verification does not call the gateway or write again", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.invoice.RecordPaymentAttempt("paystack", ref)
		f.gateway.On("VerifyTransaction", ctx, testTenantID, ref).Return(paid, nil).Once()

		_, err := f.svc.Verify(ctx, testTenantID, ref)
		require.NoError(t, err)
		orderSaves, soSaves := f.orders.saves, f.salesOrders.saves

		resp, err := f.svc.Verify(ctx, testTenantID, ref)
		require.NoError(t, err)
		assert.Equal(t, "PAID", resp.InvoiceStatus)
		assert.Equal(t, orderSaves, f.orders.saves)
		assert.Equal(t, soSaves, f.salesOrders.saves)
		f.gateway.AssertNumberOfCalls(t, "VerifyTransaction", 1)
	})

	t.Run("amount mismatch is refused", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.invoice.RecordPaymentAttempt("paystack", ref)
		short := *paid
		short.Amount = decimal.NewFromInt(10)
		f.gateway.On("VerifyTransaction", ctx, testTenantID, ref).Return(&short, nil)

		_, err := f.svc.Verify(ctx, testTenantID, ref)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PAYMENT_AMOUNT_MISMATCH", domainErr.Code)
		assert.Equal(t, finance.InvoiceStatusUnpaid, f.invoice.Status)
	})

	t.Run("failed payment flags the order", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.invoice.RecordPaymentAttempt("paystack", ref)
		f.gateway.On("VerifyTransaction", ctx, testTenantID, ref).
			Return(&finance.PaymentVerification{Reference: ref, Status: finance.GatewayPaymentStatusFailed}, nil)

		resp, err := f.svc.Verify(ctx, testTenantID, ref)
		require.NoError(t, err)
		assert.Equal(t, "FAILED", resp.GatewayStatus)
		assert.Equal(t, "UNPAID", resp.InvoiceStatus)
		assert.Equal(t, storefront.PaymentStatusFailed, f.orders.order.PaymentStatus)
		assert.Equal(t, trade.OrderStatusDraft, f.salesOrders.order.Status)
	})

	t.Run("pending payment changes nothing", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.invoice.RecordPaymentAttempt("paystack", ref)
		f.gateway.On("VerifyTransaction", ctx, testTenantID, ref).
			Return(&finance.PaymentVerification{Reference: ref, Status: finance.GatewayPaymentStatusPending}, nil)

		resp, err := f.svc.Verify(ctx, testTenantID, ref)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", resp.GatewayStatus)
		assert.Zero(t, f.orders.saves)
	})

	t.Run("gateway error", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.invoice.RecordPaymentAttempt("paystack", ref)
		f.gateway.On("VerifyTransaction", ctx, testTenantID, ref).Return(nil, errors.New("timeout"))

		_, err := f.svc.Verify(ctx, testTenantID, ref)
		assert.ErrorIs(t, err, shared.ErrUpstream)
	})

	t.Run("reference of another tenant", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.invoice.RecordPaymentAttempt("paystack", ref)
		_, err := f.svc.Verify(ctx, uuid.New(), ref)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
