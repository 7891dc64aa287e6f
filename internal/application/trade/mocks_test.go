package trade

import (
	"context"
	"testing"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSalesReturnRepository is a mock implementation of SalesReturnRepository
type MockSalesReturnRepository struct {
	mock.Mock
}

func (m *MockSalesReturnRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesReturn, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SalesReturn), args.Error(1)
}

func (m *MockSalesReturnRepository) FindBySalesOrderID(ctx context.Context, tenantID, salesOrderID uuid.UUID) (*trade.SalesReturn, error) {
	args := m.Called(ctx, tenantID, salesOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SalesReturn), args.Error(1)
}

func (m *MockSalesReturnRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter trade.SalesReturnFilter) ([]*trade.SalesReturn, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*trade.SalesReturn), args.Get(1).(int64), args.Error(2)
}

func (m *MockSalesReturnRepository) Create(ctx context.Context, r *trade.SalesReturn) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockSalesReturnRepository) Save(ctx context.Context, r *trade.SalesReturn) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockSalesReturnRepository) NextReturnNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockSalesOrderRepository is a mock implementation of SalesOrderRepository
type MockSalesOrderRepository struct {
	mock.Mock
}

func (m *MockSalesOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SalesOrder), args.Error(1)
}

func (m *MockSalesOrderRepository) FindByInvoiceID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*trade.SalesOrder, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SalesOrder), args.Error(1)
}

func (m *MockSalesOrderRepository) Create(ctx context.Context, order *trade.SalesOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockSalesOrderRepository) SaveWithLock(ctx context.Context, order *trade.SalesOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockReturnNotifier is a mock implementation of ReturnNotifier
type MockReturnNotifier struct {
	mock.Mock
}

func (m *MockReturnNotifier) ReturnSettled(ctx context.Context, sr *trade.SalesReturn, creditNote *finance.CreditNote) {
	m.Called(ctx, sr, creditNote)
}

func (m *MockReturnNotifier) ReturnRejected(ctx context.Context, event *trade.SalesReturnRejectedEvent) {
	m.Called(ctx, event)
}

// Test fixtures
var (
	testTenantID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testAdminID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testRepID      = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	testCustomerID = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	testProductA   = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	testProductB   = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
)

// newShippedOrder builds a shipped order with two lines: 5 x A at 20 and 4 x B at 10
func newShippedOrder(t *testing.T, invoiceID *uuid.UUID) *trade.SalesOrder {
	t.Helper()
	customerID := testCustomerID
	order, err := trade.NewSalesOrder(testTenantID, "SO-WEB-0001", &customerID)
	require.NoError(t, err)
	_, err = order.AddItem(testProductA, "Widget", decimal.NewFromInt(5), decimal.NewFromInt(20))
	require.NoError(t, err)
	_, err = order.AddItem(testProductB, "Gadget", decimal.NewFromInt(4), decimal.NewFromInt(10))
	require.NoError(t, err)
	if invoiceID != nil {
		order.AttachInvoice(*invoiceID)
	}
	require.NoError(t, order.ChangeStatus(trade.OrderStatusConfirmed, nil, ""))
	require.NoError(t, order.ChangeStatus(trade.OrderStatusShipped, nil, ""))
	order.ClearDomainEvents()
	return order
}

// newApprovedReturn returns 2 x A and 3 x B against the order and approves it
func newApprovedReturn(t *testing.T, order *trade.SalesOrder) *trade.SalesReturn {
	t.Helper()
	sr, err := trade.NewSalesReturn(testTenantID, "SR-2026-00001", order, trade.ReturnReasonDamaged, "", testRepID)
	require.NoError(t, err)
	require.NoError(t, sr.AddLine(testProductA, decimal.NewFromInt(2)))
	require.NoError(t, sr.AddLine(testProductB, decimal.NewFromInt(3)))
	require.NoError(t, sr.Submit())
	require.NoError(t, sr.Approve(testAdminID))
	sr.ClearDomainEvents()
	return sr
}

func eventTypes(sr *trade.SalesReturn) []string {
	var types []string
	for _, e := range sr.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	return types
}
