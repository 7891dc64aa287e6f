package storefront

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bizhub/backend/internal/application/notification"
	"github.com/bizhub/backend/internal/domain/catalog"
	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var (
	testTenantID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	otherTenant  = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
)

// fixedSettings serves constant tenant settings
type fixedSettings struct {
	rate     decimal.Decimal
	currency string
	delay    time.Duration
}

func (s fixedSettings) TaxRate(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return s.rate, nil
}
func (s fixedSettings) Currency(context.Context, uuid.UUID) (string, error) { return s.currency, nil }
func (s fixedSettings) ReminderDelay(context.Context, uuid.UUID) (time.Duration, error) {
	return s.delay, nil
}

func defaultSettings() fixedSettings {
	return fixedSettings{rate: decimal.NewFromFloat(12.5), currency: "GHS", delay: 24 * time.Hour}
}

// memCatalog implements ProductRepository and StockItemRepository
type memCatalog struct {
	products map[uuid.UUID]*catalog.Product
	stock    map[uuid.UUID]decimal.Decimal
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: map[uuid.UUID]*catalog.Product{}, stock: map[uuid.UUID]decimal.Decimal{}}
}

func (c *memCatalog) add(name string, price float64, available int64) *catalog.Product {
	p, _ := catalog.NewProduct(testTenantID, "SKU-"+name, name, decimal.NewFromFloat(price))
	c.products[p.ID] = p
	c.stock[p.ID] = decimal.NewFromInt(available)
	return p
}

func (c *memCatalog) FindByID(_ context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	p, ok := c.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (c *memCatalog) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for _, id := range ids {
		if p, ok := c.products[id]; ok && p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *memCatalog) Create(_ context.Context, p *catalog.Product) error {
	c.products[p.ID] = p
	return nil
}

// memStock adapts memCatalog's stock map to StockItemRepository
type memStock struct{ c *memCatalog }

func (s memStock) FindForUpdate(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (*inventory.StockItem, error) {
	return nil, shared.ErrNotFound
}

func (s memStock) AvailableByProducts(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for _, id := range ids {
		if q, ok := s.c.stock[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (s memStock) Create(context.Context, *inventory.StockItem) error { return nil }
func (s memStock) Save(context.Context, *inventory.StockItem) error   { return nil }

// recordingQueue collects enqueued tasks
type recordingQueue struct {
	mu    sync.Mutex
	tasks []*shared.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task *shared.Task) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

// MockCartTracker is a mock implementation of CartSnapshotTracker
type MockCartTracker struct {
	mock.Mock
}

func (m *MockCartTracker) Track(ctx context.Context, snap storefront.CartSnapshot) {
	m.Called(ctx, snap)
}

// MockEmailSender is a mock implementation of notification.EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, tenantID uuid.UUID, msg notification.EmailMessage) error {
	args := m.Called(ctx, tenantID, msg)
	return args.Error(0)
}

// MockPaymentInitiator is a mock implementation of PaymentInitiator
type MockPaymentInitiator struct {
	mock.Mock
}

func (m *MockPaymentInitiator) Initiate(ctx context.Context, tenantID, invoiceID uuid.UUID, email, callbackURL string) (*finance.PaymentSession, error) {
	args := m.Called(ctx, tenantID, invoiceID, email, callbackURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentSession), args.Error(1)
}

// memCarts implements AbandonedCartRepository
type memCarts struct {
	rows map[uuid.UUID]*storefront.AbandonedCart
}

func newMemCarts() *memCarts {
	return &memCarts{rows: map[uuid.UUID]*storefront.AbandonedCart{}}
}

func (r *memCarts) bySession(tenantID uuid.UUID, sessionID string) *storefront.AbandonedCart {
	for _, c := range r.rows {
		if c.TenantID == tenantID && c.SessionID == sessionID {
			return c
		}
	}
	return nil
}

func (r *memCarts) Upsert(_ context.Context, cart *storefront.AbandonedCart) error {
	if existing := r.bySession(cart.TenantID, cart.SessionID); existing != nil {
		if existing.OrderID != nil {
			return nil
		}
		copied := *cart
		copied.ID = existing.ID
		copied.OrderID = existing.OrderID
		copied.ReminderSentAt = existing.ReminderSentAt
		copied.ReminderCount = existing.ReminderCount
		r.rows[existing.ID] = &copied
		return nil
	}
	copied := *cart
	r.rows[cart.ID] = &copied
	return nil
}

func (r *memCarts) FindBySession(_ context.Context, tenantID uuid.UUID, sessionID string) (*storefront.AbandonedCart, error) {
	if c := r.bySession(tenantID, sessionID); c != nil {
		copied := *c
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCarts) FindByID(_ context.Context, tenantID, id uuid.UUID) (*storefront.AbandonedCart, error) {
	if c, ok := r.rows[id]; ok && c.TenantID == tenantID {
		copied := *c
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCarts) MarkConverted(_ context.Context, tenantID uuid.UUID, sessionID string, orderID uuid.UUID, at time.Time) error {
	if c := r.bySession(tenantID, sessionID); c != nil {
		c.MarkConverted(orderID, at)
	}
	return nil
}

func (r *memCarts) FindDueForReminder(_ context.Context, q storefront.ReminderQuery) ([]*storefront.AbandonedCart, error) {
	var out []*storefront.AbandonedCart
	for _, c := range r.rows {
		if q.TenantID != nil && c.TenantID != *q.TenantID {
			continue
		}
		if c.ConvertedToOrder || len(c.Items) == 0 || !c.LastActivityAt.Before(q.LastActivityBefore) {
			continue
		}
		if c.Email == "" && c.CustomerID == nil {
			continue
		}
		if c.ReminderSentAt != nil && c.ReminderSentAt.After(q.ReminderBefore) {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.Before(out[j].LastActivityAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memCarts) FindTenantsWithOpenCarts(context.Context) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, c := range r.rows {
		if !c.ConvertedToOrder && !seen[c.TenantID] {
			seen[c.TenantID] = true
			out = append(out, c.TenantID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r *memCarts) SaveReminder(_ context.Context, cart *storefront.AbandonedCart, previous *time.Time) error {
	row, ok := r.rows[cart.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if (previous == nil) != (row.ReminderSentAt == nil) || (previous != nil && !previous.Equal(*row.ReminderSentAt)) {
		return shared.ErrConcurrencyConflict
	}
	row.ReminderSentAt = cart.ReminderSentAt
	row.ReminderCount = cart.ReminderCount
	return nil
}

func (r *memCarts) FindAll(_ context.Context, tenantID uuid.UUID, filter storefront.AbandonedCartFilter) ([]*storefront.AbandonedCart, int64, error) {
	var out []*storefront.AbandonedCart
	for _, c := range r.rows {
		if c.TenantID != tenantID {
			continue
		}
		if filter.Converted != nil && c.ConvertedToOrder != *filter.Converted {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

// memOrders implements EcommerceOrderRepository with version checks
type memOrders struct {
	rows   map[uuid.UUID]*storefront.EcommerceOrder
	saves  int
	events []shared.DomainEvent
}

func newMemOrders() *memOrders {
	return &memOrders{rows: map[uuid.UUID]*storefront.EcommerceOrder{}}
}

func (r *memOrders) get(id uuid.UUID) *storefront.EcommerceOrder {
	return r.rows[id]
}

func (r *memOrders) find(match func(o *storefront.EcommerceOrder) bool) (*storefront.EcommerceOrder, error) {
	for _, o := range r.rows {
		if match(o) {
			copied := *o
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrders) FindByID(_ context.Context, tenantID, id uuid.UUID) (*storefront.EcommerceOrder, error) {
	return r.find(func(o *storefront.EcommerceOrder) bool { return o.TenantID == tenantID && o.ID == id })
}

func (r *memOrders) FindBySalesOrderID(_ context.Context, tenantID, salesOrderID uuid.UUID) (*storefront.EcommerceOrder, error) {
	return r.find(func(o *storefront.EcommerceOrder) bool {
		return o.TenantID == tenantID && o.SalesOrderID != nil && *o.SalesOrderID == salesOrderID
	})
}

func (r *memOrders) FindByInvoiceID(_ context.Context, tenantID, invoiceID uuid.UUID) (*storefront.EcommerceOrder, error) {
	return r.find(func(o *storefront.EcommerceOrder) bool {
		return o.TenantID == tenantID && o.InvoiceID != nil && *o.InvoiceID == invoiceID
	})
}

func (r *memOrders) FindAll(_ context.Context, tenantID uuid.UUID, filter storefront.EcommerceOrderFilter) ([]*storefront.EcommerceOrder, int64, error) {
	var out []*storefront.EcommerceOrder
	for _, o := range r.rows {
		if o.TenantID != tenantID || (filter.Status != nil && o.Status != *filter.Status) {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (r *memOrders) Save(_ context.Context, order *storefront.EcommerceOrder) error {
	copied := *order
	r.rows[order.ID] = &copied
	r.saves++
	return nil
}

func (r *memOrders) SaveWithLock(_ context.Context, order *storefront.EcommerceOrder) error {
	current, ok := r.rows[order.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != order.Version {
		return shared.ErrConcurrencyConflict
	}
	order.Version++
	r.events = append(r.events, order.GetDomainEvents()...)
	order.ClearDomainEvents()
	copied := *order
	r.rows[order.ID] = &copied
	r.saves++
	return nil
}

// memSalesOrders implements SalesOrderRepository
type memSalesOrders struct {
	rows map[uuid.UUID]*trade.SalesOrder
}

func newMemSalesOrders() *memSalesOrders {
	return &memSalesOrders{rows: map[uuid.UUID]*trade.SalesOrder{}}
}

func (r *memSalesOrders) FindByID(_ context.Context, tenantID, id uuid.UUID) (*trade.SalesOrder, error) {
	if o, ok := r.rows[id]; ok && o.TenantID == tenantID {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSalesOrders) FindByInvoiceID(_ context.Context, tenantID, invoiceID uuid.UUID) (*trade.SalesOrder, error) {
	for _, o := range r.rows {
		if o.TenantID == tenantID && o.InvoiceID != nil && *o.InvoiceID == invoiceID {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSalesOrders) Create(_ context.Context, order *trade.SalesOrder) error {
	r.rows[order.ID] = order
	return nil
}

func (r *memSalesOrders) SaveWithLock(_ context.Context, order *trade.SalesOrder) error {
	order.Version++
	r.rows[order.ID] = order
	return nil
}

// memCustomers implements CustomerRepository
type memCustomers struct {
	rows map[uuid.UUID]*partner.Customer
}

func newMemCustomers() *memCustomers {
	return &memCustomers{rows: map[uuid.UUID]*partner.Customer{}}
}

func (r *memCustomers) FindByID(_ context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	if c, ok := r.rows[id]; ok && c.TenantID == tenantID {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCustomers) FindByEmail(_ context.Context, tenantID uuid.UUID, email string) (*partner.Customer, error) {
	for _, c := range r.rows {
		if c.TenantID == tenantID && c.Email == email {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCustomers) Create(_ context.Context, c *partner.Customer) error {
	r.rows[c.ID] = c
	return nil
}

// memInvoices implements InvoiceRepository
type memInvoices struct {
	rows map[uuid.UUID]*finance.Invoice
}

func (r *memInvoices) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	if inv, ok := r.rows[id]; ok && inv.TenantID == tenantID {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoices) FindByNumber(_ context.Context, tenantID uuid.UUID, number string) (*finance.Invoice, error) {
	for _, inv := range r.rows {
		if inv.TenantID == tenantID && inv.Number == number {
			return inv, nil
		}
	}
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
	return nil
}

// memCheckoutScope runs fn against the in-memory repositories. A failing fn
// leaves whatever it wrote; tests only check the success path through it.
type memCheckoutScope struct {
	invoices    *memInvoices
	salesOrders *memSalesOrders
	orders      *memOrders
	carts       *memCarts
	customers   *memCustomers
	err         error
}

func newMemCheckoutScope() *memCheckoutScope {
	return &memCheckoutScope{
		invoices:    &memInvoices{rows: map[uuid.UUID]*finance.Invoice{}},
		salesOrders: newMemSalesOrders(),
		orders:      newMemOrders(),
		carts:       newMemCarts(),
		customers:   newMemCustomers(),
	}
}

func (s *memCheckoutScope) Execute(_ context.Context, fn func(repos CheckoutRepositories) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(s)
}

func (s *memCheckoutScope) Invoices() finance.InvoiceRepository         { return s.invoices }
func (s *memCheckoutScope) SalesOrders() trade.SalesOrderRepository     { return s.salesOrders }
func (s *memCheckoutScope) Orders() storefront.EcommerceOrderRepository { return s.orders }
func (s *memCheckoutScope) Carts() storefront.AbandonedCartRepository   { return s.carts }
func (s *memCheckoutScope) Customers() partner.CustomerRepository       { return s.customers }
