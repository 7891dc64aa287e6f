package trade

import (
	"context"
	"errors"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore backs the in-memory settlement repositories
type memStore struct {
	returns     map[uuid.UUID]*trade.SalesReturn
	warehouses  []*inventory.Warehouse
	stock       map[[2]uuid.UUID]*inventory.StockItem
	movements   []*inventory.StockMovement
	invoices    map[uuid.UUID]*finance.Invoice
	creditNotes map[uuid.UUID]*finance.CreditNote

	movementErr error
}

func newMemStore() *memStore {
	return &memStore{
		returns:     make(map[uuid.UUID]*trade.SalesReturn),
		stock:       make(map[[2]uuid.UUID]*inventory.StockItem),
		invoices:    make(map[uuid.UUID]*finance.Invoice),
		creditNotes: make(map[uuid.UUID]*finance.CreditNote),
	}
}

func (s *memStore) movementsOfType(t inventory.MovementType) []*inventory.StockMovement {
	var out []*inventory.StockMovement
	for _, m := range s.movements {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) available(productID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for key, item := range s.stock {
		if key[1] == productID {
			total = total.Add(item.AvailableQuantity)
		}
	}
	return total
}

// memScope runs fn directly against the store
type memScope struct {
	store *memStore
}

func (m *memScope) Execute(ctx context.Context, fn func(repos SettlementRepositories) error) error {
	return fn(memRepos{store: m.store})
}

type memRepos struct {
	store *memStore
}

func (r memRepos) Returns() trade.SalesReturnRepository         { return &memReturnRepo{r.store} }
func (r memRepos) Warehouses() inventory.WarehouseRepository    { return &memWarehouseRepo{r.store} }
func (r memRepos) StockItems() inventory.StockItemRepository    { return &memStockRepo{r.store} }
func (r memRepos) Movements() inventory.StockMovementRepository { return &memMovementRepo{r.store} }
func (r memRepos) Invoices() finance.InvoiceRepository          { return &memInvoiceRepo{r.store} }
func (r memRepos) CreditNotes() finance.CreditNoteRepository    { return &memCreditNoteRepo{r.store} }

type memReturnRepo struct{ s *memStore }

func (r *memReturnRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesReturn, error) {
	sr, ok := r.s.returns[id]
	if !ok || sr.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := *sr
	cp.Lines = append([]trade.SalesReturnLine(nil), sr.Lines...)
	return &cp, nil
}

func (r *memReturnRepo) FindBySalesOrderID(ctx context.Context, tenantID, salesOrderID uuid.UUID) (*trade.SalesReturn, error) {
	for _, sr := range r.s.returns {
		if sr.TenantID == tenantID && sr.SalesOrderID == salesOrderID {
			return r.FindByID(ctx, tenantID, sr.ID)
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memReturnRepo) FindAll(ctx context.Context, tenantID uuid.UUID, filter trade.SalesReturnFilter) ([]*trade.SalesReturn, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (r *memReturnRepo) Create(ctx context.Context, sr *trade.SalesReturn) error {
	r.s.returns[sr.ID] = sr
	return nil
}

func (r *memReturnRepo) Save(ctx context.Context, sr *trade.SalesReturn) error {
	sr.Version++
	sr.ClearDomainEvents()
	r.s.returns[sr.ID] = sr
	return nil
}

func (r *memReturnRepo) NextReturnNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	return "SR-TEST", nil
}

type memWarehouseRepo struct{ s *memStore }

func (r *memWarehouseRepo) FindDefault(ctx context.Context, tenantID uuid.UUID) (*inventory.Warehouse, error) {
	for _, w := range r.s.warehouses {
		if w.TenantID == tenantID && w.IsDefault {
			return w, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memWarehouseRepo) Create(ctx context.Context, w *inventory.Warehouse) error {
	r.s.warehouses = append(r.s.warehouses, w)
	return nil
}

type memStockRepo struct{ s *memStore }

func (r *memStockRepo) FindForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockItem, error) {
	item, ok := r.s.stock[[2]uuid.UUID{warehouseID, productID}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *memStockRepo) Create(ctx context.Context, item *inventory.StockItem) error {
	key := [2]uuid.UUID{item.WarehouseID, item.ProductID}
	if _, ok := r.s.stock[key]; ok {
		return shared.ErrAlreadyExists
	}
	r.s.stock[key] = item
	return nil
}

func (r *memStockRepo) Save(ctx context.Context, item *inventory.StockItem) error {
	r.s.stock[[2]uuid.UUID{item.WarehouseID, item.ProductID}] = item
	return nil
}

func (r *memStockRepo) AvailableByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(productIDs))
	for _, id := range productIDs {
		out[id] = r.s.available(id)
	}
	return out, nil
}

type memMovementRepo struct{ s *memStore }

func (r *memMovementRepo) Create(ctx context.Context, m *inventory.StockMovement) error {
	if r.s.movementErr != nil {
		return r.s.movementErr
	}
	for _, existing := range r.s.movements {
		if existing.SourceType == m.SourceType && existing.SourceLineID == m.SourceLineID {
			return shared.ErrAlreadyExists
		}
	}
	r.s.movements = append(r.s.movements, m)
	return nil
}

func (r *memMovementRepo) ExistsForSourceLine(ctx context.Context, sourceType string, sourceLineID uuid.UUID) (bool, error) {
	for _, m := range r.s.movements {
		if m.SourceType == sourceType && m.SourceLineID == sourceLineID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMovementRepo) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType string, sourceID uuid.UUID) ([]*inventory.StockMovement, error) {
	var out []*inventory.StockMovement
	for _, m := range r.s.movements {
		if m.TenantID == tenantID && m.SourceType == sourceType && m.SourceID == sourceID {
			out = append(out, m)
		}
	}
	return out, nil
}

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	inv, ok := r.s.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*finance.Invoice, error) {
	for _, inv := range r.s.invoices {
		if inv.TenantID == tenantID && inv.Number == number {
			return r.FindByID(ctx, tenantID, inv.ID)
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoiceRepo) FindByPaymentReference(ctx context.Context, reference string) (*finance.Invoice, error) {
	for _, inv := range r.s.invoices {
		if inv.PaymentReference == reference {
			return r.FindByID(ctx, inv.TenantID, inv.ID)
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoiceRepo) Create(ctx context.Context, inv *finance.Invoice) error {
	r.s.invoices[inv.ID] = inv
	return nil
}

func (r *memInvoiceRepo) Save(ctx context.Context, inv *finance.Invoice) error {
	inv.Version++
	r.s.invoices[inv.ID] = inv
	return nil
}

type memCreditNoteRepo struct{ s *memStore }

func (r *memCreditNoteRepo) FindByReturnID(ctx context.Context, tenantID, returnID uuid.UUID) (*finance.CreditNote, error) {
	cn, ok := r.s.creditNotes[returnID]
	if !ok || cn.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return cn, nil
}

func (r *memCreditNoteRepo) Create(ctx context.Context, cn *finance.CreditNote) error {
	if _, ok := r.s.creditNotes[cn.ReturnID]; ok {
		return shared.ErrAlreadyExists
	}
	r.s.creditNotes[cn.ReturnID] = cn
	return nil
}
