package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default warehouse created for tenants that receive a return before any
// warehouse exists
const (
	defaultWarehouseCode = "MAIN"
	defaultWarehouseName = "Main Warehouse"
)

// ReturnNotifier tells customers about the outcome of their return
type ReturnNotifier interface {
	ReturnSettled(ctx context.Context, sr *trade.SalesReturn, creditNote *finance.CreditNote)
	ReturnRejected(ctx context.Context, event *trade.SalesReturnRejectedEvent)
}

// SettlementMetrics records settlement outcomes
type SettlementMetrics interface {
	RecordReturnSettlement(ctx context.Context, tenantID uuid.UUID, success bool)
}

// ReturnSettlementHandler settles approved returns: goods go back into the
// default warehouse at weighted-average cost, one RETURN movement is written
// per line and a credit note is issued against the invoice. All of it
// commits in one transaction.
//
// The outbox delivers SalesReturnApproved at least once, so every step is
// idempotent: settled returns are skipped, lines that already have a
// movement are not restocked again and an existing credit note is reused.
type ReturnSettlementHandler struct {
	scope      SettlementScope
	returnRepo trade.SalesReturnRepository
	notifier   ReturnNotifier
	metrics    SettlementMetrics
	logger     *zap.Logger
}

// NewReturnSettlementHandler creates a new ReturnSettlementHandler.
// returnRepo must not be bound to the settlement transaction; it records
// failures after a rollback.
func NewReturnSettlementHandler(
	scope SettlementScope,
	returnRepo trade.SalesReturnRepository,
	notifier ReturnNotifier,
	logger *zap.Logger,
) *ReturnSettlementHandler {
	return &ReturnSettlementHandler{
		scope:      scope,
		returnRepo: returnRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

// SetMetrics sets the optional outcome recorder
func (h *ReturnSettlementHandler) SetMetrics(metrics SettlementMetrics) {
	h.metrics = metrics
}

// EventTypes returns the event types this handler is interested in
func (h *ReturnSettlementHandler) EventTypes() []string {
	return []string{trade.EventTypeSalesReturnApproved}
}

// Handle processes the SalesReturnApproved event
func (h *ReturnSettlementHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	approved, ok := event.(*trade.SalesReturnApprovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected *SalesReturnApprovedEvent, got %T", event)
	}

	h.logger.Info("Settling approved sales return",
		zap.String("event_id", approved.EventID().String()),
		zap.String("return_id", approved.ReturnID.String()),
		zap.String("return_number", approved.ReturnNumber),
	)

	var (
		settled    *trade.SalesReturn
		creditNote *finance.CreditNote
	)
	err := h.scope.Execute(ctx, func(repos SettlementRepositories) error {
		sr, err := repos.Returns().FindByID(ctx, approved.TenantID(), approved.ReturnID)
		if err != nil {
			return fmt.Errorf("load return: %w", err)
		}
		if sr.IsSettled() {
			h.logger.Info("Sales return already settled, skipping",
				zap.String("return_id", sr.ID.String()),
			)
			return nil
		}
		if sr.Status != trade.ReturnStatusApproved {
			h.logger.Warn("Sales return is not approved, skipping settlement",
				zap.String("return_id", sr.ID.String()),
				zap.String("status", string(sr.Status)),
			)
			return nil
		}

		if err := h.restock(ctx, repos, sr); err != nil {
			return err
		}

		cn, err := h.issueCreditNote(ctx, repos, sr)
		if err != nil {
			return err
		}
		var creditNoteID *uuid.UUID
		if cn != nil {
			creditNoteID = &cn.ID
		}

		sr.MarkSettled(creditNoteID)
		if err := repos.Returns().Save(ctx, sr); err != nil {
			return fmt.Errorf("save settled return: %w", err)
		}
		settled, creditNote = sr, cn
		return nil
	})
	if err != nil {
		h.recordFailure(ctx, approved, err)
		h.record(ctx, approved.TenantID(), false)
		return fmt.Errorf("settle sales return %s: %w", approved.ReturnNumber, err)
	}
	if settled == nil {
		return nil
	}

	h.record(ctx, settled.TenantID, true)
	h.logger.Info("Sales return settled",
		zap.String("return_id", settled.ID.String()),
		zap.String("return_number", settled.ReturnNumber),
		zap.Int("lines", len(settled.Lines)),
		zap.Bool("credit_note_issued", creditNote != nil),
	)
	if h.notifier != nil {
		h.notifier.ReturnSettled(ctx, settled, creditNote)
	}
	return nil
}

// restock puts every line back into the default warehouse
func (h *ReturnSettlementHandler) restock(ctx context.Context, repos SettlementRepositories, sr *trade.SalesReturn) error {
	warehouse, err := h.defaultWarehouse(ctx, repos, sr.TenantID)
	if err != nil {
		return err
	}

	for _, line := range sr.Lines {
		exists, err := repos.Movements().ExistsForSourceLine(ctx, inventory.SourceTypeSalesReturn, line.ID)
		if err != nil {
			return fmt.Errorf("check movement for line %s: %w", line.ID, err)
		}
		if exists {
			continue
		}

		item, err := repos.StockItems().FindForUpdate(ctx, sr.TenantID, warehouse.ID, line.ProductID)
		isNew := false
		if errors.Is(err, shared.ErrNotFound) {
			item, err = inventory.NewStockItem(sr.TenantID, warehouse.ID, line.ProductID)
			isNew = true
		}
		if err != nil {
			return fmt.Errorf("load stock for product %s: %w", line.ProductID, err)
		}

		before, after, err := item.Receive(line.Quantity, line.UnitPrice)
		if err != nil {
			return err
		}
		if isNew {
			err = repos.StockItems().Create(ctx, item)
		} else {
			err = repos.StockItems().Save(ctx, item)
		}
		if err != nil {
			return fmt.Errorf("save stock for product %s: %w", line.ProductID, err)
		}

		movement, err := inventory.NewReturnMovement(item, line.Quantity, line.UnitPrice, before, after,
			sr.ID, line.ID, sr.ReturnNumber, sr.ApprovedBy)
		if err != nil {
			return err
		}
		if err := repos.Movements().Create(ctx, movement); err != nil {
			return fmt.Errorf("record movement for line %s: %w", line.ID, err)
		}
	}
	return nil
}

func (h *ReturnSettlementHandler) defaultWarehouse(ctx context.Context, repos SettlementRepositories, tenantID uuid.UUID) (*inventory.Warehouse, error) {
	warehouse, err := repos.Warehouses().FindDefault(ctx, tenantID)
	if err == nil {
		return warehouse, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load default warehouse: %w", err)
	}

	warehouse, err = inventory.NewWarehouse(tenantID, defaultWarehouseCode, defaultWarehouseName, true)
	if err != nil {
		return nil, err
	}
	if err := repos.Warehouses().Create(ctx, warehouse); err != nil {
		return nil, fmt.Errorf("create default warehouse: %w", err)
	}
	h.logger.Info("Created default warehouse for returns",
		zap.String("tenant_id", tenantID.String()),
		zap.String("warehouse_id", warehouse.ID.String()),
	)
	return warehouse, nil
}

// issueCreditNote credits the invoice for the returned lines. Returns
// without an invoice get no credit note.
func (h *ReturnSettlementHandler) issueCreditNote(ctx context.Context, repos SettlementRepositories, sr *trade.SalesReturn) (*finance.CreditNote, error) {
	if sr.InvoiceID == nil {
		return nil, nil
	}

	existing, err := repos.CreditNotes().FindByReturnID(ctx, sr.TenantID, sr.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load credit note: %w", err)
	}

	invoice, err := repos.Invoices().FindByID(ctx, sr.TenantID, *sr.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	lines := make([]finance.CreditNoteLine, len(sr.Lines))
	for i, l := range sr.Lines {
		lines[i] = finance.CreditNoteLine{
			ReturnLineID: l.ID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
		}
	}
	cn, err := finance.NewCreditNote("CN-"+sr.ReturnNumber, invoice, finance.CreditNoteSource{
		ReturnID:     sr.ID,
		ReturnNumber: sr.ReturnNumber,
		SalesOrderID: sr.SalesOrderID,
		CustomerID:   sr.CustomerID,
		Reason:       string(sr.Reason),
		Lines:        lines,
	})
	if err != nil {
		return nil, err
	}

	if cn.Amount.IsPositive() {
		if err := invoice.ApplyCredit(cn.Amount); err != nil {
			return nil, err
		}
		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return nil, fmt.Errorf("save credited invoice: %w", err)
		}
	}
	if err := repos.CreditNotes().Create(ctx, cn); err != nil {
		return nil, fmt.Errorf("create credit note: %w", err)
	}
	return cn, nil
}

// recordFailure flags the return outside the rolled-back transaction so the
// failure stays visible while the outbox retries
func (h *ReturnSettlementHandler) recordFailure(ctx context.Context, approved *trade.SalesReturnApprovedEvent, cause error) {
	h.logger.Error("Sales return settlement failed",
		zap.String("return_id", approved.ReturnID.String()),
		zap.String("return_number", approved.ReturnNumber),
		zap.Error(cause),
	)

	sr, err := h.returnRepo.FindByID(ctx, approved.TenantID(), approved.ReturnID)
	if err != nil {
		h.logger.Error("Failed to load return to flag settlement failure",
			zap.String("return_id", approved.ReturnID.String()),
			zap.Error(err),
		)
		return
	}
	if sr.IsSettled() {
		return
	}
	sr.MarkSettlementFailed(cause.Error())
	if err := h.returnRepo.Save(ctx, sr); err != nil {
		h.logger.Error("Failed to flag settlement failure",
			zap.String("return_id", sr.ID.String()),
			zap.Error(err),
		)
	}
}

func (h *ReturnSettlementHandler) record(ctx context.Context, tenantID uuid.UUID, success bool) {
	if h.metrics != nil {
		h.metrics.RecordReturnSettlement(ctx, tenantID, success)
	}
}

var _ shared.EventHandler = (*ReturnSettlementHandler)(nil)
