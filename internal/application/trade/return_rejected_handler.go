package trade

import (
	"context"
	"fmt"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// ReturnRejectedHandler notifies the customer when a return is declined
type ReturnRejectedHandler struct {
	notifier ReturnNotifier
	logger   *zap.Logger
}

// NewReturnRejectedHandler creates a new ReturnRejectedHandler
func NewReturnRejectedHandler(notifier ReturnNotifier, logger *zap.Logger) *ReturnRejectedHandler {
	return &ReturnRejectedHandler{notifier: notifier, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ReturnRejectedHandler) EventTypes() []string {
	return []string{trade.EventTypeSalesReturnRejected}
}

// Handle processes the SalesReturnRejected event
func (h *ReturnRejectedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	rejected, ok := event.(*trade.SalesReturnRejectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected *SalesReturnRejectedEvent, got %T", event)
	}

	h.logger.Info("Sales return rejected",
		zap.String("return_id", rejected.ReturnID.String()),
		zap.String("return_number", rejected.ReturnNumber),
	)
	h.notifier.ReturnRejected(ctx, rejected)
	return nil
}

var _ shared.EventHandler = (*ReturnRejectedHandler)(nil)
