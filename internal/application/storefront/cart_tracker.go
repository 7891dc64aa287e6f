package storefront

import (
	"context"
	"errors"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"go.uber.org/zap"
)

// TaskTypeCartTrack records a cart snapshot in the abandoned cart table
const TaskTypeCartTrack = "cart.track"

// CartTracker mirrors storefront carts into abandoned cart rows. Tracking is
// advisory: a failure is logged and never fails the cart operation.
type CartTracker struct {
	queue  shared.TaskQueue
	carts  storefront.AbandonedCartRepository
	logger *zap.Logger
}

// NewCartTracker creates a new CartTracker
func NewCartTracker(queue shared.TaskQueue, carts storefront.AbandonedCartRepository, logger *zap.Logger) *CartTracker {
	return &CartTracker{queue: queue, carts: carts, logger: logger}
}

// Track queues a snapshot for recording
func (t *CartTracker) Track(ctx context.Context, snap storefront.CartSnapshot) {
	task, err := shared.NewTask(TaskTypeCartTrack, snap.TenantID, snap)
	if err == nil {
		err = t.queue.Enqueue(ctx, task)
	}
	if err != nil {
		t.logger.Warn("Failed to queue cart tracking",
			zap.String("tenant_id", snap.TenantID.String()),
			zap.String("session_id", snap.SessionID),
			zap.Error(err),
		)
	}
}

// TaskTypes returns the task types this handler processes
func (t *CartTracker) TaskTypes() []string {
	return []string{TaskTypeCartTrack}
}

// Handle upserts the tracking row for the snapshot's session. The last
// snapshot processed wins.
func (t *CartTracker) Handle(ctx context.Context, task *shared.Task) error {
	var snap storefront.CartSnapshot
	if err := task.Decode(&snap); err != nil {
		return err
	}

	cart, err := t.carts.FindBySession(ctx, snap.TenantID, snap.SessionID)
	switch {
	case err == nil:
		cart.ApplySnapshot(snap)
	case errors.Is(err, shared.ErrNotFound):
		if cart, err = storefront.NewAbandonedCart(snap); err != nil {
			return err
		}
	default:
		return err
	}

	if err := t.carts.Upsert(ctx, cart); err != nil {
		return err
	}
	t.logger.Debug("Cart tracked",
		zap.String("session_id", snap.SessionID),
		zap.Int("lines", len(snap.Lines)),
		zap.Bool("converted", cart.ConvertedToOrder),
	)
	return nil
}

var (
	_ CartSnapshotTracker = (*CartTracker)(nil)
	_ shared.TaskHandler  = (*CartTracker)(nil)
)
