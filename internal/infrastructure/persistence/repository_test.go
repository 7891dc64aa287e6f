package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bizhub/backend/internal/domain/inventory"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	repoTenant = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	repoOther  = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
	repoNow    = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
)

func snapshot(tenantID uuid.UUID, session string, at time.Time, qty int) storefront.CartSnapshot {
	var lines []storefront.CartLine
	if qty > 0 {
		lines = []storefront.CartLine{{ProductID: uuid.New(), Name: "Widget", Quantity: qty, UnitPrice: decimal.NewFromInt(50)}}
	}
	return storefront.CartSnapshot{
		TenantID:   tenantID,
		SessionID:  session,
		Email:      "ama@example.com",
		Lines:      lines,
		Totals:     storefront.ComputeTotals(lines, decimal.RequireFromString("12.5")),
		Currency:   "GHS",
		OccurredAt: at,
	}
}

func trackCart(t *testing.T, repo *GormAbandonedCartRepository, snap storefront.CartSnapshot) *storefront.AbandonedCart {
	t.Helper()
	cart, err := storefront.NewAbandonedCart(snap)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(context.Background(), cart))
	return cart
}

func TestGormAbandonedCartRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("second snapshot replaces contents", func(t *testing.T) {
		repo := NewGormAbandonedCartRepository(newTestDB(t))
		trackCart(t, repo, snapshot(repoTenant, "s1", repoNow, 1))
		trackCart(t, repo, snapshot(repoTenant, "s1", repoNow.Add(time.Minute), 3))

		got, err := repo.FindBySession(ctx, repoTenant, "s1")
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 3, got.Items[0].Quantity)
		assert.True(t, got.Total.Equal(decimal.RequireFromString("168.75")))
		assert.True(t, got.LastActivityAt.Equal(repoNow.Add(time.Minute)))
	})

	t.Run("row linked to an order is left untouched", func(t *testing.T) {
		repo := NewGormAbandonedCartRepository(newTestDB(t))
		trackCart(t, repo, snapshot(repoTenant, "s1", repoNow, 2))
		orderID := uuid.New()
		require.NoError(t, repo.MarkConverted(ctx, repoTenant, "s1", orderID, repoNow.Add(time.Minute)))

		trackCart(t, repo, snapshot(repoTenant, "s1", repoNow.Add(2*time.Minute), 5))

		got, err := repo.FindBySession(ctx, repoTenant, "s1")
		require.NoError(t, err)
		assert.True(t, got.ConvertedToOrder)
		require.NotNil(t, got.OrderID)
		assert.Equal(t, orderID, *got.OrderID)
		assert.Equal(t, 2, got.Items[0].Quantity)
	})

	t.Run("sessions are tenant scoped", func(t *testing.T) {
		repo := NewGormAbandonedCartRepository(newTestDB(t))
		trackCart(t, repo, snapshot(repoTenant, "s1", repoNow, 1))

		_, err := repo.FindBySession(ctx, repoOther, "s1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormAbandonedCartRepository_FindDueForReminder(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAbandonedCartRepository(newTestDB(t))

	due := trackCart(t, repo, snapshot(repoTenant, "due", repoNow.Add(-30*time.Hour), 1))
	trackCart(t, repo, snapshot(repoTenant, "recent", repoNow.Add(-time.Hour), 1))
	trackCart(t, repo, snapshot(repoTenant, "empty", repoNow.Add(-30*time.Hour), 0))
	trackCart(t, repo, snapshot(repoOther, "elsewhere", repoNow.Add(-30*time.Hour), 1))
	trackCart(t, repo, snapshot(repoTenant, "bought", repoNow.Add(-30*time.Hour), 1))
	require.NoError(t, repo.MarkConverted(ctx, repoTenant, "bought", uuid.New(), repoNow))
	// older anonymous carts must not take the batch slots
	for i := 0; i < 3; i++ {
		anon := snapshot(repoTenant, fmt.Sprintf("anon-%d", i), repoNow.Add(-100*time.Hour), 1)
		anon.Email = ""
		trackCart(t, repo, anon)
	}

	q := storefront.ReminderQuery{
		TenantID:           &repoTenant,
		LastActivityBefore: repoNow.Add(-24 * time.Hour),
		ReminderBefore:     repoNow.Add(-storefront.MinReminderInterval),
		Limit:              100,
	}
	carts, err := repo.FindDueForReminder(ctx, q)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, due.ID, carts[0].ID)

	q.Limit = 1
	carts, err = repo.FindDueForReminder(ctx, q)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, due.ID, carts[0].ID)

	customerID := uuid.New()
	linked := snapshot(repoTenant, "linked", repoNow.Add(-40*time.Hour), 1)
	linked.Email = ""
	linked.CustomerID = &customerID
	trackCart(t, repo, linked)
	q.Limit = 100
	carts, err = repo.FindDueForReminder(ctx, q)
	require.NoError(t, err)
	require.Len(t, carts, 2)
	assert.Equal(t, "linked", carts[0].SessionID)

	q.TenantID = nil
	carts, err = repo.FindDueForReminder(ctx, q)
	require.NoError(t, err)
	assert.Len(t, carts, 3)
}

func TestGormAbandonedCartRepository_FindTenantsWithOpenCarts(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAbandonedCartRepository(newTestDB(t))

	ids, err := repo.FindTenantsWithOpenCarts(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	trackCart(t, repo, snapshot(repoTenant, "a", repoNow, 1))
	trackCart(t, repo, snapshot(repoTenant, "b", repoNow, 1))
	trackCart(t, repo, snapshot(repoOther, "c", repoNow, 1))
	ids, err = repo.FindTenantsWithOpenCarts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{repoTenant, repoOther}, ids)

	require.NoError(t, repo.MarkConverted(ctx, repoOther, "c", uuid.New(), repoNow))
	ids, err = repo.FindTenantsWithOpenCarts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{repoTenant}, ids)
}

func TestGormAbandonedCartRepository_SaveReminder(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAbandonedCartRepository(newTestDB(t))
	trackCart(t, repo, snapshot(repoTenant, "s1", repoNow.Add(-30*time.Hour), 1))

	first, err := repo.FindBySession(ctx, repoTenant, "s1")
	require.NoError(t, err)
	second, err := repo.FindBySession(ctx, repoTenant, "s1")
	require.NoError(t, err)

	require.NoError(t, first.RecordReminder(repoNow))
	require.NoError(t, repo.SaveReminder(ctx, first, nil))

	// a second dispatcher that read the same unreminded row loses
	require.NoError(t, second.RecordReminder(repoNow))
	err = repo.SaveReminder(ctx, second, nil)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	got, err := repo.FindBySession(ctx, repoTenant, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReminderCount)
	require.NotNil(t, got.ReminderSentAt)

	q := storefront.ReminderQuery{
		LastActivityBefore: repoNow.Add(-24 * time.Hour),
		ReminderBefore:     repoNow.Add(-storefront.MinReminderInterval),
	}
	carts, err := repo.FindDueForReminder(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, carts)
}

func TestGormAbandonedCartRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAbandonedCartRepository(newTestDB(t))
	trackCart(t, repo, snapshot(repoTenant, "a", repoNow, 1))
	trackCart(t, repo, snapshot(repoTenant, "b", repoNow, 1))
	require.NoError(t, repo.MarkConverted(ctx, repoTenant, "b", uuid.New(), repoNow))
	trackCart(t, repo, snapshot(repoOther, "c", repoNow, 1))

	converted := false
	carts, total, err := repo.FindAll(ctx, repoTenant, storefront.AbandonedCartFilter{
		Filter:    shared.Filter{Page: 1, PageSize: 10},
		Converted: &converted,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, carts, 1)
	assert.Equal(t, "a", carts[0].SessionID)
}

func newTestOrder(t *testing.T, number string, invoiceID uuid.UUID) *storefront.EcommerceOrder {
	t.Helper()
	lines := []storefront.CartLine{{ProductID: uuid.New(), Name: "Widget", Quantity: 2, UnitPrice: decimal.NewFromInt(50)}}
	order, err := storefront.NewEcommerceOrder(repoTenant, number, "s1", lines, storefront.ComputeTotals(lines, decimal.RequireFromString("12.5")), "GHS")
	require.NoError(t, err)
	order.LinkFulfillment(invoiceID, uuid.New())
	order.Email = "ama@example.com"
	return order
}

func TestGormEcommerceOrderRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save with lock bumps version and writes events", func(t *testing.T) {
		repo := NewGormEcommerceOrderRepository(newTestDB(t))
		saver := &recordingSaver{}
		repo.SetOutboxEventSaver(saver)

		order := newTestOrder(t, "WEB-1", uuid.New())
		require.NoError(t, repo.Save(ctx, order))

		require.True(t, order.ApplyFulfillmentStatus(storefront.OrderStatusShipped, repoNow))
		require.NoError(t, repo.SaveWithLock(ctx, order))
		assert.Equal(t, 2, order.Version)
		assert.Empty(t, order.GetDomainEvents())
		assert.Equal(t, []string{storefront.EventTypeEcommerceOrderStatusChanged}, saver.types())

		got, err := repo.FindBySalesOrderID(ctx, repoTenant, *order.SalesOrderID)
		require.NoError(t, err)
		assert.Equal(t, storefront.OrderStatusShipped, got.Status)
		require.NotNil(t, got.ShippedAt)
		assert.True(t, got.ShippedAt.Equal(repoNow))
		require.Len(t, got.Items, 1)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		repo := NewGormEcommerceOrderRepository(newTestDB(t))
		order := newTestOrder(t, "WEB-1", uuid.New())
		require.NoError(t, repo.Save(ctx, order))

		stale, err := repo.FindByID(ctx, repoTenant, order.ID)
		require.NoError(t, err)

		order.MarkPaid()
		require.NoError(t, repo.SaveWithLock(ctx, order))

		stale.ApplyFulfillmentStatus(storefront.OrderStatusCancelled, repoNow)
		err = repo.SaveWithLock(ctx, stale)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
		assert.Equal(t, 1, stale.Version)
		assert.Len(t, stale.GetDomainEvents(), 1)
	})

	t.Run("outbox failure rolls the update back", func(t *testing.T) {
		repo := NewGormEcommerceOrderRepository(newTestDB(t))
		repo.SetOutboxEventSaver(&recordingSaver{err: errors.New("outbox down")})
		order := newTestOrder(t, "WEB-1", uuid.New())
		require.NoError(t, repo.Save(ctx, order))

		order.ApplyFulfillmentStatus(storefront.OrderStatusShipped, repoNow)
		err := repo.SaveWithLock(ctx, order)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save events to outbox")

		got, err := repo.FindByID(ctx, repoTenant, order.ID)
		require.NoError(t, err)
		assert.Equal(t, storefront.OrderStatusPending, got.Status)
	})

	t.Run("one order per invoice", func(t *testing.T) {
		repo := NewGormEcommerceOrderRepository(newTestDB(t))
		invoiceID := uuid.New()
		require.NoError(t, repo.Save(ctx, newTestOrder(t, "WEB-1", invoiceID)))

		err := repo.Save(ctx, newTestOrder(t, "WEB-2", invoiceID))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)

		got, err := repo.FindByInvoiceID(ctx, repoTenant, invoiceID)
		require.NoError(t, err)
		assert.Equal(t, "WEB-1", got.OrderNumber)
	})

	t.Run("order numbers are unique per tenant", func(t *testing.T) {
		repo := NewGormEcommerceOrderRepository(newTestDB(t))
		require.NoError(t, repo.Save(ctx, newTestOrder(t, "WEB-7", uuid.New())))

		elsewhere := newTestOrder(t, "WEB-7", uuid.New())
		elsewhere.TenantID = repoOther
		require.NoError(t, repo.Save(ctx, elsewhere))

		err := repo.Save(ctx, newTestOrder(t, "WEB-7", uuid.New()))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("list filters by status and tenant", func(t *testing.T) {
		repo := NewGormEcommerceOrderRepository(newTestDB(t))
		require.NoError(t, repo.Save(ctx, newTestOrder(t, "WEB-1", uuid.New())))
		shipped := newTestOrder(t, "WEB-2", uuid.New())
		shipped.ApplyFulfillmentStatus(storefront.OrderStatusShipped, repoNow)
		require.NoError(t, repo.Save(ctx, shipped))

		status := storefront.OrderStatusShipped
		orders, total, err := repo.FindAll(ctx, repoTenant, storefront.EcommerceOrderFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10},
			Status: &status,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, orders, 1)
		assert.Equal(t, "WEB-2", orders[0].OrderNumber)

		_, total, err = repo.FindAll(ctx, repoOther, storefront.EcommerceOrderFilter{Filter: shared.Filter{Page: 1, PageSize: 10}})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func shippedSalesOrder(t *testing.T, repo *GormSalesOrderRepository) (*trade.SalesOrder, uuid.UUID) {
	t.Helper()
	customerID := uuid.New()
	order, err := trade.NewSalesOrder(repoTenant, "SO-"+uuid.NewString()[:8], &customerID)
	require.NoError(t, err)
	productID := uuid.New()
	_, err = order.AddItem(productID, "Widget", decimal.NewFromInt(3), decimal.NewFromInt(35))
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), order))
	require.NoError(t, order.ChangeStatus(trade.OrderStatusConfirmed, nil, ""))
	require.NoError(t, order.ChangeStatus(trade.OrderStatusShipped, nil, ""))
	require.NoError(t, repo.SaveWithLock(context.Background(), order))
	return order, productID
}

func TestGormSalesOrderRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormSalesOrderRepository(db)
	saver := &recordingSaver{}
	repo.SetOutboxEventSaver(saver)

	order, _ := shippedSalesOrder(t, repo)
	assert.Equal(t, []string{trade.EventTypeSalesOrderStatusChanged, trade.EventTypeSalesOrderStatusChanged}, saver.types())

	got, err := repo.FindByID(ctx, repoTenant, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusShipped, got.Status)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, order.Version, got.Version)

	_, err = repo.FindByID(ctx, repoOther, order.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSalesReturnRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	orders := NewGormSalesOrderRepository(db)
	repo := NewGormSalesReturnRepository(db)
	repo.now = func() time.Time { return repoNow }
	saver := &recordingSaver{}
	repo.SetOutboxEventSaver(saver)

	order, productID := shippedSalesOrder(t, orders)

	number, err := repo.NextReturnNumber(ctx, repoTenant)
	require.NoError(t, err)
	assert.Equal(t, "SR-2026-00001", number)

	sr, err := trade.NewSalesReturn(repoTenant, number, order, trade.ReturnReasonDamaged, "", uuid.New())
	require.NoError(t, err)
	require.NoError(t, sr.AddLine(productID, decimal.NewFromInt(2)))
	require.NoError(t, repo.Create(ctx, sr))

	t.Run("numbers continue from the last return", func(t *testing.T) {
		next, err := repo.NextReturnNumber(ctx, repoTenant)
		require.NoError(t, err)
		assert.Equal(t, "SR-2026-00002", next)

		other, err := repo.NextReturnNumber(ctx, repoOther)
		require.NoError(t, err)
		assert.Equal(t, "SR-2026-00001", other)
	})

	t.Run("taken number on another order", func(t *testing.T) {
		second, secondProduct := shippedSalesOrder(t, orders)
		clash, err := trade.NewSalesReturn(repoTenant, number, second, trade.ReturnReasonDamaged, "", uuid.New())
		require.NoError(t, err)
		require.NoError(t, clash.AddLine(secondProduct, decimal.NewFromInt(1)))
		err = repo.Create(ctx, clash)
		assert.ErrorIs(t, err, trade.ErrReturnNumberTaken)

		_, err = repo.FindBySalesOrderID(ctx, repoTenant, second.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("second return for the order", func(t *testing.T) {
		dup, err := trade.NewSalesReturn(repoTenant, "SR-2026-00002", order, trade.ReturnReasonDamaged, "", uuid.New())
		require.NoError(t, err)
		require.NoError(t, dup.AddLine(productID, decimal.NewFromInt(1)))
		err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, trade.ErrReturnExists)
	})

	t.Run("save persists status and writes events", func(t *testing.T) {
		got, err := repo.FindBySalesOrderID(ctx, repoTenant, order.ID)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.True(t, got.Lines[0].Quantity.Equal(decimal.NewFromInt(2)))

		require.NoError(t, got.Submit())
		require.NoError(t, got.Approve(uuid.New()))
		require.NoError(t, repo.Save(ctx, got))
		assert.Contains(t, saver.types(), trade.EventTypeSalesReturnApproved)

		reloaded, err := repo.FindByID(ctx, repoTenant, sr.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.ReturnStatusApproved, reloaded.Status)
		assert.Equal(t, got.Version, reloaded.Version)
	})

	t.Run("stale save is a conflict", func(t *testing.T) {
		stale := *sr
		stale.Note = "late edit"
		err := repo.Save(ctx, &stale)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
	})
}

func TestGormStockRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	items := NewGormStockItemRepository(db)
	movements := NewGormStockMovementRepository(db)

	productID := uuid.New()
	a, err := inventory.NewStockItem(repoTenant, uuid.New(), productID)
	require.NoError(t, err)
	b, err := inventory.NewStockItem(repoTenant, uuid.New(), productID)
	require.NoError(t, err)
	require.NoError(t, items.Create(ctx, a))
	require.NoError(t, items.Create(ctx, b))

	_, _, err = a.Receive(decimal.NewFromInt(4), decimal.NewFromInt(20))
	require.NoError(t, err)
	require.NoError(t, items.Save(ctx, a))
	before, after, err := b.Receive(decimal.NewFromInt(3), decimal.NewFromInt(20))
	require.NoError(t, err)
	require.NoError(t, items.Save(ctx, b))

	available, err := items.AvailableByProducts(ctx, repoTenant, []uuid.UUID{productID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, available, 1)
	assert.True(t, available[productID].Equal(decimal.NewFromInt(7)))

	locked, err := items.FindForUpdate(ctx, repoTenant, b.WarehouseID, productID)
	require.NoError(t, err)
	assert.True(t, locked.Quantity.Equal(decimal.NewFromInt(3)))

	returnID, lineID := uuid.New(), uuid.New()
	m, err := inventory.NewReturnMovement(b, decimal.NewFromInt(3), decimal.NewFromInt(20), before, after, returnID, lineID, "SR-2026-00001", nil)
	require.NoError(t, err)
	require.NoError(t, movements.Create(ctx, m))

	exists, err := movements.ExistsForSourceLine(ctx, inventory.SourceTypeSalesReturn, lineID)
	require.NoError(t, err)
	assert.True(t, exists)

	replay, err := inventory.NewReturnMovement(b, decimal.NewFromInt(3), decimal.NewFromInt(20), before, after, returnID, lineID, "SR-2026-00001", nil)
	require.NoError(t, err)
	err = movements.Create(ctx, replay)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)

	recorded, err := movements.FindBySource(ctx, repoTenant, inventory.SourceTypeSalesReturn, returnID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, inventory.MovementTypeReturn, recorded[0].Type)
}
