package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bizhub/backend/internal/application/notification"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reminderFixture struct {
	carts      *memCarts
	customers  *memCustomers
	email      *MockEmailSender
	dispatcher *ReminderDispatcher
	now        time.Time
}

func newReminderFixture() *reminderFixture {
	f := &reminderFixture{
		carts:     newMemCarts(),
		customers: newMemCustomers(),
		email:     new(MockEmailSender),
		now:       time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	f.dispatcher = NewReminderDispatcher(f.carts, f.customers, f.email, defaultSettings(), "https://shop.example.com", zap.NewNop())
	f.dispatcher.now = func() time.Time { return f.now }
	return f
}

// idleCart stores a cart whose last activity was idle ago
func (f *reminderFixture) idleCart(t *testing.T, email string, idle time.Duration, lines ...storefront.CartLine) *storefront.AbandonedCart {
	t.Helper()
	if len(lines) == 0 {
		lines = []storefront.CartLine{line(1, 50)}
	}
	snap := snapshot(uuid.NewString(), f.now.Add(-idle), lines...)
	snap.Email = email
	cart, err := storefront.NewAbandonedCart(snap)
	require.NoError(t, err)
	require.NoError(t, f.carts.Upsert(context.Background(), cart))
	return cart
}

func TestReminderDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	tenant := testTenantID

	t.Run("idle cart gets one reminder", func(t *testing.T) {
		f := newReminderFixture()
		cart := f.idleCart(t, "a@example.com", 30*time.Hour)
		f.idleCart(t, "fresh@example.com", time.Hour)
		f.email.On("SendEmail", ctx, testTenantID, mock.MatchedBy(func(m notification.EmailMessage) bool {
			return m.To == "a@example.com"
		})).Return(nil).Once()

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Scanned)
		assert.Equal(t, 1, report.Sent)
		row := f.carts.rows[cart.ID]
		require.NotNil(t, row.ReminderSentAt)
		assert.True(t, row.ReminderSentAt.Equal(f.now))
		assert.Equal(t, 1, row.ReminderCount)
		f.email.AssertExpectations(t)
	})

	t.Run("no second reminder within 48 hours", func(t *testing.T) {
		f := newReminderFixture()
		cart := f.idleCart(t, "a@example.com", 30*time.Hour)
		f.email.On("SendEmail", ctx, testTenantID, mock.Anything).Return(nil)

		_, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)

		f.now = f.now.Add(47 * time.Hour)
		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Sent)

		f.now = f.now.Add(time.Hour)
		report, err = f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)

		assert.Equal(t, 2, f.carts.rows[cart.ID].ReminderCount)
		f.email.AssertNumberOfCalls(t, "SendEmail", 2)
	})

	t.Run("customer email is used when the cart has none", func(t *testing.T) {
		f := newReminderFixture()
		customer, err := partner.NewCustomer(testTenantID, "Ama", "ama@example.com", "")
		require.NoError(t, err)
		require.NoError(t, f.customers.Create(ctx, customer))

		cart := f.idleCart(t, "", 30*time.Hour)
		f.carts.rows[cart.ID].CustomerID = &customer.ID
		f.email.On("SendEmail", ctx, testTenantID, mock.MatchedBy(func(m notification.EmailMessage) bool {
			return m.To == "ama@example.com"
		})).Return(nil).Once()

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
	})

	t.Run("cart without contact is not selected", func(t *testing.T) {
		f := newReminderFixture()
		f.idleCart(t, "", 30*time.Hour)

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Scanned)
		f.email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("linked customer that no longer exists is skipped", func(t *testing.T) {
		f := newReminderFixture()
		cart := f.idleCart(t, "", 30*time.Hour)
		missing := uuid.New()
		f.carts.rows[cart.ID].CustomerID = &missing

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Scanned)
		assert.Equal(t, 1, report.Skipped)
		f.email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("anonymous carts do not starve contactable ones", func(t *testing.T) {
		f := newReminderFixture()
		for i := 0; i < reminderBatchLimit; i++ {
			f.idleCart(t, "", 100*time.Hour)
		}
		cart := f.idleCart(t, "a@example.com", 30*time.Hour)
		f.email.On("SendEmail", ctx, testTenantID, mock.Anything).Return(nil).Once()

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
		assert.Equal(t, 1, f.carts.rows[cart.ID].ReminderCount)
		f.email.AssertExpectations(t)
	})

	t.Run("run is capped at the batch limit", func(t *testing.T) {
		f := newReminderFixture()
		for i := 0; i < reminderBatchLimit+20; i++ {
			f.idleCart(t, fmt.Sprintf("shopper%d@example.com", i), time.Duration(30+i)*time.Hour)
		}
		f.email.On("SendEmail", ctx, testTenantID, mock.Anything).Return(nil)

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, reminderBatchLimit, report.Scanned)
		assert.Equal(t, reminderBatchLimit, report.Sent)
		f.email.AssertNumberOfCalls(t, "SendEmail", reminderBatchLimit)

		// the oldest carts go first, the rest wait for the next run
		report, err = f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 20, report.Sent)
	})

	t.Run("configured batch limit", func(t *testing.T) {
		f := newReminderFixture()
		f.dispatcher.SetBatchLimit(2)
		for i := 0; i < 5; i++ {
			f.idleCart(t, fmt.Sprintf("shopper%d@example.com", i), 30*time.Hour)
		}
		f.email.On("SendEmail", ctx, testTenantID, mock.Anything).Return(nil)

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Scanned)

		f.dispatcher.SetBatchLimit(0)
		assert.Equal(t, 2, f.dispatcher.batchLimit)
	})

	t.Run("one failure does not stop the batch", func(t *testing.T) {
		f := newReminderFixture()
		bad := f.idleCart(t, "bad@example.com", 40*time.Hour)
		good := f.idleCart(t, "good@example.com", 30*time.Hour)
		f.email.On("SendEmail", ctx, testTenantID, mock.MatchedBy(func(m notification.EmailMessage) bool {
			return m.To == "bad@example.com"
		})).Return(errors.New("mailbox unavailable"))
		f.email.On("SendEmail", ctx, testTenantID, mock.MatchedBy(func(m notification.EmailMessage) bool {
			return m.To == "good@example.com"
		})).Return(nil)

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)

		assert.Equal(t, 2, report.Scanned)
		assert.Equal(t, 1, report.Sent)
		assert.Equal(t, 1, report.Failed)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, bad.ID, report.Failures[0].CartID)
		assert.Contains(t, report.Failures[0].Reason, "mailbox unavailable")
		assert.Nil(t, f.carts.rows[bad.ID].ReminderSentAt)
		assert.NotNil(t, f.carts.rows[good.ID].ReminderSentAt)
	})

	t.Run("other tenants are not scanned", func(t *testing.T) {
		f := newReminderFixture()
		snap := snapshot("other", f.now.Add(-30*time.Hour), line(1, 5))
		snap.TenantID = otherTenant
		snap.Email = "x@example.com"
		cart, err := storefront.NewAbandonedCart(snap)
		require.NoError(t, err)
		require.NoError(t, f.carts.Upsert(ctx, cart))

		report, err := f.dispatcher.Dispatch(ctx, &tenant)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Scanned)
	})
}

// tenantDelays overrides the reminder delay per tenant
type tenantDelays struct {
	fixedSettings
	delays map[uuid.UUID]time.Duration
}

func (s tenantDelays) ReminderDelay(ctx context.Context, tenantID uuid.UUID) (time.Duration, error) {
	if d, ok := s.delays[tenantID]; ok {
		return d, nil
	}
	return s.fixedSettings.ReminderDelay(ctx, tenantID)
}

func TestReminderDispatcher_DispatchAllTenants(t *testing.T) {
	ctx := context.Background()

	f := newReminderFixture()
	f.dispatcher.settings = tenantDelays{
		fixedSettings: defaultSettings(),
		delays:        map[uuid.UUID]time.Duration{otherTenant: 2 * time.Hour},
	}

	// 3h idle: due for the 2h tenant, not yet for the 24h default
	fast := snapshot("fast", f.now.Add(-3*time.Hour), line(1, 5))
	fast.TenantID = otherTenant
	fast.Email = "fast@example.com"
	fastCart, err := storefront.NewAbandonedCart(fast)
	require.NoError(t, err)
	require.NoError(t, f.carts.Upsert(ctx, fastCart))
	early := f.idleCart(t, "early@example.com", 3*time.Hour)
	late := f.idleCart(t, "late@example.com", 30*time.Hour)

	f.email.On("SendEmail", ctx, otherTenant, mock.MatchedBy(func(m notification.EmailMessage) bool {
		return m.To == "fast@example.com"
	})).Return(nil).Once()
	f.email.On("SendEmail", ctx, testTenantID, mock.MatchedBy(func(m notification.EmailMessage) bool {
		return m.To == "late@example.com"
	})).Return(nil).Once()

	report, err := f.dispatcher.Dispatch(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 0, report.Skipped)
	assert.NotNil(t, f.carts.rows[fastCart.ID].ReminderSentAt)
	assert.NotNil(t, f.carts.rows[late.ID].ReminderSentAt)
	assert.Nil(t, f.carts.rows[early.ID].ReminderSentAt)
	f.email.AssertExpectations(t)
}

func TestReminderDispatcher_Render(t *testing.T) {
	f := newReminderFixture()
	lines := make([]storefront.CartLine, 8)
	for i := range lines {
		lines[i] = line(1, 10)
	}
	cart := f.idleCart(t, "a@example.com", 30*time.Hour, lines...)

	msg := f.dispatcher.render(cart)
	assert.Equal(t, 5, strings.Count(msg.Body, "- 1 x Widget"))
	assert.Contains(t, msg.Body, "and 3 more item(s)")
	assert.Contains(t, msg.Body, "Total: 90.00 GHS")
	assert.Contains(t, msg.Body, "https://shop.example.com")
}
