package finance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(uuid.New(), "INV-0001", nil, decimal.NewFromInt(100), decimal.RequireFromString("12.5"), "GHS")
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	inv := newTestInvoice(t)
	assert.True(t, inv.Total.Equal(decimal.RequireFromString("112.5")))
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)

	_, err := NewInvoice(uuid.New(), "", nil, decimal.Zero, decimal.Zero, "GHS")
	assert.Error(t, err)
	_, err = NewInvoice(uuid.New(), "INV-2", nil, decimal.NewFromInt(-1), decimal.Zero, "GHS")
	assert.Error(t, err)
}

func TestInvoice_Payment(t *testing.T) {
	inv := newTestInvoice(t)
	require.NoError(t, inv.CanAcceptPayment())

	inv.RecordPaymentAttempt("paystack", "INV-0001-1")
	require.NoError(t, inv.MarkPaid("", time.Now()))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.Equal(t, "INV-0001-1", inv.PaymentReference)
	assert.Error(t, inv.CanAcceptPayment())
	assert.NoError(t, inv.MarkPaid("other", time.Now()), "paying twice is a no-op")
}

func TestInvoice_ApplyCredit(t *testing.T) {
	inv := newTestInvoice(t)

	require.NoError(t, inv.ApplyCredit(decimal.NewFromInt(50)))
	assert.Equal(t, InvoiceStatusPartiallyCredited, inv.Status)
	assert.True(t, inv.AmountDue().Equal(decimal.RequireFromString("62.5")))

	assert.Error(t, inv.ApplyCredit(decimal.NewFromInt(100)))
	require.NoError(t, inv.ApplyCredit(decimal.RequireFromString("62.5")))
	assert.Equal(t, InvoiceStatusCredited, inv.Status)
}

func TestNewCreditNote(t *testing.T) {
	inv := newTestInvoice(t)
	src := CreditNoteSource{
		ReturnID:     uuid.New(),
		ReturnNumber: "RT-0001",
		SalesOrderID: uuid.New(),
		Reason:       "DAMAGED",
		Lines: []CreditNoteLine{
			{ReturnLineID: uuid.New(), ProductID: uuid.New(), Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
			{ReturnLineID: uuid.New(), ProductID: uuid.New(), Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10)},
		},
	}

	cn, err := NewCreditNote("CN-0001", inv, src)
	require.NoError(t, err)
	assert.True(t, cn.Amount.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, inv.ID, cn.InvoiceID)
	assert.Equal(t, inv.TenantID, cn.TenantID)
	assert.Equal(t, "GHS", cn.Currency)
	assert.Len(t, cn.Lines, 2)

	t.Run("capped at amount due", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.ApplyCredit(decimal.NewFromInt(100)))
		cn, err := NewCreditNote("CN-0002", inv, src)
		require.NoError(t, err)
		assert.True(t, cn.Amount.Equal(decimal.RequireFromString("12.5")))
	})

	t.Run("requires lines", func(t *testing.T) {
		_, err := NewCreditNote("CN-0003", inv, CreditNoteSource{})
		assert.Error(t, err)
	})
}
