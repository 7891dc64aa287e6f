package storefront

import (
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	t.Run("two items at 50 with 12.5 percent tax", func(t *testing.T) {
		lines := []CartLine{{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(50)}}

		totals := ComputeTotals(lines, decimal.RequireFromString("12.5"))

		assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(100)), "subtotal %s", totals.Subtotal)
		assert.True(t, totals.Tax.Equal(decimal.RequireFromString("12.5")), "tax %s", totals.Tax)
		assert.True(t, totals.Total.Equal(decimal.RequireFromString("112.5")), "total %s", totals.Total)
	})

	t.Run("empty cart is all zero", func(t *testing.T) {
		totals := ComputeTotals(nil, decimal.NewFromInt(15))
		assert.True(t, totals.Total.IsZero())
	})
}

func TestComputeTotals_TotalIsSubtotalPlusTax(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total == subtotal + subtotal*rate/100", prop.ForAll(
		func(quantities []int, cents []int64, rateTenths int64) bool {
			lines := make([]CartLine, 0, len(quantities))
			for i := 0; i < len(quantities) && i < len(cents); i++ {
				lines = append(lines, CartLine{
					ProductID: uuid.New(),
					Quantity:  quantities[i],
					UnitPrice: decimal.New(cents[i], -2),
				})
			}
			rate := decimal.New(rateTenths, -1)
			totals := ComputeTotals(lines, rate)

			expectedTax := totals.Subtotal.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
			return totals.Tax.Equal(expectedTax) && totals.Total.Equal(totals.Subtotal.Add(totals.Tax))
		},
		gen.SliceOf(gen.IntRange(1, MaxLineQuantity)),
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.Int64Range(0, 300),
	))

	properties.TestingRun(t)
}

func TestCart_Mutations(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()

	t.Run("renewed session keeps the email", func(t *testing.T) {
		c := NewCart("s1")
		c.SetEmail("ama@example.com")
		c.RenewSession()
		assert.NotEqual(t, "s1", c.SessionID)
		_, err := uuid.Parse(c.SessionID)
		assert.NoError(t, err)
		assert.Equal(t, "ama@example.com", c.Email)
	})

	t.Run("add merges quantities", func(t *testing.T) {
		c := NewCart("s1")
		require.NoError(t, c.AddItem(p1, 1))
		require.NoError(t, c.AddItem(p1, 2))
		require.NoError(t, c.AddItem(p2, 1))

		line, ok := c.Line(p1)
		require.True(t, ok)
		assert.Equal(t, 3, line.Quantity)
		assert.Equal(t, 4, c.ItemCount())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		c := NewCart("s1")
		assert.Error(t, c.AddItem(p1, 0))
		assert.Error(t, c.AddItem(uuid.Nil, 1))
	})

	t.Run("set quantity zero removes line", func(t *testing.T) {
		c := NewCart("s1")
		require.NoError(t, c.AddItem(p1, 3))
		require.NoError(t, c.SetQuantity(p1, 0))
		assert.True(t, c.IsEmpty())
	})

	t.Run("set quantity on unknown product fails", func(t *testing.T) {
		c := NewCart("s1")
		err := c.SetQuantity(p1, 2)
		assert.Error(t, err)
	})

	t.Run("per-line limit", func(t *testing.T) {
		c := NewCart("s1")
		require.NoError(t, c.AddItem(p1, MaxLineQuantity))
		assert.Error(t, c.AddItem(p1, 1))
	})

	t.Run("remove and clear", func(t *testing.T) {
		c := NewCart("s1")
		require.NoError(t, c.AddItem(p1, 1))
		require.NoError(t, c.AddItem(p2, 1))
		require.NoError(t, c.RemoveItem(p1))
		assert.Len(t, c.Lines, 1)
		assert.Error(t, c.RemoveItem(p1))
		c.Clear()
		assert.True(t, c.IsEmpty())
	})
}

func TestCart_Revalidate(t *testing.T) {
	active, gone, inactive, scarce := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	c := &Cart{SessionID: "s1", Lines: []CartLine{
		{ProductID: active, Quantity: 2, UnitPrice: decimal.NewFromInt(40)},
		{ProductID: gone, Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		{ProductID: inactive, Quantity: 1},
		{ProductID: scarce, Quantity: 5},
	}}

	adjustments := c.Revalidate(map[uuid.UUID]ProductAvailability{
		active:   {ProductID: active, Name: "Shea butter", Price: decimal.NewFromInt(50), Available: 10, Active: true},
		inactive: {ProductID: inactive, Name: "Old", Price: decimal.NewFromInt(5), Available: 10, Active: false},
		scarce:   {ProductID: scarce, Name: "Kente", Price: decimal.NewFromInt(200), Available: 3, Active: true},
	})

	require.Len(t, c.Lines, 2)
	line, _ := c.Line(active)
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "Shea butter", line.Name)
	line, _ = c.Line(scarce)
	assert.Equal(t, 3, line.Quantity)

	kinds := map[AdjustmentKind]int{}
	for _, a := range adjustments {
		kinds[a.Kind]++
	}
	assert.Equal(t, 2, kinds[AdjustmentRemoved])
	assert.Equal(t, 1, kinds[AdjustmentPriceChanged])
	assert.Equal(t, 1, kinds[AdjustmentQuantityReduced])
}
