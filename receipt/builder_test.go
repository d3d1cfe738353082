package receipt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/commerce/store"
	"github.com/warp/checkout-engine/pricing"
	"github.com/warp/checkout-engine/receipt"
)

var fixedNow = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

func newBuilder() *receipt.Builder {
	b := receipt.NewBuilder(pricing.NewDefaultCalculator())
	b.Clock = func() time.Time { return fixedNow }
	return b
}

func twoApples() []commerce.LineItem {
	return []commerce.LineItem{{
		ItemID:        "apple",
		Name:          "Apple",
		UnitPrice:     commerce.MustMoney("10.00"),
		PointsPerUnit: 10,
		Quantity:      2,
	}}
}

func TestBuild_RecomputesTotals(t *testing.T) {
	r := newBuilder().Build(receipt.Draft{
		ID:        7,
		AccountID: "cust-1",
		Lines:     twoApples(),
		Method:    commerce.PaymentCash,
		Discount:  commerce.Zero,
	})

	assert.Equal(t, commerce.ReceiptID(7), r.ID)
	assert.Equal(t, "20.00", r.Subtotal.String())
	assert.Equal(t, "1.60", r.Tax.String())
	assert.Equal(t, "21.60", r.Total.String())
	assert.Equal(t, "21.60", r.FinalTotal.String())
	assert.Equal(t, commerce.Points(20), r.PointsEarned)
	assert.Equal(t, fixedNow, r.IssuedAt)
}

func TestBuild_RedemptionEarnsNothing(t *testing.T) {
	r := newBuilder().Build(receipt.Draft{
		Lines:          twoApples(),
		Method:         commerce.PaymentCard,
		Discount:       commerce.MustMoney("0.50"),
		PointsRedeemed: 50,
	})

	assert.Equal(t, commerce.Points(0), r.PointsEarned)
	assert.Equal(t, "21.10", r.FinalTotal.String())
}

func TestBuild_DeepCopiesLines(t *testing.T) {
	// GIVEN: A receipt built from a slice of lines
	lines := twoApples()
	r := newBuilder().Build(receipt.Draft{Lines: lines, Method: commerce.PaymentCash})

	// WHEN: The caller mutates its slice afterwards
	lines[0].Quantity = 99
	lines[0].UnitPrice = commerce.MustMoney("0.01")

	// THEN: The receipt still shows the original sale
	assert.Equal(t, 2, r.Items[0].Quantity)
	assert.Equal(t, "10.00", r.Items[0].UnitPrice.String())
}

func TestVerify(t *testing.T) {
	calc := pricing.NewDefaultCalculator()
	lines := twoApples()
	totals := calc.ComputeTotals(lines)
	discount := commerce.MustMoney("1.00")

	r := newBuilder().Build(receipt.Draft{Lines: lines, Method: commerce.PaymentCash, Discount: discount, PointsRedeemed: 100})
	require.NoError(t, receipt.Verify(r, totals, discount))

	wrong := totals
	wrong.Total = wrong.Total.Add(commerce.MustMoney("0.01"))
	assert.ErrorIs(t, receipt.Verify(r, wrong, discount), commerce.ErrReceiptMismatch)
	assert.ErrorIs(t, receipt.Verify(r, totals, commerce.Zero), commerce.ErrReceiptMismatch)
}

func TestHistory_AppendOnlyAndCloned(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	b := newBuilder()

	for i := 0; i < 3; i++ {
		id, err := mem.NextReceiptID(ctx)
		require.NoError(t, err)
		r := b.Build(receipt.Draft{ID: id, AccountID: "cust-1", Lines: twoApples(), Method: commerce.PaymentCash})
		require.NoError(t, receipt.Issue(ctx, mem, r))
	}

	history, err := receipt.History(ctx, mem, "cust-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].ID, history[i-1].ID)
	}

	history[0].Items[0].Quantity = 50
	again, err := receipt.History(ctx, mem, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again[0].Items[0].Quantity)
}
