package checkout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
)

func TestCheckFunds_NeverMutates(t *testing.T) {
	// GIVEN: 500 points, card balance 10, cart total 21.60
	// WHEN: Previewing a card payment with 50 points, twice
	// THEN: Insufficient both times and nothing changes

	ctx := context.Background()
	mem := seed(t)
	eng := newEngine(t, mem)
	cart := cartWith(t, eng, map[commerce.ItemID]int{"apple": 2})
	acct := account(t, mem, "cust-2")
	before := acct

	for i := 0; i < 2; i++ {
		p, err := eng.CheckFunds(ctx, &acct, cart, commerce.PaymentCard, 50)
		require.NoError(t, err)
		assert.False(t, p.Sufficient)
		assert.Equal(t, "0.50", p.Discount.String())
		assert.Equal(t, "21.10", p.FinalTotal.String())
		assert.Equal(t, "10.00", p.Available.String())
		assert.Equal(t, "11.10", p.Shortfall().String())
		assert.Equal(t, commerce.Points(50), p.PointsApplied)
	}

	assertBalances(t, before, acct)
	assert.Equal(t, 1, cart.Len())
	assert.Equal(t, 10, stock(t, mem, "apple"))
	moves, err := mem.LoadMovements(ctx, "cust-2")
	require.NoError(t, err)
	assert.Empty(t, moves)
}

func TestCheckFunds_MatchesCheckout(t *testing.T) {
	ctx := context.Background()
	mem := seed(t)
	eng := newEngine(t, mem)
	cart := cartWith(t, eng, map[commerce.ItemID]int{"pear": 1})
	acct := account(t, mem, "cust-2")

	p, err := eng.CheckFunds(ctx, &acct, cart, commerce.PaymentCash, 500)
	require.NoError(t, err)
	assert.True(t, p.Sufficient)
	assert.Equal(t, "0.00", p.Shortfall().String())

	res, err := eng.ProcessCheckout(ctx, &acct, cart, commerce.PaymentCash, 500)
	require.NoError(t, err)
	require.True(t, res.Committed())
	assert.Equal(t, p.FinalTotal.String(), res.Receipt.FinalTotal.String())
	assert.Equal(t, p.PointsApplied, res.Receipt.PointsRedeemed)
}

func TestCheckFunds_ExcessPointsPreviewAtFullPrice(t *testing.T) {
	mem := seed(t)
	eng := newEngine(t, mem)
	cart := cartWith(t, eng, map[commerce.ItemID]int{"apple": 2})
	acct := account(t, mem, "cust-1")

	p, err := eng.CheckFunds(context.Background(), &acct, cart, commerce.PaymentCash, 1000)
	require.NoError(t, err)
	assert.True(t, p.Sufficient)
	assert.Equal(t, commerce.Points(1000), p.PointsRequested)
	assert.Equal(t, commerce.Points(0), p.PointsApplied)
	assert.Equal(t, "21.60", p.FinalTotal.String())
}

func TestCheckFunds_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	mem := seed(t)
	eng := newEngine(t, mem)
	acct := account(t, mem, "cust-1")

	_, err := eng.CheckFunds(ctx, &acct, checkout.NewCart(), commerce.PaymentCash, 0)
	assert.ErrorIs(t, err, commerce.ErrEmptyCart)

	cart := cartWith(t, eng, map[commerce.ItemID]int{"apple": 1})
	_, err = eng.CheckFunds(ctx, &acct, cart, "voucher", 0)
	assert.ErrorIs(t, err, commerce.ErrUnknownPaymentMethod)

	_, err = eng.PreviewAccount(ctx, "nobody", cart, commerce.PaymentCash, 0)
	assert.ErrorIs(t, err, commerce.ErrNotFound)
}
