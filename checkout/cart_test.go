package checkout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
)

func TestCart_AddMergesLines(t *testing.T) {
	cart := checkout.NewCart()
	line := commerce.LineItem{ItemID: "apple", UnitPrice: money("10.00"), Quantity: 1}

	cart.Add(line)
	cart.Add(line)
	cart.Add(commerce.LineItem{ItemID: "apple", Quantity: 0})

	require.Equal(t, 1, cart.Len())
	assert.Equal(t, 2, cart.Quantity("apple"))
	assert.NotEmpty(t, cart.ID)
}

func TestCart_LinesSortedAndCopied(t *testing.T) {
	cart := checkout.NewCart()
	cart.Add(commerce.LineItem{ItemID: "pear", Quantity: 1})
	cart.Add(commerce.LineItem{ItemID: "apple", Quantity: 1})

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, commerce.ItemID("apple"), lines[0].ItemID)

	lines[0].Quantity = 9
	assert.Equal(t, 1, cart.Quantity("apple"))
}

func TestCart_RemoveQuantityDropsEmptyLine(t *testing.T) {
	cart := checkout.NewCart()
	cart.Add(commerce.LineItem{ItemID: "apple", Quantity: 3})

	require.NoError(t, checkout.RemoveQuantity(cart, "apple", 2))
	assert.Equal(t, 1, cart.Quantity("apple"))

	require.NoError(t, checkout.RemoveQuantity(cart, "apple", 5))
	assert.True(t, cart.IsEmpty())

	assert.ErrorIs(t, checkout.RemoveQuantity(cart, "apple", 1), commerce.ErrNotFound)
	assert.ErrorIs(t, checkout.RemoveQuantity(cart, "apple", 0), commerce.ErrInvalidAmount)
}

func TestRemoveFromCart(t *testing.T) {
	cart := checkout.NewCart()
	cart.Add(commerce.LineItem{ItemID: "apple", Quantity: 3})

	require.NoError(t, checkout.RemoveFromCart(cart, "apple"))
	assert.True(t, cart.IsEmpty())

	var nf *commerce.NotFoundError
	require.ErrorAs(t, checkout.RemoveFromCart(cart, "apple"), &nf)
	assert.Equal(t, "apple", nf.ID)
}

func TestAddToCart(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, seed(t))
	cart := checkout.NewCart()

	// Captures catalog price and points
	require.NoError(t, eng.AddToCart(ctx, cart, "apple", 2))
	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "10.00", lines[0].UnitPrice.String())
	assert.Equal(t, commerce.Points(10), lines[0].PointsPerUnit)

	assert.ErrorIs(t, eng.AddToCart(ctx, cart, "mango", 1), commerce.ErrNotFound)
	assert.ErrorIs(t, eng.AddToCart(ctx, cart, "apple", 0), commerce.ErrInvalidAmount)

	// 2 in the cart plus 9 more exceeds the 10 on the shelf
	var stockErr *commerce.StockError
	require.ErrorAs(t, eng.AddToCart(ctx, cart, "apple", 9), &stockErr)
	assert.Equal(t, 11, stockErr.Requested)
	assert.Equal(t, 2, cart.Quantity("apple"))
}

func TestScanToCart(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, seed(t))
	cart := checkout.NewCart()

	item, err := eng.ScanToCart(ctx, cart, "0002")
	require.NoError(t, err)
	assert.Equal(t, commerce.ItemID("pear"), item.ID)
	_, err = eng.ScanToCart(ctx, cart, "0002")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Quantity("pear"))

	_, err = eng.ScanToCart(ctx, cart, "9999")
	assert.ErrorIs(t, err, commerce.ErrNotFound)
}
