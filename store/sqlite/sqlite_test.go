package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveItem(ctx, commerce.Item{
		ID: "apple", Name: "Apple", Barcode: "0001", Category: "fruit",
		UnitPrice: commerce.MustMoney("10.00"), PointsPerUnit: 10, Stock: 10,
	}))
	require.NoError(t, s.SaveItem(ctx, commerce.Item{
		ID: "milk", Name: "Milk", Barcode: "0003", Category: "dairy",
		UnitPrice: commerce.MustMoney("1.25"), PointsPerUnit: 1, Stock: 3,
	}))
	require.NoError(t, s.SaveAccount(ctx, commerce.Account{
		ID: "cust-1", Name: "Ada", CashBalance: commerce.MustMoney("100.00"), CardBalance: commerce.MustMoney("10.00"),
	}))
}

func TestSQLite_Catalog(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)

	item, err := s.Item(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, "10.00", item.UnitPrice.String())
	assert.Equal(t, commerce.Points(10), item.PointsPerUnit)

	byCode, err := s.ItemByBarcode(ctx, "0003")
	require.NoError(t, err)
	assert.Equal(t, commerce.ItemID("milk"), byCode.ID)

	all, err := s.Items(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	dairy, err := s.ItemsByCategory(ctx, "Dairy")
	require.NoError(t, err)
	require.Len(t, dairy, 1)
	assert.Equal(t, commerce.ItemID("milk"), dairy[0].ID)

	_, err = s.Item(ctx, "mango")
	assert.ErrorIs(t, err, commerce.ErrNotFound)
	_, err = s.ItemByBarcode(ctx, "")
	assert.ErrorIs(t, err, commerce.ErrNotFound)
}

func TestSQLite_StockNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)

	require.NoError(t, s.DecrementStock(ctx, "milk", 2))

	var stockErr *commerce.StockError
	require.ErrorAs(t, s.DecrementStock(ctx, "milk", 2), &stockErr)
	assert.Equal(t, 1, stockErr.Available)

	require.NoError(t, s.IncrementStock(ctx, "milk", 2))
	item, err := s.Item(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Stock)

	assert.ErrorIs(t, s.DecrementStock(ctx, "mango", 1), commerce.ErrNotFound)
	assert.ErrorIs(t, s.DecrementStock(ctx, "milk", 0), commerce.ErrInvalidAmount)
}

func TestSQLite_AccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)

	acct, err := s.Account(ctx, "cust-1")
	require.NoError(t, err)
	acct.CashBalance = commerce.MustMoney("78.40")
	acct.LoyaltyPoints = 20
	require.NoError(t, s.SaveAccount(ctx, acct))

	got, err := s.Account(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "78.40", got.CashBalance.String())
	assert.Equal(t, "10.00", got.CardBalance.String())
	assert.Equal(t, commerce.Points(20), got.LoyaltyPoints)

	_, err = s.Account(ctx, "nobody")
	assert.ErrorIs(t, err, commerce.ErrNotFound)

	acct.CardBalance = commerce.MustMoney("-0.01")
	assert.ErrorIs(t, s.SaveAccount(ctx, acct), commerce.ErrInvalidAmount)
}

func TestSQLite_BalancesRoundTripExactly(t *testing.T) {
	// GIVEN: balances that used to be rounded on write
	ctx := context.Background()
	s := newStore(t)
	acct := commerce.Account{
		ID:          "cust-cents",
		CashBalance: commerce.MustMoney("0.05"),
		CardBalance: commerce.MustMoney("1234.99"),
	}
	require.NoError(t, s.SaveAccount(ctx, acct))

	// THEN: what is read back equals what was saved
	got, err := s.Account(ctx, "cust-cents")
	require.NoError(t, err)
	assert.True(t, got.CashBalance.Equal(acct.CashBalance), got.CashBalance.String())
	assert.True(t, got.CardBalance.Equal(acct.CardBalance), got.CardBalance.String())

	// AND: a balance the column cannot hold exactly is refused, not rounded
	odd := acct
	odd.CashBalance = commerce.NewMoney(decimal.RequireFromString("0.005"))
	assert.ErrorIs(t, s.SaveAccount(ctx, odd), commerce.ErrInvalidAmount)
	err = s.SaveItem(ctx, commerce.Item{ID: "odd", UnitPrice: commerce.NewMoney(decimal.RequireFromString("0.333")), Stock: 1})
	assert.ErrorIs(t, err, commerce.ErrInvalidAmount)

	got, err = s.Account(ctx, "cust-cents")
	require.NoError(t, err)
	assert.Equal(t, "0.05", got.CashBalance.String())
}

func TestSQLite_ReceiptIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var last commerce.ReceiptID
	for i := 0; i < 5; i++ {
		id, err := s.NextReceiptID(ctx)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}
}

func TestSQLite_ReceiptRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	issued := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

	id, err := s.NextReceiptID(ctx)
	require.NoError(t, err)
	r := &commerce.Receipt{
		ID:         id,
		CheckoutID: "co-1",
		AccountID:  "cust-1",
		Items: []commerce.LineItem{
			{ItemID: "apple", Name: "Apple", UnitPrice: commerce.MustMoney("10.00"), PointsPerUnit: 10, Quantity: 2},
		},
		Subtotal:       commerce.MustMoney("20.00"),
		Tax:            commerce.MustMoney("1.60"),
		Total:          commerce.MustMoney("21.60"),
		Discount:       commerce.MustMoney("1.00"),
		FinalTotal:     commerce.MustMoney("20.60"),
		PaymentMethod:  commerce.PaymentCash,
		PointsRedeemed: 100,
		IssuedAt:       issued,
	}
	require.NoError(t, s.AppendReceipt(ctx, r))

	got, err := s.Receipt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "20.60", got.FinalTotal.String())
	assert.Equal(t, commerce.Points(100), got.PointsRedeemed)
	assert.True(t, issued.Equal(got.IssuedAt))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	history, err := s.Receipts(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	assert.Error(t, s.AppendReceipt(ctx, r), "receipts are append-only")

	_, err = s.Receipt(ctx, 999)
	assert.ErrorIs(t, err, commerce.ErrNotFound)
}

func TestSQLite_MovementIdempotency(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	journal := commerce.NewJournal(s)

	m := commerce.Movement{
		AccountID:      "cust-1",
		Kind:           commerce.MoveDebit,
		Method:         commerce.PaymentCash,
		Amount:         commerce.MustMoney("21.60"),
		IdempotencyKey: "co-1:debit",
	}
	require.NoError(t, journal.Append(ctx, m))
	assert.ErrorIs(t, journal.Append(ctx, m), commerce.ErrDuplicateIdempotencyKey)

	exists, err := s.MovementExists(ctx, "co-1:debit")
	require.NoError(t, err)
	assert.True(t, exists)

	moves, err := journal.Movements(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "21.60", moves[0].Amount.String())
	assert.NotEmpty(t, moves[0].ID)
}

func TestSQLite_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)

	err := s.WithTx(ctx, func(w commerce.TxWriter) error {
		require.NoError(t, w.SaveAccount(ctx, commerce.Account{ID: "cust-1", CashBalance: commerce.Zero, CardBalance: commerce.Zero}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	acct, err := s.Account(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", acct.CashBalance.String())
}

func TestSQLite_CheckoutEndToEnd(t *testing.T) {
	// GIVEN: The engine running on SQLite
	// WHEN: Checking out two apples with cash
	// THEN: Account, stock, receipt and journal are all persisted

	ctx := context.Background()
	s := newStore(t)
	seed(t, s)
	eng := checkout.NewEngine(s)

	cart := checkout.NewCart()
	require.NoError(t, eng.AddToCart(ctx, cart, "apple", 2))

	res, err := eng.CheckoutAccount(ctx, "cust-1", cart, commerce.PaymentCash, 0)
	require.NoError(t, err)
	require.True(t, res.Committed(), "abort: %v", res.Err())

	acct, err := s.Account(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "78.40", acct.CashBalance.String())
	assert.Equal(t, commerce.Points(20), acct.LoyaltyPoints)

	item, err := s.Item(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, 8, item.Stock)

	history, err := s.Receipts(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Receipt.ID, history[0].ID)

	moves, err := s.LoadMovements(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, moves, 2)
}
