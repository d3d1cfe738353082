package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/commerce/store"
)

func seeded(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveItem(ctx, commerce.Item{
		ID: "apple", Name: "Apple", Barcode: "111", Category: "Produce",
		UnitPrice: commerce.MustMoney("10.00"), PointsPerUnit: 10, Stock: 3,
	}))
	require.NoError(t, mem.SaveItem(ctx, commerce.Item{
		ID: "bread", Name: "Bread", Barcode: "222", Category: "Bakery",
		UnitPrice: commerce.MustMoney("2.50"), PointsPerUnit: 2, Stock: 5,
	}))
	require.NoError(t, mem.SaveAccount(ctx, commerce.Account{
		ID: "cust-1", Name: "Ada", CashBalance: commerce.MustMoney("100"),
	}))
	return mem
}

func TestMemory_CatalogLookups(t *testing.T) {
	ctx := context.Background()
	mem := seeded(t)

	byCode, err := mem.ItemByBarcode(ctx, "222")
	require.NoError(t, err)
	assert.Equal(t, commerce.ItemID("bread"), byCode.ID)

	produce, err := mem.ItemsByCategory(ctx, "produce")
	require.NoError(t, err)
	require.Len(t, produce, 1)
	assert.Equal(t, commerce.ItemID("apple"), produce[0].ID)

	all, err := mem.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, commerce.ItemID("apple"), all[0].ID)
	assert.Equal(t, commerce.ItemID("bread"), all[1].ID)

	_, err = mem.Item(ctx, "kiwi")
	assert.True(t, commerce.IsNotFound(err))
}

func TestMemory_SaveItem_RejectsInvalidItems(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	bad := []commerce.Item{
		{ID: "neg-price", UnitPrice: commerce.MustMoney("-0.50"), Stock: 1},
		{ID: "neg-points", UnitPrice: commerce.MustMoney("0.50"), PointsPerUnit: -1, Stock: 1},
		{ID: "neg-stock", UnitPrice: commerce.MustMoney("0.50"), Stock: -1},
		{ID: "sub-cent", UnitPrice: commerce.NewMoney(decimal.RequireFromString("0.333")), Stock: 1},
	}
	for _, it := range bad {
		assert.ErrorIs(t, mem.SaveItem(ctx, it), commerce.ErrInvalidAmount, string(it.ID))
	}

	items, err := mem.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = mem.SaveAccount(ctx, commerce.Account{ID: "cust-x", CashBalance: commerce.NewMoney(decimal.RequireFromString("1.005"))})
	assert.ErrorIs(t, err, commerce.ErrInvalidAmount)
}

func TestMemory_DecrementStock_NeverNegative(t *testing.T) {
	ctx := context.Background()
	mem := seeded(t)

	// WHEN: more is requested than is on the shelf
	err := mem.DecrementStock(ctx, "apple", 4)

	// THEN: nothing changes
	var stockErr *commerce.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
	item, _ := mem.Item(ctx, "apple")
	assert.Equal(t, 3, item.Stock)

	require.NoError(t, mem.DecrementStock(ctx, "apple", 3))
	require.NoError(t, mem.IncrementStock(ctx, "apple", 1))
	item, _ = mem.Item(ctx, "apple")
	assert.Equal(t, 1, item.Stock)
}

func TestMemory_ConcurrentDecrement(t *testing.T) {
	ctx := context.Background()
	mem := seeded(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if mem.DecrementStock(ctx, "bread", 1) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	item, _ := mem.Item(ctx, "bread")
	assert.Equal(t, 0, item.Stock)
}

func TestMemory_ReceiptIDsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	prev := commerce.ReceiptID(0)
	for i := 0; i < 5; i++ {
		id, err := mem.NextReceiptID(ctx)
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	mem := seeded(t)
	boom := errors.New("boom")

	// WHEN: the transaction writes and then fails
	err := mem.WithTx(ctx, func(w commerce.TxWriter) error {
		require.NoError(t, w.SaveAccount(ctx, commerce.Account{ID: "cust-1", CashBalance: commerce.Zero}))
		require.NoError(t, w.AppendReceipt(ctx, &commerce.Receipt{ID: 1, AccountID: "cust-1"}))
		require.NoError(t, w.AppendMovements(ctx, []commerce.Movement{{AccountID: "cust-1", IdempotencyKey: "k1"}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// THEN: every write is undone
	acct, err := mem.Account(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", acct.CashBalance.String())

	receipts, err := mem.Receipts(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, receipts)

	exists, err := mem.MovementExists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestJournal_RejectsDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	j := commerce.NewJournal(store.NewMemory())

	first := commerce.Movement{AccountID: "cust-1", Kind: commerce.MoveDebit, IdempotencyKey: "c1:debit"}
	require.NoError(t, j.Append(ctx, first))

	// GIVEN: the same key again, alone or inside a batch
	assert.ErrorIs(t, j.Append(ctx, first), commerce.ErrDuplicateIdempotencyKey)
	batch := []commerce.Movement{
		{AccountID: "cust-1", Kind: commerce.MoveRedeem, IdempotencyKey: "c2:redeem"},
		{AccountID: "cust-1", Kind: commerce.MoveRedeem, IdempotencyKey: "c2:redeem"},
	}
	assert.ErrorIs(t, j.AppendBatch(ctx, batch), commerce.ErrDuplicateIdempotencyKey)

	// THEN: only the first movement is recorded, with an id and timestamp
	ms, err := j.Movements(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.NotEmpty(t, ms[0].ID)
	assert.False(t, ms[0].At.IsZero())
}
