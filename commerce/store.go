/*
store.go - Persistence interfaces for the checkout engine

PURPOSE:
  Defines the interface between the checkout logic and storage. The engine
  borrows catalog, account and receipt data from long-lived stores for the
  duration of one checkout and never retains references past it.

KEY INTERFACES:
  Catalog:       Item lookup by id, barcode and category
  Inventory:     Catalog plus atomic compare-and-decrement of stock
  AccountStore:  Customer accounts (load / save)
  ReceiptStore:  Append-only purchase history with a monotonic id sequence
  MovementStore: Append-only journal of balance and points changes
  Store:         All of the above
  TxStore:       Store with atomic commit of account + receipt + journal

APPEND-ONLY CONTRACT:
  Receipts and movements are never updated or deleted. Receipt ids come
  from a sequence owned by the store and are never reused, even when a
  checkout aborts after allocating one.

STOCK CONTRACT:
  DecrementStock must be atomic: it either subtracts the full quantity or
  fails with *StockError leaving stock unchanged. It never drives stock
  negative.

IMPLEMENTATIONS:
  - commerce/store/memory.go: In-memory for tests and the default server
  - store/sqlite/sqlite.go:   SQLite with golang-migrate managed schema

SEE ALSO:
  - journal.go: Journal built on MovementStore
  - checkout/engine.go: The only writer during checkout
*/
package commerce

import "context"

// =============================================================================
// CATALOG & INVENTORY
// =============================================================================

// Catalog looks up items. Missing items yield *NotFoundError.
type Catalog interface {
	Item(ctx context.Context, id ItemID) (Item, error)
	ItemByBarcode(ctx context.Context, barcode string) (Item, error)
	Items(ctx context.Context) ([]Item, error)
	ItemsByCategory(ctx context.Context, category string) ([]Item, error)
}

// Inventory is a Catalog whose stock levels can be adjusted.
type Inventory interface {
	Catalog

	// SaveItem creates or replaces a catalog entry including its stock.
	SaveItem(ctx context.Context, item Item) error

	// DecrementStock atomically subtracts qty, or fails with *StockError.
	DecrementStock(ctx context.Context, id ItemID, qty int) error

	// IncrementStock adds qty back (restock or compensation).
	IncrementStock(ctx context.Context, id ItemID, qty int) error
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountStore persists customer accounts. Account returns a copy; changes
// take effect only through SaveAccount.
type AccountStore interface {
	Account(ctx context.Context, id AccountID) (Account, error)
	Accounts(ctx context.Context) ([]Account, error)
	SaveAccount(ctx context.Context, acct Account) error
}

// =============================================================================
// RECEIPTS - Purchase history
// =============================================================================

// ReceiptStore is the append-only purchase history.
type ReceiptStore interface {
	// NextReceiptID allocates the next id. Ids strictly increase.
	NextReceiptID(ctx context.Context) (ReceiptID, error)

	// AppendReceipt persists a receipt. This is the ONLY write operation.
	AppendReceipt(ctx context.Context, r *Receipt) error

	// Receipt returns one receipt by id.
	Receipt(ctx context.Context, id ReceiptID) (*Receipt, error)

	// Receipts returns an account's purchase history, oldest first.
	Receipts(ctx context.Context, accountID AccountID) ([]*Receipt, error)
}

// =============================================================================
// MOVEMENTS - Journal persistence
// =============================================================================

// MovementStore persists journal movements. Append-only.
type MovementStore interface {
	// AppendMovements persists movements atomically. Either all succeed or
	// none do; a repeated idempotency key fails the whole batch.
	AppendMovements(ctx context.Context, ms []Movement) error

	// LoadMovements returns an account's movements, oldest first.
	LoadMovements(ctx context.Context, accountID AccountID) ([]Movement, error)

	// MovementExists checks if an idempotency key was already journaled.
	MovementExists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// COMBINED & TRANSACTIONAL STORE
// =============================================================================

// Store is everything the engine and the API need.
type Store interface {
	Inventory
	AccountStore
	ReceiptStore
	MovementStore
}

// TxWriter is the write surface available inside WithTx.
type TxWriter interface {
	MovementStore
	SaveAccount(ctx context.Context, acct Account) error
	AppendReceipt(ctx context.Context, r *Receipt) error
}

// TxStore wraps Store with transaction support.
// Use this to commit an account, its receipt and its movements together.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(TxWriter) error) error
}
