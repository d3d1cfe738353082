/*
Package sqlite provides a SQLite-backed implementation of the commerce store.

PURPOSE:
  Implements commerce.TxStore (catalog, stock, accounts, receipts and the
  movement journal) on SQLite. Amounts are stored as decimal TEXT so no
  value ever passes through a float.

INTERFACES IMPLEMENTED:
  commerce.Inventory:     Catalog lookups and atomic stock changes
  commerce.AccountStore:  Customer balances
  commerce.ReceiptStore:  Append-only purchase history
  commerce.MovementStore: Append-only journal with idempotency keys
  commerce.TxStore:       All of the above plus WithTx

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE on receipts, receipt_lines or movements
  - Receipt ids come from the sequences table and are never reused, even
    when the checkout that drew one aborts

KEY TABLES:
  items:          Catalog entries with stock (CHECK stock >= 0)
  accounts:       Cash, card and loyalty balances
  receipts:       One row per committed checkout
  receipt_lines:  Line items captured at sale time
  movements:      Journal; idempotency_key is UNIQUE

STOCK:
  DecrementStock is a single conditional UPDATE (stock >= qty), so two
  checkouts can never both take the last unit.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction.

WAL MODE:
  Opened with WAL (Write-Ahead Logging). ":memory:" databases are pinned
  to one connection, since each connection would otherwise see its own
  empty database.

MIGRATION:
  Schema is versioned under migrations/ and applied by golang-migrate from
  the embedded files on New().

USAGE:
  store, err := sqlite.New("./data/checkout.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := checkout.NewEngine(store)

SEE ALSO:
  - commerce/store.go: Interface definitions
  - commerce/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/checkout-engine/commerce"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements commerce.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ commerce.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrateUp applies the embedded migrations. The migrate instance is not
// closed because that would close db as well.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CATALOG & STOCK (commerce.Inventory)
// =============================================================================

const itemColumns = `id, name, barcode, category, unit_price, points_per_unit, stock`

func (s *Store) Item(ctx context.Context, id commerce.ItemID) (commerce.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q querier, id commerce.ItemID) (commerce.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, string(id))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commerce.Item{}, &commerce.NotFoundError{Kind: "item", ID: string(id)}
	}
	return item, err
}

func (s *Store) ItemByBarcode(ctx context.Context, barcode string) (commerce.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE barcode = ? AND barcode <> ''`, barcode)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commerce.Item{}, &commerce.NotFoundError{Kind: "item", ID: barcode}
	}
	return item, err
}

func (s *Store) Items(ctx context.Context) ([]commerce.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
}

func (s *Store) ItemsByCategory(ctx context.Context, category string) ([]commerce.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE category = ? COLLATE NOCASE ORDER BY id`, category)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]commerce.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []commerce.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) SaveItem(ctx context.Context, item commerce.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			barcode = excluded.barcode,
			category = excluded.category,
			unit_price = excluded.unit_price,
			points_per_unit = excluded.points_per_unit,
			stock = excluded.stock
	`,
		string(item.ID), item.Name, item.Barcode, item.Category,
		item.UnitPrice.String(), int64(item.PointsPerUnit), item.Stock,
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// DecrementStock removes qty units, or fails with *commerce.StockError
// leaving stock unchanged.
func (s *Store) DecrementStock(ctx context.Context, id commerce.ItemID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity %d", commerce.ErrInvalidAmount, qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		qty, string(id), qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	item, err := getItem(ctx, s.db, id)
	if err != nil {
		return err
	}
	return &commerce.StockError{ItemID: id, Available: item.Stock, Requested: qty}
}

func (s *Store) IncrementStock(ctx context.Context, id commerce.ItemID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity %d", commerce.ErrInvalidAmount, qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE items SET stock = stock + ? WHERE id = ?`, qty, string(id))
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &commerce.NotFoundError{Kind: "item", ID: string(id)}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (commerce.Item, error) {
	var (
		item          commerce.Item
		id, unitPrice string
		points        int64
	)
	if err := row.Scan(&id, &item.Name, &item.Barcode, &item.Category, &unitPrice, &points, &item.Stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("failed to scan item: %w", err)
	}
	price, err := commerce.ParseMoney(unitPrice)
	if err != nil {
		return item, err
	}
	item.ID = commerce.ItemID(id)
	item.UnitPrice = price
	item.PointsPerUnit = commerce.Points(points)
	return item, nil
}

// =============================================================================
// ACCOUNTS (commerce.AccountStore)
// =============================================================================

const accountColumns = `id, name, cash_balance, card_balance, loyalty_points`

func (s *Store) Account(ctx context.Context, id commerce.AccountID) (commerce.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, string(id))
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commerce.Account{}, &commerce.NotFoundError{Kind: "account", ID: string(id)}
	}
	return acct, err
}

func (s *Store) Accounts(ctx context.Context) ([]commerce.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []commerce.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (s *Store) SaveAccount(ctx context.Context, acct commerce.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAccount(ctx, s.db, acct)
}

func saveAccount(ctx context.Context, q querier, acct commerce.Account) error {
	if err := acct.Validate(); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cash_balance = excluded.cash_balance,
			card_balance = excluded.card_balance,
			loyalty_points = excluded.loyalty_points
	`,
		string(acct.ID), acct.Name, acct.CashBalance.String(), acct.CardBalance.String(), int64(acct.LoyaltyPoints),
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func scanAccount(row scanner) (commerce.Account, error) {
	var (
		acct       commerce.Account
		id         string
		cash, card string
		points     int64
	)
	if err := row.Scan(&id, &acct.Name, &cash, &card, &points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return acct, err
		}
		return acct, fmt.Errorf("failed to scan account: %w", err)
	}
	var err error
	if acct.CashBalance, err = commerce.ParseMoney(cash); err != nil {
		return acct, err
	}
	if acct.CardBalance, err = commerce.ParseMoney(card); err != nil {
		return acct, err
	}
	acct.ID = commerce.AccountID(id)
	acct.LoyaltyPoints = commerce.Points(points)
	return acct, nil
}

// =============================================================================
// RECEIPTS (commerce.ReceiptStore)
// =============================================================================

const receiptColumns = `id, checkout_id, account_id, payment_method, subtotal, tax, total,
	discount, final_total, points_redeemed, points_earned, issued_at`

// NextReceiptID draws the next id from the receipt sequence.
func (s *Store) NextReceiptID(ctx context.Context) (commerce.ReceiptID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE sequences SET value = value + 1 WHERE name = 'receipt' RETURNING value`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate receipt id: %w", err)
	}
	return commerce.ReceiptID(id), nil
}

func (s *Store) AppendReceipt(ctx context.Context, r *commerce.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := appendReceipt(ctx, sqlTx, r); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func appendReceipt(ctx context.Context, q querier, r *commerce.Receipt) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO receipts (`+receiptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(r.ID), r.CheckoutID, string(r.AccountID), string(r.PaymentMethod),
		r.Subtotal.String(), r.Tax.String(), r.Total.String(),
		r.Discount.String(), r.FinalTotal.String(),
		int64(r.PointsRedeemed), int64(r.PointsEarned),
		r.IssuedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("receipt %d already exists: %w", r.ID, err)
		}
		return fmt.Errorf("failed to append receipt: %w", err)
	}

	for i, l := range r.Items {
		_, err := q.ExecContext(ctx, `
			INSERT INTO receipt_lines (receipt_id, line_no, item_id, name, unit_price, points_per_unit, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			int64(r.ID), i, string(l.ItemID), l.Name, l.UnitPrice.String(), int64(l.PointsPerUnit), l.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to append receipt line: %w", err)
		}
	}
	return nil
}

func (s *Store) Receipt(ctx context.Context, id commerce.ReceiptID) (*commerce.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipts, err := s.queryReceipts(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = ?`, int64(id))
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, &commerce.NotFoundError{Kind: "receipt", ID: fmt.Sprint(int64(id))}
	}
	return receipts[0], nil
}

// Receipts returns an account's purchase history in issue order.
func (s *Store) Receipts(ctx context.Context, accountID commerce.AccountID) ([]*commerce.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReceipts(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE account_id = ? ORDER BY id ASC`,
		string(accountID))
}

// queryReceipts loads receipt headers first and their lines afterwards;
// an in-memory database has a single connection, so rows cannot nest.
func (s *Store) queryReceipts(ctx context.Context, query string, args ...any) ([]*commerce.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	var receipts []*commerce.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, r := range receipts {
		if r.Items, err = s.receiptLines(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

func (s *Store) receiptLines(ctx context.Context, id commerce.ReceiptID) ([]commerce.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, name, unit_price, points_per_unit, quantity
		FROM receipt_lines
		WHERE receipt_id = ?
		ORDER BY line_no ASC
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt lines: %w", err)
	}
	defer rows.Close()

	var lines []commerce.LineItem
	for rows.Next() {
		var (
			l             commerce.LineItem
			itemID, price string
			points        int64
		)
		if err := rows.Scan(&itemID, &l.Name, &price, &points, &l.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan receipt line: %w", err)
		}
		if l.UnitPrice, err = commerce.ParseMoney(price); err != nil {
			return nil, err
		}
		l.ItemID = commerce.ItemID(itemID)
		l.PointsPerUnit = commerce.Points(points)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanReceipt(rows *sql.Rows) (*commerce.Receipt, error) {
	var (
		r                                          commerce.Receipt
		id, redeemed, earned                       int64
		accountID, method, issuedAt                string
		subtotal, tax, total, discount, finalTotal string
	)
	err := rows.Scan(&id, &r.CheckoutID, &accountID, &method,
		&subtotal, &tax, &total, &discount, &finalTotal,
		&redeemed, &earned, &issuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan receipt: %w", err)
	}

	amounts := []struct {
		dst *commerce.Money
		src string
	}{
		{&r.Subtotal, subtotal}, {&r.Tax, tax}, {&r.Total, total},
		{&r.Discount, discount}, {&r.FinalTotal, finalTotal},
	}
	for _, a := range amounts {
		if *a.dst, err = commerce.ParseMoney(a.src); err != nil {
			return nil, err
		}
	}

	r.ID = commerce.ReceiptID(id)
	r.AccountID = commerce.AccountID(accountID)
	r.PaymentMethod = commerce.PaymentMethod(method)
	r.PointsRedeemed = commerce.Points(redeemed)
	r.PointsEarned = commerce.Points(earned)
	r.IssuedAt, _ = time.Parse(time.RFC3339Nano, issuedAt)
	return &r, nil
}

// =============================================================================
// MOVEMENTS (commerce.MovementStore)
// =============================================================================

const movementColumns = `id, account_id, kind, method, amount, points, receipt_id, checkout_id, idempotency_key, at`

// AppendMovements adds movements atomically.
func (s *Store) AppendMovements(ctx context.Context, ms []commerce.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := appendMovements(ctx, sqlTx, ms); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func appendMovements(ctx context.Context, q querier, ms []commerce.Movement) error {
	for _, m := range ms {
		_, err := q.ExecContext(ctx, `
			INSERT INTO movements (`+movementColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			string(m.ID), string(m.AccountID), string(m.Kind), string(m.Method),
			m.Amount.String(), int64(m.Points), int64(m.ReceiptID), m.CheckoutID,
			nullString(m.IdempotencyKey), m.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return commerce.ErrDuplicateIdempotencyKey
			}
			return fmt.Errorf("failed to append movement: %w", err)
		}
	}
	return nil
}

// LoadMovements returns an account's movements, oldest first.
func (s *Store) LoadMovements(ctx context.Context, accountID commerce.AccountID) ([]commerce.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadMovements(ctx, s.db, accountID)
}

func loadMovements(ctx context.Context, q querier, accountID commerce.AccountID) ([]commerce.Movement, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE account_id = ? ORDER BY seq ASC`,
		string(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var ms []commerce.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

func (s *Store) MovementExists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return movementExists(ctx, s.db, idempotencyKey)
}

func movementExists(ctx context.Context, q querier, idempotencyKey string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM movements WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func scanMovement(rows *sql.Rows) (commerce.Movement, error) {
	var (
		m                                commerce.Movement
		id, accountID, kind, method, amt string
		points, receiptID                int64
		idempotencyKey                   sql.NullString
		at                               string
	)
	err := rows.Scan(&id, &accountID, &kind, &method, &amt, &points, &receiptID,
		&m.CheckoutID, &idempotencyKey, &at)
	if err != nil {
		return m, fmt.Errorf("failed to scan movement: %w", err)
	}
	if m.Amount, err = commerce.ParseMoney(amt); err != nil {
		return m, err
	}
	m.ID = commerce.MovementID(id)
	m.AccountID = commerce.AccountID(accountID)
	m.Kind = commerce.MovementKind(kind)
	m.Method = commerce.PaymentMethod(method)
	m.Points = commerce.Points(points)
	m.ReceiptID = commerce.ReceiptID(receiptID)
	m.IdempotencyKey = idempotencyKey.String
	m.At, _ = time.Parse(time.RFC3339Nano, at)
	return m, nil
}

// =============================================================================
// TRANSACTIONAL STORE (commerce.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. Stock changes are not
// part of it; they are atomic on their own.
func (s *Store) WithTx(ctx context.Context, fn func(commerce.TxWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore runs every statement on the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveAccount(ctx context.Context, acct commerce.Account) error {
	return saveAccount(ctx, ts.tx, acct)
}

func (ts *txStore) AppendReceipt(ctx context.Context, r *commerce.Receipt) error {
	return appendReceipt(ctx, ts.tx, r)
}

func (ts *txStore) AppendMovements(ctx context.Context, ms []commerce.Movement) error {
	return appendMovements(ctx, ts.tx, ms)
}

func (ts *txStore) LoadMovements(ctx context.Context, accountID commerce.AccountID) ([]commerce.Movement, error) {
	return loadMovements(ctx, ts.tx, accountID)
}

func (ts *txStore) MovementExists(ctx context.Context, idempotencyKey string) (bool, error) {
	return movementExists(ctx, ts.tx, idempotencyKey)
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
