// Package store provides in-memory commerce.Store implementations.
package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/warp/checkout-engine/commerce"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	items       map[commerce.ItemID]commerce.Item
	accounts    map[commerce.AccountID]commerce.Account
	receipts    []*commerce.Receipt
	movements   map[commerce.AccountID][]commerce.Movement
	idempotency map[string]bool

	receiptSeq atomic.Int64
}

var _ commerce.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		items:       make(map[commerce.ItemID]commerce.Item),
		accounts:    make(map[commerce.AccountID]commerce.Account),
		movements:   make(map[commerce.AccountID][]commerce.Movement),
		idempotency: make(map[string]bool),
	}
}

// =============================================================================
// CATALOG & STOCK
// =============================================================================

func (m *Memory) Item(_ context.Context, id commerce.ItemID) (commerce.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return commerce.Item{}, &commerce.NotFoundError{Kind: "item", ID: string(id)}
	}
	return item, nil
}

func (m *Memory) ItemByBarcode(_ context.Context, barcode string) (commerce.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.items {
		if item.Barcode != "" && item.Barcode == barcode {
			return item, nil
		}
	}
	return commerce.Item{}, &commerce.NotFoundError{Kind: "item", ID: barcode}
}

func (m *Memory) Items(_ context.Context) ([]commerce.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedItems(func(commerce.Item) bool { return true }), nil
}

func (m *Memory) ItemsByCategory(_ context.Context, category string) ([]commerce.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedItems(func(it commerce.Item) bool {
		return strings.EqualFold(it.Category, category)
	}), nil
}

func (m *Memory) sortedItems(keep func(commerce.Item) bool) []commerce.Item {
	result := make([]commerce.Item, 0, len(m.items))
	for _, item := range m.items {
		if keep(item) {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) SaveItem(_ context.Context, item commerce.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

// DecrementStock is compare-and-decrement under the write lock.
func (m *Memory) DecrementStock(_ context.Context, id commerce.ItemID, qty int) error {
	if qty <= 0 {
		return commerce.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return &commerce.NotFoundError{Kind: "item", ID: string(id)}
	}
	if item.Stock < qty {
		return &commerce.StockError{ItemID: id, Available: item.Stock, Requested: qty}
	}
	item.Stock -= qty
	m.items[id] = item
	return nil
}

func (m *Memory) IncrementStock(_ context.Context, id commerce.ItemID, qty int) error {
	if qty <= 0 {
		return commerce.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return &commerce.NotFoundError{Kind: "item", ID: string(id)}
	}
	item.Stock += qty
	m.items[id] = item
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) Account(_ context.Context, id commerce.AccountID) (commerce.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[id]
	if !ok {
		return commerce.Account{}, &commerce.NotFoundError{Kind: "account", ID: string(id)}
	}
	return acct, nil
}

func (m *Memory) Accounts(_ context.Context) ([]commerce.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]commerce.Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		result = append(result, acct)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveAccount(_ context.Context, acct commerce.Account) error {
	if err := acct.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.ID] = acct
	return nil
}

// =============================================================================
// RECEIPTS
// =============================================================================

// NextReceiptID is lock-free; ids are never reused.
func (m *Memory) NextReceiptID(_ context.Context) (commerce.ReceiptID, error) {
	return commerce.ReceiptID(m.receiptSeq.Add(1)), nil
}

func (m *Memory) AppendReceipt(_ context.Context, r *commerce.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, r.Clone())
	return nil
}

func (m *Memory) Receipt(_ context.Context, id commerce.ReceiptID) (*commerce.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.receipts {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, &commerce.NotFoundError{Kind: "receipt", ID: idString(id)}
}

func (m *Memory) Receipts(_ context.Context, accountID commerce.AccountID) ([]*commerce.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*commerce.Receipt
	for _, r := range m.receipts {
		if r.AccountID == accountID {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func (m *Memory) AppendMovements(_ context.Context, ms []commerce.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendMovementsLocked(ms)
}

func (m *Memory) appendMovementsLocked(ms []commerce.Movement) error {
	// Check all idempotency keys first (atomic check)
	seen := make(map[string]bool, len(ms))
	for _, mv := range ms {
		if mv.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[mv.IdempotencyKey] || seen[mv.IdempotencyKey] {
			return commerce.ErrDuplicateIdempotencyKey
		}
		seen[mv.IdempotencyKey] = true
	}
	for _, mv := range ms {
		m.movements[mv.AccountID] = append(m.movements[mv.AccountID], mv)
		if mv.IdempotencyKey != "" {
			m.idempotency[mv.IdempotencyKey] = true
		}
	}
	return nil
}

func (m *Memory) LoadMovements(_ context.Context, accountID commerce.AccountID) ([]commerce.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]commerce.Movement, len(m.movements[accountID]))
	copy(result, m.movements[accountID])
	return result, nil
}

func (m *Memory) MovementExists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// Stock is not part of the snapshot; it is adjusted outside transactions.
func (m *Memory) WithTx(_ context.Context, fn func(commerce.TxWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts    map[commerce.AccountID]commerce.Account
	receipts    []*commerce.Receipt
	movements   map[commerce.AccountID][]commerce.Movement
	idempotency map[string]bool
}

func (m *Memory) snapshot() memorySnapshot {
	accounts := make(map[commerce.AccountID]commerce.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	movements := make(map[commerce.AccountID][]commerce.Movement, len(m.movements))
	for k, v := range m.movements {
		movements[k] = append([]commerce.Movement{}, v...)
	}
	idempotency := make(map[string]bool, len(m.idempotency))
	for k, v := range m.idempotency {
		idempotency[k] = v
	}
	return memorySnapshot{
		accounts:    accounts,
		receipts:    append([]*commerce.Receipt{}, m.receipts...),
		movements:   movements,
		idempotency: idempotency,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.receipts = s.receipts
	m.movements = s.movements
	m.idempotency = s.idempotency
}

// txView writes through to the parent, whose lock WithTx already holds.
type txView struct {
	parent *Memory
}

func (tv *txView) SaveAccount(_ context.Context, acct commerce.Account) error {
	if err := acct.Validate(); err != nil {
		return err
	}
	tv.parent.accounts[acct.ID] = acct
	return nil
}

func (tv *txView) AppendReceipt(_ context.Context, r *commerce.Receipt) error {
	tv.parent.receipts = append(tv.parent.receipts, r.Clone())
	return nil
}

func (tv *txView) AppendMovements(_ context.Context, ms []commerce.Movement) error {
	return tv.parent.appendMovementsLocked(ms)
}

func (tv *txView) LoadMovements(_ context.Context, accountID commerce.AccountID) ([]commerce.Movement, error) {
	return append([]commerce.Movement{}, tv.parent.movements[accountID]...), nil
}

func (tv *txView) MovementExists(_ context.Context, idempotencyKey string) (bool, error) {
	return tv.parent.idempotency[idempotencyKey], nil
}

func idString(id commerce.ReceiptID) string {
	return strconv.FormatInt(int64(id), 10)
}
