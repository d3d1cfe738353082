/*
journal.go - Append-only movement journal

PURPOSE:
  Every debit, credit, refund, redemption, accrual and restoration is
  recorded here. Account balances are kept as fields for fast reads; the
  journal explains how they got there.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. IDEMPOTENT: Same idempotency key = rejected as duplicate.
  3. COMPENSATION, NOT EDITS: An aborted commit is recorded as refund /
     restore movements, never by removing the original entries.

EXAMPLE FLOW:
  1. Checkout debits 21.60 cash:  debit  -21.60
  2. Stock decrement fails:        refund +21.60
  Both stay in the journal; the net effect is zero.

SEE ALSO:
  - store.go: MovementStore persistence interface
*/
package commerce

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Journal is the audit trail of account changes.
type Journal interface {
	// Append records a single movement. Fails if its idempotency key exists.
	Append(ctx context.Context, m Movement) error

	// AppendBatch records movements atomically.
	AppendBatch(ctx context.Context, ms []Movement) error

	// Movements returns an account's movements, oldest first.
	Movements(ctx context.Context, accountID AccountID) ([]Movement, error)
}

// DefaultJournal implements Journal on a MovementStore.
type DefaultJournal struct {
	Store MovementStore
}

func NewJournal(store MovementStore) *DefaultJournal {
	return &DefaultJournal{Store: store}
}

func (j *DefaultJournal) Append(ctx context.Context, m Movement) error {
	return j.AppendBatch(ctx, []Movement{m})
}

func (j *DefaultJournal) AppendBatch(ctx context.Context, ms []Movement) error {
	seen := make(map[string]bool, len(ms))
	for i := range ms {
		ms[i] = ms[i].withDefaults()
		key := ms[i].IdempotencyKey
		if key == "" {
			continue
		}
		if seen[key] {
			return ErrDuplicateIdempotencyKey
		}
		seen[key] = true
		exists, err := j.Store.MovementExists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return j.Store.AppendMovements(ctx, ms)
}

func (j *DefaultJournal) Movements(ctx context.Context, accountID AccountID) ([]Movement, error) {
	return j.Store.LoadMovements(ctx, accountID)
}

// withDefaults fills in an id and timestamp when the caller left them empty.
func (m Movement) withDefaults() Movement {
	if m.ID == "" {
		m.ID = MovementID(uuid.NewString())
	}
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	return m
}
