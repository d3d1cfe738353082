/*
errors.go - Centralized error types for the checkout engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every business failure is recoverable; none is fatal to the process.

ERROR CATEGORIES:
  1. Validation errors - rejected before any mutation (empty cart,
     unknown payment method, invalid amount)
  2. Insufficiency errors - funds, points or stock ran short
  3. Lookup errors - item, account or cart not found
  4. Journal errors - duplicate idempotency keys

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, commerce.ErrInsufficientFunds) { ... }

    var short *commerce.InsufficientFundsError
    if errors.As(err, &short) {
        log.Printf("short by %s", short.Shortfall)
    }

SEE ALSO:
  - checkout/result.go: AbortError wraps these as checkout outcomes
*/
package commerce

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrUnknownPaymentMethod is returned for any instrument other than cash or card.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// ErrInsufficientFunds is returned when the selected balance cannot cover an amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPoints is returned when redeeming more points than the balance holds.
	ErrInsufficientPoints = errors.New("insufficient loyalty points")

	// ErrInvalidAmount is returned for negative amounts, quantities below 1
	// or unparsable numbers.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound is returned when an item, account or cart does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating an account whose id is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrStockUnavailable is returned when a stock decrement would go negative.
	ErrStockUnavailable = errors.New("stock unavailable")

	// ErrDuplicateIdempotencyKey is returned when a movement with the same
	// idempotency key was already journaled.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrReceiptMismatch is returned when a receipt's recomputed figures
	// disagree with the figures the checkout was priced at.
	ErrReceiptMismatch = errors.New("receipt figures do not match checkout totals")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	AccountID AccountID
	Method    PaymentMethod
	Available Money
	Requested Money
}

func (e *InsufficientFundsError) Shortfall() Money {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %s balance %s, requested %s, shortfall %s",
		e.Method, e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientPointsError provides details about a points shortage.
type InsufficientPointsError struct {
	AccountID AccountID
	Available Points
	Requested Points
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient loyalty points: available %d, requested %d",
		e.Available, e.Requested)
}

func (e *InsufficientPointsError) Unwrap() error { return ErrInsufficientPoints }

// StockError reports which item could not be decremented.
type StockError struct {
	ItemID    ItemID
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("stock unavailable for %s: available %d, requested %d",
		e.ItemID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrStockUnavailable }

// NotFoundError names the missing thing.
type NotFoundError struct {
	Kind string // "item", "account", "cart", "receipt"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrUnknownPaymentMethod) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsInsufficient returns true for funds, points and stock shortages.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrStockUnavailable)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
