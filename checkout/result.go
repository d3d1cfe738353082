package checkout

import (
	"errors"
	"fmt"

	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/pricing"
)

// =============================================================================
// ABORT REASONS
// =============================================================================

// AbortReason classifies why a checkout did not commit.
type AbortReason string

const (
	ReasonEmptyCart            AbortReason = "empty_cart"
	ReasonUnknownPaymentMethod AbortReason = "unknown_payment_method"
	ReasonInvalidAmount        AbortReason = "invalid_amount"
	ReasonInsufficientFunds    AbortReason = "insufficient_funds"
	ReasonInsufficientPoints   AbortReason = "insufficient_points"
	ReasonNotFound             AbortReason = "not_found"
	ReasonStockUnavailable     AbortReason = "stock_unavailable"
	ReasonReceiptMismatch      AbortReason = "receipt_mismatch"
	ReasonInternal             AbortReason = "internal"
)

// ReasonFor maps an error to its abort reason.
func ReasonFor(err error) AbortReason {
	switch {
	case errors.Is(err, commerce.ErrEmptyCart):
		return ReasonEmptyCart
	case errors.Is(err, commerce.ErrUnknownPaymentMethod):
		return ReasonUnknownPaymentMethod
	case errors.Is(err, commerce.ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, commerce.ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, commerce.ErrInsufficientPoints):
		return ReasonInsufficientPoints
	case errors.Is(err, commerce.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, commerce.ErrStockUnavailable):
		return ReasonStockUnavailable
	case errors.Is(err, commerce.ErrReceiptMismatch):
		return ReasonReceiptMismatch
	default:
		return ReasonInternal
	}
}

// AbortError is the failure half of a checkout result.
type AbortError struct {
	Reason AbortReason
	At     State // State the machine was in when it aborted
	Err    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("checkout aborted at %s (%s): %v", e.At, e.Reason, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// PartialCommitWarning reports a compensation step that failed while
// unwinding an aborted commit. The account or stock named by Step may not
// match its pre-checkout value and needs manual reconciliation.
type PartialCommitWarning struct {
	CheckoutID string
	Step       string
	Err        error
}

func (w *PartialCommitWarning) Error() string {
	return fmt.Sprintf("partial commit in checkout %s: compensation %q failed: %v", w.CheckoutID, w.Step, w.Err)
}

func (w *PartialCommitWarning) Unwrap() error { return w.Err }

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of one checkout attempt: either a Receipt
// (Committed) or an Abort (Aborted), never both.
type Result struct {
	CheckoutID string
	State      State
	Receipt    *commerce.Receipt
	Abort      *AbortError
	Warnings   []error

	// Pricing as computed by the engine, also set on aborts past Totaling.
	Totals         pricing.Totals
	Discount       commerce.Money
	FinalTotal     commerce.Money
	PointsRedeemed commerce.Points
}

func (r Result) Committed() bool { return r.State == StateCommitted }

// Err returns the abort as an error, or nil for a committed checkout.
func (r Result) Err() error {
	if r.Abort == nil {
		return nil
	}
	return r.Abort
}

// Reason returns the abort reason, or "" for a committed checkout.
func (r Result) Reason() AbortReason {
	if r.Abort == nil {
		return ""
	}
	return r.Abort.Reason
}
