/*
Package funds verifies and moves money on an account's two instruments.

PURPOSE:
  An account holds a cash balance and a card balance. Every check, debit
  and credit names exactly one of them; anything other than cash or card
  fails with ErrUnknownPaymentMethod before any balance is read.

CHECK-THEN-ACT:
  HasSufficientFunds is a read-only snapshot. Debit re-checks at the moment
  it runs and never relies on an earlier check still being valid. Callers
  that need both to agree must hold the account lock across the pair (see
  checkout.Engine).

GUARANTEES:
  - Amounts must be non-negative (ErrInvalidAmount).
  - Debit takes the full amount or nothing; on failure the balance is
    unchanged and *InsufficientFundsError is returned.
  - Exactly one balance changes per successful Debit or Credit.

SEE ALSO:
  - checkout/engine.go: FundsChecked and Commit steps
*/
package funds

import (
	"fmt"

	"github.com/warp/checkout-engine/commerce"
)

// HasSufficientFunds reports whether the selected balance covers amount.
func HasSufficientFunds(acct *commerce.Account, amount commerce.Money, method commerce.PaymentMethod) (bool, error) {
	if err := validate(amount, method); err != nil {
		return false, err
	}
	balance, err := acct.Balance(method)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(amount), nil
}

// Debit deducts amount from the selected balance.
func Debit(acct *commerce.Account, amount commerce.Money, method commerce.PaymentMethod) error {
	ok, err := HasSufficientFunds(acct, amount, method)
	if err != nil {
		return err
	}
	if !ok {
		available, _ := acct.Balance(method)
		return &commerce.InsufficientFundsError{
			AccountID: acct.ID,
			Method:    method,
			Available: available,
			Requested: amount,
		}
	}
	apply(acct, method, amount.Neg())
	return nil
}

// Credit adds amount to the selected balance. Used for top-ups and for
// refunding a debit whose checkout later aborted.
func Credit(acct *commerce.Account, amount commerce.Money, method commerce.PaymentMethod) error {
	if err := validate(amount, method); err != nil {
		return err
	}
	apply(acct, method, amount)
	return nil
}

func validate(amount commerce.Money, method commerce.PaymentMethod) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", commerce.ErrUnknownPaymentMethod, string(method))
	}
	if amount.IsNegative() || !amount.IsCents() {
		return fmt.Errorf("%w: %s", commerce.ErrInvalidAmount, amount.Value)
	}
	return nil
}

func apply(acct *commerce.Account, method commerce.PaymentMethod, delta commerce.Money) {
	switch method {
	case commerce.PaymentCash:
		acct.CashBalance = acct.CashBalance.Add(delta)
	case commerce.PaymentCard:
		acct.CardBalance = acct.CardBalance.Add(delta)
	}
}
