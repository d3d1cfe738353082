/*
Package loyalty tracks customer loyalty points.

PURPOSE:
  Converts between purchases, points and discounts. Points are earned per
  unit bought and redeemed at a fixed rate of 100 points per currency unit.

RULES:
  1. Earnable points = Σ pointsPerUnit × quantity, never negative.
  2. Accrual and redemption are mutually exclusive within one checkout:
     a checkout that redeems points earns nothing.
  3. Redeem fails without touching the balance when the request is
     negative (ErrInvalidAmount) or above the balance (ErrInsufficientPoints).
  4. The ledger clamps only to the point balance, never to a cart total.
     Capping a discount to the total is the caller's job.

TWO-PHASE USE:
  Quote converts points to a discount without touching any account. The
  checkout engine prices with Quote first and calls Redeem only once funds
  are known to be sufficient, so a failed checkout never burns points.

EXAMPLE:
  acct.LoyaltyPoints = 500
  discount, _ := loyalty.Redeem(&acct, 100)   // discount = 1.00, balance 400

SEE ALSO:
  - checkout/engine.go: Applies the discount and decides accrual
*/
package loyalty

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/checkout-engine/commerce"
)

var rate = decimal.NewFromInt(commerce.PointsPerCurrencyUnit)

// PointsEarnable returns the points a purchase of lines would earn.
func PointsEarnable(lines []commerce.LineItem) commerce.Points {
	var total commerce.Points
	for _, l := range lines {
		if p := l.LinePoints(); p > 0 {
			total += p
		}
	}
	return total
}

// Quote converts points to a discount without side effects.
func Quote(points commerce.Points) (commerce.Money, error) {
	if points < 0 {
		return commerce.Money{}, fmt.Errorf("%w: points %d", commerce.ErrInvalidAmount, points)
	}
	return commerce.NewMoney(decimal.NewFromInt(int64(points)).Div(rate)), nil
}

// PointsFor is the inverse of Quote: the points worth exactly amount,
// rounded up to a whole point.
func PointsFor(amount commerce.Money) commerce.Points {
	if !amount.IsPositive() {
		return 0
	}
	return commerce.Points(amount.Value.Mul(rate).Ceil().IntPart())
}

// Redeem deducts points from acct and returns the discount they buy.
// Deduction and conversion are atomic: on error nothing changed.
func Redeem(acct *commerce.Account, points commerce.Points) (commerce.Money, error) {
	discount, err := Quote(points)
	if err != nil {
		return commerce.Money{}, err
	}
	if points > acct.LoyaltyPoints {
		return commerce.Money{}, &commerce.InsufficientPointsError{
			AccountID: acct.ID,
			Available: acct.LoyaltyPoints,
			Requested: points,
		}
	}
	acct.LoyaltyPoints -= points
	return discount, nil
}

// Accrue adds earned points to acct.
func Accrue(acct *commerce.Account, points commerce.Points) error {
	if points < 0 {
		return fmt.Errorf("%w: points %d", commerce.ErrInvalidAmount, points)
	}
	acct.LoyaltyPoints += points
	return nil
}

// Restore gives back points taken by Redeem in a checkout that later
// aborted.
func Restore(acct *commerce.Account, points commerce.Points) error {
	return Accrue(acct, points)
}

// Revoke takes back points granted by Accrue in a checkout that later
// aborted. It refuses to drive the balance negative.
func Revoke(acct *commerce.Account, points commerce.Points) error {
	_, err := Redeem(acct, points)
	return err
}
