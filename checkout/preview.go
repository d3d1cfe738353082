package checkout

import (
	"context"

	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/funds"
	"github.com/warp/checkout-engine/pricing"
)

// Preview is what a checkout would do right now, without doing it.
type Preview struct {
	Totals          pricing.Totals
	Method          commerce.PaymentMethod
	PointsRequested commerce.Points
	PointsApplied   commerce.Points
	Discount        commerce.Money
	FinalTotal      commerce.Money
	Available       commerce.Money
	Sufficient      bool
}

// Shortfall is how much is missing, zero when the funds cover the total.
func (p Preview) Shortfall() commerce.Money {
	if p.Sufficient {
		return commerce.Zero
	}
	return p.FinalTotal.Sub(p.Available)
}

// CheckFunds prices the cart and checks the balance the way a checkout
// would. It never mutates acct, the cart or the store: the discount is
// quoted, not redeemed.
func (e *Engine) CheckFunds(
	_ context.Context,
	acct *commerce.Account,
	cart *Cart,
	method commerce.PaymentMethod,
	pointsToRedeem commerce.Points,
) (Preview, error) {
	if acct == nil {
		return Preview{}, &commerce.NotFoundError{Kind: "account"}
	}
	if err := validate(cart, method, pointsToRedeem); err != nil {
		return Preview{}, err
	}

	unlock := e.locks.lock(acct.ID)
	defer unlock()

	q := e.quote(acct, cart.Lines(), pointsToRedeem)
	ok, err := funds.HasSufficientFunds(acct, q.finalTotal, method)
	if err != nil {
		return Preview{}, err
	}
	available, _ := acct.Balance(method)

	return Preview{
		Totals:          q.totals,
		Method:          method,
		PointsRequested: pointsToRedeem,
		PointsApplied:   q.redeem,
		Discount:        q.discount,
		FinalTotal:      q.finalTotal,
		Available:       available,
		Sufficient:      ok,
	}, nil
}

// PreviewAccount is CheckFunds for a stored account.
func (e *Engine) PreviewAccount(
	ctx context.Context,
	accountID commerce.AccountID,
	cart *Cart,
	method commerce.PaymentMethod,
	pointsToRedeem commerce.Points,
) (Preview, error) {
	acct, err := e.store.Account(ctx, accountID)
	if err != nil {
		return Preview{}, err
	}
	return e.CheckFunds(ctx, &acct, cart, method, pointsToRedeem)
}
