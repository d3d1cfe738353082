/*
Package receipt freezes a checkout into an immutable record.

PURPOSE:
  A receipt captures everything needed to print or audit a sale: the lines
  bought, subtotal, tax, total, discount, payment method, points redeemed
  and earned, a timestamp and a sequential id.

IMMUTABILITY:
  Build deep-copies the lines, so later cart changes cannot reach an issued
  receipt. Stores clone on every read and write.

CONSISTENCY CHECK:
  Build recomputes totals from the captured lines on its own. Verify then
  compares those figures with the ones the checkout priced at; any
  difference is ErrReceiptMismatch and the checkout aborts before money
  moves.

POINTS:
  pointsEarned = pointsRedeemed > 0 ? 0 : earnable(lines)

SEE ALSO:
  - checkout/engine.go: Builds, verifies and issues receipts at commit
  - commerce/store.go: ReceiptStore (purchase history)
*/
package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/loyalty"
	"github.com/warp/checkout-engine/pricing"
)

// Builder creates receipts.
type Builder struct {
	Calculator *pricing.Calculator
	Clock      func() time.Time
}

func NewBuilder(calc *pricing.Calculator) *Builder {
	return &Builder{
		Calculator: calc,
		Clock:      func() time.Time { return time.Now().UTC() },
	}
}

// Draft is what the checkout knows when it asks for a receipt.
type Draft struct {
	ID             commerce.ReceiptID
	CheckoutID     string
	AccountID      commerce.AccountID
	Lines          []commerce.LineItem
	Method         commerce.PaymentMethod
	Discount       commerce.Money
	PointsRedeemed commerce.Points
}

// Build freezes d into a receipt, recomputing every figure from d.Lines.
func (b *Builder) Build(d Draft) *commerce.Receipt {
	items := commerce.CloneLines(d.Lines)
	totals := b.Calculator.ComputeTotals(items)

	earned := commerce.Points(0)
	if d.PointsRedeemed == 0 {
		earned = loyalty.PointsEarnable(items)
	}

	return &commerce.Receipt{
		ID:             d.ID,
		CheckoutID:     d.CheckoutID,
		AccountID:      d.AccountID,
		Items:          items,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		Total:          totals.Total,
		Discount:       d.Discount,
		FinalTotal:     totals.Total.Sub(d.Discount),
		PaymentMethod:  d.Method,
		PointsRedeemed: d.PointsRedeemed,
		PointsEarned:   earned,
		IssuedAt:       b.Clock(),
	}
}

// Verify checks a receipt against the totals and discount a checkout
// priced at.
func Verify(r *commerce.Receipt, totals pricing.Totals, discount commerce.Money) error {
	got := pricing.Totals{Subtotal: r.Subtotal, Tax: r.Tax, Total: r.Total}
	if !got.Equal(totals) {
		return fmt.Errorf("%w: receipt total %s, checkout total %s",
			commerce.ErrReceiptMismatch, r.Total, totals.Total)
	}
	if !r.Discount.Equal(discount) || !r.FinalTotal.Equal(totals.Total.Sub(discount)) {
		return fmt.Errorf("%w: receipt final %s, discount %s",
			commerce.ErrReceiptMismatch, r.FinalTotal, discount)
	}
	return nil
}

// Appender is the single write operation of a purchase-history log.
type Appender interface {
	AppendReceipt(ctx context.Context, r *commerce.Receipt) error
}

// Issue appends r to the purchase history.
func Issue(ctx context.Context, log Appender, r *commerce.Receipt) error {
	if err := log.AppendReceipt(ctx, r); err != nil {
		return fmt.Errorf("failed to issue receipt %d: %w", r.ID, err)
	}
	return nil
}

// History reads an account's purchase history.
func History(ctx context.Context, store commerce.ReceiptStore, accountID commerce.AccountID) ([]*commerce.Receipt, error) {
	receipts, err := store.Receipts(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts for %s: %w", accountID, err)
	}
	return receipts, nil
}
