/*
Package pricing computes cart totals.

PURPOSE:
  Turns a collection of line items into subtotal, tax and total using
  exact decimal arithmetic. Pure: no side effects, deterministic for a
  given set of lines and tax rate, independent of line order.

FORMULAS:
  subtotal = Σ unitPrice × quantity
  tax      = round(subtotal × taxRate, 2)   round-half-up
  total    = subtotal + tax

ROUNDING:
  Only the tax is rounded. Unit prices carry at most 2 fractional digits,
  so the subtotal is already exact to the cent. decimal.Round rounds half
  away from zero, which for these non-negative amounts is half-up.

EXAMPLE:
  calc := pricing.NewDefaultCalculator()        // 8% tax
  t := calc.ComputeTotals(lines)                // 2 × 10.00
  // t.Subtotal = 20.00, t.Tax = 1.60, t.Total = 21.60

SEE ALSO:
  - checkout/engine.go: Totaling step of the checkout state machine
  - receipt/builder.go: Recomputes totals as a consistency check
*/
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/checkout-engine/commerce"
)

// DefaultTaxRate is 8%.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Totals is the priced view of a cart.
type Totals struct {
	Subtotal commerce.Money
	Tax      commerce.Money
	Total    commerce.Money
}

// Calculator prices carts at a fixed tax rate.
type Calculator struct {
	TaxRate decimal.Decimal
}

// NewCalculator rejects negative tax rates.
func NewCalculator(taxRate decimal.Decimal) (*Calculator, error) {
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("%w: tax rate %s", commerce.ErrInvalidAmount, taxRate)
	}
	return &Calculator{TaxRate: taxRate}, nil
}

func NewDefaultCalculator() *Calculator {
	return &Calculator{TaxRate: DefaultTaxRate}
}

// ComputeTotals prices the given lines.
func (c *Calculator) ComputeTotals(lines []commerce.LineItem) Totals {
	subtotal := commerce.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	return c.TotalsFor(subtotal)
}

// TotalsFor applies tax to an already summed subtotal.
func (c *Calculator) TotalsFor(subtotal commerce.Money) Totals {
	tax := subtotal.Mul(c.TaxRate).Round()
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Equal compares totals by value.
func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) && t.Tax.Equal(o.Tax) && t.Total.Equal(o.Total)
}
