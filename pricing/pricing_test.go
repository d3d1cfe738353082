package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/pricing"
)

func line(id string, price string, qty int) commerce.LineItem {
	return commerce.LineItem{
		ItemID:    commerce.ItemID(id),
		UnitPrice: commerce.MustMoney(price),
		Quantity:  qty,
	}
}

func TestComputeTotals_TwoUnitsAtTen(t *testing.T) {
	// GIVEN: 2 × 10.00 at the default 8% tax
	calc := pricing.NewDefaultCalculator()

	// WHEN: Computing totals
	totals := calc.ComputeTotals([]commerce.LineItem{line("a", "10.00", 2)})

	// THEN: 20.00 + 1.60 = 21.60
	assert.Equal(t, "20.00", totals.Subtotal.String())
	assert.Equal(t, "1.60", totals.Tax.String())
	assert.Equal(t, "21.60", totals.Total.String())
}

func TestComputeTotals_RoundsTaxHalfUp(t *testing.T) {
	calc := pricing.NewDefaultCalculator()

	tests := []struct {
		name     string
		price    string
		wantTax  string
		wantTotl string
	}{
		{"rounds down below half", "7.03", "0.56", "7.59"},
		{"exact half rounds up", "0.0625", "0.01", "0.07"},
		{"rounds up above half", "1.99", "0.16", "2.15"},
		{"zero subtotal", "0.00", "0.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := calc.ComputeTotals([]commerce.LineItem{line("x", tt.price, 1)})
			assert.Equal(t, tt.wantTax, totals.Tax.String())
			assert.Equal(t, tt.wantTotl, totals.Total.String())
		})
	}
}

func TestComputeTotals_OrderIndependent(t *testing.T) {
	calc := pricing.NewDefaultCalculator()
	a := line("a", "3.33", 3)
	b := line("b", "0.10", 7)
	c := line("c", "19.99", 1)

	forward := calc.ComputeTotals([]commerce.LineItem{a, b, c})
	backward := calc.ComputeTotals([]commerce.LineItem{c, b, a})

	assert.True(t, forward.Equal(backward))
	assert.Equal(t, "30.68", forward.Subtotal.String())
}

func TestComputeTotals_NoFloatDrift(t *testing.T) {
	// 0.10 summed 10 times is exactly 1.00 in decimal arithmetic
	calc := pricing.NewDefaultCalculator()
	lines := make([]commerce.LineItem, 0, 10)
	for i := 0; i < 10; i++ {
		lines = append(lines, line(string(rune('a'+i)), "0.10", 1))
	}
	totals := calc.ComputeTotals(lines)
	assert.True(t, totals.Subtotal.Equal(commerce.MustMoney("1.00")))
	assert.Equal(t, "0.08", totals.Tax.String())
}

func TestNewCalculator_RejectsNegativeRate(t *testing.T) {
	_, err := pricing.NewCalculator(decimal.RequireFromString("-0.01"))
	assert.ErrorIs(t, err, commerce.ErrInvalidAmount)

	calc, err := pricing.NewCalculator(decimal.Zero)
	require.NoError(t, err)
	totals := calc.ComputeTotals([]commerce.LineItem{line("a", "5.00", 1)})
	assert.Equal(t, "5.00", totals.Total.String())
}
