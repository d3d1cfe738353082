package checkout

import (
	"sort"

	"github.com/warp/checkout-engine/commerce"
)

// SuggestItemsToRemove picks whole lines to take out of the cart so that
// the taxed total of what remains fits in availableFunds. Lines go most
// expensive unit price first, ties by item id. This is a greedy heuristic,
// not the smallest possible removal.
//
// Returns nil when the cart already fits. The cart is not modified.
func (e *Engine) SuggestItemsToRemove(cart *Cart, availableFunds commerce.Money) []commerce.LineItem {
	if cart == nil || cart.IsEmpty() {
		return nil
	}
	lines := cart.Lines()
	subtotal := e.calc.ComputeTotals(lines).Subtotal
	if !e.calc.TotalsFor(subtotal).Total.GreaterThan(availableFunds) {
		return nil
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].UnitPrice.Equal(lines[j].UnitPrice) {
			return lines[i].UnitPrice.GreaterThan(lines[j].UnitPrice)
		}
		return lines[i].ItemID < lines[j].ItemID
	})

	var remove []commerce.LineItem
	for _, l := range lines {
		remove = append(remove, l)
		subtotal = subtotal.Sub(l.LineTotal())
		if !e.calc.TotalsFor(subtotal).Total.GreaterThan(availableFunds) {
			break
		}
	}
	return remove
}
