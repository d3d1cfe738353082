package checkout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
)

func TestSuggestItemsToRemove(t *testing.T) {
	// Cart: 2 apples (10.00) + 1 pear (3.00) = 23.00, total 24.84
	eng := newEngine(t, seed(t))
	cart := cartWith(t, eng, map[commerce.ItemID]int{"apple": 2, "pear": 1})

	tests := []struct {
		name  string
		funds string
		want  []commerce.ItemID
	}{
		{"already fits", "24.84", nil},
		{"drop most expensive", "15.00", []commerce.ItemID{"apple"}},
		{"drop everything", "3.00", []commerce.ItemID{"apple", "pear"}},
		{"no funds", "0.00", []commerce.ItemID{"apple", "pear"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eng.SuggestItemsToRemove(cart, money(tt.funds))
			var ids []commerce.ItemID
			for _, l := range got {
				ids = append(ids, l.ItemID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	assert.Equal(t, 2, cart.Len(), "suggestions never modify the cart")
}

func TestSuggestItemsToRemove_TiesByItemID(t *testing.T) {
	eng := newEngine(t, seed(t))
	cart := checkout.NewCart()
	cart.Add(commerce.LineItem{ItemID: "b", UnitPrice: money("5.00"), Quantity: 1})
	cart.Add(commerce.LineItem{ItemID: "a", UnitPrice: money("5.00"), Quantity: 1})

	got := eng.SuggestItemsToRemove(cart, money("5.40"))
	require.Len(t, got, 1)
	assert.Equal(t, commerce.ItemID("a"), got[0].ItemID)

	assert.Nil(t, eng.SuggestItemsToRemove(checkout.NewCart(), money("0.00")))
}
