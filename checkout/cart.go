package checkout

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/warp/checkout-engine/commerce"
)

// =============================================================================
// CART - Session-owned collection of line items
// =============================================================================

// Cart holds at most one line per item. It is owned by one session and is
// not safe for concurrent use.
//
// INVARIANT: every line has Quantity >= 1. Lines that would drop to zero
// are removed instead.
type Cart struct {
	ID    string
	lines map[commerce.ItemID]commerce.LineItem
}

func NewCart() *Cart {
	return &Cart{
		ID:    uuid.NewString(),
		lines: make(map[commerce.ItemID]commerce.LineItem),
	}
}

// Add merges line into the cart. A repeated item keeps its captured price
// and gains quantity.
func (c *Cart) Add(line commerce.LineItem) {
	if line.Quantity < 1 {
		return
	}
	if existing, ok := c.lines[line.ItemID]; ok {
		existing.Quantity += line.Quantity
		c.lines[line.ItemID] = existing
		return
	}
	c.lines[line.ItemID] = line
}

// Remove drops the line for id. It reports whether a line existed.
func (c *Cart) Remove(id commerce.ItemID) bool {
	if _, ok := c.lines[id]; !ok {
		return false
	}
	delete(c.lines, id)
	return true
}

// RemoveQuantity takes qty units off the line for id, dropping the line
// when nothing is left.
func (c *Cart) RemoveQuantity(id commerce.ItemID, qty int) bool {
	line, ok := c.lines[id]
	if !ok {
		return false
	}
	line.Quantity -= qty
	if line.Quantity <= 0 {
		delete(c.lines, id)
	} else {
		c.lines[id] = line
	}
	return true
}

// Quantity returns how many units of id are in the cart.
func (c *Cart) Quantity(id commerce.ItemID) int {
	return c.lines[id].Quantity
}

// Lines returns a copy of the lines ordered by item id.
func (c *Cart) Lines() []commerce.LineItem {
	out := make([]commerce.LineItem, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func (c *Cart) Len() int      { return len(c.lines) }
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Clear empties the cart. Called only after a committed checkout.
func (c *Cart) Clear() {
	c.lines = make(map[commerce.ItemID]commerce.LineItem)
}

// =============================================================================
// CART OPERATIONS - Catalog-checked edits
// =============================================================================

// AddToCart adds qty units of a catalog item. The cart quantity may not
// exceed what is in stock.
func (e *Engine) AddToCart(ctx context.Context, cart *Cart, id commerce.ItemID, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity %d", commerce.ErrInvalidAmount, qty)
	}
	item, err := e.store.Item(ctx, id)
	if err != nil {
		return err
	}
	return addItem(cart, item, qty)
}

// ScanToCart adds one unit of the item with the given barcode.
func (e *Engine) ScanToCart(ctx context.Context, cart *Cart, barcode string) (commerce.Item, error) {
	item, err := e.store.ItemByBarcode(ctx, barcode)
	if err != nil {
		return commerce.Item{}, err
	}
	return item, addItem(cart, item, 1)
}

func addItem(cart *Cart, item commerce.Item, qty int) error {
	want := cart.Quantity(item.ID) + qty
	if want > item.Stock {
		return &commerce.StockError{ItemID: item.ID, Available: item.Stock, Requested: want}
	}
	cart.Add(commerce.NewLineItem(item, qty))
	return nil
}

// RemoveFromCart drops the whole line for id.
func RemoveFromCart(cart *Cart, id commerce.ItemID) error {
	if !cart.Remove(id) {
		return &commerce.NotFoundError{Kind: "cart item", ID: string(id)}
	}
	return nil
}

// RemoveQuantity takes qty units of id out of the cart.
func RemoveQuantity(cart *Cart, id commerce.ItemID, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity %d", commerce.ErrInvalidAmount, qty)
	}
	if !cart.RemoveQuantity(id, qty) {
		return &commerce.NotFoundError{Kind: "cart item", ID: string(id)}
	}
	return nil
}
