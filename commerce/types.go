/*
Package commerce provides the core types of the point-of-sale checkout engine.

PURPOSE:
  This package holds the domain vocabulary shared by every other package:
  money, loyalty points, payment instruments, catalog items, cart lines,
  customer accounts, receipts and journal movements. The algorithms live in
  the sibling packages (pricing, loyalty, funds, receipt, checkout); this
  package only defines what they operate on.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A non-negative decimal amount, rounded to 2 fractional digits
  - Points: Loyalty points, exchanged at 100 points = 1 currency unit
  - PaymentMethod: Closed enumeration {cash, card}
  - Item / LineItem: Catalog entry and a (item, quantity) pair in a cart
  - Account: Cash balance, card balance and loyalty points of a customer
  - Receipt: Immutable record of one committed checkout
  - Movement: Append-only journal entry for every balance or points change

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal, never binary floating point
  2. Immutability: Receipts and movements are never modified once written
  3. Type Safety: Distinct ID types for items, accounts and receipts
  4. Closed Sets: Payment methods outside {cash, card} are rejected at the boundary

USAGE:
  price := commerce.MustMoney("10.00")
  line := commerce.LineItem{ItemID: "apple", UnitPrice: price, PointsPerUnit: 10, Quantity: 2}
  method, err := commerce.ParsePaymentMethod("cash")

SEE ALSO:
  - errors.go: Error kinds
  - store.go: Persistence interfaces
  - journal.go: Movement journal
*/
package commerce

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact decimal amount
// =============================================================================

// MoneyPlaces is the number of fractional digits money is rounded to.
const MoneyPlaces = 2

// Money is a decimal currency amount. The zero value is 0.00.
type Money struct {
	Value decimal.Decimal
}

// Zero is 0.00.
var Zero = Money{}

func NewMoney(d decimal.Decimal) Money { return Money{Value: d} }

// MoneyFromCents builds an amount from minor units (2150 -> 21.50).
func MoneyFromCents(cents int64) Money {
	return Money{Value: decimal.New(cents, -MoneyPlaces)}
}

// ParseMoney parses a decimal string such as "21.60". Amounts finer than a
// cent are rejected, never rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a decimal amount", ErrInvalidAmount, s)
	}
	m := Money{Value: d}
	if !m.IsCents() {
		return Money{}, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, MoneyPlaces)
	}
	return m, nil
}

// MustMoney is ParseMoney for constants and tests. It panics on bad input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) MulInt(n int64) Money { return Money{Value: m.Value.Mul(decimal.NewFromInt(n))} }
func (m Money) Neg() Money { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool { return m.Value.IsZero() }
func (m Money) IsNegative() bool { return m.Value.IsNegative() }
func (m Money) IsPositive() bool { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThanOrEqual(o Money) bool { return m.Value.GreaterThanOrEqual(o.Value) }

// IsCents reports whether m is a whole number of cents.
func (m Money) IsCents() bool { return m.Value.Equal(m.Value.Round(MoneyPlaces)) }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

// Round rounds half away from zero to 2 places. For the non-negative amounts
// this engine handles that is round-half-up.
func (m Money) Round() Money { return Money{Value: m.Value.Round(MoneyPlaces)} }

// Cents returns the amount in minor units after rounding.
func (m Money) Cents() int64 {
	return m.Value.Round(MoneyPlaces).Shift(MoneyPlaces).IntPart()
}

// String renders the amount with exactly 2 fractional digits.
func (m Money) String() string { return m.Value.StringFixed(MoneyPlaces) }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "21.60" and 21.60.
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// =============================================================================
// LOYALTY POINTS
// =============================================================================

// Points is a loyalty point count.
type Points int64

// PointsPerCurrencyUnit is the fixed redemption rate: 100 points = 1.00.
const PointsPerCurrencyUnit = 100

// =============================================================================
// PAYMENT METHOD - Closed enumeration
// =============================================================================

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// Valid reports whether m is one of the two supported instruments.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

func (m PaymentMethod) String() string { return string(m) }

// ParsePaymentMethod maps user input to a PaymentMethod. Matching is
// case-insensitive; anything other than cash or card is rejected.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
	}
	return m, nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type AccountID string
type ReceiptID int64
type MovementID string

// =============================================================================
// CATALOG ITEM & LINE ITEM
// =============================================================================

// Item is a catalog entry together with its current stock level.
type Item struct {
	ID            ItemID
	Name          string
	Barcode       string
	Category      string
	UnitPrice     Money
	PointsPerUnit Points
	Stock         int
}

// Validate rejects negative stock, points or price, and sub-cent prices.
func (it Item) Validate() error {
	if it.Stock < 0 || it.PointsPerUnit < 0 || it.UnitPrice.IsNegative() || !it.UnitPrice.IsCents() {
		return fmt.Errorf("%w: item %s", ErrInvalidAmount, it.ID)
	}
	return nil
}

// LineItem is a catalog reference plus a quantity of at least 1.
// Price and points are captured when the line is added to a cart.
type LineItem struct {
	ItemID        ItemID
	Name          string
	UnitPrice     Money
	PointsPerUnit Points
	Quantity      int
}

// LineTotal is unit price times quantity.
func (l LineItem) LineTotal() Money {
	return l.UnitPrice.MulInt(int64(l.Quantity))
}

// LinePoints is points-per-unit times quantity.
func (l LineItem) LinePoints() Points {
	return l.PointsPerUnit * Points(l.Quantity)
}

// NewLineItem captures an item at quantity qty.
func NewLineItem(item Item, qty int) LineItem {
	return LineItem{
		ItemID:        item.ID,
		Name:          item.Name,
		UnitPrice:     item.UnitPrice,
		PointsPerUnit: item.PointsPerUnit,
		Quantity:      qty,
	}
}

// CloneLines returns a copy of lines that shares no backing array.
func CloneLines(lines []LineItem) []LineItem {
	if lines == nil {
		return nil
	}
	out := make([]LineItem, len(lines))
	copy(out, lines)
	return out
}

// =============================================================================
// ACCOUNT - Customer balances
// =============================================================================

// Account holds a customer's two payment balances and loyalty points.
//
// INVARIANT: all three are non-negative.
// Balances change only through the funds package, points only through the
// loyalty package.
type Account struct {
	ID            AccountID
	Name          string
	CashBalance   Money
	CardBalance   Money
	LoyaltyPoints Points
}

// Validate rejects negative or sub-cent balances and negative points.
func (a Account) Validate() error {
	for _, b := range []Money{a.CashBalance, a.CardBalance} {
		if b.IsNegative() || !b.IsCents() {
			return fmt.Errorf("%w: account %s balance %s", ErrInvalidAmount, a.ID, b.Value)
		}
	}
	if a.LoyaltyPoints < 0 {
		return fmt.Errorf("%w: account %s points %d", ErrInvalidAmount, a.ID, a.LoyaltyPoints)
	}
	return nil
}

// Balance returns the balance backing the given instrument.
func (a *Account) Balance(m PaymentMethod) (Money, error) {
	switch m {
	case PaymentCash:
		return a.CashBalance, nil
	case PaymentCard:
		return a.CardBalance, nil
	default:
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, string(m))
	}
}

// =============================================================================
// RECEIPT - Immutable record of a committed checkout
// =============================================================================

// Receipt is created once per committed checkout and never modified.
// Holders must treat Items as read-only; stores hand out clones.
type Receipt struct {
	ID             ReceiptID
	CheckoutID     string
	AccountID      AccountID
	Items          []LineItem
	Subtotal       Money
	Tax            Money
	Total          Money
	Discount       Money
	FinalTotal     Money
	PaymentMethod  PaymentMethod
	PointsRedeemed Points
	PointsEarned   Points
	IssuedAt       time.Time
}

// Clone returns a deep copy.
func (r *Receipt) Clone() *Receipt {
	if r == nil {
		return nil
	}
	c := *r
	c.Items = CloneLines(r.Items)
	return &c
}

// =============================================================================
// MOVEMENT - Journal entry for a balance or points change
// =============================================================================

type MovementKind string

const (
	MoveDebit   MovementKind = "debit"   // Funds taken for a checkout
	MoveCredit  MovementKind = "credit"  // Top-up outside checkout
	MoveRefund  MovementKind = "refund"  // Compensation of a debit
	MoveRedeem  MovementKind = "redeem"  // Points converted to a discount
	MoveAccrue  MovementKind = "accrue"  // Points earned from a purchase
	MoveRestore MovementKind = "restore" // Compensation of a redemption
)

// Movement records one change to an account. Money movements carry Method
// and Amount, point movements carry Points.
type Movement struct {
	ID             MovementID
	AccountID      AccountID
	Kind           MovementKind
	Method         PaymentMethod
	Amount         Money
	Points         Points
	ReceiptID      ReceiptID
	CheckoutID     string
	IdempotencyKey string
	At             time.Time
}
