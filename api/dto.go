/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts are JSON strings with two decimals ("21.60"). Requests accept
  either a string or a bare number.

VALIDATION:
  Validation is done in handlers and in the domain, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/pricing"
)

// =============================================================================
// CATALOG
// =============================================================================

// ItemDTO represents a catalog item in API responses.
type ItemDTO struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Barcode       string         `json:"barcode,omitempty"`
	Category      string         `json:"category,omitempty"`
	UnitPrice     commerce.Money `json:"unit_price"`
	PointsPerUnit int64          `json:"points_per_unit"`
	Stock         int            `json:"stock"`
}

func toItemDTO(it commerce.Item) ItemDTO {
	return ItemDTO{
		ID:            string(it.ID),
		Name:          it.Name,
		Barcode:       it.Barcode,
		Category:      it.Category,
		UnitPrice:     it.UnitPrice,
		PointsPerUnit: int64(it.PointsPerUnit),
		Stock:         it.Stock,
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountDTO represents a customer account in API responses.
type AccountDTO struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	CashBalance   commerce.Money `json:"cash_balance"`
	CardBalance   commerce.Money `json:"card_balance"`
	LoyaltyPoints int64          `json:"loyalty_points"`
}

func toAccountDTO(a commerce.Account) AccountDTO {
	return AccountDTO{
		ID:            string(a.ID),
		Name:          a.Name,
		CashBalance:   a.CashBalance,
		CardBalance:   a.CardBalance,
		LoyaltyPoints: int64(a.LoyaltyPoints),
	}
}

// CreateAccountRequest is the body for opening an account.
type CreateAccountRequest struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	CashBalance   commerce.Money `json:"cash_balance"`
	CardBalance   commerce.Money `json:"card_balance"`
	LoyaltyPoints int64          `json:"loyalty_points"`
}

// TopUpRequest credits one balance.
type TopUpRequest struct {
	Amount commerce.Money `json:"amount"`
	Method string         `json:"method"`
}

// MovementDTO is one journal entry.
type MovementDTO struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Method     string         `json:"method,omitempty"`
	Amount     commerce.Money `json:"amount"`
	Points     int64          `json:"points"`
	ReceiptID  int64          `json:"receipt_id,omitempty"`
	CheckoutID string         `json:"checkout_id,omitempty"`
	At         time.Time      `json:"at"`
}

func toMovementDTO(m commerce.Movement) MovementDTO {
	return MovementDTO{
		ID:         string(m.ID),
		Kind:       string(m.Kind),
		Method:     string(m.Method),
		Amount:     m.Amount,
		Points:     int64(m.Points),
		ReceiptID:  int64(m.ReceiptID),
		CheckoutID: m.CheckoutID,
		At:         m.At,
	}
}

// =============================================================================
// CARTS
// =============================================================================

// LineItemDTO is one cart or receipt line.
type LineItemDTO struct {
	ItemID        string         `json:"item_id"`
	Name          string         `json:"name"`
	UnitPrice     commerce.Money `json:"unit_price"`
	PointsPerUnit int64          `json:"points_per_unit"`
	Quantity      int            `json:"quantity"`
	LineTotal     commerce.Money `json:"line_total"`
}

func toLineDTOs(lines []commerce.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, len(lines))
	for i, l := range lines {
		dtos[i] = LineItemDTO{
			ItemID:        string(l.ItemID),
			Name:          l.Name,
			UnitPrice:     l.UnitPrice,
			PointsPerUnit: int64(l.PointsPerUnit),
			Quantity:      l.Quantity,
			LineTotal:     l.LineTotal(),
		}
	}
	return dtos
}

// CartDTO is a cart with its current pricing.
type CartDTO struct {
	ID       string         `json:"id"`
	Items    []LineItemDTO  `json:"items"`
	Subtotal commerce.Money `json:"subtotal"`
	Tax      commerce.Money `json:"tax"`
	Total    commerce.Money `json:"total"`
}

func toCartDTO(cart *checkout.Cart, totals pricing.Totals) CartDTO {
	return CartDTO{
		ID:       cart.ID,
		Items:    toLineDTOs(cart.Lines()),
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
	}
}

// AddItemRequest adds a catalog item by id.
type AddItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// ScanRequest adds one unit by barcode.
type ScanRequest struct {
	Barcode string `json:"barcode"`
}

// =============================================================================
// CHECKOUT
// =============================================================================

// CheckoutRequest is the body of both preview and checkout.
type CheckoutRequest struct {
	AccountID      string `json:"account_id"`
	PaymentMethod  string `json:"payment_method"`
	PointsToRedeem int64  `json:"points_to_redeem"`
}

// PreviewDTO is the result of a funds check.
type PreviewDTO struct {
	Subtotal        commerce.Money `json:"subtotal"`
	Tax             commerce.Money `json:"tax"`
	Total           commerce.Money `json:"total"`
	PointsRequested int64          `json:"points_requested"`
	PointsApplied   int64          `json:"points_applied"`
	Discount        commerce.Money `json:"discount"`
	FinalTotal      commerce.Money `json:"final_total"`
	PaymentMethod   string         `json:"payment_method"`
	Available       commerce.Money `json:"available"`
	Sufficient      bool           `json:"sufficient"`
	Shortfall       commerce.Money `json:"shortfall"`
}

func toPreviewDTO(p checkout.Preview) PreviewDTO {
	return PreviewDTO{
		Subtotal:        p.Totals.Subtotal,
		Tax:             p.Totals.Tax,
		Total:           p.Totals.Total,
		PointsRequested: int64(p.PointsRequested),
		PointsApplied:   int64(p.PointsApplied),
		Discount:        p.Discount,
		FinalTotal:      p.FinalTotal,
		PaymentMethod:   string(p.Method),
		Available:       p.Available,
		Sufficient:      p.Sufficient,
		Shortfall:       p.Shortfall(),
	}
}

// ReceiptDTO represents a receipt in API responses.
type ReceiptDTO struct {
	ID             int64          `json:"id"`
	CheckoutID     string         `json:"checkout_id"`
	AccountID      string         `json:"account_id"`
	Items          []LineItemDTO  `json:"items"`
	Subtotal       commerce.Money `json:"subtotal"`
	Tax            commerce.Money `json:"tax"`
	Total          commerce.Money `json:"total"`
	Discount       commerce.Money `json:"discount"`
	FinalTotal     commerce.Money `json:"final_total"`
	PaymentMethod  string         `json:"payment_method"`
	PointsRedeemed int64          `json:"points_redeemed"`
	PointsEarned   int64          `json:"points_earned"`
	IssuedAt       time.Time      `json:"issued_at"`
}

func toReceiptDTO(r *commerce.Receipt) ReceiptDTO {
	return ReceiptDTO{
		ID:             int64(r.ID),
		CheckoutID:     r.CheckoutID,
		AccountID:      string(r.AccountID),
		Items:          toLineDTOs(r.Items),
		Subtotal:       r.Subtotal,
		Tax:            r.Tax,
		Total:          r.Total,
		Discount:       r.Discount,
		FinalTotal:     r.FinalTotal,
		PaymentMethod:  string(r.PaymentMethod),
		PointsRedeemed: int64(r.PointsRedeemed),
		PointsEarned:   int64(r.PointsEarned),
		IssuedAt:       r.IssuedAt,
	}
}

// CheckoutResponse wraps a committed checkout.
type CheckoutResponse struct {
	CheckoutID string      `json:"checkout_id"`
	State      string      `json:"state"`
	Receipt    *ReceiptDTO `json:"receipt,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// SuggestionsDTO lists lines to put back so the cart fits the funds.
type SuggestionsDTO struct {
	Funds  commerce.Money `json:"funds"`
	Remove []LineItemDTO  `json:"remove"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Details string `json:"details,omitempty"`

	// Warnings lists compensations that failed while unwinding a checkout.
	// The accounts or stock they name need manual reconciliation.
	Warnings []string `json:"warnings,omitempty"`
}
