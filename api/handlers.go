/*
handlers.go - HTTP API handlers for the checkout engine

PURPOSE:
  Exposes the catalog, customer accounts, carts and the checkout engine via
  a REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Catalog:
    GET    /api/items[?category=]         List items
    GET    /api/items/{id}                Get item
    GET    /api/items/barcode/{code}      Look up by barcode

  Accounts:
    GET    /api/accounts                  List accounts
    POST   /api/accounts                  Open account
    GET    /api/accounts/{id}             Get balances
    POST   /api/accounts/{id}/topup       Credit cash or card
    GET    /api/accounts/{id}/receipts    Purchase history
    GET    /api/accounts/{id}/movements   Journal

  Carts:
    POST   /api/carts                     Open cart
    GET    /api/carts/{id}                Cart with totals
    DELETE /api/carts/{id}                Close cart
    POST   /api/carts/{id}/items          Add item by id
    POST   /api/carts/{id}/scan           Add item by barcode
    DELETE /api/carts/{id}/items/{itemID} Remove line (or ?quantity=n)
    POST   /api/carts/{id}/preview        Funds check, no side effects
    POST   /api/carts/{id}/checkout       Commit
    GET    /api/carts/{id}/suggestions    What to put back (?funds=)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad JSON, unknown method, bad amount)
  - 404: Item, account, cart or receipt not found
  - 409: Duplicate idempotency key
  - 422: Checkout aborted (reason in body), stock unavailable
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/receipt"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  commerce.Store
	Engine *checkout.Engine
	Carts  *CartSessions
	Logger *zap.Logger
}

// NewHandler creates a new handler with the given store and engine.
func NewHandler(store commerce.Store, engine *checkout.Engine, logger *zap.Logger) *Handler {
	return &Handler{
		Store:  store,
		Engine: engine,
		Carts:  NewCartSessions(),
		Logger: logger,
	}
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListItems returns the catalog, optionally filtered by category.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []commerce.Item
		err   error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		items, err = h.Store.ItemsByCategory(r.Context(), category)
	} else {
		items, err = h.Store.Items(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, r, "Failed to list items", err)
		return
	}

	dtos := make([]ItemDTO, len(items))
	for i, it := range items {
		dtos[i] = toItemDTO(it)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetItem returns one catalog item.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.Item(r.Context(), commerce.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// GetItemByBarcode looks an item up by its barcode.
func (h *Handler) GetItemByBarcode(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.ItemByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.Accounts(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount opens a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Account id is required", nil)
		return
	}

	acct := commerce.Account{
		ID:            commerce.AccountID(req.ID),
		Name:          req.Name,
		CashBalance:   req.CashBalance,
		CardBalance:   req.CardBalance,
		LoyaltyPoints: commerce.Points(req.LoyaltyPoints),
	}
	acct, err := h.Engine.OpenAccount(r.Context(), acct)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(acct))
}

// GetAccount returns balances and points.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Store.Account(r.Context(), accountID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// TopUp credits cash or card.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	method, err := commerce.ParsePaymentMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment method", err)
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be positive", commerce.ErrInvalidAmount)
		return
	}

	acct, err := h.Engine.TopUp(r.Context(), accountID(r), req.Amount, method)
	if err != nil {
		h.writeDomainError(w, r, "Failed to top up", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// GetReceipts returns the purchase history, oldest first.
func (h *Handler) GetReceipts(w http.ResponseWriter, r *http.Request) {
	id := accountID(r)
	if _, err := h.Store.Account(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get account", err)
		return
	}
	history, err := receipt.History(r.Context(), h.Store, id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load receipts", err)
		return
	}

	dtos := make([]ReceiptDTO, len(history))
	for i, rc := range history {
		dtos[i] = toReceiptDTO(rc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMovements returns the account journal, oldest first.
func (h *Handler) GetMovements(w http.ResponseWriter, r *http.Request) {
	id := accountID(r)
	if _, err := h.Store.Account(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get account", err)
		return
	}
	moves, err := commerce.NewJournal(h.Store).Movements(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load movements", err)
		return
	}

	dtos := make([]MovementDTO, len(moves))
	for i, m := range moves {
		dtos[i] = toMovementDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CART HANDLERS
// =============================================================================

// CreateCart opens an empty cart.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	id := h.Carts.Create()
	h.respondCart(w, r, id, http.StatusCreated)
}

// GetCart returns the cart with its totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// DeleteCart closes a cart without checking out.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.Carts.Delete(id) {
		h.writeDomainError(w, r, "Failed to close cart", &commerce.NotFoundError{Kind: "cart", ID: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCartItem adds a catalog item by id.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	id := chi.URLParam(r, "id")
	err := h.Carts.With(id, func(cart *checkout.Cart) error {
		return h.Engine.AddToCart(r.Context(), cart, commerce.ItemID(req.ItemID), req.Quantity)
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to add item", err)
		return
	}
	h.respondCart(w, r, id, http.StatusOK)
}

// ScanCartItem adds one unit by barcode.
func (h *Handler) ScanCartItem(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := chi.URLParam(r, "id")
	err := h.Carts.With(id, func(cart *checkout.Cart) error {
		_, err := h.Engine.ScanToCart(r.Context(), cart, req.Barcode)
		return err
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to scan item", err)
		return
	}
	h.respondCart(w, r, id, http.StatusOK)
}

// RemoveCartItem drops a line, or ?quantity=n units of it.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	itemID := commerce.ItemID(chi.URLParam(r, "itemID"))

	qty := 0
	if q := r.URL.Query().Get("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid quantity", err)
			return
		}
		qty = n
		if qty < 1 {
			writeError(w, http.StatusBadRequest, "Invalid quantity", commerce.ErrInvalidAmount)
			return
		}
	}

	err := h.Carts.With(id, func(cart *checkout.Cart) error {
		if qty > 0 {
			return checkout.RemoveQuantity(cart, itemID, qty)
		}
		return checkout.RemoveFromCart(cart, itemID)
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to remove item", err)
		return
	}
	h.respondCart(w, r, id, http.StatusOK)
}

// PreviewCart runs a funds check without side effects.
func (h *Handler) PreviewCart(w http.ResponseWriter, r *http.Request) {
	req, method, ok := decodeCheckout(w, r)
	if !ok {
		return
	}

	var preview checkout.Preview
	err := h.Carts.With(chi.URLParam(r, "id"), func(cart *checkout.Cart) error {
		var err error
		preview, err = h.Engine.PreviewAccount(r.Context(), commerce.AccountID(req.AccountID), cart, method, commerce.Points(req.PointsToRedeem))
		return err
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to preview checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewDTO(preview))
}

// CheckoutCart commits the cart against an account. A committed cart is
// closed.
func (h *Handler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	req, method, ok := decodeCheckout(w, r)
	if !ok {
		return
	}

	cartID := chi.URLParam(r, "id")
	var res checkout.Result
	err := h.Carts.With(cartID, func(cart *checkout.Cart) error {
		var err error
		res, err = h.Engine.CheckoutAccount(r.Context(), commerce.AccountID(req.AccountID), cart, method, commerce.Points(req.PointsToRedeem))
		return err
	})
	if err != nil {
		if res.CheckoutID == "" {
			h.writeDomainError(w, r, "Checkout failed", err)
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:    "Checkout failed",
			Reason:   string(checkout.ReasonInternal),
			Details:  err.Error(),
			Warnings: warningStrings(res.Warnings),
		})
		return
	}

	if !res.Committed() {
		status := http.StatusUnprocessableEntity
		if res.Reason() == checkout.ReasonNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, ErrorResponse{
			Error:    "Checkout aborted",
			Reason:   string(res.Reason()),
			Details:  res.Abort.Err.Error(),
			Warnings: warningStrings(res.Warnings),
		})
		return
	}

	resp := CheckoutResponse{
		CheckoutID: res.CheckoutID,
		State:      string(res.State),
		Warnings:   warningStrings(res.Warnings),
	}

	h.Carts.Delete(cartID)
	dto := toReceiptDTO(res.Receipt)
	resp.Receipt = &dto
	writeJSON(w, http.StatusOK, resp)
}

// SuggestRemovals lists lines to put back so the cart fits ?funds=.
func (h *Handler) SuggestRemovals(w http.ResponseWriter, r *http.Request) {
	funds, err := commerce.ParseMoney(r.URL.Query().Get("funds"))
	if err != nil || funds.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid funds", commerce.ErrInvalidAmount)
		return
	}

	var remove []commerce.LineItem
	err = h.Carts.With(chi.URLParam(r, "id"), func(cart *checkout.Cart) error {
		remove = h.Engine.SuggestItemsToRemove(cart, funds)
		return nil
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to suggest removals", err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsDTO{Funds: funds, Remove: toLineDTOs(remove)})
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, id string, status int) {
	var dto CartDTO
	err := h.Carts.With(id, func(cart *checkout.Cart) error {
		dto = toCartDTO(cart, h.Engine.Calculator().ComputeTotals(cart.Lines()))
		return nil
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to get cart", err)
		return
	}
	writeJSON(w, status, dto)
}

func warningStrings(warnings []error) []string {
	var out []string
	for _, w := range warnings {
		out = append(out, w.Error())
	}
	return out
}

func decodeCheckout(w http.ResponseWriter, r *http.Request) (CheckoutRequest, commerce.PaymentMethod, bool) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, "", false
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "Account id is required", nil)
		return req, "", false
	}
	method, err := commerce.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment method", err)
		return req, "", false
	}
	return req, method, true
}

// =============================================================================
// HELPERS
// =============================================================================

func accountID(r *http.Request) commerce.AccountID {
	return commerce.AccountID(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error kind and logs the ones
// that are our fault.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
	}
	resp := ErrorResponse{Error: message, Details: err.Error()}
	if status == http.StatusUnprocessableEntity {
		resp.Reason = string(checkout.ReasonFor(err))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case commerce.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, commerce.ErrDuplicateIdempotencyKey), errors.Is(err, commerce.ErrAlreadyExists):
		return http.StatusConflict
	case commerce.IsClientError(err):
		return http.StatusBadRequest
	case commerce.IsInsufficient(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
