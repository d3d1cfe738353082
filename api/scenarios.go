/*
scenarios.go - Demo data loaders

PURPOSE:
  Loads a catalog and a set of customers so the till can be exercised
  without manual setup. Loading is an upsert: items get their stock reset
  and the scenario's accounts get their balances reset. Receipts and
  journal entries are never removed.

SCENARIOS:
  grocery:      Catalog plus the three reference customers
                (cash only, points holder, short on card)
  low-balance:  Customers who cannot afford a full basket, for exercising
                funds previews and removal suggestions
  loyalty:      Customers with large point balances, for exercising
                discount clamping

SEE ALSO:
  - handlers.go: Other endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/checkout-engine/commerce"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "grocery",
		Name:        "Grocery Till",
		Description: "Catalog plus a cash customer, a points holder and a customer short on card",
	},
	{
		ID:          "low-balance",
		Name:        "Low Balance",
		Description: "Customers who cannot afford a full basket",
	},
	{
		ID:          "loyalty",
		Name:        "Loyalty Heavy",
		Description: "Customers whose points exceed typical basket totals",
	},
}

// DemoCatalog is the catalog every scenario loads.
func DemoCatalog() []commerce.Item {
	item := func(id, name, barcode, category, price string, points commerce.Points, stock int) commerce.Item {
		return commerce.Item{
			ID:            commerce.ItemID(id),
			Name:          name,
			Barcode:       barcode,
			Category:      category,
			UnitPrice:     commerce.MustMoney(price),
			PointsPerUnit: points,
			Stock:         stock,
		}
	}
	return []commerce.Item{
		item("apple", "Apple", "4006381333931", "produce", "10.00", 10, 50),
		item("banana", "Banana", "4006381333948", "produce", "0.35", 1, 200),
		item("bread", "Sourdough Bread", "5012345678900", "bakery", "4.50", 5, 20),
		item("coffee", "Ground Coffee 500g", "7622210449283", "pantry", "8.99", 9, 30),
		item("milk", "Whole Milk 1L", "5000112637922", "dairy", "1.25", 1, 40),
		item("cheese", "Aged Cheddar", "5010029000016", "dairy", "6.75", 7, 15),
		item("olive-oil", "Olive Oil 750ml", "8410010255106", "pantry", "12.40", 12, 10),
	}
}

func scenarioAccounts(id string) ([]commerce.Account, bool) {
	acct := func(id, name, cash, card string, points commerce.Points) commerce.Account {
		return commerce.Account{
			ID:            commerce.AccountID(id),
			Name:          name,
			CashBalance:   commerce.MustMoney(cash),
			CardBalance:   commerce.MustMoney(card),
			LoyaltyPoints: points,
		}
	}
	switch id {
	case "grocery":
		return []commerce.Account{
			acct("cust-cash", "Ada Lovelace", "100.00", "0.00", 0),
			acct("cust-points", "Grace Hopper", "100.00", "50.00", 500),
			acct("cust-short", "Alan Turing", "0.00", "10.00", 500),
		}, true
	case "low-balance":
		return []commerce.Account{
			acct("cust-broke", "Edsger Dijkstra", "5.00", "2.50", 0),
			acct("cust-tight", "Barbara Liskov", "20.00", "15.00", 120),
		}, true
	case "loyalty":
		return []commerce.Account{
			acct("cust-loyal", "Donald Knuth", "10.00", "10.00", 5000),
			acct("cust-regular", "Frances Allen", "40.00", "40.00", 1500),
		}, true
	default:
		return nil, false
	}
}

// AccountSaver writes accounts. *checkout.Engine is the one to pass while
// checkouts may be running.
type AccountSaver interface {
	SaveAccount(ctx context.Context, acct commerce.Account) error
}

// LoadScenarioData writes the catalog and a scenario's accounts.
func LoadScenarioData(ctx context.Context, store commerce.Inventory, accounts AccountSaver, id string) error {
	seed, ok := scenarioAccounts(id)
	if !ok {
		return &commerce.NotFoundError{Kind: "scenario", ID: id}
	}
	for _, it := range DemoCatalog() {
		if err := store.SaveItem(ctx, it); err != nil {
			return fmt.Errorf("failed to save item %s: %w", it.ID, err)
		}
	}
	for _, a := range seed {
		if err := accounts.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("failed to save account %s: %w", a.ID, err)
		}
	}
	return nil
}

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a scenario by id.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.loadScenario(w, r, req.ScenarioID)
}

// LoadDemo loads the grocery scenario.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	h.loadScenario(w, r, "grocery")
}

func (h *Handler) loadScenario(w http.ResponseWriter, r *http.Request, id string) {
	if err := LoadScenarioData(r.Context(), h.Store, h.Engine, id); err != nil {
		h.writeDomainError(w, r, "Failed to load scenario", err)
		return
	}
	h.Logger.Info("scenario loaded", zap.String("scenario", id))

	accounts, _ := scenarioAccounts(id)
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": id,
		"items":    len(DemoCatalog()),
		"accounts": dtos,
	})
}
