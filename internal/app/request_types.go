package app

import (
	"grain-orders/internal/core"

	"github.com/shopspring/decimal"
)

// StatusRequest sets the status of every line in a logical order.
type StatusRequest struct {
	Key    core.LogicalOrderKey `json:"key"`
	Status string               `json:"status"`
}

// SlipsRequest selects logical orders for bulk slip printing.
type SlipsRequest struct {
	Keys []core.LogicalOrderKey `json:"keys"`
}

// AreaRequest creates an area.
type AreaRequest struct {
	Name string `json:"area_name"`
}

// AreaRatesRequest replaces an area's per-variety rates. Varieties left out keep their rate.
type AreaRatesRequest struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// RateRequest sets a global product rate.
type RateRequest struct {
	Rate decimal.Decimal `json:"rate_per_kg"`
}

// StockRequest adds to or corrects a stock row.
type StockRequest struct {
	Quantity decimal.Decimal `json:"quantity_kg"`
}

// VarietyRequest adds a product variety.
type VarietyRequest struct {
	ProductType string `json:"product_type"`
}

// ExpenseRequest records an expense.
type ExpenseRequest struct {
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
}
