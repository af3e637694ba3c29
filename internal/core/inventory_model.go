package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is the on-hand counter for one product variety. Quantity may be negative.
type StockItem struct {
	ID                string          `json:"id"`
	ProductType       string          `json:"product_type"`
	Quantity          decimal.Decimal `json:"quantity_kg"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	LastUpdated       time.Time       `json:"last_updated"`
	IsLow             bool            `json:"is_low"` // Quantity <= LowStockThreshold
}

// ProductRate is the global per-kg price for a variety.
type ProductRate struct {
	ProductType string          `json:"product_type"`
	Rate        decimal.Decimal `json:"rate_per_kg"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AreaRate is an area override. A zero Rate means no override.
type AreaRate struct {
	AreaID      string          `json:"area_id"`
	ProductType string          `json:"product_type"`
	Rate        decimal.Decimal `json:"rate_per_kg"`
}
