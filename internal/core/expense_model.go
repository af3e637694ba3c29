package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a business cost deducted from revenue in the profit summary.
type Expense struct {
	ID        string          `json:"id"`
	Reason    string          `json:"reason"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// ExpenseSummary compares order revenue (placeholder lines excluded) with expenses.
type ExpenseSummary struct {
	Revenue       decimal.Decimal `json:"revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
}
