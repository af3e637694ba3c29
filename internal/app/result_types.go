package app

import "grain-orders/internal/core"

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Current []core.LogicalOrder `json:"current"`
	Past    []core.LogicalOrder `json:"past"` // previous years, shown under a divider
	Year    int                 `json:"year"`
}

// RolloverResult is returned by YearRollover.
type RolloverResult struct {
	core.RolloverResult
	BackupPath string `json:"backup_path"`
}
