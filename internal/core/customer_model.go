package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is identified by its 10-digit phone; repeat orders update it in place.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	AreaID    string    `json:"area_id,omitempty"`
	AreaName  string    `json:"area_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerStats is a customer row with aggregates over its real (non-placeholder) lines.
type CustomerStats struct {
	Customer
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalKg        decimal.Decimal `json:"total_kg"`
	OrderCount     int             `json:"order_count"`
	DeliveredCount int             `json:"delivered_count"`
	HasPending     bool            `json:"has_pending"`
}

// Customer list views.
const (
	CustomerViewAll       = "all"
	CustomerViewPending   = "pending"
	CustomerViewCompleted = "completed"
)

// CustomerFilter drives the customer list. Sort is one of name, area, totalAmount, totalKg,
// orderCount; Dir is asc or desc.
type CustomerFilter struct {
	Search string `json:"search"`
	AreaID string `json:"area_id" validate:"omitempty,uuid"`
	View   string `json:"view" validate:"omitempty,oneof=all pending completed"`
	Sort   string `json:"sort" validate:"omitempty,oneof=name area totalAmount totalKg orderCount"`
	Dir    string `json:"dir" validate:"omitempty,oneof=asc desc"`
}

// Area is a named delivery zone.
type Area struct {
	ID        string    `json:"id"`
	Name      string    `json:"area_name"`
	CreatedAt time.Time `json:"created_at"`
}
