package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine is one persisted row of the orders table: a single product type within a logical order.
type OrderLine struct {
	ID          string          `json:"id"`
	OrderNumber int64           `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	ProductType string          `json:"product_type"`
	Quantity    decimal.Decimal `json:"quantity_kg"`
	Rate        decimal.Decimal `json:"rate_per_kg"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"` // this line only
	OrderDate   time.Time       `json:"order_date"`
	// DeliveryDate is nil when the line was entered without one; grouping falls back to OrderDate.
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	SubArea      string     `json:"sub_area"`
	DriverID     string     `json:"driver_id,omitempty"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes"`
	IsPrinted    bool       `json:"is_printed"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Joined display fields.
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	AreaID          string `json:"area_id,omitempty"`
	AreaName        string `json:"area_name"`
	DriverName      string `json:"driver_name,omitempty"`
	DriverPhone     string `json:"driver_phone,omitempty"`
}

// GroupDate returns the date the line is grouped under.
func (l OrderLine) GroupDate() time.Time {
	if l.DeliveryDate != nil {
		return *l.DeliveryDate
	}
	return l.OrderDate
}

// Pending returns the unpaid remainder of this line.
func (l OrderLine) Pending() decimal.Decimal {
	return l.TotalAmount.Sub(l.AmountPaid)
}

// Key returns the logical order this line belongs to.
func (l OrderLine) Key() LogicalOrderKey {
	return LogicalOrderKey{
		CustomerID: l.CustomerID,
		Date:       l.GroupDate().Format(dateLayout),
		SubArea:    l.SubArea,
	}
}

// LogicalOrderKey identifies a logical order: customer, delivery-or-order date, sub-area.
// An empty SubArea matches lines whose sub_area is NULL or empty.
type LogicalOrderKey struct {
	CustomerID string `json:"customer_id" validate:"required,uuid"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	SubArea    string `json:"sub_area"`
}

func (k LogicalOrderKey) String() string {
	return k.CustomerID + "|" + k.Date + "|" + k.SubArea
}

// LockKey is the distributed lock name that serialises mutations of this logical order.
func (k LogicalOrderKey) LockKey() string {
	return fmt.Sprintf("order:%s:%s:%s", k.CustomerID, k.Date, k.SubArea)
}

// ProductBreakdown is one fixed-slot column of a logical order.
type ProductBreakdown struct {
	ProductType string          `json:"product_type"`
	Quantity    decimal.Decimal `json:"quantity_kg"`
	Amount      decimal.Decimal `json:"amount"`
}

// LogicalOrder is the derived view of all lines sharing one LogicalOrderKey.
// It is never stored; GroupLines rebuilds it from order lines on every read.
type LogicalOrder struct {
	Key         LogicalOrderKey `json:"key"`
	OrderNumber int64           `json:"order_number"`
	Date        time.Time       `json:"date"`

	CustomerID      string `json:"customer_id"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	AreaID          string `json:"area_id,omitempty"`
	AreaName        string `json:"area_name"`
	SubArea         string `json:"sub_area"`

	DriverID    string `json:"driver_id,omitempty"`
	DriverName  string `json:"driver_name,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty"`

	Status      string             `json:"status"`
	IsPrinted   bool               `json:"is_printed"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	TotalPaid   decimal.Decimal    `json:"total_paid"`
	TotalKg     decimal.Decimal    `json:"total_kg"`
	Products    []ProductBreakdown `json:"products"`
	LineIDs     []string           `json:"line_ids"`
	Lines       []OrderLine        `json:"lines"`
}

// Pending returns TotalAmount − TotalPaid. A value ≤ 0 is shown as "Paid".
func (o LogicalOrder) Pending() decimal.Decimal {
	return o.TotalAmount.Sub(o.TotalPaid)
}

// IsPaid reports whether nothing is outstanding on the order.
func (o LogicalOrder) IsPaid() bool {
	return !o.Pending().IsPositive()
}

// IsPlaceholder reports whether the group holds only sentinel lines.
func (o LogicalOrder) IsPlaceholder() bool {
	for _, l := range o.Lines {
		if !IsSentinel(l.ProductType) {
			return false
		}
	}
	return true
}

// Product returns the breakdown entry for a fixed slot, or a zero entry.
func (o LogicalOrder) Product(productType string) ProductBreakdown {
	for _, p := range o.Products {
		if p.ProductType == productType {
			return p
		}
	}
	return ProductBreakdown{ProductType: productType}
}

// SlotInput is one product row of the entry or edit form.
// A zero Rate asks the service to resolve one.
type SlotInput struct {
	ProductType string          `json:"product_type" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity_kg"`
	Rate        decimal.Decimal `json:"rate_per_kg"`
}

// CreateOrderInput is the order entry request. Payment is allocated in SortSlots order.
type CreateOrderInput struct {
	CustomerName string          `json:"customer_name" validate:"required"`
	Phone        string          `json:"phone" validate:"required"`
	Address      string          `json:"address"`
	AreaID       string          `json:"area_id" validate:"required,uuid"`
	SubArea      string          `json:"sub_area"`
	Slots        []SlotInput     `json:"slots"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	DriverID     string          `json:"driver_id" validate:"omitempty,uuid"`
	DeliveryDate string          `json:"delivery_date"` // YYYY-MM-DD, empty for today
	Notes        string          `json:"notes"`
}

// EditOrderInput replaces the lines of the logical order identified by Key.
// An empty Status leaves the current status in place.
type EditOrderInput struct {
	Key          LogicalOrderKey `json:"key"`
	CustomerName string          `json:"customer_name" validate:"required"`
	Phone        string          `json:"phone" validate:"required"`
	Address      string          `json:"address"`
	AreaID       string          `json:"area_id" validate:"required,uuid"`
	SubArea      string          `json:"sub_area"`
	DriverID     string          `json:"driver_id" validate:"omitempty,uuid"`
	Status       string          `json:"status" validate:"omitempty,oneof=pending delivered cancelled"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	Slots        []SlotInput     `json:"slots"`
}

// OrderResult is returned by create and edit.
type OrderResult struct {
	Order        LogicalOrder `json:"order"`
	Inserted     int          `json:"inserted"`
	Updated      int          `json:"updated"`
	Deleted      int          `json:"deleted"`
	StockChanges []StockDelta `json:"stock_changes"`
}

// StockDelta is a signed change applied to one stock row.
type StockDelta struct {
	ProductType string          `json:"product_type"`
	Delta       decimal.Decimal `json:"delta_kg"`
}
