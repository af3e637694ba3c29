package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// GroupLines folds flat order lines into logical orders keyed by customer, date, and sub-area.
// Sentinel lines anchor a group but never count towards totals or the product breakdown.
// The result is sorted by date descending, then customer name, then key, so equal input
// always gives equal output.
func GroupLines(lines []OrderLine) []LogicalOrder {
	index := make(map[LogicalOrderKey]int)
	var groups []LogicalOrder

	sorted := make([]OrderLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OrderNumber != sorted[j].OrderNumber {
			return sorted[i].OrderNumber < sorted[j].OrderNumber
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, l := range sorted {
		key := l.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, newLogicalOrder(key, l))
		}
		groups[i].add(l)
	}

	for i := range groups {
		groups[i].finish()
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.CustomerName != b.CustomerName {
			return a.CustomerName < b.CustomerName
		}
		return a.Key.String() < b.Key.String()
	})
	return groups
}

func newLogicalOrder(key LogicalOrderKey, first OrderLine) LogicalOrder {
	products := make([]ProductBreakdown, len(ProductSlots))
	for i, p := range ProductSlots {
		products[i] = ProductBreakdown{ProductType: p}
	}
	return LogicalOrder{
		Key:             key,
		OrderNumber:     first.OrderNumber,
		Date:            first.GroupDate(),
		CustomerID:      first.CustomerID,
		CustomerName:    first.CustomerName,
		CustomerPhone:   first.CustomerPhone,
		CustomerAddress: first.CustomerAddress,
		AreaID:          first.AreaID,
		AreaName:        first.AreaName,
		SubArea:         first.SubArea,
		Status:          first.Status,
		TotalAmount:     decimal.Zero,
		TotalPaid:       decimal.Zero,
		TotalKg:         decimal.Zero,
		Products:        products,
	}
}

func (o *LogicalOrder) add(l OrderLine) {
	o.Lines = append(o.Lines, l)
	o.LineIDs = append(o.LineIDs, l.ID)
	if o.DriverID == "" && l.DriverID != "" {
		o.DriverID, o.DriverName, o.DriverPhone = l.DriverID, l.DriverName, l.DriverPhone
	}
	if IsSentinel(l.ProductType) {
		return
	}
	o.TotalAmount = o.TotalAmount.Add(l.TotalAmount)
	o.TotalPaid = o.TotalPaid.Add(l.AmountPaid)
	o.TotalKg = o.TotalKg.Add(l.Quantity)

	bucket := slotBucket(l.ProductType)
	for i := range o.Products {
		if o.Products[i].ProductType == bucket {
			o.Products[i].Quantity = o.Products[i].Quantity.Add(l.Quantity)
			o.Products[i].Amount = o.Products[i].Amount.Add(l.TotalAmount)
			break
		}
	}
}

// finish settles the fields that depend on which lines are real rather than placeholders.
func (o *LogicalOrder) finish() {
	printed := true
	real := false
	for _, l := range o.Lines {
		if IsSentinel(l.ProductType) {
			continue
		}
		if !real {
			o.Status = l.Status
			o.OrderNumber = l.OrderNumber
			real = true
		}
		printed = printed && l.IsPrinted
	}
	o.IsPrinted = real && printed
}

// Payment filter values.
const (
	PaymentAll     = "all"
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// OrderFilter narrows a list of logical orders. Zero fields match everything.
type OrderFilter struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	AreaID  string `json:"area_id"`
	SubArea string `json:"sub_area"`
	Payment string `json:"payment" validate:"omitempty,oneof=all pending paid"`
}

// Match reports whether o passes every set criterion.
func (f OrderFilter) Match(o LogicalOrder) bool {
	if f.Name != "" && !containsFold(o.CustomerName, f.Name) {
		return false
	}
	if f.Phone != "" && !strings.Contains(o.CustomerPhone, f.Phone) {
		return false
	}
	if f.AreaID != "" && o.AreaID != f.AreaID {
		return false
	}
	if f.SubArea != "" && !containsFold(o.SubArea, f.SubArea) {
		return false
	}
	switch f.Payment {
	case PaymentPending:
		return !o.IsPaid()
	case PaymentPaid:
		return o.IsPaid()
	}
	return true
}

// FilterGroups returns the groups matching f, preserving order.
func FilterGroups(groups []LogicalOrder, f OrderFilter) []LogicalOrder {
	out := make([]LogicalOrder, 0, len(groups))
	for _, g := range groups {
		if f.Match(g) {
			out = append(out, g)
		}
	}
	return out
}

// SplitByYear separates groups dated in year from older ones.
func SplitByYear(groups []LogicalOrder, year int) (current, past []LogicalOrder) {
	for _, g := range groups {
		if g.Date.Year() >= year {
			current = append(current, g)
		} else {
			past = append(past, g)
		}
	}
	return current, past
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
