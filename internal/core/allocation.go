package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AllocatePayment splits one aggregate payment across line totals, first line first.
// Each line takes min(total, remaining) and the remainder carries to the next line;
// any excess over the sum of totals is not assigned to a line.
func AllocatePayment(totals []decimal.Decimal, paid decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(totals))
	remaining := decimal.Max(paid, decimal.Zero)
	for i, t := range totals {
		linePaid := decimal.Min(t, remaining)
		if linePaid.IsNegative() {
			linePaid = decimal.Zero
		}
		out[i] = linePaid
		remaining = decimal.Max(decimal.Zero, remaining.Sub(linePaid))
	}
	return out
}

// SortSlots returns slots in allocation order: Tukdi, Sasiya, Tukdi D, Sasiya D, then every
// other type in the order given. Reports assume this order, so payment always follows it.
func SortSlots(slots []SlotInput) []SlotInput {
	rank := func(productType string) int {
		for i, p := range ProductSlots {
			if p == productType && p != ProductOther {
				return i
			}
		}
		return len(ProductSlots)
	}
	out := make([]SlotInput, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].ProductType) < rank(out[j].ProductType)
	})
	return out
}
