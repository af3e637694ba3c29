package core

import "github.com/shopspring/decimal"

// EditAction is what an edit does to the line stored for one slot.
type EditAction int

const (
	EditNone EditAction = iota
	EditUpdate
	EditInsert
	EditDelete
)

func (a EditAction) String() string {
	switch a {
	case EditUpdate:
		return "update"
	case EditInsert:
		return "insert"
	case EditDelete:
		return "delete"
	}
	return "none"
}

// SlotAction is the planned outcome for one stored line of a logical order edit, or for a
// slot with no stored line. StockDelta is old quantity minus new quantity for ProductType,
// zero for sentinel types.
type SlotAction struct {
	Kind        EditAction
	ProductType string
	LineID      string // existing line, empty for inserts
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Total       decimal.Decimal
	Paid        decimal.Decimal
	StockDelta  decimal.Decimal
}

// MatchSlots pairs each slot with the existing lines it replaces, in existing order.
// A slot takes every line of its own product type. The Other slot also takes lines of
// varieties outside the fixed set that no slot names, as the grouped view folds them into
// Other. Sentinel lines are never matched.
func MatchSlots(existing []OrderLine, slots []SlotInput) [][]OrderLine {
	named := make(map[string]bool, len(slots))
	for _, s := range slots {
		named[s.ProductType] = true
	}
	claimed := make(map[string]bool, len(existing))
	matches := make([][]OrderLine, len(slots))
	for i, s := range slots {
		for _, l := range existing {
			if claimed[l.ID] || IsSentinel(l.ProductType) {
				continue
			}
			folded := s.ProductType == ProductOther && !named[l.ProductType] && slotBucket(l.ProductType) == ProductOther
			if l.ProductType == s.ProductType || folded {
				claimed[l.ID] = true
				matches[i] = append(matches[i], l)
			}
		}
	}
	return matches
}

// PlanEdit reconciles the existing lines of a logical order against the edited slots.
// Slots must carry resolved rates. Payment is re-allocated across positive slots in the
// fixed SortSlots order, which is also the order of the returned actions. Existing lines
// that no slot matches are left alone.
//
// A slot's old quantity is the sum over every line it matches. A positive slot updates the
// first matched line and deletes the rest; a zero slot deletes them all. Each action moves
// stock for its own line's product type, so the deltas of one slot add up to old minus new.
func PlanEdit(existing []OrderLine, slots []SlotInput, paid decimal.Decimal) []SlotAction {
	slots = SortSlots(slots)
	matches := MatchSlots(existing, slots)

	var totals []decimal.Decimal
	for _, s := range slots {
		if s.Quantity.IsPositive() {
			totals = append(totals, s.Quantity.Mul(s.Rate))
		}
	}
	allocated := AllocatePayment(totals, paid)

	actions := make([]SlotAction, 0, len(slots))
	next := 0
	for i, s := range slots {
		lines := matches[i]
		rest := lines
		if s.Quantity.IsPositive() {
			a := SlotAction{
				Kind:        EditInsert,
				ProductType: s.ProductType,
				Quantity:    s.Quantity,
				Rate:        s.Rate,
				Total:       totals[next],
				Paid:        allocated[next],
			}
			next++
			oldQty := decimal.Zero
			if len(lines) > 0 {
				a.Kind = EditUpdate
				a.LineID = lines[0].ID
				a.ProductType = lines[0].ProductType
				oldQty = lines[0].Quantity
				rest = lines[1:]
			}
			if TracksStock(a.ProductType) {
				a.StockDelta = oldQty.Sub(s.Quantity)
			}
			actions = append(actions, a)
		} else if len(lines) == 0 {
			actions = append(actions, SlotAction{Kind: EditNone, ProductType: s.ProductType, Quantity: s.Quantity, Rate: s.Rate})
		}

		for _, l := range rest {
			a := SlotAction{Kind: EditDelete, ProductType: l.ProductType, LineID: l.ID, Rate: l.Rate}
			if TracksStock(l.ProductType) {
				a.StockDelta = l.Quantity
			}
			actions = append(actions, a)
		}
	}
	return actions
}
