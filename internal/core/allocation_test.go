package core_test

import (
	"testing"

	"grain-orders/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decs(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = dec(v)
	}
	return out
}

func TestAllocatePayment(t *testing.T) {
	tests := []struct {
		name   string
		totals []decimal.Decimal
		paid   string
		want   []decimal.Decimal
	}{
		{"Ravi: first line filled before second", decs("100", "30"), "110", decs("100", "10")},
		{"exact payment", decs("100", "30"), "130", decs("100", "30")},
		{"overpayment is not assigned", decs("100", "30"), "500", decs("100", "30")},
		{"nothing paid", decs("100", "30", "20"), "0", decs("0", "0", "0")},
		{"partial first line", decs("100", "30"), "40", decs("40", "0")},
		{"order matters, not size", decs("30", "100"), "110", decs("30", "80")},
		{"zero-value line in between", decs("50", "0", "50"), "70", decs("50", "0", "20")},
		{"no lines", nil, "100", decs()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.AllocatePayment(tt.totals, dec(tt.paid))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d allocations, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("line %d: expected paid %s, got %s", i+1, tt.want[i], got[i])
				}
			}
		})
	}
}

// Σpaid = min(P, Σt) and each line never exceeds its total.
func TestAllocatePayment_SumProperty(t *testing.T) {
	totals := decs("12.50", "7", "0", "30.25", "100")
	sumT := decimal.Sum(decimal.Zero, totals...)

	for _, p := range []string{"0", "5", "12.50", "19.49", "49.75", "149.75", "1000"} {
		paid := dec(p)
		got := core.AllocatePayment(totals, paid)

		sumPaid := decimal.Sum(decimal.Zero, got...)
		want := decimal.Min(paid, sumT)
		if !sumPaid.Equal(want) {
			t.Errorf("paid %s: expected sum %s, got %s", p, want, sumPaid)
		}

		remaining := paid
		for i, g := range got {
			expected := decimal.Min(totals[i], remaining)
			if !g.Equal(expected) {
				t.Errorf("paid %s line %d: expected %s, got %s", p, i+1, expected, g)
			}
			remaining = decimal.Max(decimal.Zero, remaining.Sub(g))
		}
	}
}

func TestSortSlots_FixedAllocationOrder(t *testing.T) {
	in := []core.SlotInput{
		{ProductType: "Lokwan"},
		{ProductType: core.ProductSasiyaD},
		{ProductType: core.ProductOther},
		{ProductType: core.ProductTukdi},
		{ProductType: core.ProductSasiya},
	}
	got := core.SortSlots(in)
	want := []string{core.ProductTukdi, core.ProductSasiya, core.ProductSasiyaD, "Lokwan", core.ProductOther}
	for i, w := range want {
		if got[i].ProductType != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, got[i].ProductType)
		}
	}
	if in[0].ProductType != "Lokwan" {
		t.Error("SortSlots must not reorder its input")
	}
}
