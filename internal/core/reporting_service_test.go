package core_test

import (
	"testing"

	"grain-orders/internal/core"
)

func TestSummarizeReport(t *testing.T) {
	groups := core.GroupLines(sampleLines())
	r := core.SummarizeReport(groups, dec("50"))

	if !r.Income.Equal(dec("300")) {
		t.Errorf("expected income 130+40+130, got %s", r.Income)
	}
	if r.OrderCount != 3 {
		t.Errorf("placeholder-only groups must not count, got %d", r.OrderCount)
	}
	if !r.Profit.Equal(dec("250")) {
		t.Errorf("expected profit 250, got %s", r.Profit)
	}
}
