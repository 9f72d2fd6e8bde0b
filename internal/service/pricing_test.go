package service

import (
	"math"
	"testing"

	"github.com/avetos/rental-backoffice/internal/model"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRound2(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{0.125, 0.13},
		{-0.125, -0.13},
		{1.004, 1.00},
		{19.999, 20.00},
		{1234.5678, 1234.57},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Errorf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestComputeLine(t *testing.T) {
	a := ComputeLine(4, 250, 10, 15)
	if !almostEqual(a.Gross, 1000) {
		t.Errorf("gross = %v, want 1000", a.Gross)
	}
	if !almostEqual(a.Discount, 100) {
		t.Errorf("discount = %v, want 100", a.Discount)
	}
	if !almostEqual(a.Subtotal, 900) {
		t.Errorf("subtotal = %v, want 900", a.Subtotal)
	}
	if !almostEqual(a.Tax, 135) {
		t.Errorf("tax = %v, want 135", a.Tax)
	}
	if !almostEqual(a.Total, 1035) {
		t.Errorf("total = %v, want 1035", a.Total)
	}
}

func TestComputeLineZeroDiscountAndTax(t *testing.T) {
	a := ComputeLine(3, 19.99, 0, 0)
	if !almostEqual(a.Subtotal, 59.97) || !almostEqual(a.Tax, 0) || !almostEqual(a.Total, 59.97) {
		t.Errorf("unexpected amounts: %+v", a)
	}
}

func TestComputeTotals(t *testing.T) {
	lines := []model.QuotationLine{
		{Quantity: 4, UnitPrice: 250, DiscountPct: 10, TaxRate: 15},
		{Quantity: 2, UnitPrice: 75.50, DiscountPct: 0, TaxRate: 15},
	}
	got := ComputeTotals(lines)
	// Line 1: 900 base, 135 tax.  Line 2: 151 base, 22.65 tax.
	want := Totals{Subtotal: 1051, DiscountTotal: 100, TaxTotal: 157.65, Total: 1208.65}
	if !almostEqual(got.Subtotal, want.Subtotal) || !almostEqual(got.DiscountTotal, want.DiscountTotal) ||
		!almostEqual(got.TaxTotal, want.TaxTotal) || !almostEqual(got.Total, want.Total) {
		t.Errorf("ComputeTotals = %+v, want %+v", got, want)
	}
}

func TestComputeTotalsIdempotent(t *testing.T) {
	lines := []model.QuotationLine{
		{Quantity: 7, UnitPrice: 33.33, DiscountPct: 12.5, TaxRate: 15},
		{Quantity: 1, UnitPrice: 0.01, DiscountPct: 0, TaxRate: 15},
	}
	first := ComputeTotals(lines)
	second := ComputeTotals(lines)
	if first != second {
		t.Errorf("totals changed between runs: %+v vs %+v", first, second)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	if got := ComputeTotals(nil); got != (Totals{}) {
		t.Errorf("ComputeTotals(nil) = %+v, want zero", got)
	}
}
