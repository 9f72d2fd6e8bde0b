package service

import (
	"context"
	"database/sql"
	"math"

	"github.com/avetos/rental-backoffice/internal/model"
)

// LineAmounts holds the computed monetary snapshot of one line.
// Subtotal is the base after discount and before tax.
type LineAmounts struct {
	Gross    float64
	Discount float64
	Subtotal float64
	Tax      float64
	Total    float64
}

// Totals holds the header aggregates of a quotation.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	DiscountTotal float64 `json:"discount_total"`
	TaxTotal      float64 `json:"tax_total"`
	Total         float64 `json:"total"`
}

// Round2 rounds half away from zero to two decimal places; every stored
// monetary amount goes through it.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ComputeLine derives the amounts of one line from its snapshot fields:
// gross = quantity × unit price, discount = gross × pct/100,
// subtotal = gross − discount, tax = subtotal × rate/100,
// total = subtotal + tax.  Values are not rounded here so header sums
// accumulate full precision; rounding happens when amounts are stored.
func ComputeLine(quantity, unitPrice, discountPct, taxRate float64) LineAmounts {
	gross := quantity * unitPrice
	discount := gross * discountPct / 100
	subtotal := gross - discount
	tax := subtotal * taxRate / 100
	return LineAmounts{
		Gross:    gross,
		Discount: discount,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// ComputeTotals aggregates the header totals from a line set.  Amounts
// are rounded to two decimals at the end, making the computation
// idempotent: running it again on unchanged lines yields identical
// numbers.
func ComputeTotals(lines []model.QuotationLine) Totals {
	var t Totals
	for _, l := range lines {
		a := ComputeLine(l.Quantity, l.UnitPrice, l.DiscountPct, l.TaxRate)
		t.Subtotal += a.Subtotal
		t.DiscountTotal += a.Discount
		t.TaxTotal += a.Tax
		t.Total += a.Total
	}
	t.Subtotal = Round2(t.Subtotal)
	t.DiscountTotal = Round2(t.DiscountTotal)
	t.TaxTotal = Round2(t.TaxTotal)
	t.Total = Round2(t.Total)
	return t
}

// recomputeTx rewrites each line's snapshot amounts and the header
// aggregates within an existing transaction.
func (s *QuotationService) recomputeTx(ctx context.Context, tx *sql.Tx, quotationID uint64) (Totals, error) {
	lines, err := s.quotes.LinesByQuotationTx(ctx, tx, quotationID)
	if err != nil {
		return Totals{}, err
	}
	for _, l := range lines {
		a := ComputeLine(l.Quantity, l.UnitPrice, l.DiscountPct, l.TaxRate)
		if err := s.quotes.UpdateLineAmountsTx(ctx, tx, l.ID,
			Round2(a.Subtotal), Round2(a.Tax), Round2(a.Total)); err != nil {
			return Totals{}, err
		}
	}
	t := ComputeTotals(lines)
	if err := s.quotes.UpdateTotalsTx(ctx, tx, quotationID, t.Subtotal, t.DiscountTotal, t.TaxTotal, t.Total); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// RecomputeTotals reloads a quotation's lines, rewrites each line's
// snapshot amounts and the header aggregates, all inside one
// transaction.  It runs after every line insert, update or delete.
func (s *QuotationService) RecomputeTotals(ctx context.Context, quotationID uint64) (Totals, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Totals{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	t, err := s.recomputeTx(ctx, tx, quotationID)
	if err != nil {
		return Totals{}, err
	}
	if err := tx.Commit(); err != nil {
		return Totals{}, err
	}
	committed = true
	return t, nil
}
