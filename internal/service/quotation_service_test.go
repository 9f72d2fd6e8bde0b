package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCreateAssignsSequentialQuoteNumbers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)

	year := time.Now().UTC().Year()
	for i, want := range []string{
		fmt.Sprintf("AVV-%d-0001", year),
		fmt.Sprintf("AVV-%d-0002", year),
		fmt.Sprintf("AVV-%d-0003", year),
	} {
		q, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if q.QuoteNumber != want {
			t.Errorf("quote number = %q, want %q", q.QuoteNumber, want)
		}
		if q.Status != "draft" {
			t.Errorf("status = %q, want draft", q.Status)
		}
		if q.Currency != "HNL" {
			t.Errorf("currency = %q, want HNL", q.Currency)
		}
		if q.PublicRef == "" {
			t.Error("public ref not assigned")
		}
	}
}

func TestCreateWithLinesComputesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)
	speaker := env.seedItem(t, "SPK-01", "rentable", 250, 15, intp(10))
	crew := env.seedItem(t, "SRV-01", "service", 500, 0, nil)

	q, err := env.svc.Create(ctx, QuotationInput{
		ClientID: client,
		OwnerID:  owner,
		Lines: []LineInput{
			{ItemID: speaker, Quantity: 4, DiscountPct: 10},
			{ItemID: crew, Quantity: 2, UnitPrice: f64p(450)},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Speaker: 4×250 −10% = 900 base + 135 tax.  Crew: 2×450 = 900, no tax.
	if q.Subtotal != 1800 || q.DiscountTotal != 100 || q.TaxTotal != 135 || q.Total != 1935 {
		t.Errorf("totals = %v/%v/%v/%v, want 1800/100/135/1935",
			q.Subtotal, q.DiscountTotal, q.TaxTotal, q.Total)
	}

	lines, err := env.quotes.LinesByQuotation(ctx, q.ID)
	if err != nil {
		t.Fatalf("load lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	// Snapshot: default rate and tax from the item, override applied on
	// the second line.
	if lines[0].UnitPrice != 250 || lines[0].TaxRate != 15 || lines[0].CustomName != "Item SPK-01" {
		t.Errorf("line 1 snapshot = %+v", lines[0])
	}
	if lines[1].UnitPrice != 450 || lines[1].SortOrder != 2 {
		t.Errorf("line 2 snapshot = %+v", lines[1])
	}

	hist, err := env.svc.History(ctx, q.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].NewStatus != "draft" || hist[0].OldStatus != nil {
		t.Errorf("history = %+v, want single draft entry", hist)
	}
}

func TestCreateRejectsInactiveItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)
	item := env.seedItem(t, "OLD-01", "rentable", 100, 15, intp(1))
	if err := env.items.SetActive(ctx, item, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := env.svc.Create(ctx, QuotationInput{
		ClientID: client, OwnerID: owner,
		Lines: []LineInput{{ItemID: item, Quantity: 1}},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	// The failed creation must not burn a quote number.
	q, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := fmt.Sprintf("AVV-%d-0001", time.Now().UTC().Year())
	if q.QuoteNumber != want {
		t.Errorf("quote number = %q, want %q", q.QuoteNumber, want)
	}
}

func TestLineInputValidation(t *testing.T) {
	cases := []LineInput{
		{ItemID: 0, Quantity: 1},
		{ItemID: 1, Quantity: 0},
		{ItemID: 1, Quantity: -2},
		{ItemID: 1, Quantity: 1, DiscountPct: 101},
		{ItemID: 1, Quantity: 1, DiscountPct: -1},
		{ItemID: 1, Quantity: 1, UnitPrice: f64p(-5)},
		{ItemID: 1, Quantity: 1, TaxRate: f64p(120)},
		{ItemID: 1, Quantity: 1, StartAt: timep(jan(12, 0)), EndAt: timep(jan(12, 0))},
	}
	for i, in := range cases {
		err := validateLineInput(in)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("case %d: err = %v, want ValidationError", i, err)
		}
	}
	if err := validateLineInput(LineInput{ItemID: 1, Quantity: 1.5, DiscountPct: 100}); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}
}

func TestAddUpdateDeleteLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)
	item := env.seedItem(t, "MIC-01", "rentable", 100, 15, intp(5))

	q, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tot, err := env.svc.AddLine(ctx, q.ID, LineInput{ItemID: item, Quantity: 2})
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if tot.Subtotal != 200 || tot.Total != 230 {
		t.Errorf("after add: %+v", tot)
	}

	lines, _ := env.quotes.LinesByQuotation(ctx, q.ID)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	lineID := lines[0].ID

	tot, err = env.svc.UpdateLine(ctx, q.ID, lineID, LineInput{Quantity: 3, DiscountPct: 50})
	if err != nil {
		t.Fatalf("update line: %v", err)
	}
	// 3×100 −50% = 150 base, 22.50 tax.
	if tot.Subtotal != 150 || tot.TaxTotal != 22.5 || tot.Total != 172.5 {
		t.Errorf("after update: %+v", tot)
	}

	tot, err = env.svc.DeleteLine(ctx, q.ID, lineID)
	if err != nil {
		t.Fatalf("delete line: %v", err)
	}
	if tot.Total != 0 {
		t.Errorf("after delete: %+v", tot)
	}
}

func TestLineMutationsRequireDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)
	item := env.seedItem(t, "CAM-01", "rentable", 100, 15, intp(5))

	q, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.SetStatus(ctx, q.ID, "sent", owner, nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, err = env.svc.AddLine(ctx, q.ID, LineInput{ItemID: item, Quantity: 1})
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("add on sent: err = %v, want ConflictError", err)
	}
	if _, err := env.svc.UpdateHeader(ctx, q.ID, HeaderInput{DepositDue: f64p(10)}); !errors.As(err, &cerr) {
		t.Errorf("header edit on sent: err = %v, want ConflictError", err)
	}
}

func TestUpdateHeaderValidatesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)

	q, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var verr *ValidationError
	bad := []HeaderInput{
		{Currency: strp("EURO")},
		{ExchangeRate: f64p(0)},
		{DepositDue: f64p(-1)},
	}
	for i, in := range bad {
		if _, err := env.svc.UpdateHeader(ctx, q.ID, in); !errors.As(err, &verr) {
			t.Errorf("case %d: err = %v, want ValidationError", i, err)
		}
	}

	got, err := env.svc.UpdateHeader(ctx, q.ID, HeaderInput{
		Currency:   strp("usd"),
		DepositDue: f64p(500),
	})
	if err != nil {
		t.Fatalf("update header: %v", err)
	}
	if got.Currency != "USD" || got.DepositDue != 500 {
		t.Errorf("header = %+v", got)
	}
}

func TestDeleteOnlyDraftOrCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)

	q, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.SetStatus(ctx, q.ID, "sent", owner, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	var cerr *ConflictError
	if err := env.svc.Delete(ctx, q.ID); !errors.As(err, &cerr) {
		t.Fatalf("delete sent: err = %v, want ConflictError", err)
	}
	if _, err := env.svc.SetStatus(ctx, q.ID, "cancelled", owner, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := env.svc.Delete(ctx, q.ID); err != nil {
		t.Fatalf("delete cancelled: %v", err)
	}
}

func TestCreateValidatesCurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)

	q, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner, Currency: "usd"})
	if err != nil {
		t.Fatalf("create usd: %v", err)
	}
	if q.Currency != "USD" {
		t.Errorf("currency = %q, want USD", q.Currency)
	}

	for _, bad := range []string{"EURO", "X", "HN"} {
		var verr *ValidationError
		if _, err := env.svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner, Currency: bad}); !errors.As(err, &verr) {
			t.Errorf("create %q: err = %v, want ValidationError", bad, err)
		}
	}
}

func TestCreateUsesConfiguredDefaultCurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)

	svc := NewQuotationService(env.db, env.quotes, env.items, env.events, env.res, "AVV", "USD")
	q, err := svc.Create(ctx, QuotationInput{ClientID: client, OwnerID: owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.Currency != "USD" {
		t.Errorf("currency = %q, want USD", q.Currency)
	}
}

func strp(s string) *string { return &s }
