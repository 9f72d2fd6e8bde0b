package service

import (
	"context"
	"errors"
	"testing"

	"github.com/avetos/rental-backoffice/internal/model"
)

func newDraft(t *testing.T, env *testEnv) (quotationID, owner uint64) {
	t.Helper()
	owner = env.seedUser(t)
	client := env.seedClient(t)
	q, err := env.svc.Create(context.Background(), QuotationInput{ClientID: client, OwnerID: owner})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	return q.ID, owner
}

func TestSetStatusWalksTheMachine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, owner := newDraft(t, env)

	q, err := env.svc.SetStatus(ctx, id, "sent", owner, nil)
	if err != nil {
		t.Fatalf("draft→sent: %v", err)
	}
	if q.Status != "sent" || q.SentAt == nil {
		t.Errorf("after send: %+v", q)
	}

	note := "client chose a competitor"
	if _, err := env.svc.SetStatus(ctx, id, "declined", owner, &note); err != nil {
		t.Fatalf("sent→declined: %v", err)
	}

	hist, err := env.svc.History(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("got %d history rows, want 3", len(hist))
	}
	last := hist[2]
	if last.OldStatus == nil || *last.OldStatus != "sent" || last.NewStatus != "declined" {
		t.Errorf("last entry = %+v", last)
	}
	if last.Note == nil || *last.Note != note {
		t.Errorf("note = %v, want %q", last.Note, note)
	}
	if last.ChangedBy == nil || *last.ChangedBy != owner {
		t.Errorf("changed_by = %v, want %d", last.ChangedBy, owner)
	}
}

func TestSetStatusRejectsIllegalEdges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, owner := newDraft(t, env)

	// A draft cannot be declined, expired or converted directly.
	var cerr *ConflictError
	for _, to := range []string{"declined", "expired", "converted"} {
		if _, err := env.svc.SetStatus(ctx, id, to, owner, nil); !errors.As(err, &cerr) {
			t.Errorf("draft→%s: err = %v, want ConflictError", to, err)
		}
	}

	// Declined is terminal.
	if _, err := env.svc.SetStatus(ctx, id, "sent", owner, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := env.svc.SetStatus(ctx, id, "declined", owner, nil); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := env.svc.SetStatus(ctx, id, "sent", owner, nil); !errors.As(err, &cerr) {
		t.Errorf("declined→sent: err = %v, want ConflictError", err)
	}
}

func TestSetStatusRejectsUnknownAndAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, owner := newDraft(t, env)

	var verr *ValidationError
	if _, err := env.svc.SetStatus(ctx, id, "approved", owner, nil); !errors.As(err, &verr) {
		t.Errorf("unknown status: err = %v, want ValidationError", err)
	}
	// Acceptance commits reservations and must go through Accept.
	if _, err := env.svc.SetStatus(ctx, id, "accepted", owner, nil); !errors.As(err, &verr) {
		t.Errorf("accepted via SetStatus: err = %v, want ValidationError", err)
	}
}

func TestSetStatusSameStatusIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, owner := newDraft(t, env)

	q, err := env.svc.SetStatus(ctx, id, "draft", owner, nil)
	if err != nil {
		t.Fatalf("draft→draft: %v", err)
	}
	if q.Status != "draft" {
		t.Errorf("status = %q", q.Status)
	}
	hist, _ := env.svc.History(ctx, id)
	if len(hist) != 1 {
		t.Errorf("no-op transition recorded history: %+v", hist)
	}
}

func TestCancellingAcceptedReleasesReservations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, "SPK-01", "rentable", 250, 15, intp(2))
	q, owner := acceptFixture(t, env, []LineInput{{ItemID: item, Quantity: 2}})
	if _, err := env.svc.Accept(ctx, q.ID, owner, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := env.svc.SetStatus(ctx, q.ID, "cancelled", owner, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	rows, err := env.res.ListByQuotation(ctx, q.ID)
	if err != nil {
		t.Fatalf("list reservations: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("reservations survive cancellation: %+v", rows)
	}

	// The released capacity is immediately usable by someone else.
	client2 := env.seedClient(t)
	event2 := env.seedEvent(t, jan(10, 0), jan(12, 0))
	q2, err := env.svc.Create(ctx, QuotationInput{
		ClientID: client2, OwnerID: owner, EventID: u64p(event2),
		Lines: []LineInput{{ItemID: item, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create q2: %v", err)
	}
	if _, err := env.svc.Accept(ctx, q2.ID, owner, nil); err != nil {
		t.Fatalf("accept q2 after release: %v", err)
	}
}

func TestAcceptedToConverted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, "SPK-01", "rentable", 250, 15, intp(2))
	q, owner := acceptFixture(t, env, []LineInput{{ItemID: item, Quantity: 1}})
	if _, err := env.svc.Accept(ctx, q.ID, owner, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, err := env.svc.SetStatus(ctx, q.ID, "converted", owner, nil)
	if err != nil {
		t.Fatalf("accepted→converted: %v", err)
	}
	if got.Status != model.StatusConverted {
		t.Errorf("status = %q", got.Status)
	}
	// Conversion keeps the reservations.
	rows, _ := env.res.ListByQuotation(ctx, q.ID)
	if len(rows) != 1 {
		t.Errorf("reservations after conversion = %+v, want kept", rows)
	}
}
