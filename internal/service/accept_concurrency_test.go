package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/avetos/rental-backoffice/internal/repository"
)

// newFileTestEnv is the two-connection variant of newTestEnv: a
// file-backed database so separate connections see the same data, with
// an immediate transaction lock so a second write transaction waits for
// the first instead of failing on a lock upgrade.
func newFileTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_txlock=immediate&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(2)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	items := repository.NewItemRepo(db)
	events := repository.NewEventRepo(db)
	quotes := repository.NewQuotationRepo(db)
	res := repository.NewReservationRepo(db)
	return &testEnv{
		db:      db,
		svc:     NewQuotationService(db, quotes, items, events, res, "AVV", "HNL"),
		items:   items,
		events:  events,
		quotes:  quotes,
		res:     res,
		clients: repository.NewClientRepo(db),
		users:   repository.NewUserRepo(db),
	}
}

// Two quotations race to accept overlapping windows whose combined
// demand exceeds capacity.  Exactly one may win, and the committed
// reserved quantity must stay within capacity.
func TestConcurrentAcceptNeverExceedsCapacity(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	client := env.seedClient(t)
	item := env.seedItem(t, "SPK-01", "rentable", 250, 15, intp(3))
	event := env.seedEvent(t, jan(10, 0), jan(12, 0))

	ids := make([]uint64, 2)
	for i := range ids {
		q, err := env.svc.Create(ctx, QuotationInput{
			ClientID: client, OwnerID: owner, EventID: u64p(event),
			Lines: []LineInput{{ItemID: item, Quantity: 2}},
		})
		if err != nil {
			t.Fatalf("create quotation %d: %v", i, err)
		}
		ids[i] = q.ID
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			_, errs[i] = env.svc.Accept(ctx, id, owner, nil)
		}(i, id)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var cerr *CapacityError
		if !errors.As(err, &cerr) {
			t.Fatalf("accept %d: err = %v, want CapacityError", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}

	var total sql.NullInt64
	err := env.db.QueryRowContext(ctx,
		`SELECT SUM(quantity) FROM reservations WHERE item_id = ? AND status = 'firm'`, item).Scan(&total)
	if err != nil {
		t.Fatalf("sum reservations: %v", err)
	}
	if total.Int64 > 3 {
		t.Fatalf("committed quantity = %d, exceeds capacity 3", total.Int64)
	}
	if total.Int64 != 2 {
		t.Errorf("committed quantity = %d, want 2", total.Int64)
	}
}
