package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avetos/rental-backoffice/internal/model"
	"github.com/avetos/rental-backoffice/internal/repository"
)

// The repositories speak a dialect-neutral SQL (string timestamps, ?
// placeholders, no server-side time functions), so the tests run the
// exact production statements against an in-memory sqlite database.
const testSchema = `
CREATE TABLE users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    full_name     TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL,
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);
CREATE TABLE refresh_tokens (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER NOT NULL,
    token_hash TEXT NOT NULL UNIQUE,
    expires_at TEXT NOT NULL,
    revoked_at TEXT,
    created_at TEXT NOT NULL
);
CREATE TABLE clients (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    tax_id     TEXT,
    email      TEXT,
    phone      TEXT,
    address    TEXT,
    active     INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE contacts (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id  INTEGER NOT NULL,
    name       TEXT NOT NULL,
    email      TEXT,
    phone      TEXT,
    position   TEXT,
    is_primary INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE suppliers (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    tax_id     TEXT,
    email      TEXT,
    phone      TEXT,
    address    TEXT,
    notes      TEXT,
    active     INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE items (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    sku               TEXT NOT NULL UNIQUE,
    name              TEXT NOT NULL,
    item_type         TEXT NOT NULL,
    unit              TEXT NOT NULL DEFAULT 'unit',
    default_rate      REAL NOT NULL DEFAULT 0,
    tax_rate          REAL NOT NULL DEFAULT 0,
    rentable_capacity INTEGER,
    supplier_id       INTEGER,
    active            INTEGER NOT NULL DEFAULT 1,
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL
);
CREATE TABLE inventory_balances (
    item_id    INTEGER PRIMARY KEY,
    on_hand    REAL NOT NULL DEFAULT 0,
    min_level  REAL NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);
CREATE TABLE bundle_items (
    bundle_id INTEGER NOT NULL,
    item_id   INTEGER NOT NULL,
    quantity  REAL NOT NULL DEFAULT 1,
    PRIMARY KEY (bundle_id, item_id)
);
CREATE TABLE assets (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id    INTEGER NOT NULL,
    serial_no  TEXT NOT NULL,
    active     INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);
CREATE TABLE events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    client_id  INTEGER,
    venue      TEXT,
    start_at   TEXT NOT NULL,
    end_at     TEXT NOT NULL,
    timezone   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE quotations (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    quote_number   TEXT NOT NULL UNIQUE,
    public_ref     TEXT NOT NULL UNIQUE,
    client_id      INTEGER NOT NULL,
    contact_id     INTEGER,
    event_id       INTEGER,
    owner_id       INTEGER NOT NULL,
    currency       TEXT NOT NULL DEFAULT 'HNL',
    exchange_rate  REAL NOT NULL DEFAULT 1,
    status         TEXT NOT NULL DEFAULT 'draft',
    subtotal       REAL NOT NULL DEFAULT 0,
    discount_total REAL NOT NULL DEFAULT 0,
    tax_total      REAL NOT NULL DEFAULT 0,
    total          REAL NOT NULL DEFAULT 0,
    deposit_due    REAL NOT NULL DEFAULT 0,
    valid_until    TEXT,
    notes_internal TEXT,
    notes_client   TEXT,
    terms          TEXT,
    sent_at        TEXT,
    accepted_at    TEXT,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);
CREATE TABLE quotation_items (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    quotation_id  INTEGER NOT NULL,
    item_id       INTEGER NOT NULL,
    custom_name   TEXT NOT NULL,
    description   TEXT,
    section       TEXT,
    item_type     TEXT NOT NULL,
    quantity      REAL NOT NULL,
    unit          TEXT NOT NULL,
    unit_price    REAL NOT NULL,
    discount_pct  REAL NOT NULL DEFAULT 0,
    tax_rate      REAL NOT NULL DEFAULT 0,
    line_subtotal REAL NOT NULL DEFAULT 0,
    line_tax      REAL NOT NULL DEFAULT 0,
    line_total    REAL NOT NULL DEFAULT 0,
    start_at      TEXT,
    end_at        TEXT,
    sort_order    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE quotation_status_history (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    quotation_id INTEGER NOT NULL,
    old_status   TEXT,
    new_status   TEXT NOT NULL,
    changed_by   INTEGER,
    note         TEXT,
    created_at   TEXT NOT NULL
);
CREATE TABLE reservations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id      INTEGER NOT NULL,
    quotation_id INTEGER NOT NULL,
    event_id     INTEGER NOT NULL DEFAULT 0,
    start_at     TEXT NOT NULL,
    end_at       TEXT NOT NULL,
    quantity     INTEGER NOT NULL,
    status       TEXT NOT NULL,
    created_at   TEXT NOT NULL
);
`

type testEnv struct {
	db      *sql.DB
	svc     *QuotationService
	items   *repository.ItemRepo
	events  *repository.EventRepo
	quotes  *repository.QuotationRepo
	res     *repository.ReservationRepo
	clients *repository.ClientRepo
	users   *repository.UserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A single connection keeps every statement on the same in-memory
	// database.
	db.SetMaxOpenConns(1)
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

func (e *testEnv) seedUser(t *testing.T) uint64 {
	t.Helper()
	id, err := e.users.Create(context.Background(), "Test Seller", "seller@example.com", "secret", model.RoleSales, 4)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func (e *testEnv) seedClient(t *testing.T) uint64 {
	t.Helper()
	id, err := e.clients.Create(context.Background(), model.Client{Name: "Hotel Maribel", Active: true})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return id
}

func (e *testEnv) seedItem(t *testing.T, sku, itemType string, rate, tax float64, capacity *int) uint64 {
	t.Helper()
	id, err := e.items.Create(context.Background(), model.Item{
		SKU: sku, Name: "Item " + sku, ItemType: itemType, Unit: "unit",
		DefaultRate: rate, TaxRate: tax, RentableCapacity: capacity, Active: true,
	})
	if err != nil {
		t.Fatalf("seed item %s: %v", sku, err)
	}
	return id
}

func (e *testEnv) seedEvent(t *testing.T, start, end time.Time) uint64 {
	t.Helper()
	id, err := e.events.Create(context.Background(), model.Event{
		Name: "Test Event", StartAt: start, EndAt: end, Timezone: "America/Tegucigalpa",
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return id
}

func intp(n int) *int              { return &n }
func u64p(n uint64) *uint64        { return &n }
func f64p(f float64) *float64      { return &f }
func timep(t time.Time) *time.Time { return &t }

func jan(day, hour int) time.Time {
	return time.Date(2026, time.January, day, hour, 0, 0, 0, time.UTC)
}
