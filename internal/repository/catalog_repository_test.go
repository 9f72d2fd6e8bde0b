package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/avetos/rental-backoffice/internal/model"
)

const catalogSchema = `
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
CREATE TABLE assets (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id    INTEGER NOT NULL,
    serial_no  TEXT NOT NULL,
    active     INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);
`

func newCatalogDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(catalogSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedSupplier(t *testing.T, sp *SupplierRepo, name string) uint64 {
	t.Helper()
	id, err := sp.Create(context.Background(), model.Supplier{Name: name, Active: true})
	if err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	return id
}

func TestItemSupplierLinkRoundTrip(t *testing.T) {
	db := newCatalogDB(t)
	ctx := context.Background()
	items := NewItemRepo(db)
	suppliers := NewSupplierRepo(db)

	supID := seedSupplier(t, suppliers, "ProAudio Imports")
	id, err := items.Create(ctx, model.Item{
		SKU: "CBL-01", Name: "XLR Cable", ItemType: model.ItemTypeConsumable,
		Unit: "unit", DefaultRate: 12, SupplierID: &supID, Active: true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	it, err := items.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if it.SupplierID == nil || *it.SupplierID != supID {
		t.Fatalf("supplier id = %v, want %d", it.SupplierID, supID)
	}

	// Clearing the link via update persists NULL.
	it.SupplierID = nil
	if err := items.Update(ctx, it); err != nil {
		t.Fatalf("update item: %v", err)
	}
	it, err = items.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if it.SupplierID != nil {
		t.Fatalf("supplier id = %d, want nil", *it.SupplierID)
	}
}

func TestSupplierDeleteGuardedByItems(t *testing.T) {
	db := newCatalogDB(t)
	ctx := context.Background()
	items := NewItemRepo(db)
	suppliers := NewSupplierRepo(db)

	supID := seedSupplier(t, suppliers, "ProAudio Imports")
	itemID, err := items.Create(ctx, model.Item{
		SKU: "CBL-02", Name: "Speakon Cable", ItemType: model.ItemTypeConsumable,
		Unit: "unit", SupplierID: &supID, Active: true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := suppliers.Delete(ctx, supID); !errors.Is(err, ErrConflict) {
		t.Fatalf("delete referenced supplier: err = %v, want ErrConflict", err)
	}
	if _, err := suppliers.GetByID(ctx, supID); err != nil {
		t.Fatalf("supplier should survive a refused delete: %v", err)
	}

	// Unlink the item and the delete goes through.
	it, err := items.GetByID(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	it.SupplierID = nil
	if err := items.Update(ctx, it); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if err := suppliers.Delete(ctx, supID); err != nil {
		t.Fatalf("delete unreferenced supplier: %v", err)
	}
	if _, err := suppliers.GetByID(ctx, supID); !errors.Is(err, ErrSupplierNotFound) {
		t.Fatalf("get deleted supplier: err = %v, want ErrSupplierNotFound", err)
	}
}

func TestSupplierDeleteMissing(t *testing.T) {
	db := newCatalogDB(t)
	suppliers := NewSupplierRepo(db)
	if err := suppliers.Delete(context.Background(), 99); !errors.Is(err, ErrSupplierNotFound) {
		t.Fatalf("err = %v, want ErrSupplierNotFound", err)
	}
}

func TestConsumableStartsWithZeroBalance(t *testing.T) {
	db := newCatalogDB(t)
	ctx := context.Background()
	items := NewItemRepo(db)

	id, err := items.Create(ctx, model.Item{
		SKU: "GAF-01", Name: "Gaffer Tape", ItemType: model.ItemTypeConsumable,
		Unit: "roll", Active: true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	b, err := items.Balance(ctx, id)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.ItemID != id || b.OnHand != 0 || b.MinLevel != 0 {
		t.Fatalf("balance = %+v, want zeroed for item %d", b, id)
	}
}

func TestSetBalanceUpdatesLevels(t *testing.T) {
	db := newCatalogDB(t)
	ctx := context.Background()
	items := NewItemRepo(db)

	id, err := items.Create(ctx, model.Item{
		SKU: "GAF-02", Name: "Gaffer Tape Black", ItemType: model.ItemTypeConsumable,
		Unit: "roll", Active: true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := items.SetBalance(ctx, id, 48, 12); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	b, err := items.Balance(ctx, id)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.OnHand != 48 || b.MinLevel != 12 {
		t.Fatalf("balance = %+v, want on_hand 48 min_level 12", b)
	}
}

func TestRentableItemHasNoBalance(t *testing.T) {
	db := newCatalogDB(t)
	ctx := context.Background()
	items := NewItemRepo(db)

	capacity := 4
	id, err := items.Create(ctx, model.Item{
		SKU: "SPK-01", Name: "PA Speaker", ItemType: model.ItemTypeRentable,
		Unit: "unit", RentableCapacity: &capacity, Active: true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := items.Balance(ctx, id); !errors.Is(err, ErrBalanceNotFound) {
		t.Fatalf("balance of rentable: err = %v, want ErrBalanceNotFound", err)
	}
}
