package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// ItemRepo encapsulates database operations for the items catalog and
// its two satellite tables: bundle_items (composition of bundles) and
// assets (serialized physical units).  Capacity resolution lives here
// because it only needs item and asset data.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo constructs an ItemRepo given a DB handle.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ItemRepo) DB() *sql.DB { return r.db }

const itemColumns = `id, sku, name, item_type, unit, default_rate, tax_rate, rentable_capacity, supplier_id, active, created_at, updated_at`

func scanItem(row interface{ Scan(...interface{}) error }) (model.Item, error) {
	var it model.Item
	var capacity, supplier sql.NullInt64
	var createdStr, updatedStr string
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.ItemType, &it.Unit,
		&it.DefaultRate, &it.TaxRate, &capacity, &supplier, &it.Active, &createdStr, &updatedStr)
	if err != nil {
		return model.Item{}, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		it.RentableCapacity = &c
	}
	if supplier.Valid {
		s := uint64(supplier.Int64)
		it.SupplierID = &s
	}
	if it.CreatedAt, err = ParseDBTime(createdStr); err != nil {
		return model.Item{}, err
	}
	if it.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// Create inserts a new catalog item and returns its generated ID.
// Consumable items start with a zero inventory balance so stock can be
// recorded for them right away.
func (r *ItemRepo) Create(ctx context.Context, it model.Item) (uint64, error) {
	now := FmtTime(time.Now())
	var capacity interface{}
	if it.RentableCapacity != nil {
		capacity = *it.RentableCapacity
	}
	var supplier interface{}
	if it.SupplierID != nil {
		supplier = *it.SupplierID
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (sku, name, item_type, unit, default_rate, tax_rate, rentable_capacity, supplier_id, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.SKU, it.Name, it.ItemType, it.Unit, it.DefaultRate, it.TaxRate, capacity, supplier, it.Active, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if it.ItemType == model.ItemTypeConsumable {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_balances (item_id, on_hand, min_level, updated_at) VALUES (?, 0, 0, ?)`,
			id, now); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// Update rewrites the mutable columns of an item.  Snapshotted fields
// on existing quotation lines are unaffected.
func (r *ItemRepo) Update(ctx context.Context, it model.Item) error {
	var capacity interface{}
	if it.RentableCapacity != nil {
		capacity = *it.RentableCapacity
	}
	var supplier interface{}
	if it.SupplierID != nil {
		supplier = *it.SupplierID
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET sku = ?, name = ?, item_type = ?, unit = ?, default_rate = ?, tax_rate = ?, rentable_capacity = ?, supplier_id = ?, updated_at = ?
		 WHERE id = ?`,
		it.SKU, it.Name, it.ItemType, it.Unit, it.DefaultRate, it.TaxRate, capacity, supplier, FmtTime(time.Now()), it.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// SetActive toggles whether an item can be added to new quotations.
func (r *ItemRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET active = ?, updated_at = ? WHERE id = ?`,
		active, FmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// GetByID returns a single item or ErrItemNotFound.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return model.Item{}, ErrItemNotFound
	}
	return it, err
}

// List returns catalog items ordered by name.  When activeOnly is set,
// deactivated items are skipped.
func (r *ItemRepo) List(ctx context.Context, activeOnly bool) ([]model.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// MetaByIDsTx loads items by ID within a transaction and returns them
// keyed by ID.  IDs that do not exist are simply absent from the map;
// callers decide whether that is an error.
func (r *ItemRepo) MetaByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]model.Item, error) {
	out := make(map[uint64]model.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `SELECT ` + itemColumns + ` FROM items WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CapacityTx resolves the rentable capacity of an item inside a
// transaction: items.rentable_capacity when set, otherwise the count of
// that item's active assets.
func (r *ItemRepo) CapacityTx(ctx context.Context, tx *sql.Tx, itemID uint64) (int, error) {
	var capacity sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT rentable_capacity FROM items WHERE id = ?`, itemID).Scan(&capacity)
	if err == sql.ErrNoRows {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, err
	}
	if capacity.Valid {
		return int(capacity.Int64), nil
	}
	var cnt int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets WHERE item_id = ? AND active = 1`, itemID).Scan(&cnt)
	if err != nil {
		return 0, err
	}
	return cnt, nil
}

// ComponentsByBundleIDsTx returns, for each given bundle item ID, the
// list of its components.  Bundles without rows map to nil slices.
func (r *ItemRepo) ComponentsByBundleIDsTx(ctx context.Context, tx *sql.Tx, bundleIDs []uint64) (map[uint64][]model.BundleComponent, error) {
	out := make(map[uint64][]model.BundleComponent, len(bundleIDs))
	if len(bundleIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(bundleIDs))
	args := make([]interface{}, len(bundleIDs))
	for i, id := range bundleIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `SELECT bundle_id, item_id, quantity FROM bundle_items WHERE bundle_id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var bc model.BundleComponent
		if err := rows.Scan(&bc.BundleID, &bc.ComponentID, &bc.Quantity); err != nil {
			return nil, err
		}
		out[bc.BundleID] = append(out[bc.BundleID], bc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Components returns the component list of one bundle item.
func (r *ItemRepo) Components(ctx context.Context, bundleID uint64) ([]model.BundleComponent, error) {
	const q = `SELECT bundle_id, item_id, quantity FROM bundle_items WHERE bundle_id = ? ORDER BY item_id`
	rows, err := r.db.QueryContext(ctx, q, bundleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comps := make([]model.BundleComponent, 0)
	for rows.Next() {
		var bc model.BundleComponent
		if err := rows.Scan(&bc.BundleID, &bc.ComponentID, &bc.Quantity); err != nil {
			return nil, err
		}
		comps = append(comps, bc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comps, nil
}

// SetComponents replaces the full component list of a bundle in one
// transaction.  Passing an empty slice clears the bundle.
func (r *ItemRepo) SetComponents(ctx context.Context, bundleID uint64, comps []model.BundleComponent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM bundle_items WHERE bundle_id = ?`, bundleID); err != nil {
		return err
	}
	if len(comps) > 0 {
		query := `INSERT INTO bundle_items (bundle_id, item_id, quantity) VALUES `
		args := make([]interface{}, 0, len(comps)*3)
		for i, c := range comps {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, bundleID, c.ComponentID, c.Quantity)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Balance returns the inventory balance of a consumable item, or
// ErrBalanceNotFound when the item is not stock-tracked.
func (r *ItemRepo) Balance(ctx context.Context, itemID uint64) (model.InventoryBalance, error) {
	var b model.InventoryBalance
	var updatedStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT item_id, on_hand, min_level, updated_at FROM inventory_balances WHERE item_id = ?`, itemID).
		Scan(&b.ItemID, &b.OnHand, &b.MinLevel, &updatedStr)
	if err == sql.ErrNoRows {
		return model.InventoryBalance{}, ErrBalanceNotFound
	}
	if err != nil {
		return model.InventoryBalance{}, err
	}
	if b.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.InventoryBalance{}, err
	}
	return b, nil
}

// SetBalance upserts the stock levels of a consumable item.
func (r *ItemRepo) SetBalance(ctx context.Context, itemID uint64, onHand, minLevel float64) error {
	now := FmtTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory_balances SET on_hand = ?, min_level = ?, updated_at = ? WHERE item_id = ?`,
		onHand, minLevel, now, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO inventory_balances (item_id, on_hand, min_level, updated_at) VALUES (?, ?, ?, ?)`,
			itemID, onHand, minLevel, now)
		return err
	}
	return nil
}

// AddAsset registers a serialized unit for an item and returns its ID.
func (r *ItemRepo) AddAsset(ctx context.Context, itemID uint64, serialNo string, active bool) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (item_id, serial_no, active, created_at) VALUES (?, ?, ?, ?)`,
		itemID, serialNo, active, FmtTime(time.Now()))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SetAssetActive toggles a single asset.
func (r *ItemRepo) SetAssetActive(ctx context.Context, assetID uint64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE assets SET active = ? WHERE id = ?`, active, assetID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListAssets returns the serialized units of an item.
func (r *ItemRepo) ListAssets(ctx context.Context, itemID uint64) ([]model.Asset, error) {
	const q = `SELECT id, item_id, serial_no, active, created_at FROM assets WHERE item_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assets := make([]model.Asset, 0)
	for rows.Next() {
		var a model.Asset
		var createdStr string
		if err := rows.Scan(&a.ID, &a.ItemID, &a.SerialNo, &a.Active, &createdStr); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = ParseDBTime(createdStr); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}
