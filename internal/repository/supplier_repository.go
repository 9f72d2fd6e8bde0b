package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// SupplierRepo encapsulates database operations for suppliers.
type SupplierRepo struct {
	db *sql.DB
}

// NewSupplierRepo constructs a SupplierRepo given a DB handle.
func NewSupplierRepo(db *sql.DB) *SupplierRepo { return &SupplierRepo{db: db} }

const supplierColumns = `id, name, tax_id, email, phone, address, notes, active, created_at, updated_at`

func scanSupplier(row interface{ Scan(...interface{}) error }) (model.Supplier, error) {
	var sp model.Supplier
	var taxID, email, phone, address, notes sql.NullString
	var createdStr, updatedStr string
	err := row.Scan(&sp.ID, &sp.Name, &taxID, &email, &phone, &address, &notes, &sp.Active, &createdStr, &updatedStr)
	if err != nil {
		return model.Supplier{}, err
	}
	sp.TaxID = strPtr(taxID)
	sp.Email = strPtr(email)
	sp.Phone = strPtr(phone)
	sp.Address = strPtr(address)
	sp.Notes = strPtr(notes)
	if sp.CreatedAt, err = ParseDBTime(createdStr); err != nil {
		return model.Supplier{}, err
	}
	if sp.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.Supplier{}, err
	}
	return sp, nil
}

// Create inserts a supplier and returns its generated ID.
func (r *SupplierRepo) Create(ctx context.Context, sp model.Supplier) (uint64, error) {
	now := FmtTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO suppliers (name, tax_id, email, phone, address, notes, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.Name, nullStr(sp.TaxID), nullStr(sp.Email), nullStr(sp.Phone), nullStr(sp.Address), nullStr(sp.Notes),
		sp.Active, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites a supplier's columns.
func (r *SupplierRepo) Update(ctx context.Context, sp model.Supplier) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE suppliers SET name = ?, tax_id = ?, email = ?, phone = ?, address = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		sp.Name, nullStr(sp.TaxID), nullStr(sp.Email), nullStr(sp.Phone), nullStr(sp.Address), nullStr(sp.Notes),
		FmtTime(time.Now()), sp.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

// SetActive toggles a supplier without deleting its history.
func (r *SupplierRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE suppliers SET active = ?, updated_at = ? WHERE id = ?`, active, FmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

// GetByID returns a single supplier or ErrSupplierNotFound.
func (r *SupplierRepo) GetByID(ctx context.Context, id uint64) (model.Supplier, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id)
	sp, err := scanSupplier(row)
	if err == sql.ErrNoRows {
		return model.Supplier{}, ErrSupplierNotFound
	}
	return sp, err
}

// List returns suppliers ordered by name.
func (r *SupplierRepo) List(ctx context.Context) ([]model.Supplier, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Supplier, 0)
	for rows.Next() {
		sp, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a supplier unless catalog items still reference it.
func (r *SupplierRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE supplier_id = ?`, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSupplierNotFound
	}
	return nil
}
