package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// ClientRepo encapsulates database operations for clients and their
// contacts.
type ClientRepo struct {
	db *sql.DB
}

// NewClientRepo constructs a ClientRepo given a DB handle.
func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{db: db} }

const clientColumns = `id, name, tax_id, email, phone, address, active, created_at, updated_at`

func scanClient(row interface{ Scan(...interface{}) error }) (model.Client, error) {
	var cl model.Client
	var taxID, email, phone, address sql.NullString
	var createdStr, updatedStr string
	err := row.Scan(&cl.ID, &cl.Name, &taxID, &email, &phone, &address, &cl.Active, &createdStr, &updatedStr)
	if err != nil {
		return model.Client{}, err
	}
	cl.TaxID = strPtr(taxID)
	cl.Email = strPtr(email)
	cl.Phone = strPtr(phone)
	cl.Address = strPtr(address)
	if cl.CreatedAt, err = ParseDBTime(createdStr); err != nil {
		return model.Client{}, err
	}
	if cl.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.Client{}, err
	}
	return cl, nil
}

// Create inserts a client and returns its generated ID.
func (r *ClientRepo) Create(ctx context.Context, cl model.Client) (uint64, error) {
	now := FmtTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (name, tax_id, email, phone, address, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cl.Name, nullStr(cl.TaxID), nullStr(cl.Email), nullStr(cl.Phone), nullStr(cl.Address), cl.Active, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites a client's columns.
func (r *ClientRepo) Update(ctx context.Context, cl model.Client) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, tax_id = ?, email = ?, phone = ?, address = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		cl.Name, nullStr(cl.TaxID), nullStr(cl.Email), nullStr(cl.Phone), nullStr(cl.Address), cl.Active,
		FmtTime(time.Now()), cl.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClientNotFound
	}
	return nil
}

// GetByID returns a single client or ErrClientNotFound.
func (r *ClientRepo) GetByID(ctx context.Context, id uint64) (model.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	cl, err := scanClient(row)
	if err == sql.ErrNoRows {
		return model.Client{}, ErrClientNotFound
	}
	return cl, err
}

// List returns clients ordered by name.
func (r *ClientRepo) List(ctx context.Context) ([]model.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Client, 0)
	for rows.Next() {
		cl, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a client unless quotations or events still reference
// it.  Its contacts are removed with it.
func (r *ClientRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM quotations WHERE client_id = ?) +
		        (SELECT COUNT(*) FROM events WHERE client_id = ?)`, id, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
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
	if _, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE client_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClientNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
