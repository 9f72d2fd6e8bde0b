package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// ContactRepo encapsulates database operations for client contacts.
type ContactRepo struct {
	db *sql.DB
}

// NewContactRepo constructs a ContactRepo given a DB handle.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

const contactColumns = `id, client_id, name, email, phone, position, is_primary, created_at, updated_at`

func scanContact(row interface{ Scan(...interface{}) error }) (model.Contact, error) {
	var ct model.Contact
	var email, phone, position sql.NullString
	var createdStr, updatedStr string
	err := row.Scan(&ct.ID, &ct.ClientID, &ct.Name, &email, &phone, &position, &ct.IsPrimary, &createdStr, &updatedStr)
	if err != nil {
		return model.Contact{}, err
	}
	ct.Email = strPtr(email)
	ct.Phone = strPtr(phone)
	ct.Position = strPtr(position)
	if ct.CreatedAt, err = ParseDBTime(createdStr); err != nil {
		return model.Contact{}, err
	}
	if ct.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.Contact{}, err
	}
	return ct, nil
}

// Create inserts a contact and returns its generated ID.
func (r *ContactRepo) Create(ctx context.Context, ct model.Contact) (uint64, error) {
	now := FmtTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (client_id, name, email, phone, position, is_primary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ct.ClientID, ct.Name, nullStr(ct.Email), nullStr(ct.Phone), nullStr(ct.Position), ct.IsPrimary, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites a contact's columns.
func (r *ContactRepo) Update(ctx context.Context, ct model.Contact) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, email = ?, phone = ?, position = ?, updated_at = ? WHERE id = ?`,
		ct.Name, nullStr(ct.Email), nullStr(ct.Phone), nullStr(ct.Position), FmtTime(time.Now()), ct.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContactNotFound
	}
	return nil
}

// GetByID returns a single contact or ErrContactNotFound.
func (r *ContactRepo) GetByID(ctx context.Context, id uint64) (model.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	ct, err := scanContact(row)
	if err == sql.ErrNoRows {
		return model.Contact{}, ErrContactNotFound
	}
	return ct, err
}

// ListByClient returns the contacts of one client, primary first.
func (r *ContactRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE client_id = ? ORDER BY is_primary DESC, name`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Contact, 0)
	for rows.Next() {
		ct, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPrimary marks one contact as the client's primary and clears the
// flag on its siblings, atomically.
func (r *ContactRepo) SetPrimary(ctx context.Context, contactID uint64) error {
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
	var clientID uint64
	err = tx.QueryRowContext(ctx, `SELECT client_id FROM contacts WHERE id = ?`, contactID).Scan(&clientID)
	if err == sql.ErrNoRows {
		return ErrContactNotFound
	}
	if err != nil {
		return err
	}
	now := FmtTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`UPDATE contacts SET is_primary = 0, updated_at = ? WHERE client_id = ? AND is_primary = 1`, now, clientID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE contacts SET is_primary = 1, updated_at = ? WHERE id = ?`, now, contactID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a contact unless a quotation references it.
func (r *ContactRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quotations WHERE contact_id = ?`, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContactNotFound
	}
	return nil
}
