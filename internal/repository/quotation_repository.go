package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// QuotationRepo provides CRUD operations for quotations, their lines and
// the status history audit trail.  Header aggregates and per-line
// snapshot amounts are written by the pricing service through the
// ...Tx methods so that a recompute is a single atomic unit.
type QuotationRepo struct {
	db *sql.DB
}

// NewQuotationRepo returns a new QuotationRepo bound to the given database.
func NewQuotationRepo(db *sql.DB) *QuotationRepo { return &QuotationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *QuotationRepo) DB() *sql.DB { return r.db }

const quotationColumns = `id, quote_number, public_ref, client_id, contact_id, event_id, owner_id,
	currency, exchange_rate, status, subtotal, discount_total, tax_total, total, deposit_due,
	valid_until, notes_internal, notes_client, terms, sent_at, accepted_at, created_at, updated_at`

func scanQuotation(row interface{ Scan(...interface{}) error }) (model.Quotation, error) {
	var q model.Quotation
	var contactID, eventID sql.NullInt64
	var validUntil, notesInt, notesCli, terms, sentAt, acceptedAt sql.NullString
	var createdStr, updatedStr string
	err := row.Scan(&q.ID, &q.QuoteNumber, &q.PublicRef, &q.ClientID, &contactID, &eventID, &q.OwnerID,
		&q.Currency, &q.ExchangeRate, &q.Status, &q.Subtotal, &q.DiscountTotal, &q.TaxTotal, &q.Total, &q.DepositDue,
		&validUntil, &notesInt, &notesCli, &terms, &sentAt, &acceptedAt, &createdStr, &updatedStr)
	if err != nil {
		return model.Quotation{}, err
	}
	q.ContactID = idPtr(contactID)
	q.EventID = idPtr(eventID)
	q.NotesInternal = strPtr(notesInt)
	q.NotesClient = strPtr(notesCli)
	q.Terms = strPtr(terms)
	if q.ValidUntil, err = parseNullTime(validUntil); err != nil {
		return model.Quotation{}, err
	}
	if q.SentAt, err = parseNullTime(sentAt); err != nil {
		return model.Quotation{}, err
	}
	if q.AcceptedAt, err = parseNullTime(acceptedAt); err != nil {
		return model.Quotation{}, err
	}
	if q.CreatedAt, err = ParseDBTime(createdStr); err != nil {
		return model.Quotation{}, err
	}
	if q.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.Quotation{}, err
	}
	return q, nil
}

// MaxQuoteNumberTx returns the highest existing quote number matching
// the given LIKE prefix (e.g. "AVV-2026-%"), or "" when none exists.
// Quote numbers are zero-padded so lexicographic MAX equals numeric MAX.
// Must run inside the creation transaction so concurrent creates cannot
// both observe the same maximum.
func (r *QuotationRepo) MaxQuoteNumberTx(ctx context.Context, tx *sql.Tx, likePrefix string) (string, error) {
	var last sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(quote_number) FROM quotations WHERE quote_number LIKE ?`, likePrefix).Scan(&last)
	if err != nil {
		return "", err
	}
	if !last.Valid {
		return "", nil
	}
	return last.String, nil
}

// CreateTx inserts a new quotation header within a transaction and
// populates the generated ID on the passed record.
func (r *QuotationRepo) CreateTx(ctx context.Context, tx *sql.Tx, q *model.Quotation) error {
	now := FmtTime(time.Now())
	res, err := tx.ExecContext(ctx,
		`INSERT INTO quotations (quote_number, public_ref, client_id, contact_id, event_id, owner_id,
		   currency, exchange_rate, status, subtotal, discount_total, tax_total, total, deposit_due,
		   valid_until, notes_internal, notes_client, terms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.QuoteNumber, q.PublicRef, q.ClientID, nullID(q.ContactID), nullID(q.EventID), q.OwnerID,
		q.Currency, q.ExchangeRate, q.Status, q.Subtotal, q.DiscountTotal, q.TaxTotal, q.Total, q.DepositDue,
		nullTime(q.ValidUntil), nullStr(q.NotesInternal), nullStr(q.NotesClient), nullStr(q.Terms), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return nil
}

// GetByID returns a quotation header or ErrQuotationNotFound.
func (r *QuotationRepo) GetByID(ctx context.Context, id uint64) (model.Quotation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = ?`, id)
	q, err := scanQuotation(row)
	if err == sql.ErrNoRows {
		return model.Quotation{}, ErrQuotationNotFound
	}
	return q, err
}

// GetByIDTx is the transactional variant used by the acceptance
// workflow; under a serializable transaction the read participates in
// conflict detection against concurrent acceptances.
func (r *QuotationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Quotation, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = ?`, id)
	q, err := scanQuotation(row)
	if err == sql.ErrNoRows {
		return model.Quotation{}, ErrQuotationNotFound
	}
	return q, err
}

// List returns quotation headers newest first, capped at limit.
func (r *QuotationRepo) List(ctx context.Context, limit int) ([]model.Quotation, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+quotationColumns+` FROM quotations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Quotation, 0)
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateHeader rewrites the editable header columns.  Status, totals and
// the quote number are managed elsewhere and deliberately not touched.
func (r *QuotationRepo) UpdateHeader(ctx context.Context, q model.Quotation) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE quotations SET client_id = ?, contact_id = ?, event_id = ?, owner_id = ?,
		   currency = ?, exchange_rate = ?, deposit_due = ?, valid_until = ?,
		   notes_internal = ?, notes_client = ?, terms = ?, updated_at = ?
		 WHERE id = ?`,
		q.ClientID, nullID(q.ContactID), nullID(q.EventID), q.OwnerID,
		q.Currency, q.ExchangeRate, q.DepositDue, nullTime(q.ValidUntil),
		nullStr(q.NotesInternal), nullStr(q.NotesClient), nullStr(q.Terms), FmtTime(time.Now()), q.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuotationNotFound
	}
	return nil
}

// Delete removes a quotation together with its lines, history and
// reservations.  Callers enforce the draft/cancelled-only rule.
func (r *QuotationRepo) Delete(ctx context.Context, id uint64) error {
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
	for _, stmt := range []string{
		`DELETE FROM reservations WHERE quotation_id = ?`,
		`DELETE FROM quotation_status_history WHERE quotation_id = ?`,
		`DELETE FROM quotation_items WHERE quotation_id = ?`,
		`DELETE FROM quotations WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetStatusTx updates the status column and stamps sent_at/accepted_at
// when the new status warrants it.
func (r *QuotationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string, at time.Time) error {
	q := `UPDATE quotations SET status = ?, updated_at = ?`
	args := []interface{}{status, FmtTime(at)}
	switch status {
	case model.StatusSent:
		q += `, sent_at = ?`
		args = append(args, FmtTime(at))
	case model.StatusAccepted:
		q += `, accepted_at = ?`
		args = append(args, FmtTime(at))
	}
	q += ` WHERE id = ?`
	args = append(args, id)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuotationNotFound
	}
	return nil
}

// AddHistoryTx appends one row to the status audit trail.
func (r *QuotationRepo) AddHistoryTx(ctx context.Context, tx *sql.Tx, h model.StatusChange) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO quotation_status_history (quotation_id, old_status, new_status, changed_by, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.QuotationID, nullStr(h.OldStatus), h.NewStatus, nullID(h.ChangedBy), nullStr(h.Note), FmtTime(time.Now()))
	return err
}

// ListHistory returns the status changes of a quotation oldest first.
func (r *QuotationRepo) ListHistory(ctx context.Context, quotationID uint64) ([]model.StatusChange, error) {
	const q = `SELECT id, quotation_id, old_status, new_status, changed_by, note, created_at
	           FROM quotation_status_history WHERE quotation_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.StatusChange, 0)
	for rows.Next() {
		var h model.StatusChange
		var oldStatus, note sql.NullString
		var changedBy sql.NullInt64
		var createdStr string
		if err := rows.Scan(&h.ID, &h.QuotationID, &oldStatus, &h.NewStatus, &changedBy, &note, &createdStr); err != nil {
			return nil, err
		}
		h.OldStatus = strPtr(oldStatus)
		h.Note = strPtr(note)
		h.ChangedBy = idPtr(changedBy)
		if h.CreatedAt, err = ParseDBTime(createdStr); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const lineColumns = `id, quotation_id, item_id, custom_name, description, section, item_type,
	quantity, unit, unit_price, discount_pct, tax_rate, line_subtotal, line_tax, line_total,
	start_at, end_at, sort_order`

func scanLine(row interface{ Scan(...interface{}) error }) (model.QuotationLine, error) {
	var l model.QuotationLine
	var desc, section, startAt, endAt sql.NullString
	err := row.Scan(&l.ID, &l.QuotationID, &l.ItemID, &l.CustomName, &desc, &section, &l.ItemType,
		&l.Quantity, &l.Unit, &l.UnitPrice, &l.DiscountPct, &l.TaxRate, &l.LineSubtotal, &l.LineTax, &l.LineTotal,
		&startAt, &endAt, &l.SortOrder)
	if err != nil {
		return model.QuotationLine{}, err
	}
	l.Description = strPtr(desc)
	l.Section = strPtr(section)
	if l.StartAt, err = parseNullTime(startAt); err != nil {
		return model.QuotationLine{}, err
	}
	if l.EndAt, err = parseNullTime(endAt); err != nil {
		return model.QuotationLine{}, err
	}
	return l, nil
}

// InsertLinesTx bulk-inserts quotation lines within a transaction.
// Passing an empty slice has no effect and returns nil.
func (r *QuotationRepo) InsertLinesTx(ctx context.Context, tx *sql.Tx, lines []model.QuotationLine) error {
	if len(lines) == 0 {
		return nil
	}
	query := `INSERT INTO quotation_items (quotation_id, item_id, custom_name, description, section, item_type,
	          quantity, unit, unit_price, discount_pct, tax_rate, start_at, end_at, sort_order) VALUES `
	args := make([]interface{}, 0, len(lines)*14)
	for i, l := range lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, l.QuotationID, l.ItemID, l.CustomName, nullStr(l.Description), nullStr(l.Section),
			l.ItemType, l.Quantity, l.Unit, l.UnitPrice, l.DiscountPct, l.TaxRate,
			nullTime(l.StartAt), nullTime(l.EndAt), l.SortOrder)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdateLine rewrites the editable columns of a line, scoped to its
// quotation so a line cannot be moved between quotes.
func (r *QuotationRepo) UpdateLine(ctx context.Context, l model.QuotationLine) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE quotation_items SET custom_name = ?, description = ?, section = ?,
		   quantity = ?, unit = ?, unit_price = ?, discount_pct = ?, tax_rate = ?,
		   start_at = ?, end_at = ?
		 WHERE id = ? AND quotation_id = ?`,
		l.CustomName, nullStr(l.Description), nullStr(l.Section),
		l.Quantity, l.Unit, l.UnitPrice, l.DiscountPct, l.TaxRate,
		nullTime(l.StartAt), nullTime(l.EndAt), l.ID, l.QuotationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLineNotFound
	}
	return nil
}

// DeleteLine removes one line of a quotation.
func (r *QuotationRepo) DeleteLine(ctx context.Context, quotationID, lineID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM quotation_items WHERE id = ? AND quotation_id = ?`, lineID, quotationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLineNotFound
	}
	return nil
}

// LinesByQuotation returns the lines of a quotation ordered by sort
// position.
func (r *QuotationRepo) LinesByQuotation(ctx context.Context, quotationID uint64) ([]model.QuotationLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM quotation_items WHERE quotation_id = ? ORDER BY sort_order, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLines(rows)
}

// LinesByQuotationTx is the transactional variant used by recompute and
// acceptance.
func (r *QuotationRepo) LinesByQuotationTx(ctx context.Context, tx *sql.Tx, quotationID uint64) ([]model.QuotationLine, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM quotation_items WHERE quotation_id = ? ORDER BY sort_order, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLines(rows)
}

func collectLines(rows *sql.Rows) ([]model.QuotationLine, error) {
	out := make([]model.QuotationLine, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLineAmountsTx writes the computed snapshot amounts of one line.
func (r *QuotationRepo) UpdateLineAmountsTx(ctx context.Context, tx *sql.Tx, lineID uint64, subtotal, tax, total float64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE quotation_items SET line_subtotal = ?, line_tax = ?, line_total = ? WHERE id = ?`,
		subtotal, tax, total, lineID)
	return err
}

// UpdateTotalsTx writes the recomputed header aggregates.
func (r *QuotationRepo) UpdateTotalsTx(ctx context.Context, tx *sql.Tx, quotationID uint64, subtotal, discount, tax, total float64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE quotations SET subtotal = ?, discount_total = ?, tax_total = ?, total = ?, updated_at = ?
		 WHERE id = ?`,
		subtotal, discount, tax, total, FmtTime(time.Now()), quotationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuotationNotFound
	}
	return nil
}

// NextSortOrder returns 1 + the current maximum sort position of a
// quotation's lines.
func (r *QuotationRepo) NextSortOrder(ctx context.Context, quotationID uint64) (int, error) {
	var maxOrder sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(sort_order) FROM quotation_items WHERE quotation_id = ?`, quotationID).Scan(&maxOrder)
	if err != nil {
		return 0, err
	}
	if !maxOrder.Valid {
		return 1, nil
	}
	return int(maxOrder.Int64) + 1, nil
}
