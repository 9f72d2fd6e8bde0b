package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// ReservationRepo provides data access to the reservations table.
// Reservations hold quantity of a rentable item for a half-open time
// window [start_at, end_at).  All timestamps are stored in UTC using
// DBTimeLayout.  The capacity-critical methods are offered as Tx
// variants so the acceptance workflow can run check and write inside a
// single serializable transaction.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// SumOverlappingTx sums the quantity already reserved for an item across
// every tentative or firm reservation whose window overlaps the
// requested one.  Overlap is half-open: existing.start < requested.end
// AND existing.end > requested.start, so a reservation ending exactly at
// the requested start does not count.
func (r *ReservationRepo) SumOverlappingTx(ctx context.Context, tx *sql.Tx, itemID uint64, start, end time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0)
	           FROM reservations
	           WHERE item_id = ?
	             AND status IN ('tentative', 'firm')
	             AND start_at < ?
	             AND end_at > ?`
	var total int
	err := tx.QueryRowContext(ctx, q, itemID, FmtTime(end), FmtTime(start)).Scan(&total)
	return total, err
}

// SumOverlapping is the non-transactional variant used by the read-only
// availability preview endpoint.
func (r *ReservationRepo) SumOverlapping(ctx context.Context, itemID uint64, start, end time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0)
	           FROM reservations
	           WHERE item_id = ?
	             AND status IN ('tentative', 'firm')
	             AND start_at < ?
	             AND end_at > ?`
	var total int
	err := r.db.QueryRowContext(ctx, q, itemID, FmtTime(end), FmtTime(start)).Scan(&total)
	return total, err
}

// DeleteByQuotationTx removes every reservation belonging to a
// quotation.  Acceptance calls this before re-checking capacity so that
// recomputation replaces prior holds instead of stacking on top of
// them; the enclosing transaction restores the rows if acceptance
// fails.  It returns the number of rows removed.
func (r *ReservationRepo) DeleteByQuotationTx(ctx context.Context, tx *sql.Tx, quotationID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE quotation_id = ?`, quotationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateBulkTx inserts multiple reservations in a single statement.
// Passing an empty slice has no effect and returns nil.  The caller
// must commit or roll back the transaction.
func (r *ReservationRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, rows []model.Reservation) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO reservations (item_id, quotation_id, event_id, start_at, end_at, quantity, status, created_at) VALUES `
	args := make([]interface{}, 0, len(rows)*8)
	now := FmtTime(time.Now())
	for i, rv := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, rv.ItemID, rv.QuotationID, rv.EventID,
			FmtTime(rv.StartAt), FmtTime(rv.EndAt), rv.Quantity, rv.Status, now)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

const reservationByQuotationQuery = `SELECT id, item_id, quotation_id, event_id, start_at, end_at, quantity, status, created_at
	           FROM reservations
	           WHERE quotation_id = ?
	           ORDER BY item_id, start_at`

// ListByQuotation returns the reservations held by a quotation, ordered
// by item then window start.  When none exist, an empty slice is
// returned.
func (r *ReservationRepo) ListByQuotation(ctx context.Context, quotationID uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, reservationByQuotationQuery, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListByQuotationTx is the variant used inside an open transaction.
func (r *ReservationRepo) ListByQuotationTx(ctx context.Context, tx *sql.Tx, quotationID uint64) ([]model.Reservation, error) {
	rows, err := tx.QueryContext(ctx, reservationByQuotationQuery, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var rv model.Reservation
		var startStr, endStr, createdStr string
		var err error
		if err = rows.Scan(&rv.ID, &rv.ItemID, &rv.QuotationID, &rv.EventID,
			&startStr, &endStr, &rv.Quantity, &rv.Status, &createdStr); err != nil {
			return nil, err
		}
		if rv.StartAt, err = ParseDBTime(startStr); err != nil {
			return nil, err
		}
		if rv.EndAt, err = ParseDBTime(endStr); err != nil {
			return nil, err
		}
		if rv.CreatedAt, err = ParseDBTime(createdStr); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
