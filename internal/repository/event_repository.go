package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// EventRepo encapsulates database operations for events.  Event windows
// are stored in UTC; the timezone column is informational only.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo given a DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, name, client_id, venue, start_at, end_at, timezone, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (model.Event, error) {
	var ev model.Event
	var clientID sql.NullInt64
	var venue sql.NullString
	var startStr, endStr, createdStr, updatedStr string
	err := row.Scan(&ev.ID, &ev.Name, &clientID, &venue, &startStr, &endStr, &ev.Timezone, &createdStr, &updatedStr)
	if err != nil {
		return model.Event{}, err
	}
	ev.ClientID = idPtr(clientID)
	ev.Venue = strPtr(venue)
	if ev.StartAt, err = ParseDBTime(startStr); err != nil {
		return model.Event{}, err
	}
	if ev.EndAt, err = ParseDBTime(endStr); err != nil {
		return model.Event{}, err
	}
	if ev.CreatedAt, err = ParseDBTime(createdStr); err != nil {
		return model.Event{}, err
	}
	if ev.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Create inserts an event and returns its generated ID.
func (r *EventRepo) Create(ctx context.Context, ev model.Event) (uint64, error) {
	now := FmtTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (name, client_id, venue, start_at, end_at, timezone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Name, nullID(ev.ClientID), nullStr(ev.Venue), FmtTime(ev.StartAt), FmtTime(ev.EndAt), ev.Timezone, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites an event's columns.
func (r *EventRepo) Update(ctx context.Context, ev model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET name = ?, client_id = ?, venue = ?, start_at = ?, end_at = ?, timezone = ?, updated_at = ?
		 WHERE id = ?`,
		ev.Name, nullID(ev.ClientID), nullStr(ev.Venue), FmtTime(ev.StartAt), FmtTime(ev.EndAt), ev.Timezone,
		FmtTime(time.Now()), ev.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrEventNotFound
	}
	return ev, err
}

// GetByIDTx is the transactional variant used by the acceptance workflow.
func (r *EventRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrEventNotFound
	}
	return ev, err
}

// List returns events newest window first.
func (r *EventRepo) List(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY start_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an event unless a quotation still references it.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quotations WHERE event_id = ?`, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
