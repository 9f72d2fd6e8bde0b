package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// SetStatus moves a quotation along the state machine and records the
// transition in the history table.  Moving into "accepted" is not
// allowed here: acceptance commits reservations and must go through
// Accept.
func (s *QuotationService) SetStatus(ctx context.Context, quotationID uint64, newStatus string, changedBy uint64, note *string) (model.Quotation, error) {
	if !model.ValidStatus(newStatus) {
		return model.Quotation{}, &ValidationError{Msg: fmt.Sprintf("unknown status %q", newStatus)}
	}
	if newStatus == model.StatusAccepted {
		return model.Quotation{}, &ValidationError{Msg: "use the accept operation to accept a quotation"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Quotation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q, err := s.quotes.GetByIDTx(ctx, tx, quotationID)
	if err != nil {
		return model.Quotation{}, err
	}
	if q.Status == newStatus {
		// No-op transition; nothing to record.
		if err := tx.Commit(); err != nil {
			return model.Quotation{}, err
		}
		committed = true
		return q, nil
	}
	if !model.AllowedTransitions[q.Status][newStatus] {
		return model.Quotation{}, &ConflictError{From: q.Status, To: newStatus}
	}

	now := time.Now().UTC()
	if err := s.quotes.SetStatusTx(ctx, tx, quotationID, newStatus, now); err != nil {
		return model.Quotation{}, err
	}

	// Leaving an accepted quotation releases its firm reservations.
	if q.Status == model.StatusAccepted && newStatus == model.StatusCancelled {
		if _, err := s.reservation.DeleteByQuotationTx(ctx, tx, quotationID); err != nil {
			return model.Quotation{}, err
		}
	}

	old := q.Status
	if err := s.quotes.AddHistoryTx(ctx, tx, model.StatusChange{
		QuotationID: quotationID,
		OldStatus:   &old,
		NewStatus:   newStatus,
		ChangedBy:   &changedBy,
		Note:        note,
	}); err != nil {
		return model.Quotation{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Quotation{}, err
	}
	committed = true

	q.Status = newStatus
	switch newStatus {
	case model.StatusSent:
		q.SentAt = &now
	}
	return q, nil
}

// History returns the quotation's status audit trail, oldest first.
func (s *QuotationService) History(ctx context.Context, quotationID uint64) ([]model.StatusChange, error) {
	if _, err := s.quotes.GetByID(ctx, quotationID); err != nil {
		return nil, err
	}
	return s.quotes.ListHistory(ctx, quotationID)
}
