package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// AcceptResult reports what acceptance committed.
type AcceptResult struct {
	Quotation    model.Quotation     `json:"quotation"`
	Reservations []model.Reservation `json:"reservations"`
}

// Accept marks a quotation accepted and converts its tentative demand
// into firm reservations.  The quotation must be draft or sent, must be
// linked to an event with a valid window, and must resolve to at least
// one reservation need.  The availability check and the reservation
// writes run in one serializable transaction so two quotations
// competing for the same stock cannot both pass the check.
//
// The quotation's own existing reservations are deleted before
// checking; re-accepting therefore replaces them instead of counting
// them against itself, and a failed check rolls the deletion back.
// When stock is short the error lists every shortfall, not just the
// first.
func (s *QuotationService) Accept(ctx context.Context, quotationID, changedBy uint64, note *string) (AcceptResult, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return AcceptResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q, err := s.quotes.GetByIDTx(ctx, tx, quotationID)
	if err != nil {
		return AcceptResult{}, err
	}
	if q.Status != model.StatusDraft && q.Status != model.StatusSent {
		return AcceptResult{}, &ConflictError{From: q.Status, To: model.StatusAccepted}
	}

	if q.EventID == nil {
		return AcceptResult{}, &ValidationError{Msg: "quotation has no linked event"}
	}
	ev, err := s.events.GetByIDTx(ctx, tx, *q.EventID)
	if err != nil {
		return AcceptResult{}, err
	}
	if !ev.EndAt.After(ev.StartAt) {
		return AcceptResult{}, &ValidationError{Msg: "event window is invalid"}
	}

	lines, err := s.quotes.LinesByQuotationTx(ctx, tx, quotationID)
	if err != nil {
		return AcceptResult{}, err
	}

	needs, meta, err := s.buildNeedsTx(ctx, tx, lines, ev.StartAt, ev.EndAt)
	if err != nil {
		return AcceptResult{}, err
	}
	if len(needs) == 0 {
		return AcceptResult{}, &ValidationError{Msg: "quotation has no rentable lines to reserve"}
	}

	// Replace this quotation's previous reservations before checking so
	// they do not count against their own demand.
	if _, err := s.reservation.DeleteByQuotationTx(ctx, tx, quotationID); err != nil {
		return AcceptResult{}, err
	}

	var shortfalls []Shortfall
	for _, n := range needs {
		capacity, err := s.items.CapacityTx(ctx, tx, n.ItemID)
		if err != nil {
			return AcceptResult{}, err
		}
		reserved, err := s.reservation.SumOverlappingTx(ctx, tx, n.ItemID, n.StartAt, n.EndAt)
		if err != nil {
			return AcceptResult{}, err
		}
		if reserved+n.Quantity > capacity {
			shortfalls = append(shortfalls, Shortfall{
				ItemID:    n.ItemID,
				ItemName:  meta[n.ItemID].Name,
				Capacity:  capacity,
				Reserved:  reserved,
				Requested: n.Quantity,
				StartAt:   n.StartAt,
				EndAt:     n.EndAt,
			})
		}
	}
	if len(shortfalls) > 0 {
		return AcceptResult{}, &CapacityError{Shortfalls: shortfalls}
	}

	eventID := *q.EventID
	rows := make([]model.Reservation, 0, len(needs))
	for _, n := range needs {
		rows = append(rows, model.Reservation{
			ItemID:      n.ItemID,
			QuotationID: quotationID,
			EventID:     eventID,
			StartAt:     n.StartAt,
			EndAt:       n.EndAt,
			Quantity:    n.Quantity,
			Status:      model.ReservationFirm,
		})
	}
	if err := s.reservation.CreateBulkTx(ctx, tx, rows); err != nil {
		return AcceptResult{}, err
	}

	now := time.Now().UTC()
	if err := s.quotes.SetStatusTx(ctx, tx, quotationID, model.StatusAccepted, now); err != nil {
		return AcceptResult{}, err
	}
	old := q.Status
	if err := s.quotes.AddHistoryTx(ctx, tx, model.StatusChange{
		QuotationID: quotationID,
		OldStatus:   &old,
		NewStatus:   model.StatusAccepted,
		ChangedBy:   &changedBy,
		Note:        note,
	}); err != nil {
		return AcceptResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return AcceptResult{}, err
	}
	committed = true

	q.Status = model.StatusAccepted
	q.AcceptedAt = &now

	res, err := s.reservation.ListByQuotation(ctx, quotationID)
	if err != nil {
		return AcceptResult{}, err
	}
	return AcceptResult{Quotation: q, Reservations: res}, nil
}

// buildNeedsTx fetches the item metadata and bundle components the
// lines reference (component items included, so their type is known)
// and turns the lines into consolidated reservation needs.
func (s *QuotationService) buildNeedsTx(ctx context.Context, tx *sql.Tx, lines []model.QuotationLine, eventStart, eventEnd time.Time) ([]Need, map[uint64]model.Item, error) {
	ids := make([]uint64, 0, len(lines))
	seen := make(map[uint64]bool)
	for _, l := range lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			ids = append(ids, l.ItemID)
		}
	}

	meta, err := s.items.MetaByIDsTx(ctx, tx, ids)
	if err != nil {
		return nil, nil, err
	}

	var bundleIDs []uint64
	for id, it := range meta {
		if it.ItemType == model.ItemTypeBundle {
			bundleIDs = append(bundleIDs, id)
		}
	}
	components := map[uint64][]model.BundleComponent{}
	if len(bundleIDs) > 0 {
		components, err = s.items.ComponentsByBundleIDsTx(ctx, tx, bundleIDs)
		if err != nil {
			return nil, nil, err
		}
		var compIDs []uint64
		for _, comps := range components {
			for _, c := range comps {
				if !seen[c.ComponentID] {
					seen[c.ComponentID] = true
					compIDs = append(compIDs, c.ComponentID)
				}
			}
		}
		if len(compIDs) > 0 {
			compMeta, err := s.items.MetaByIDsTx(ctx, tx, compIDs)
			if err != nil {
				return nil, nil, err
			}
			for id, it := range compMeta {
				meta[id] = it
			}
		}
	}

	needs, badLines := BuildNeeds(lines, meta, components, eventStart, eventEnd)
	if len(badLines) > 0 {
		return nil, nil, &ValidationError{
			Msg:     "lines have no valid reservation window",
			LineIDs: badLines,
		}
	}
	return needs, meta, nil
}
