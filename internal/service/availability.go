package service

import (
	"context"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// Availability reports how much of an item is free in a window.
type Availability struct {
	ItemID    uint64    `json:"item_id"`
	Capacity  int       `json:"capacity"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
}

// CheckAvailability is the read-only preview of the acceptance check
// for one rentable item and window [start, end).  It takes no locks;
// the authoritative check happens again inside Accept.
func (s *QuotationService) CheckAvailability(ctx context.Context, itemID uint64, start, end time.Time) (Availability, error) {
	if !end.After(start) {
		return Availability{}, &ValidationError{Msg: "end must be after start"}
	}
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return Availability{}, err
	}
	if it.ItemType != model.ItemTypeRentable {
		return Availability{}, &ValidationError{Msg: "availability applies to rentable items only"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Availability{}, err
	}
	defer func() { _ = tx.Rollback() }()

	capacity, err := s.items.CapacityTx(ctx, tx, itemID)
	if err != nil {
		return Availability{}, err
	}
	reserved, err := s.reservation.SumOverlappingTx(ctx, tx, itemID, start, end)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		ItemID:    itemID,
		Capacity:  capacity,
		Reserved:  reserved,
		Available: capacity - reserved,
		StartAt:   start.UTC(),
		EndAt:     end.UTC(),
	}, nil
}

// PreviewAcceptance runs the acceptance availability check for a whole
// quotation without writing anything: it reports the shortfalls Accept
// would fail with, minus the quotation's own reservations.
func (s *QuotationService) PreviewAcceptance(ctx context.Context, quotationID uint64) ([]Shortfall, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	q, err := s.quotes.GetByIDTx(ctx, tx, quotationID)
	if err != nil {
		return nil, err
	}
	if q.EventID == nil {
		return nil, &ValidationError{Msg: "quotation has no linked event"}
	}
	ev, err := s.events.GetByIDTx(ctx, tx, *q.EventID)
	if err != nil {
		return nil, err
	}
	lines, err := s.quotes.LinesByQuotationTx(ctx, tx, quotationID)
	if err != nil {
		return nil, err
	}
	needs, meta, err := s.buildNeedsTx(ctx, tx, lines, ev.StartAt, ev.EndAt)
	if err != nil {
		return nil, err
	}

	own := make(map[needKey]int)
	ownRows, err := s.reservation.ListByQuotationTx(ctx, tx, quotationID)
	if err != nil {
		return nil, err
	}
	for _, r := range ownRows {
		own[needKey{itemID: r.ItemID, start: r.StartAt.UTC().Unix(), end: r.EndAt.UTC().Unix()}] += r.Quantity
	}

	shortfalls := []Shortfall{}
	for _, n := range needs {
		capacity, err := s.items.CapacityTx(ctx, tx, n.ItemID)
		if err != nil {
			return nil, err
		}
		reserved, err := s.reservation.SumOverlappingTx(ctx, tx, n.ItemID, n.StartAt, n.EndAt)
		if err != nil {
			return nil, err
		}
		reserved -= own[needKey{itemID: n.ItemID, start: n.StartAt.Unix(), end: n.EndAt.Unix()}]
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
	return shortfalls, nil
}
