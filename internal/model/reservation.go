package model

import "time"

// Reservation statuses.  Both tentative and firm holds count against an
// item's capacity; acceptance always writes firm reservations.
const (
	ReservationTentative = "tentative"
	ReservationFirm      = "firm"
)

// Reservation commits a quantity of an item for a half-open time window
// [StartAt, EndAt).  Invariant: at any instant, for a given item, the
// sum of quantities of all overlapping tentative/firm reservations must
// not exceed that item's capacity.  Reservations exist only for
// accepted quotations and are replaced wholesale when a quotation is
// re-accepted.
//
// Fields:
//  ID          – primary key identifier.
//  ItemID      – the rentable item held.
//  QuotationID – owning quotation.
//  EventID     – event the window was derived from.
//  StartAt     – window start (inclusive), UTC.
//  EndAt       – window end (exclusive), UTC.
//  Quantity    – units held for the window.
//  Status      – tentative or firm.
type Reservation struct {
	ID          uint64
	ItemID      uint64
	QuotationID uint64
	EventID     uint64
	StartAt     time.Time
	EndAt       time.Time
	Quantity    int
	Status      string
	CreatedAt   time.Time
}
