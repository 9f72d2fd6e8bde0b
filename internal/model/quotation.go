package model

import "time"

// Quotation statuses form a one-directional state machine.  See
// AllowedTransitions for the permitted edges.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
	StatusConverted = "converted"
)

// AllowedTransitions maps each status to the set of statuses it may move
// to.  Terminal statuses map to the empty set.
var AllowedTransitions = map[string]map[string]bool{
	StatusDraft:     {StatusSent: true, StatusCancelled: true},
	StatusSent:      {StatusAccepted: true, StatusDeclined: true, StatusExpired: true, StatusCancelled: true},
	StatusAccepted:  {StatusConverted: true, StatusCancelled: true},
	StatusDeclined:  {},
	StatusExpired:   {},
	StatusCancelled: {},
	StatusConverted: {},
}

// ValidStatus reports whether s names a known quotation status.
func ValidStatus(s string) bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// Quotation is the header row of a sales quote.  Monetary aggregates are
// recomputed from the lines after every line mutation and are rounded to
// two decimals.
//
// Fields:
//  ID            – primary key identifier.
//  QuoteNumber   – sequential human number, e.g. "AVV-2026-0007".
//  PublicRef     – uuid string safe to share outside the back office.
//  ClientID      – customer the quote is addressed to.
//  ContactID     – optional contact at the client.
//  EventID       – optional linked event; its window is the default
//                  reservation window for rentable lines.
//  OwnerID       – user responsible for the quote.
//  Currency      – ISO 4217 code, default HNL.
//  ExchangeRate  – rate against the base currency.
//  Status        – current state machine position.
//  Subtotal      – Σ line base (after discount, before tax).
//  DiscountTotal – Σ line discount amounts.
//  TaxTotal      – Σ line tax amounts.
//  Total         – Σ line totals.
//  DepositDue    – deposit requested up front.
//  ValidUntil    – optional expiry date of the offer.
type Quotation struct {
	ID            uint64
	QuoteNumber   string
	PublicRef     string
	ClientID      uint64
	ContactID     *uint64
	EventID       *uint64
	OwnerID       uint64
	Currency      string
	ExchangeRate  float64
	Status        string
	Subtotal      float64
	DiscountTotal float64
	TaxTotal      float64
	Total         float64
	DepositDue    float64
	ValidUntil    *time.Time
	NotesInternal *string
	NotesClient   *string
	Terms         *string
	SentAt        *time.Time
	AcceptedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuotationLine is one priced row of a quotation.  Name, type, unit,
// price and tax are snapshots taken from the item when the line was
// added; they do not follow later item edits.  StartAt/EndAt override
// the event window for this line's reservation when set.
type QuotationLine struct {
	ID           uint64
	QuotationID  uint64
	ItemID       uint64
	CustomName   string
	Description  *string
	Section      *string
	ItemType     string
	Quantity     float64
	Unit         string
	UnitPrice    float64
	DiscountPct  float64
	TaxRate      float64
	LineSubtotal float64
	LineTax      float64
	LineTotal    float64
	StartAt      *time.Time
	EndAt        *time.Time
	SortOrder    int
}

// StatusChange is one row of the quotation_status_history audit trail.
// OldStatus is nil for the initial "created as draft" entry.
type StatusChange struct {
	ID          uint64
	QuotationID uint64
	OldStatus   *string
	NewStatus   string
	ChangedBy   *uint64
	Note        *string
	CreatedAt   time.Time
}
