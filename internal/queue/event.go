// Package queue defines the message payloads exchanged over the broker
// and the background consumer that records them.
package queue

// QuotationAcceptedEvent is published when a quotation is accepted and
// its firm reservations are committed.  It carries enough for
// downstream consumers (notifications, analytics) to act without
// querying the primary database.
type QuotationAcceptedEvent struct {
	QuotationID      uint64  `json:"quotation_id"`
	QuoteNumber      string  `json:"quote_number"`
	PublicRef        string  `json:"public_ref"`
	ClientID         uint64  `json:"client_id"`
	EventID          *uint64 `json:"event_id,omitempty"`
	Currency         string  `json:"currency"`
	Total            float64 `json:"total"`
	DepositDue       float64 `json:"deposit_due"`
	ReservationCount int     `json:"reservation_count"`
	AcceptedBy       uint64  `json:"accepted_by"`
	AcceptedAt       string  `json:"accepted_at"`
}
