// Package service implements the quotation business workflows: pricing
// recomputation, the status state machine, and the acceptance flow that
// turns quotation lines into capacity-checked reservations.  Handlers
// translate the typed errors defined here into HTTP responses.
package service

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a business-rule violation on the input or the
// quotation's current data (missing event, invalid line window, no
// rentable lines).  LineIDs names the offending lines when applicable.
type ValidationError struct {
	Msg     string
	LineIDs []uint64
}

func (e *ValidationError) Error() string {
	if len(e.LineIDs) == 0 {
		return e.Msg
	}
	ids := make([]string, len(e.LineIDs))
	for i, id := range e.LineIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s (lines: %s)", e.Msg, strings.Join(ids, ", "))
}

// ConflictError reports an illegal status transition.
type ConflictError struct {
	From string
	To   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// Shortfall describes one item that cannot be reserved: how much
// capacity exists, how much of it is already held by overlapping
// reservations, and how much this quotation requested for the window.
type Shortfall struct {
	ItemID    uint64    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Capacity  int       `json:"capacity"`
	Reserved  int       `json:"reserved"`
	Requested int       `json:"requested"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
}

// CapacityError carries every shortfall found during an acceptance
// attempt, not just the first.  When it is returned no reservation has
// been created or modified.
type CapacityError struct {
	Shortfalls []Shortfall
}

func (e *CapacityError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("item %d (%s): capacity=%d reserved=%d requested=%d [%s, %s)",
			s.ItemID, s.ItemName, s.Capacity, s.Reserved, s.Requested,
			s.StartAt.Format(time.RFC3339), s.EndAt.Format(time.RFC3339))
	}
	return "insufficient capacity: " + strings.Join(parts, "; ")
}
