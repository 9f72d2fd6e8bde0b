// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios
// without string matching. For example, ErrConflict signals that an
// operation cannot proceed due to dependent records (deleting a client
// that still has quotations), while the per-entity not-found sentinels
// map to HTTP 404 responses.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a supplier that is
// still referenced. Handlers should translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// Not-found sentinels, one per aggregate. Repositories translate
// sql.ErrNoRows into these so callers never depend on database/sql.
var (
	ErrItemNotFound      = errors.New("item not found")
	ErrClientNotFound    = errors.New("client not found")
	ErrContactNotFound   = errors.New("contact not found")
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrQuotationNotFound = errors.New("quotation not found")
	ErrLineNotFound      = errors.New("quotation line not found")
	ErrBalanceNotFound   = errors.New("inventory balance not found")
)
