package model

import "time"

// Supplier is a vendor the company rents or buys equipment from.
type Supplier struct {
	ID        uint64
	Name      string
	TaxID     *string
	Email     *string
	Phone     *string
	Address   *string
	Notes     *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
