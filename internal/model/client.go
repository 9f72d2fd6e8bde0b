package model

import "time"

// Client is a customer of the rental company.
type Client struct {
	ID        uint64
	Name      string
	TaxID     *string
	Email     *string
	Phone     *string
	Address   *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contact is a person at a client.  At most one contact per client
// should carry IsPrimary; setting a new primary clears the previous one.
type Contact struct {
	ID        uint64
	ClientID  uint64
	Name      string
	Email     *string
	Phone     *string
	Position  *string
	IsPrimary bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
