package model

import "time"

// Event defines the time window a quotation's rentable lines are
// reserved for by default.  StartAt/EndAt are stored in UTC; Timezone
// records the venue-local zone name used when the window was entered
// (e.g. "America/Tegucigalpa").
//
// Fields:
//  ID       – primary key identifier.
//  Name     – event display name.
//  ClientID – optional customer the event belongs to.
//  Venue    – optional free-form location.
//  StartAt  – window start (inclusive), UTC.
//  EndAt    – window end (exclusive), UTC; must be after StartAt.
//  Timezone – IANA zone name for display purposes.
type Event struct {
	ID        uint64
	Name      string
	ClientID  *uint64
	Venue     *string
	StartAt   time.Time
	EndAt     time.Time
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
