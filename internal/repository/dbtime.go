package repository

import (
	"database/sql"
	"time"
)

// DBTimeLayout is the DATETIME format used for every timestamp column.
// All values are written and compared in UTC; the lexicographic order of
// formatted strings matches chronological order, which the overlap
// queries rely on.
const DBTimeLayout = "2006-01-02 15:04:05"

// FmtTime renders t in UTC for storage.
func FmtTime(t time.Time) string { return t.UTC().Format(DBTimeLayout) }

// ParseDBTime parses a stored timestamp back into a UTC time.Time.
func ParseDBTime(s string) (time.Time, error) {
	t, err := time.Parse(DBTimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseNullTime converts a nullable column into *time.Time, treating
// empty and zero-value strings as null.
func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" || ns.String == "0001-01-01 00:00:00" {
		return nil, nil
	}
	t, err := ParseDBTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullStr converts *string to a driver-friendly value.
func nullStr(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// nullTime converts *time.Time to a formatted value or nil.
func nullTime(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return FmtTime(*p)
}

// nullID converts *uint64 to a driver-friendly value.
func nullID(p *uint64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// strPtr returns a *string for a nullable scan result.
func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// idPtr returns a *uint64 for a nullable scan result.
func idPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
