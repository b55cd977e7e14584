package model

import (
	"fmt"
	"time"
)

// BatchDateLayout is the canonical text form of a batch date. Directory names
// and the persisted run boundary both use it. The fixed-width layout sorts
// lexicographically in chronological order, which the scanner relies on for
// stable ordering.
const BatchDateLayout = "2006-01-02"

// SupplierKey identifies a data supplier. A key is only meaningful when it is
// a member of the configured allow-list; the scanner enforces that.
type SupplierKey string

// BatchDate is a calendar date with no time component.
type BatchDate struct {
	t time.Time
}

// ParseBatchDate parses a date in YYYY-MM-DD form. Anything else is rejected,
// including valid dates in other layouts.
func ParseBatchDate(s string) (BatchDate, error) {
	t, err := time.Parse(BatchDateLayout, s)
	if err != nil {
		return BatchDate{}, fmt.Errorf("invalid batch date %q: %w", s, err)
	}
	return BatchDate{t: t}, nil
}

// DateOf truncates a time to its calendar date in UTC.
func DateOf(t time.Time) BatchDate {
	y, m, d := t.UTC().Date()
	return BatchDate{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() BatchDate {
	return DateOf(time.Now())
}

// IsZero reports whether the date is the zero value (no date).
func (d BatchDate) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly earlier than other.
func (d BatchDate) Before(other BatchDate) bool { return d.t.Before(other.t) }

// String returns the canonical YYYY-MM-DD form.
func (d BatchDate) String() string { return d.t.Format(BatchDateLayout) }

// BatchUnit is one unit of archival work: a single supplier's batch directory
// for a single date. Units are produced per run by the scanner and discarded
// after processing; they are never persisted.
type BatchUnit struct {
	Supplier SupplierKey
	Date     BatchDate
	Dir      string // absolute path of the batch directory
}

// DateRange selects batch dates for archival. Cutoff is an exclusive upper
// bound; Earliest, when set, is an inclusive lower bound. A batch dated
// exactly on the cutoff is excluded because it may still be mid-write.
type DateRange struct {
	Cutoff   BatchDate
	Earliest BatchDate // zero value means unbounded below
}

// Includes reports whether d falls inside the range.
func (r DateRange) Includes(d BatchDate) bool {
	if !d.Before(r.Cutoff) {
		return false
	}
	if r.Earliest.IsZero() {
		return true
	}
	return !d.Before(r.Earliest)
}
