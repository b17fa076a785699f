package domain

import "time"

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether End is strictly after Start.
func (r DateRange) Valid() bool {
	return r.End.After(r.Start)
}

// Overlaps reports whether two half-open ranges share at least one instant.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// Covers reports whether t falls inside the range.
func (r DateRange) Covers(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the whole-day length of the range, never less than one.
// Partial-day remainders are truncated, matching the pricing contract.
func (r DateRange) Days() int {
	d := int(r.End.Sub(r.Start).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}
