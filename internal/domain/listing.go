package domain

import "time"

// SizeBucket is the coarse S/M/L classification derived from a listing's
// capacity. It is display/search metadata only; all capacity math runs on
// raw square feet.
type SizeBucket string

const (
	SizeSmall  SizeBucket = "S"
	SizeMedium SizeBucket = "M"
	SizeLarge  SizeBucket = "L"
)

const (
	smallMaxSqft  = 60
	mediumMaxSqft = 150
)

// BucketForSqft is the single place bucket thresholds live. Callers must
// re-derive the bucket whenever capacity changes.
func BucketForSqft(sqft int) SizeBucket {
	switch {
	case sqft <= smallMaxSqft:
		return SizeSmall
	case sqft <= mediumMaxSqft:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// Listing is a host's offered storage space.
type Listing struct {
	ID             string
	HostID         string
	Title          string
	Description    string
	SizeSqft       int
	Size           SizeBucket
	PricePerMonth  float64
	AddressSummary string
	ZipCode        string
	Rating         float64
	// AvailableFrom/AvailableTo bound bookable date ranges; nil means
	// unbounded on that side.
	AvailableFrom *time.Time
	AvailableTo   *time.Time
	// BookingDeadline, when set, closes the listing to new reservations
	// once the wall clock passes it, regardless of the requested dates.
	BookingDeadline *time.Time
	CreatedAt       time.Time
}

// ListingFilter narrows listing search. Zero values mean no constraint.
// ZipCode is a ranking signal for the search projection, never a row
// filter.
type ListingFilter struct {
	ZipCode  string
	PriceMin *float64
	PriceMax *float64
	Size     SizeBucket
}

// WindowResult classifies a candidate range against a listing's
// availability bounds and booking deadline.
type WindowResult int

const (
	WithinWindow WindowResult = iota
	BeforeAvailable
	AfterAvailable
	PastDeadline
)

// CheckWindow is a pure function of listing + clock: no bounds configured
// means always within window. The deadline check ignores the requested
// dates entirely.
func (l Listing) CheckWindow(r DateRange, now time.Time) WindowResult {
	if l.BookingDeadline != nil && now.After(*l.BookingDeadline) {
		return PastDeadline
	}
	if l.AvailableFrom != nil && r.Start.Before(*l.AvailableFrom) {
		return BeforeAvailable
	}
	if l.AvailableTo != nil && r.End.After(*l.AvailableTo) {
		return AfterAvailable
	}
	return WithinWindow
}
