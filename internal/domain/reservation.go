package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending_host_confirmation"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationDeclined  ReservationStatus = "declined"
	ReservationExpired   ReservationStatus = "expired"
)

// Reservation is a renter's claim on a sub-area of a listing for a date
// range. Pending reservations hold capacity only until HoldExpiresAt.
type Reservation struct {
	ID            string
	ListingID     string
	RenterID      string
	Range         DateRange
	SqftRequested int
	Status        ReservationStatus
	BasePrice     float64
	ServiceFee    float64
	Insurance     float64
	TotalPrice    float64
	HoldExpiresAt time.Time
	CreatedAt     time.Time
	PaymentStatus string
}

// EffectiveStatus derives the status as of now: a pending reservation past
// its hold is expired even if no writer has caught up yet. Every status
// read goes through this so correctness never depends on a background
// sweep.
func (r Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.Status == ReservationPending && now.After(r.HoldExpiresAt) {
		return ReservationExpired
	}
	return r.Status
}

// HoldsCapacity reports whether the reservation counts against its
// listing's capacity at the given instant.
func (r Reservation) HoldsCapacity(now time.Time) bool {
	switch r.EffectiveStatus(now) {
	case ReservationPending, ReservationConfirmed:
		return true
	default:
		return false
	}
}
