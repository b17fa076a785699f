package app

import (
	"context"
	"errors"
	"time"

	"github.com/saachiraju/Team-07-Spacio/internal/clock"
	"github.com/saachiraju/Team-07-Spacio/internal/domain"
	"github.com/saachiraju/Team-07-Spacio/internal/pricing"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetListing(ctx context.Context, listingID string) (domain.Listing, error)
	GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error)
	// OverlappingReservations returns reservations on the listing that still
	// hold capacity as of now (confirmed, or pending with a live hold) and
	// whose range overlaps r under half-open semantics. excludeID, when
	// non-empty, is left out of the result.
	OverlappingReservations(ctx context.Context, listingID string, r domain.DateRange, now time.Time, excludeID string) ([]domain.Reservation, error)
	// HeldSqftAt sums sqft held against the listing at the single instant at.
	HeldSqftAt(ctx context.Context, listingID string, at, now time.Time) (int, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error
	DeleteReservation(ctx context.Context, reservationID string) error
	ListReservationsForRenter(ctx context.Context, renterID string) ([]domain.Reservation, error)
	ListReservationsForHost(ctx context.Context, hostID string) ([]domain.Reservation, error)
}

type ReservationService struct {
	repo            ReservationRepository
	clock           clock.Clock
	rates           pricing.Config
	holdTTL         time.Duration
	conflictRetries int
}

const (
	defaultHoldTTL         = 24 * time.Hour
	defaultConflictRetries = 3
)

func NewReservationService(repo ReservationRepository, clk clock.Clock, rates pricing.Config, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:            repo,
		clock:           clk,
		rates:           rates,
		holdTTL:         defaultHoldTTL,
		conflictRetries: defaultConflictRetries,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithHoldTTL overrides how long a pending reservation holds capacity.
func WithHoldTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithConflictRetries overrides how many times a write conflict is retried
// before surfacing to the caller.
func WithConflictRetries(n int) ReservationServiceOption {
	return func(s *ReservationService) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

type CreateReservationInput struct {
	ListingID     string
	RenterID      string
	StartDate     time.Time
	EndDate       time.Time
	SqftRequested int
	AddInsurance  bool
}

// CreateReservation validates the candidate range against the listing's
// window and remaining capacity, prices it, and persists it as pending.
// The capacity check and the insert run inside one transaction with the
// listing row locked, so two overlapping requests for the same listing are
// serialized; write conflicts retry a bounded number of times. Rejected
// attempts never persist anything.
func (s *ReservationService) CreateReservation(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	r := domain.DateRange{Start: in.StartDate, End: in.EndDate}
	if !r.Valid() {
		return domain.Reservation{}, domain.ErrInvalidRange
	}
	if in.SqftRequested <= 0 {
		return domain.Reservation{}, domain.ErrInvalidSqft
	}

	var result domain.Reservation
	attempt := func() error {
		now := s.clock.Now()
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			listing, err := s.repo.GetListingForUpdate(txCtx, in.ListingID)
			if err != nil {
				return err
			}
			if listing.HostID == in.RenterID {
				return domain.ErrSelfBookingDenied
			}
			switch listing.CheckWindow(r, now) {
			case domain.PastDeadline:
				return domain.ErrPastDeadline
			case domain.BeforeAvailable:
				return domain.ErrBeforeAvailable
			case domain.AfterAvailable:
				return domain.ErrAfterAvailable
			}

			overlapping, err := s.repo.OverlappingReservations(txCtx, in.ListingID, r, now, "")
			if err != nil {
				return err
			}
			reserved := 0
			conflicting := make([]string, 0, len(overlapping))
			for _, existing := range overlapping {
				if !existing.HoldsCapacity(now) {
					continue
				}
				reserved += existing.SqftRequested
				conflicting = append(conflicting, existing.ID)
			}
			allowed := listing.SizeSqft - reserved
			if in.SqftRequested > allowed {
				return &domain.CapacityError{
					AvailableSqft:  allowed,
					RequestedSqft:  in.SqftRequested,
					ConflictingIDs: conflicting,
				}
			}

			quote := pricing.Cost(s.rates, listing.PricePerMonth, listing.SizeSqft, in.SqftRequested, r, in.AddInsurance)
			result = domain.Reservation{
				ID:            newUUID(),
				ListingID:     in.ListingID,
				RenterID:      in.RenterID,
				Range:         r,
				SqftRequested: in.SqftRequested,
				Status:        domain.ReservationPending,
				BasePrice:     quote.BasePrice,
				ServiceFee:    quote.ServiceFee,
				Insurance:     quote.Insurance,
				TotalPrice:    quote.Total,
				HoldExpiresAt: now.Add(s.holdTTL),
				CreatedAt:     now,
				PaymentStatus: "mocked-success",
			}
			return s.repo.CreateReservation(txCtx, result)
		})
	}

	var err error
	for i := 0; i <= s.conflictRetries; i++ {
		if err = attempt(); !errors.Is(err, domain.ErrWriteConflict) {
			break
		}
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Approve confirms a pending reservation. Only the listing's owning host
// may approve, and a pending reservation past its hold is never
// approvable: its expiry is written back before the error surfaces.
func (s *ReservationService) Approve(ctx context.Context, reservationID, actingHostID string) (domain.Reservation, error) {
	return s.decide(ctx, reservationID, actingHostID, domain.ReservationConfirmed)
}

// Decline rejects a pending reservation, releasing its held capacity.
func (s *ReservationService) Decline(ctx context.Context, reservationID, actingHostID string) (domain.Reservation, error) {
	return s.decide(ctx, reservationID, actingHostID, domain.ReservationDeclined)
}

func (s *ReservationService) decide(ctx context.Context, reservationID, actingHostID string, decision domain.ReservationStatus) (domain.Reservation, error) {
	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		listing, err := s.repo.GetListing(txCtx, res.ListingID)
		if err != nil {
			return err
		}
		if listing.HostID != actingHostID {
			return domain.ErrUnauthorized
		}

		switch res.EffectiveStatus(now) {
		case domain.ReservationPending:
		case domain.ReservationExpired:
			if res.Status == domain.ReservationPending {
				if err := s.repo.UpdateReservationStatus(txCtx, reservationID, domain.ReservationExpired); err != nil {
					return err
				}
			}
			return domain.ErrHoldExpired
		default:
			return domain.ErrAlreadyDecided
		}

		if err := s.repo.UpdateReservationStatus(txCtx, reservationID, decision); err != nil {
			return err
		}
		res.Status = decision
		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Cancel hard-deletes a reservation, immediately releasing its capacity.
// Allowed for the reservation's renter or the listing's owning host.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, actingUserID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		listing, err := s.repo.GetListing(txCtx, res.ListingID)
		if err != nil {
			return err
		}
		if actingUserID != res.RenterID && actingUserID != listing.HostID {
			return domain.ErrUnauthorized
		}
		return s.repo.DeleteReservation(txCtx, reservationID)
	})
}

// ListReservationsFor returns the user's reservations as renter; hosts
// additionally see reservations taken against their listings. Statuses are
// reported as of now, so stale pendings read as expired.
func (s *ReservationService) ListReservationsFor(ctx context.Context, userID string, isHost bool) ([]domain.Reservation, error) {
	now := s.clock.Now()

	reservations, err := s.repo.ListReservationsForRenter(ctx, userID)
	if err != nil {
		return nil, err
	}
	if isHost {
		hosted, err := s.repo.ListReservationsForHost(ctx, userID)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(reservations))
		for _, res := range reservations {
			seen[res.ID] = struct{}{}
		}
		for _, res := range hosted {
			if _, ok := seen[res.ID]; !ok {
				reservations = append(reservations, res)
			}
		}
	}

	for i := range reservations {
		reservations[i].Status = reservations[i].EffectiveStatus(now)
	}
	return reservations, nil
}

// AvailableCapacity reports the sqft free on a listing at the given
// instant. Read-only: no lock, may be one write stale.
func (s *ReservationService) AvailableCapacity(ctx context.Context, listingID string, asOf time.Time) (int, error) {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return 0, err
	}
	held, err := s.repo.HeldSqftAt(ctx, listingID, asOf, s.clock.Now())
	if err != nil {
		return 0, err
	}
	return listing.SizeSqft - held, nil
}
