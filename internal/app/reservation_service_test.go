package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saachiraju/Team-07-Spacio/internal/clock"
	"github.com/saachiraju/Team-07-Spacio/internal/domain"
	"github.com/saachiraju/Team-07-Spacio/internal/pricing"
)

var testRates = pricing.Config{ServiceFeeRate: 0.10, InsuranceRatePerSqft: 0.50}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestReservationService_CreateReservation(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	makeSvc := func(listings []domain.Listing, reservations []domain.Reservation, opts ...ReservationServiceOption) (*ReservationService, *fakeReservationRepo) {
		repo := newFakeReservationRepo(listings, reservations)
		svc := NewReservationService(repo, clock.NewFixed(now), testRates, opts...)
		return svc, repo
	}

	listing100 := domain.Listing{ID: "listing-1", HostID: "host-1", SizeSqft: 100, PricePerMonth: 120}

	t.Run("creates pending reservation when capacity available", func(t *testing.T) {
		svc, repo := makeSvc([]domain.Listing{listing100}, nil)

		res, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-1",
			StartDate:     day(1),
			EndDate:       day(1).AddDate(0, 0, 31),
			SqftRequested: 60,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.ID == "" {
			t.Fatalf("expected reservation ID to be set")
		}
		if res.Status != domain.ReservationPending {
			t.Fatalf("expected status %s, got %s", domain.ReservationPending, res.Status)
		}
		if res.HoldExpiresAt != now.Add(24*time.Hour) {
			t.Fatalf("expected 24h hold, got %v", res.HoldExpiresAt)
		}
		if res.BasePrice != 74.40 {
			t.Fatalf("expected base price 74.40, got %v", res.BasePrice)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected 1 reservation persisted, got %d", len(repo.reservations))
		}
	})

	t.Run("rejects when capacity exceeded and reports available", func(t *testing.T) {
		svc, repo := makeSvc([]domain.Listing{listing100}, []domain.Reservation{{
			ID:            "res-a",
			ListingID:     "listing-1",
			RenterID:      "renter-a",
			Range:         domain.DateRange{Start: day(1), End: day(31)},
			SqftRequested: 60,
			Status:        domain.ReservationPending,
			HoldExpiresAt: now.Add(time.Hour),
		}})

		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-b",
			StartDate:     day(1),
			EndDate:       day(31),
			SqftRequested: 50,
		})
		ce, ok := domain.IsCapacityExceeded(err)
		if !ok {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if ce.AvailableSqft != 40 {
			t.Fatalf("expected 40 sqft available, got %d", ce.AvailableSqft)
		}
		if len(ce.ConflictingIDs) != 1 || ce.ConflictingIDs[0] != "res-a" {
			t.Fatalf("expected conflicting res-a, got %v", ce.ConflictingIDs)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("rejected attempt must not persist, got %d reservations", len(repo.reservations))
		}
	})

	t.Run("expired pending holds free capacity", func(t *testing.T) {
		svc, _ := makeSvc([]domain.Listing{listing100}, []domain.Reservation{{
			ID:            "res-stale",
			ListingID:     "listing-1",
			RenterID:      "renter-a",
			Range:         domain.DateRange{Start: day(1), End: day(31)},
			SqftRequested: 80,
			Status:        domain.ReservationPending,
			HoldExpiresAt: now.Add(-time.Minute),
		}})

		res, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-b",
			StartDate:     day(1),
			EndDate:       day(31),
			SqftRequested: 90,
		})
		if err != nil {
			t.Fatalf("expected stale hold to free capacity, got %v", err)
		}
		if res.SqftRequested != 90 {
			t.Fatalf("expected 90 sqft, got %d", res.SqftRequested)
		}
	})

	t.Run("non-overlapping ranges do not contend", func(t *testing.T) {
		svc, _ := makeSvc([]domain.Listing{listing100}, []domain.Reservation{{
			ID:            "res-a",
			ListingID:     "listing-1",
			RenterID:      "renter-a",
			Range:         domain.DateRange{Start: day(1), End: day(10)},
			SqftRequested: 100,
			Status:        domain.ReservationConfirmed,
		}})

		// adjacent under half-open semantics
		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-b",
			StartDate:     day(10),
			EndDate:       day(20),
			SqftRequested: 100,
		})
		if err != nil {
			t.Fatalf("expected adjacent range to succeed, got %v", err)
		}
	})

	t.Run("end before start is invalid", func(t *testing.T) {
		svc, _ := makeSvc([]domain.Listing{listing100}, nil)
		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-1",
			StartDate:     day(10),
			EndDate:       day(10),
			SqftRequested: 10,
		})
		if !errors.Is(err, domain.ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("non-positive sqft is invalid", func(t *testing.T) {
		svc, _ := makeSvc([]domain.Listing{listing100}, nil)
		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-1",
			StartDate:     day(1),
			EndDate:       day(10),
			SqftRequested: 0,
		})
		if !errors.Is(err, domain.ErrInvalidSqft) {
			t.Fatalf("expected ErrInvalidSqft, got %v", err)
		}
	})

	t.Run("host cannot reserve own listing", func(t *testing.T) {
		svc, _ := makeSvc([]domain.Listing{listing100}, nil)
		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "host-1",
			StartDate:     day(1),
			EndDate:       day(10),
			SqftRequested: 10,
		})
		if !errors.Is(err, domain.ErrSelfBookingDenied) {
			t.Fatalf("expected ErrSelfBookingDenied, got %v", err)
		}
	})

	t.Run("past booking deadline rejects far-future ranges", func(t *testing.T) {
		deadline := now.Add(-24 * time.Hour)
		l := listing100
		l.BookingDeadline = &deadline
		svc, _ := makeSvc([]domain.Listing{l}, nil)

		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-1",
			StartDate:     day(1).AddDate(1, 0, 0),
			EndDate:       day(1).AddDate(1, 1, 0),
			SqftRequested: 10,
		})
		if !errors.Is(err, domain.ErrPastDeadline) {
			t.Fatalf("expected ErrPastDeadline, got %v", err)
		}
	})

	t.Run("range outside availability window rejects before capacity", func(t *testing.T) {
		from := day(15)
		l := listing100
		l.AvailableFrom = &from
		svc, _ := makeSvc([]domain.Listing{l}, nil)

		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-1",
			StartDate:     day(10),
			EndDate:       day(20),
			SqftRequested: 10,
		})
		if !errors.Is(err, domain.ErrBeforeAvailable) {
			t.Fatalf("expected ErrBeforeAvailable, got %v", err)
		}
	})

	t.Run("listing not found", func(t *testing.T) {
		svc, _ := makeSvc(nil, nil)
		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "missing",
			RenterID:      "renter-1",
			StartDate:     day(1),
			EndDate:       day(10),
			SqftRequested: 10,
		})
		if !errors.Is(err, domain.ErrListingNotFound) {
			t.Fatalf("expected ErrListingNotFound, got %v", err)
		}
	})

	t.Run("write conflicts retry a bounded number of times", func(t *testing.T) {
		svc, repo := makeSvc([]domain.Listing{listing100}, nil, WithConflictRetries(3))
		repo.conflictsBeforeSuccess = 2

		res, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-1",
			StartDate:     day(1),
			EndDate:       day(10),
			SqftRequested: 10,
		})
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if res.ID == "" {
			t.Fatalf("expected reservation after retries")
		}

		repo.conflictsBeforeSuccess = 10
		_, err = svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-2",
			StartDate:     day(11),
			EndDate:       day(20),
			SqftRequested: 10,
		})
		if !errors.Is(err, domain.ErrWriteConflict) {
			t.Fatalf("expected ErrWriteConflict after exhausting retries, got %v", err)
		}
	})

	t.Run("concurrent overlapping requests cannot oversell", func(t *testing.T) {
		svc, repo := makeSvc([]domain.Listing{listing100}, nil)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := 0; i < 2; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, results[i] = svc.CreateReservation(context.Background(), CreateReservationInput{
					ListingID:     "listing-1",
					RenterID:      "renter-" + string(rune('a'+i)),
					StartDate:     day(1),
					EndDate:       day(31),
					SqftRequested: 60,
				})
			}()
		}
		wg.Wait()

		var successes, capacityErrs int
		for _, err := range results {
			if err == nil {
				successes++
				continue
			}
			if _, ok := domain.IsCapacityExceeded(err); ok {
				capacityErrs++
			}
		}
		if successes != 1 || capacityErrs != 1 {
			t.Fatalf("expected exactly one success and one capacity rejection, got %v", results)
		}
		total := 0
		for _, r := range repo.reservations {
			if r.HoldsCapacity(now) {
				total += r.SqftRequested
			}
		}
		if total > 100 {
			t.Fatalf("capacity oversold: %d sqft held on a 100 sqft listing", total)
		}
	})
}

func TestReservationService_Decisions(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

	pendingRes := domain.Reservation{
		ID:            "res-1",
		ListingID:     "listing-1",
		RenterID:      "renter-1",
		Range:         domain.DateRange{Start: day(5), End: day(15)},
		SqftRequested: 50,
		Status:        domain.ReservationPending,
		HoldExpiresAt: now.Add(time.Hour),
	}
	listing := domain.Listing{ID: "listing-1", HostID: "host-1", SizeSqft: 100, PricePerMonth: 120}

	makeSvc := func(reservations ...domain.Reservation) (*ReservationService, *fakeReservationRepo) {
		repo := newFakeReservationRepo([]domain.Listing{listing}, reservations)
		return NewReservationService(repo, clock.NewFixed(now), testRates), repo
	}

	t.Run("host approves pending reservation", func(t *testing.T) {
		svc, repo := makeSvc(pendingRes)
		res, err := svc.Approve(context.Background(), "res-1", "host-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Status != domain.ReservationConfirmed {
			t.Fatalf("expected confirmed, got %s", res.Status)
		}
		if repo.reservations[0].Status != domain.ReservationConfirmed {
			t.Fatalf("expected persisted status confirmed, got %s", repo.reservations[0].Status)
		}
	})

	t.Run("host declines pending reservation", func(t *testing.T) {
		svc, repo := makeSvc(pendingRes)
		res, err := svc.Decline(context.Background(), "res-1", "host-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Status != domain.ReservationDeclined {
			t.Fatalf("expected declined, got %s", res.Status)
		}
		if repo.reservations[0].Status != domain.ReservationDeclined {
			t.Fatalf("expected persisted status declined")
		}
	})

	t.Run("decline releases capacity for a new request", func(t *testing.T) {
		svc, _ := makeSvc(pendingRes)
		if _, err := svc.Decline(context.Background(), "res-1", "host-1"); err != nil {
			t.Fatalf("decline: %v", err)
		}
		_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-2",
			StartDate:     day(5),
			EndDate:       day(15),
			SqftRequested: 100,
		})
		if err != nil {
			t.Fatalf("expected freed capacity to be bookable, got %v", err)
		}
	})

	t.Run("non-owner cannot decide", func(t *testing.T) {
		svc, _ := makeSvc(pendingRes)
		if _, err := svc.Approve(context.Background(), "res-1", "host-2"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("stale pending is not approvable and expiry is written back", func(t *testing.T) {
		stale := pendingRes
		stale.HoldExpiresAt = now.Add(-time.Minute)
		svc, repo := makeSvc(stale)

		if _, err := svc.Approve(context.Background(), "res-1", "host-1"); !errors.Is(err, domain.ErrHoldExpired) {
			t.Fatalf("expected ErrHoldExpired, got %v", err)
		}
		if repo.reservations[0].Status != domain.ReservationExpired {
			t.Fatalf("expected expiry written back, got %s", repo.reservations[0].Status)
		}
	})

	t.Run("already decided reservations stay decided", func(t *testing.T) {
		confirmed := pendingRes
		confirmed.Status = domain.ReservationConfirmed
		svc, _ := makeSvc(confirmed)

		if _, err := svc.Decline(context.Background(), "res-1", "host-1"); !errors.Is(err, domain.ErrAlreadyDecided) {
			t.Fatalf("expected ErrAlreadyDecided, got %v", err)
		}
	})
}

func TestReservationService_Cancel(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	listing := domain.Listing{ID: "listing-1", HostID: "host-1", SizeSqft: 100, PricePerMonth: 120}
	res := domain.Reservation{
		ID:            "res-1",
		ListingID:     "listing-1",
		RenterID:      "renter-1",
		Range:         domain.DateRange{Start: day(5), End: day(15)},
		SqftRequested: 100,
		Status:        domain.ReservationConfirmed,
	}

	makeSvc := func() (*ReservationService, *fakeReservationRepo) {
		repo := newFakeReservationRepo([]domain.Listing{listing}, []domain.Reservation{res})
		return NewReservationService(repo, clock.NewFixed(now), testRates), repo
	}

	t.Run("renter cancels own reservation", func(t *testing.T) {
		svc, repo := makeSvc()
		if err := svc.Cancel(context.Background(), "res-1", "renter-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(repo.reservations) != 0 {
			t.Fatalf("expected hard delete, %d reservations remain", len(repo.reservations))
		}
	})

	t.Run("host cancels reservation on own listing", func(t *testing.T) {
		svc, repo := makeSvc()
		if err := svc.Cancel(context.Background(), "res-1", "host-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(repo.reservations) != 0 {
			t.Fatalf("expected hard delete")
		}
	})

	t.Run("cancellation releases capacity immediately", func(t *testing.T) {
		svc, _ := makeSvc()
		if err := svc.Cancel(context.Background(), "res-1", "renter-1"); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := svc.CreateReservation(context.Background(), CreateReservationInput{
			ListingID:     "listing-1",
			RenterID:      "renter-2",
			StartDate:     day(5),
			EndDate:       day(15),
			SqftRequested: 100,
		}); err != nil {
			t.Fatalf("expected freed capacity to be bookable, got %v", err)
		}
	})

	t.Run("third parties cannot cancel", func(t *testing.T) {
		svc, repo := makeSvc()
		if err := svc.Cancel(context.Background(), "res-1", "stranger"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("unauthorized cancel must not delete")
		}
	})
}

func TestReservationService_AvailableCapacity(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	listing := domain.Listing{ID: "listing-1", HostID: "host-1", SizeSqft: 100, PricePerMonth: 120}
	repo := newFakeReservationRepo([]domain.Listing{listing}, []domain.Reservation{
		{
			ID:            "covering",
			ListingID:     "listing-1",
			Range:         domain.DateRange{Start: day(5), End: day(15)},
			SqftRequested: 30,
			Status:        domain.ReservationConfirmed,
		},
		{
			ID:            "elsewhere",
			ListingID:     "listing-1",
			Range:         domain.DateRange{Start: day(20), End: day(25)},
			SqftRequested: 50,
			Status:        domain.ReservationConfirmed,
		},
	})
	svc := NewReservationService(repo, clock.NewFixed(now), testRates)

	got, err := svc.AvailableCapacity(context.Background(), "listing-1", now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != 70 {
		t.Fatalf("expected 70 sqft available, got %d", got)
	}

	// idempotent with no intervening writes
	again, err := svc.AvailableCapacity(context.Background(), "listing-1", now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if again != got {
		t.Fatalf("expected stable reading, got %d then %d", got, again)
	}
}

func TestReservationService_ListReservationsFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	listing := domain.Listing{ID: "listing-1", HostID: "host-1", SizeSqft: 100}
	mine := domain.Reservation{
		ID:            "res-mine",
		ListingID:     "other-listing",
		RenterID:      "user-1",
		Status:        domain.ReservationPending,
		HoldExpiresAt: now.Add(-time.Minute),
	}
	hosted := domain.Reservation{
		ID:            "res-hosted",
		ListingID:     "listing-1",
		RenterID:      "renter-9",
		Status:        domain.ReservationConfirmed,
	}
	repo := newFakeReservationRepo([]domain.Listing{listing}, []domain.Reservation{mine, hosted})
	svc := NewReservationService(repo, clock.NewFixed(now), testRates)

	t.Run("renter sees only own, with effective status", func(t *testing.T) {
		got, err := svc.ListReservationsFor(context.Background(), "user-1", false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].ID != "res-mine" {
			t.Fatalf("expected just res-mine, got %v", got)
		}
		if got[0].Status != domain.ReservationExpired {
			t.Fatalf("expected lazily expired status, got %s", got[0].Status)
		}
	})

	t.Run("host additionally sees reservations on own listings", func(t *testing.T) {
		repo2 := newFakeReservationRepo([]domain.Listing{listing}, []domain.Reservation{
			{ID: "res-own", ListingID: "other", RenterID: "host-1", Status: domain.ReservationConfirmed},
			hosted,
		})
		svc2 := NewReservationService(repo2, clock.NewFixed(now), testRates)

		got, err := svc2.ListReservationsFor(context.Background(), "host-1", true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 reservations, got %d", len(got))
		}
	})
}
