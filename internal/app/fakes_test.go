package app

import (
	"context"
	"sync"
	"time"

	"github.com/saachiraju/Team-07-Spacio/internal/domain"
)

// fakeReservationRepo serializes WithTx with a mutex, mirroring the
// per-listing row lock the Postgres repository takes.
type fakeReservationRepo struct {
	mu                     sync.Mutex
	listings               map[string]domain.Listing
	reservations           []domain.Reservation
	conflictsBeforeSuccess int
}

func newFakeReservationRepo(listings []domain.Listing, reservations []domain.Reservation) *fakeReservationRepo {
	m := make(map[string]domain.Listing, len(listings))
	for _, l := range listings {
		m[l.ID] = l
	}
	return &fakeReservationRepo{
		listings:     m,
		reservations: append([]domain.Reservation{}, reservations...),
	}
}

func (f *fakeReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictsBeforeSuccess > 0 {
		f.conflictsBeforeSuccess--
		return domain.ErrWriteConflict
	}
	return fn(ctx)
}

func (f *fakeReservationRepo) GetListing(_ context.Context, listingID string) (domain.Listing, error) {
	l, ok := f.listings[listingID]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (f *fakeReservationRepo) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	return f.GetListing(ctx, listingID)
}

func (f *fakeReservationRepo) OverlappingReservations(_ context.Context, listingID string, r domain.DateRange, now time.Time, excludeID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.ListingID != listingID || res.ID == excludeID {
			continue
		}
		if !res.Range.Overlaps(r) || !res.HoldsCapacity(now) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (f *fakeReservationRepo) HeldSqftAt(_ context.Context, listingID string, at, now time.Time) (int, error) {
	total := 0
	for _, res := range f.reservations {
		if res.ListingID != listingID {
			continue
		}
		if res.Range.Covers(at) && res.HoldsCapacity(now) {
			total += res.SqftRequested
		}
	}
	return total, nil
}

func (f *fakeReservationRepo) CreateReservation(_ context.Context, res domain.Reservation) error {
	f.reservations = append(f.reservations, res)
	return nil
}

func (f *fakeReservationRepo) GetReservationForUpdate(_ context.Context, reservationID string) (domain.Reservation, error) {
	for _, res := range f.reservations {
		if res.ID == reservationID {
			return res, nil
		}
	}
	return domain.Reservation{}, domain.ErrReservationNotFound
}

func (f *fakeReservationRepo) UpdateReservationStatus(_ context.Context, reservationID string, status domain.ReservationStatus) error {
	for i := range f.reservations {
		if f.reservations[i].ID == reservationID {
			f.reservations[i].Status = status
			return nil
		}
	}
	return domain.ErrReservationNotFound
}

func (f *fakeReservationRepo) DeleteReservation(_ context.Context, reservationID string) error {
	for i := range f.reservations {
		if f.reservations[i].ID == reservationID {
			f.reservations = append(f.reservations[:i], f.reservations[i+1:]...)
			return nil
		}
	}
	return domain.ErrReservationNotFound
}

func (f *fakeReservationRepo) ListReservationsForRenter(_ context.Context, renterID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.RenterID == renterID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) ListReservationsForHost(_ context.Context, hostID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range f.reservations {
		l, ok := f.listings[res.ListingID]
		if ok && l.HostID == hostID {
			out = append(out, res)
		}
	}
	return out, nil
}

type fakeListingRepo struct {
	listings        map[string]domain.Listing
	order           []string
	capacityHolders map[string]int
	maxHeld         map[string]int
	purged          []string
}

func newFakeListingRepo(listings ...domain.Listing) *fakeListingRepo {
	f := &fakeListingRepo{
		listings:        make(map[string]domain.Listing, len(listings)),
		capacityHolders: make(map[string]int),
		maxHeld:         make(map[string]int),
	}
	for _, l := range listings {
		f.listings[l.ID] = l
		f.order = append(f.order, l.ID)
	}
	return f
}

func (f *fakeListingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeListingRepo) CreateListing(_ context.Context, listing domain.Listing) error {
	f.listings[listing.ID] = listing
	f.order = append(f.order, listing.ID)
	return nil
}

func (f *fakeListingRepo) GetListing(_ context.Context, listingID string) (domain.Listing, error) {
	l, ok := f.listings[listingID]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (f *fakeListingRepo) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	return f.GetListing(ctx, listingID)
}

func (f *fakeListingRepo) UpdateListing(_ context.Context, listing domain.Listing) error {
	if _, ok := f.listings[listing.ID]; !ok {
		return domain.ErrListingNotFound
	}
	f.listings[listing.ID] = listing
	return nil
}

func (f *fakeListingRepo) DeleteListing(_ context.Context, listingID string) error {
	if _, ok := f.listings[listingID]; !ok {
		return domain.ErrListingNotFound
	}
	delete(f.listings, listingID)
	for i, id := range f.order {
		if id == listingID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeListingRepo) SearchListings(_ context.Context, filter domain.ListingFilter) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, id := range f.order {
		l := f.listings[id]
		if filter.Size != "" && l.Size != filter.Size {
			continue
		}
		if filter.PriceMin != nil && l.PricePerMonth < *filter.PriceMin {
			continue
		}
		if filter.PriceMax != nil && l.PricePerMonth > *filter.PriceMax {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeListingRepo) CountCapacityHolders(_ context.Context, listingID string, _ time.Time) (int, error) {
	return f.capacityHolders[listingID], nil
}

func (f *fakeListingRepo) MaxHeldSqft(_ context.Context, listingID string, _ time.Time) (int, error) {
	return f.maxHeld[listingID], nil
}

func (f *fakeListingRepo) PurgeReservations(_ context.Context, listingID string) error {
	f.purged = append(f.purged, listingID)
	return nil
}

type fakeHostDirectory struct {
	verified map[string]bool
}

func (f *fakeHostDirectory) IsHostVerified(_ context.Context, hostID string) (bool, error) {
	return f.verified[hostID], nil
}

type capacityReaderFunc func(ctx context.Context, listingID string, asOf time.Time) (int, error)

func (fn capacityReaderFunc) AvailableCapacity(ctx context.Context, listingID string, asOf time.Time) (int, error) {
	return fn(ctx, listingID, asOf)
}

type fakeAvailabilityCache struct {
	entries map[string]int
	hits    int
	sets    int
}

func newFakeAvailabilityCache() *fakeAvailabilityCache {
	return &fakeAvailabilityCache{entries: make(map[string]int)}
}

func (f *fakeAvailabilityCache) GetAvailableSqft(_ context.Context, listingID string) (int, bool) {
	v, ok := f.entries[listingID]
	if ok {
		f.hits++
	}
	return v, ok
}

func (f *fakeAvailabilityCache) SetAvailableSqft(_ context.Context, listingID string, sqft int) {
	f.sets++
	f.entries[listingID] = sqft
}
