package app

import (
	"context"
	"sort"
	"time"

	"github.com/saachiraju/Team-07-Spacio/internal/clock"
	"github.com/saachiraju/Team-07-Spacio/internal/domain"
)

type ListingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateListing(ctx context.Context, listing domain.Listing) error
	GetListing(ctx context.Context, listingID string) (domain.Listing, error)
	// GetListingForUpdate locks the listing row for the transaction, so
	// mutations serialize with concurrent bookings on the same listing.
	GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error)
	UpdateListing(ctx context.Context, listing domain.Listing) error
	DeleteListing(ctx context.Context, listingID string) error
	SearchListings(ctx context.Context, filter domain.ListingFilter) ([]domain.Listing, error)
	// CountCapacityHolders counts reservations still holding capacity on the
	// listing as of now, for the delete guard.
	CountCapacityHolders(ctx context.Context, listingID string, now time.Time) (int, error)
	// MaxHeldSqft returns the peak concurrently-held sqft across all
	// capacity-holding reservations on the listing, the floor below which
	// its capacity cannot shrink.
	MaxHeldSqft(ctx context.Context, listingID string, now time.Time) (int, error)
	// PurgeReservations removes every reservation row on the listing.
	// Callers must first establish that none still holds capacity.
	PurgeReservations(ctx context.Context, listingID string) error
}

// HostDirectory is the external identity-verification collaborator; the
// engine only reads its verdict.
type HostDirectory interface {
	IsHostVerified(ctx context.Context, hostID string) (bool, error)
}

// CapacityReader is the read-only side of the resolver used to annotate
// search results.
type CapacityReader interface {
	AvailableCapacity(ctx context.Context, listingID string, asOf time.Time) (int, error)
}

// AvailabilityCache caches the advisory availableSqft projection. Misses
// and errors fall through to the resolver; the booking path never reads it.
type AvailabilityCache interface {
	GetAvailableSqft(ctx context.Context, listingID string) (int, bool)
	SetAvailableSqft(ctx context.Context, listingID string, sqft int)
}

type ListingService struct {
	repo     ListingRepository
	clock    clock.Clock
	hosts    HostDirectory
	capacity CapacityReader
	cache    AvailabilityCache
}

func NewListingService(repo ListingRepository, clk clock.Clock, hosts HostDirectory, capacity CapacityReader, cache AvailabilityCache) *ListingService {
	return &ListingService{
		repo:     repo,
		clock:    clk,
		hosts:    hosts,
		capacity: capacity,
		cache:    cache,
	}
}

type CreateListingInput struct {
	HostID          string
	IsHost          bool
	Title           string
	Description     string
	SizeSqft        int
	PricePerMonth   float64
	AddressSummary  string
	ZipCode         string
	Rating          float64
	AvailableFrom   *time.Time
	AvailableTo     *time.Time
	BookingDeadline *time.Time
}

// placeholder rating for new listings until real reviews exist
const defaultRating = 4.7

func (s *ListingService) CreateListing(ctx context.Context, in CreateListingInput) (domain.Listing, error) {
	if !in.IsHost {
		return domain.Listing{}, domain.ErrUnauthorized
	}
	if in.Title == "" {
		return domain.Listing{}, domain.ErrListingTitleRequired
	}
	if in.SizeSqft <= 0 {
		return domain.Listing{}, domain.ErrInvalidCapacity
	}
	if in.PricePerMonth < 0 {
		return domain.Listing{}, domain.ErrInvalidPrice
	}

	rating := in.Rating
	if rating == 0 {
		rating = defaultRating
	}

	listing := domain.Listing{
		ID:              newUUID(),
		HostID:          in.HostID,
		Title:           in.Title,
		Description:     in.Description,
		SizeSqft:        in.SizeSqft,
		Size:            domain.BucketForSqft(in.SizeSqft),
		PricePerMonth:   in.PricePerMonth,
		AddressSummary:  in.AddressSummary,
		ZipCode:         in.ZipCode,
		Rating:          rating,
		AvailableFrom:   in.AvailableFrom,
		AvailableTo:     in.AvailableTo,
		BookingDeadline: in.BookingDeadline,
		CreatedAt:       s.clock.Now(),
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

func (s *ListingService) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	if listingID == "" {
		return domain.Listing{}, domain.ErrInvalidID
	}
	return s.repo.GetListing(ctx, listingID)
}

type UpdateListingInput struct {
	ListingID       string
	ActorID         string
	Title           *string
	Description     *string
	SizeSqft        *int
	PricePerMonth   *float64
	AvailableFrom   *time.Time
	AvailableTo     *time.Time
	BookingDeadline *time.Time
}

// UpdateListing applies owner-only partial updates. Capacity changes
// re-derive the size bucket through the one shared function; a shrink
// below the peak sqft still held by pending/confirmed reservations is
// rejected, so existing holds can never exceed the listing's capacity.
// The check and the write run with the listing row locked, serialized
// against concurrent bookings.
func (s *ListingService) UpdateListing(ctx context.Context, in UpdateListingInput) (domain.Listing, error) {
	var updated domain.Listing
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		listing, err := s.repo.GetListingForUpdate(txCtx, in.ListingID)
		if err != nil {
			return err
		}
		if listing.HostID != in.ActorID {
			return domain.ErrUnauthorized
		}

		if in.Title != nil {
			if *in.Title == "" {
				return domain.ErrListingTitleRequired
			}
			listing.Title = *in.Title
		}
		if in.Description != nil {
			listing.Description = *in.Description
		}
		if in.SizeSqft != nil {
			if *in.SizeSqft <= 0 {
				return domain.ErrInvalidCapacity
			}
			if *in.SizeSqft < listing.SizeSqft {
				held, err := s.repo.MaxHeldSqft(txCtx, in.ListingID, s.clock.Now())
				if err != nil {
					return err
				}
				if *in.SizeSqft < held {
					return &domain.CapacityError{
						AvailableSqft: held,
						RequestedSqft: *in.SizeSqft,
					}
				}
			}
			listing.SizeSqft = *in.SizeSqft
			listing.Size = domain.BucketForSqft(*in.SizeSqft)
		}
		if in.PricePerMonth != nil {
			if *in.PricePerMonth < 0 {
				return domain.ErrInvalidPrice
			}
			listing.PricePerMonth = *in.PricePerMonth
		}
		if in.AvailableFrom != nil {
			listing.AvailableFrom = in.AvailableFrom
		}
		if in.AvailableTo != nil {
			listing.AvailableTo = in.AvailableTo
		}
		if in.BookingDeadline != nil {
			listing.BookingDeadline = in.BookingDeadline
		}

		if err := s.repo.UpdateListing(txCtx, listing); err != nil {
			return err
		}
		updated = listing
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return updated, nil
}

// DeleteListing removes an owner's listing, refused while any reservation
// still holds capacity against it. Dead rows (declined, expired, stale
// pendings) never block: they are purged in the same transaction so the
// listing delete cannot trip the foreign key.
func (s *ListingService) DeleteListing(ctx context.Context, listingID, actorID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		listing, err := s.repo.GetListingForUpdate(txCtx, listingID)
		if err != nil {
			return err
		}
		if listing.HostID != actorID {
			return domain.ErrUnauthorized
		}
		active, err := s.repo.CountCapacityHolders(txCtx, listingID, s.clock.Now())
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrListingHasBookings
		}
		if err := s.repo.PurgeReservations(txCtx, listingID); err != nil {
			return err
		}
		return s.repo.DeleteListing(txCtx, listingID)
	})
}

// ListingSummary is a listing annotated for browsing: host verification
// from the external directory and advisory free capacity as of now.
type ListingSummary struct {
	domain.Listing
	HostVerified  bool
	AvailableSqft int
}

// SearchListings is the read-side projection: never mutates, tolerates a
// slightly stale capacity figure (cache first, resolver on miss). When a
// zip code is supplied, exact matches rank first, then rating descending.
func (s *ListingService) SearchListings(ctx context.Context, filter domain.ListingFilter) ([]ListingSummary, error) {
	listings, err := s.repo.SearchListings(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	summaries := make([]ListingSummary, 0, len(listings))
	for _, listing := range listings {
		verified, err := s.hosts.IsHostVerified(ctx, listing.HostID)
		if err != nil {
			return nil, err
		}
		available, ok := s.cache.GetAvailableSqft(ctx, listing.ID)
		if !ok {
			available, err = s.capacity.AvailableCapacity(ctx, listing.ID, now)
			if err != nil {
				return nil, err
			}
			s.cache.SetAvailableSqft(ctx, listing.ID, available)
		}
		summaries = append(summaries, ListingSummary{
			Listing:       listing,
			HostVerified:  verified,
			AvailableSqft: available,
		})
	}

	if filter.ZipCode != "" {
		sort.SliceStable(summaries, func(i, j int) bool {
			iExact := summaries[i].ZipCode == filter.ZipCode
			jExact := summaries[j].ZipCode == filter.ZipCode
			if iExact != jExact {
				return iExact
			}
			return summaries[i].Rating > summaries[j].Rating
		})
	}
	return summaries, nil
}
