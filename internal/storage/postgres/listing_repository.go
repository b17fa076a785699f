package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saachiraju/Team-07-Spacio/internal/domain"
)

type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func (r *ListingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const listingColumns = `id, host_id, title, description, size_sqft, size_bucket, price_per_month,
address_summary, zip_code, rating, available_from, available_to, booking_deadline, created_at`

func (r *ListingRepository) CreateListing(ctx context.Context, listing domain.Listing) error {
	const stmt = `
INSERT INTO listings (id, host_id, title, description, size_sqft, size_bucket, price_per_month,
	address_summary, zip_code, rating, available_from, available_to, booking_deadline, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.exec(ctx, stmt,
		listing.ID,
		listing.HostID,
		listing.Title,
		listing.Description,
		listing.SizeSqft,
		string(listing.Size),
		listing.PricePerMonth,
		listing.AddressSummary,
		listing.ZipCode,
		listing.Rating,
		listing.AvailableFrom,
		listing.AvailableTo,
		listing.BookingDeadline,
		listing.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return r.scanListing(r.queryRow(ctx, query, listingID))
}

// GetListingForUpdate locks the listing row until the surrounding
// transaction ends, serializing mutations with concurrent bookings.
func (r *ListingRepository) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 FOR UPDATE`
	return r.scanListing(r.queryRow(ctx, query, listingID))
}

func (r *ListingRepository) UpdateListing(ctx context.Context, listing domain.Listing) error {
	const stmt = `
UPDATE listings
SET title = $2, description = $3, size_sqft = $4, size_bucket = $5, price_per_month = $6,
	available_from = $7, available_to = $8, booking_deadline = $9
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		listing.ID,
		listing.Title,
		listing.Description,
		listing.SizeSqft,
		string(listing.Size),
		listing.PricePerMonth,
		listing.AvailableFrom,
		listing.AvailableTo,
		listing.BookingDeadline,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) DeleteListing(ctx context.Context, listingID string) error {
	tag, err := r.exec(ctx, `DELETE FROM listings WHERE id = $1`, listingID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrListingHasBookings
		}
		return fmt.Errorf("delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) SearchListings(ctx context.Context, filter domain.ListingFilter) ([]domain.Listing, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	// ZipCode is a ranking signal applied by the service, not a filter.
	if filter.Size != "" {
		clauses = append(clauses, "size_bucket = "+arg(string(filter.Size)))
	}
	if filter.PriceMin != nil {
		clauses = append(clauses, "price_per_month >= "+arg(*filter.PriceMin))
	}
	if filter.PriceMax != nil {
		clauses = append(clauses, "price_per_month <= "+arg(*filter.PriceMax))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		listing, err := r.scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

func (r *ListingRepository) CountCapacityHolders(ctx context.Context, listingID string, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM reservations
WHERE listing_id = $1
  AND (status = 'confirmed' OR (status = 'pending_host_confirmation' AND hold_expires_at > $2))`

	var count int
	if err := r.queryRow(ctx, query, listingID, now).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count capacity holders: %w", err)
	}
	return count, nil
}

// MaxHeldSqft computes the peak concurrently-held sqft on the listing.
// The maximum of a sum of half-open intervals occurs at some interval
// start, so sampling the held sum at each holder's start date is exact.
func (r *ListingRepository) MaxHeldSqft(ctx context.Context, listingID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(MAX(held), 0)
FROM (
	SELECT (
		SELECT COALESCE(SUM(o.sqft_requested), 0)
		FROM reservations o
		WHERE o.listing_id = $1
		  AND o.start_date <= r.start_date AND o.end_date > r.start_date
		  AND (o.status = 'confirmed' OR (o.status = 'pending_host_confirmation' AND o.hold_expires_at > $2))
	) AS held
	FROM reservations r
	WHERE r.listing_id = $1
	  AND (r.status = 'confirmed' OR (r.status = 'pending_host_confirmation' AND r.hold_expires_at > $2))
) peaks`

	var held int
	if err := r.queryRow(ctx, query, listingID, now).Scan(&held); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("max held sqft: %w", err)
	}
	return held, nil
}

// PurgeReservations clears every reservation row on the listing so a
// subsequent delete cannot trip the foreign key.
func (r *ListingRepository) PurgeReservations(ctx context.Context, listingID string) error {
	if _, err := r.exec(ctx, `DELETE FROM reservations WHERE listing_id = $1`, listingID); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("purge reservations: %w", err)
	}
	return nil
}

func (r *ListingRepository) scanListing(row pgx.Row) (domain.Listing, error) {
	var (
		l      domain.Listing
		bucket string
	)
	err := row.Scan(
		&l.ID,
		&l.HostID,
		&l.Title,
		&l.Description,
		&l.SizeSqft,
		&bucket,
		&l.PricePerMonth,
		&l.AddressSummary,
		&l.ZipCode,
		&l.Rating,
		&l.AvailableFrom,
		&l.AvailableTo,
		&l.BookingDeadline,
		&l.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Listing{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Listing{}, domain.ErrListingNotFound
		}
		return domain.Listing{}, fmt.Errorf("scan listing: %w", err)
	}
	l.Size = domain.SizeBucket(bucket)
	return l, nil
}

func (r *ListingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ListingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ListingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
