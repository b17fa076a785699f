package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saachiraju/Team-07-Spacio/internal/domain"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const reservationColumns = `id, listing_id, renter_id, start_date, end_date, sqft_requested, status,
base_price, service_fee, insurance, total_price, hold_expires_at, created_at, payment_status`

func (r *ReservationRepository) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return r.scanListing(r.queryRow(ctx, query, listingID))
}

// GetListingForUpdate locks the listing row for the rest of the
// transaction, serializing concurrent capacity checks per listing.
func (r *ReservationRepository) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 FOR UPDATE`
	return r.scanListing(r.queryRow(ctx, query, listingID))
}

// OverlappingReservations applies half-open overlap (existing.start <
// candidate.end AND existing.end > candidate.start) over reservations that
// still hold capacity: confirmed, or pending with a live hold.
func (r *ReservationRepository) OverlappingReservations(ctx context.Context, listingID string, dr domain.DateRange, now time.Time, excludeID string) ([]domain.Reservation, error) {
	const query = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE listing_id = $1
  AND start_date < $2
  AND end_date > $3
  AND (status = 'confirmed' OR (status = 'pending_host_confirmation' AND hold_expires_at > $4))
  AND ($5 = '' OR id::text <> $5)
ORDER BY created_at`

	rows, err := r.query(ctx, query, listingID, dr.End, dr.Start, now, excludeID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("overlapping reservations: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *ReservationRepository) HeldSqftAt(ctx context.Context, listingID string, at, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(sqft_requested), 0)
FROM reservations
WHERE listing_id = $1
  AND start_date <= $2
  AND end_date > $2
  AND (status = 'confirmed' OR (status = 'pending_host_confirmation' AND hold_expires_at > $3))`

	var total int
	if err := r.queryRow(ctx, query, listingID, at, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("held sqft at: %w", err)
	}
	return total, nil
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, listing_id, renter_id, start_date, end_date, sqft_requested, status,
	base_price, service_fee, insurance, total_price, hold_expires_at, created_at, payment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.ListingID,
		res.RenterID,
		res.Range.Start,
		res.Range.End,
		res.SqftRequested,
		string(res.Status),
		res.BasePrice,
		res.ServiceFee,
		res.Insurance,
		res.TotalPrice,
		res.HoldExpiresAt,
		res.CreatedAt,
		res.PaymentStatus,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return r.scanReservation(r.queryRow(ctx, query, reservationID))
}

func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error {
	tag, err := r.exec(ctx, `UPDATE reservations SET status = $2 WHERE id = $1`, reservationID, string(status))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) DeleteReservation(ctx context.Context, reservationID string) error {
	tag, err := r.exec(ctx, `DELETE FROM reservations WHERE id = $1`, reservationID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) ListReservationsForRenter(ctx context.Context, renterID string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE renter_id = $1 ORDER BY created_at DESC LIMIT 200`
	rows, err := r.query(ctx, query, renterID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations for renter: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *ReservationRepository) ListReservationsForHost(ctx context.Context, hostID string) ([]domain.Reservation, error) {
	const query = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE listing_id IN (SELECT id FROM listings WHERE host_id = $1)
ORDER BY created_at DESC
LIMIT 200`

	rows, err := r.query(ctx, query, hostID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations for host: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *ReservationRepository) collect(rows pgx.Rows) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	for rows.Next() {
		res, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *ReservationRepository) scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		res    domain.Reservation
		status string
	)
	err := row.Scan(
		&res.ID,
		&res.ListingID,
		&res.RenterID,
		&res.Range.Start,
		&res.Range.End,
		&res.SqftRequested,
		&status,
		&res.BasePrice,
		&res.ServiceFee,
		&res.Insurance,
		&res.TotalPrice,
		&res.HoldExpiresAt,
		&res.CreatedAt,
		&res.PaymentStatus,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("scan reservation: %w", err)
	}
	res.Status = domain.ReservationStatus(status)
	return res, nil
}

func (r *ReservationRepository) scanListing(row pgx.Row) (domain.Listing, error) {
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

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
