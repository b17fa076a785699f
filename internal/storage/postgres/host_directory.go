package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HostDirectory reads the verification verdicts that the external
// identity-verification workflow writes into the hosts table. The engine
// never mutates this table.
type HostDirectory struct {
	pool *pgxpool.Pool
}

func NewHostDirectory(pool *pgxpool.Pool) *HostDirectory {
	return &HostDirectory{pool: pool}
}

func (d *HostDirectory) IsHostVerified(ctx context.Context, hostID string) (bool, error) {
	const query = `SELECT verified FROM hosts WHERE user_id = $1`

	var verified bool
	err := d.pool.QueryRow(ctx, query, hostID).Scan(&verified)
	if err != nil {
		if isInvalidUUID(err) || err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("host verified lookup: %w", err)
	}
	return verified, nil
}
