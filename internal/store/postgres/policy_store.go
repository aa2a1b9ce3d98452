package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropshield/cropshield/internal/domain"
)

// PolicyStore implements domain.PolicyStore using PostgreSQL.
type PolicyStore struct {
	pool *pgxpool.Pool
}

// NewPolicyStore creates a PolicyStore backed by the given connection pool.
func NewPolicyStore(pool *pgxpool.Pool) *PolicyStore {
	return &PolicyStore{pool: pool}
}

// Upsert writes a holding. A zero-unit holding is kept as a row so claim
// settlement leaves a trace in the journal.
func (s *PolicyStore) Upsert(ctx context.Context, holding domain.PolicyHolding) error {
	const query = `
		INSERT INTO policy_holdings (season_id, holder, units, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (season_id, holder) DO UPDATE SET
			units = EXCLUDED.units,
			updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query, int64(holding.SeasonID), holding.Holder, holding.Units)
	if err != nil {
		return fmt.Errorf("postgres: upsert holding %d/%s: %w", holding.SeasonID, holding.Holder, err)
	}
	return nil
}

// Get fetches one holder's units for a season, returning domain.ErrNotFound
// when no row exists.
func (s *PolicyStore) Get(ctx context.Context, seasonID uint64, holder string) (domain.PolicyHolding, error) {
	const query = `
		SELECT season_id, holder, units FROM policy_holdings
		WHERE season_id = $1 AND holder = $2`
	var h domain.PolicyHolding
	var id int64
	err := s.pool.QueryRow(ctx, query, int64(seasonID), holder).Scan(&id, &h.Holder, &h.Units)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PolicyHolding{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PolicyHolding{}, fmt.Errorf("postgres: get holding %d/%s: %w", seasonID, holder, err)
	}
	h.SeasonID = uint64(id)
	return h, nil
}

// ListBySeason returns every holding recorded for a season.
func (s *PolicyStore) ListBySeason(ctx context.Context, seasonID uint64) ([]domain.PolicyHolding, error) {
	const query = `
		SELECT season_id, holder, units FROM policy_holdings
		WHERE season_id = $1 ORDER BY holder ASC`
	rows, err := s.pool.Query(ctx, query, int64(seasonID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list holdings for season %d: %w", seasonID, err)
	}
	defer rows.Close()

	var holdings []domain.PolicyHolding
	for rows.Next() {
		var h domain.PolicyHolding
		var id int64
		if err := rows.Scan(&id, &h.Holder, &h.Units); err != nil {
			return nil, fmt.Errorf("postgres: scan holding: %w", err)
		}
		h.SeasonID = uint64(id)
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list holdings rows: %w", err)
	}
	return holdings, nil
}
