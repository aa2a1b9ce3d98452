package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropshield/cropshield/internal/domain"
)

// SeasonStore implements domain.SeasonStore using PostgreSQL.
type SeasonStore struct {
	pool *pgxpool.Pool
}

// NewSeasonStore creates a SeasonStore backed by the given connection pool.
func NewSeasonStore(pool *pgxpool.Pool) *SeasonStore {
	return &SeasonStore{pool: pool}
}

// Upsert inserts or updates a season row.
func (s *SeasonStore) Upsert(ctx context.Context, season domain.Season) error {
	const query = `
		INSERT INTO seasons (id, premium_per_unit, payout_per_unit, total_units_sold, created_at, boundary)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			premium_per_unit = EXCLUDED.premium_per_unit,
			payout_per_unit  = EXCLUDED.payout_per_unit,
			total_units_sold = EXCLUDED.total_units_sold,
			boundary         = EXCLUDED.boundary`
	_, err := s.pool.Exec(ctx, query,
		int64(season.ID), season.PremiumPerUnit, season.PayoutPerUnit,
		season.TotalUnitsSold, season.CreatedAt, season.Boundary,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert season %d: %w", season.ID, err)
	}
	return nil
}

// GetByID fetches one season, returning domain.ErrNotFound when absent.
func (s *SeasonStore) GetByID(ctx context.Context, id uint64) (domain.Season, error) {
	const query = `
		SELECT id, premium_per_unit, payout_per_unit, total_units_sold, created_at, boundary
		FROM seasons WHERE id = $1`
	season, err := scanSeason(s.pool.QueryRow(ctx, query, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Season{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Season{}, fmt.Errorf("postgres: get season %d: %w", id, err)
	}
	return season, nil
}

// Latest fetches the season with the highest id.
func (s *SeasonStore) Latest(ctx context.Context) (domain.Season, error) {
	const query = `
		SELECT id, premium_per_unit, payout_per_unit, total_units_sold, created_at, boundary
		FROM seasons ORDER BY id DESC LIMIT 1`
	season, err := scanSeason(s.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Season{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Season{}, fmt.Errorf("postgres: latest season: %w", err)
	}
	return season, nil
}

// List returns seasons ordered oldest first, with pagination.
func (s *SeasonStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Season, error) {
	query := `
		SELECT id, premium_per_unit, payout_per_unit, total_units_sold, created_at, boundary
		FROM seasons WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY id ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []domain.Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan season: %w", err)
		}
		seasons = append(seasons, season)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list seasons rows: %w", err)
	}
	return seasons, nil
}

func scanSeason(row pgx.Row) (domain.Season, error) {
	var season domain.Season
	var id int64
	err := row.Scan(&id, &season.PremiumPerUnit, &season.PayoutPerUnit,
		&season.TotalUnitsSold, &season.CreatedAt, &season.Boundary)
	if err != nil {
		return domain.Season{}, err
	}
	season.ID = uint64(id)
	return season, nil
}
