package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropshield/cropshield/internal/domain"
)

// VaultStore implements domain.VaultStore using PostgreSQL.
type VaultStore struct {
	pool *pgxpool.Pool
}

// NewVaultStore creates a VaultStore backed by the given connection pool.
func NewVaultStore(pool *pgxpool.Pool) *VaultStore {
	return &VaultStore{pool: pool}
}

// Upsert writes an investor position. Zero-share rows are kept so full
// redemptions remain visible in the journal.
func (s *VaultStore) Upsert(ctx context.Context, pos domain.VaultPosition) error {
	const query = `
		INSERT INTO vault_positions (investor, shares, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (investor) DO UPDATE SET
			shares = EXCLUDED.shares,
			updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query, pos.Investor, pos.Shares)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", pos.Investor, err)
	}
	return nil
}

// Get fetches one investor's position, returning domain.ErrNotFound when no
// row exists.
func (s *VaultStore) Get(ctx context.Context, investor string) (domain.VaultPosition, error) {
	const query = `SELECT investor, shares FROM vault_positions WHERE investor = $1`
	var pos domain.VaultPosition
	err := s.pool.QueryRow(ctx, query, investor).Scan(&pos.Investor, &pos.Shares)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VaultPosition{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.VaultPosition{}, fmt.Errorf("postgres: get position %s: %w", investor, err)
	}
	return pos, nil
}

// List returns positions ordered by investor, with pagination.
func (s *VaultStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.VaultPosition, error) {
	query := `SELECT investor, shares FROM vault_positions ORDER BY investor ASC`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.VaultPosition
	for rows.Next() {
		var pos domain.VaultPosition
		if err := rows.Scan(&pos.Investor, &pos.Shares); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return positions, nil
}
