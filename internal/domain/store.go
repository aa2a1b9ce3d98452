package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// SeasonStore persists the season registry. The in-memory engine remains the
// source of truth while the process is running; the store is a write-through
// journal that services queries and survives restarts.
type SeasonStore interface {
	Upsert(ctx context.Context, season Season) error
	GetByID(ctx context.Context, id uint64) (Season, error)
	List(ctx context.Context, opts ListOpts) ([]Season, error)
	Latest(ctx context.Context) (Season, error)
}

// PolicyStore persists per-season coverage-unit holdings.
type PolicyStore interface {
	Upsert(ctx context.Context, holding PolicyHolding) error
	Get(ctx context.Context, seasonID uint64, holder string) (PolicyHolding, error)
	ListBySeason(ctx context.Context, seasonID uint64) ([]PolicyHolding, error)
}

// VaultStore persists investor share positions.
type VaultStore interface {
	Upsert(ctx context.Context, pos VaultPosition) error
	Get(ctx context.Context, investor string) (VaultPosition, error)
	List(ctx context.Context, opts ListOpts) ([]VaultPosition, error)
}

// AuditEntry is a single append-only audit row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of every ledger mutation.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}
