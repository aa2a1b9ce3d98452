package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

// archivePrefix is the object-key prefix season snapshots live under.
const archivePrefix = "archive/seasons/"

// ArchiveReconciler periodically makes sure every finished season has a
// snapshot in object storage. Rollover archives the season it closes, but a
// crash between the rollover and the upload would otherwise lose the archive
// forever.
type ArchiveReconciler struct {
	seasons  domain.SeasonStore
	blobs    domain.BlobReader
	archiver SeasonArchiver
	window   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewArchiveReconciler(
	seasons domain.SeasonStore,
	blobs domain.BlobReader,
	archiver SeasonArchiver,
	window time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *ArchiveReconciler {
	return &ArchiveReconciler{
		seasons:  seasons,
		blobs:    blobs,
		archiver: archiver,
		window:   window,
		interval: interval,
		logger:   logger.With(slog.String("component", "archive_reconciler")),
	}
}

// Run reconciles once immediately and then on every tick until ctx is
// cancelled.
func (r *ArchiveReconciler) Run(ctx context.Context) error {
	if err := r.Reconcile(ctx); err != nil {
		r.logger.WarnContext(ctx, "archive reconcile failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				r.logger.WarnContext(ctx, "archive reconcile failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Reconcile archives every finished season that has no snapshot yet.
func (r *ArchiveReconciler) Reconcile(ctx context.Context) error {
	seasons, err := r.seasons.List(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("archive_reconciler: list seasons: %w", err)
	}

	keys, err := r.blobs.List(ctx, archivePrefix)
	if err != nil {
		return fmt.Errorf("archive_reconciler: list archives: %w", err)
	}
	archived := make(map[string]bool, len(keys))
	for _, k := range keys {
		archived[k] = true
	}

	now := time.Now().UTC()
	for _, season := range seasons {
		// A season is finished once its withdrawal window has closed.
		if now.Before(season.Boundary.Add(2 * r.window)) {
			continue
		}
		key := fmt.Sprintf("%s%06d.json", archivePrefix, season.ID)
		if archived[key] {
			continue
		}

		path, err := r.archiver.ArchiveSeason(ctx, season.ID, r.window, now)
		if err != nil {
			r.logger.WarnContext(ctx, "backfill archive failed",
				slog.Uint64("season_id", season.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.logger.InfoContext(ctx, "backfilled season archive",
			slog.Uint64("season_id", season.ID),
			slog.String("path", path),
		)
	}
	return nil
}
