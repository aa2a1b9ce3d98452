package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

type listSeasonStore struct {
	memSeasonStore
	list []domain.Season
}

func (s *listSeasonStore) List(context.Context, domain.ListOpts) ([]domain.Season, error) {
	return s.list, nil
}

type fakeBlobReader struct {
	keys []string
}

func (r *fakeBlobReader) Get(context.Context, string) ([]byte, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeBlobReader) List(context.Context, string) ([]string, error) {
	return r.keys, nil
}

type recordingArchiver struct {
	archived []uint64
}

func (a *recordingArchiver) ArchiveSeason(_ context.Context, seasonID uint64, _ time.Duration, _ time.Time) (string, error) {
	a.archived = append(a.archived, seasonID)
	return "archive/seasons/test.json", nil
}

func TestReconcileArchivesMissingFinishedSeasons(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	window := time.Hour
	now := time.Now().UTC()

	seasons := &listSeasonStore{list: []domain.Season{
		// Finished and already archived.
		{ID: 1, Boundary: now.Add(-10 * window)},
		// Finished, archive missing.
		{ID: 2, Boundary: now.Add(-5 * window)},
		// Still inside the withdrawal window.
		{ID: 3, Boundary: now.Add(-window)},
		// Current season.
		{ID: 4, Boundary: now.Add(2 * window)},
	}}
	blobs := &fakeBlobReader{keys: []string{"archive/seasons/000001.json"}}
	archiver := &recordingArchiver{}

	r := NewArchiveReconciler(seasons, blobs, archiver, window, time.Minute, logger)
	if err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if len(archiver.archived) != 1 || archiver.archived[0] != 2 {
		t.Errorf("archived = %v, want [2]", archiver.archived)
	}
}
