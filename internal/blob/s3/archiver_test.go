package s3blob

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

type fakeWriter struct {
	path        string
	data        []byte
	contentType string
}

func (w *fakeWriter) Put(_ context.Context, path string, data []byte, contentType string) error {
	w.path = path
	w.data = data
	w.contentType = contentType
	return nil
}

type fakeSeasonStore struct{ season domain.Season }

func (s *fakeSeasonStore) Upsert(context.Context, domain.Season) error { return nil }
func (s *fakeSeasonStore) GetByID(_ context.Context, id uint64) (domain.Season, error) {
	if id != s.season.ID {
		return domain.Season{}, domain.ErrNotFound
	}
	return s.season, nil
}
func (s *fakeSeasonStore) List(context.Context, domain.ListOpts) ([]domain.Season, error) {
	return []domain.Season{s.season}, nil
}
func (s *fakeSeasonStore) Latest(context.Context) (domain.Season, error) { return s.season, nil }

type fakePolicyStore struct{ holdings []domain.PolicyHolding }

func (s *fakePolicyStore) Upsert(context.Context, domain.PolicyHolding) error { return nil }
func (s *fakePolicyStore) Get(context.Context, uint64, string) (domain.PolicyHolding, error) {
	return domain.PolicyHolding{}, domain.ErrNotFound
}
func (s *fakePolicyStore) ListBySeason(context.Context, uint64) ([]domain.PolicyHolding, error) {
	return s.holdings, nil
}

type fakeVaultStore struct{ positions []domain.VaultPosition }

func (s *fakeVaultStore) Upsert(context.Context, domain.VaultPosition) error { return nil }
func (s *fakeVaultStore) Get(context.Context, string) (domain.VaultPosition, error) {
	return domain.VaultPosition{}, domain.ErrNotFound
}
func (s *fakeVaultStore) List(context.Context, domain.ListOpts) ([]domain.VaultPosition, error) {
	return s.positions, nil
}

type fakeAuditStore struct {
	entries []domain.AuditEntry
	cutoff  time.Time
	logged  []string
}

func (s *fakeAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.logged = append(s.logged, event)
	return nil
}
func (s *fakeAuditStore) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return s.entries, nil
}
func (s *fakeAuditStore) ListBefore(_ context.Context, before time.Time) ([]domain.AuditEntry, error) {
	s.cutoff = before
	return s.entries, nil
}

func TestArchiveSeasonSnapshot(t *testing.T) {
	boundary := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 28 * 24 * time.Hour

	seasons := &fakeSeasonStore{season: domain.Season{
		ID:             3,
		PremiumPerUnit: 100,
		PayoutPerUnit:  400,
		TotalUnitsSold: 7,
		Boundary:       boundary,
	}}
	policies := &fakePolicyStore{holdings: []domain.PolicyHolding{
		{SeasonID: 3, Holder: "farmer-1", Units: 5},
		{SeasonID: 3, Holder: "farmer-2", Units: 0},
	}}
	vault := &fakeVaultStore{positions: []domain.VaultPosition{
		{Investor: "investor-1", Shares: 1000},
	}}
	audit := &fakeAuditStore{entries: []domain.AuditEntry{
		{ID: 1, Event: "policy_bought"},
	}}
	writer := &fakeWriter{}

	a := NewArchiver(writer, seasons, policies, vault, audit)
	now := boundary.Add(3 * window)

	path, err := a.ArchiveSeason(context.Background(), 3, window, now)
	if err != nil {
		t.Fatalf("archive season: %v", err)
	}
	if path != "archive/seasons/000003.json" {
		t.Errorf("path = %q", path)
	}
	if writer.path != path {
		t.Errorf("writer path = %q, want %q", writer.path, path)
	}
	if writer.contentType != "application/json" {
		t.Errorf("content type = %q", writer.contentType)
	}

	// The audit cutoff is the end of the withdrawal window.
	wantCutoff := boundary.Add(2 * window)
	if !audit.cutoff.Equal(wantCutoff) {
		t.Errorf("audit cutoff = %v, want %v", audit.cutoff, wantCutoff)
	}

	var snap SeasonSnapshot
	if err := json.Unmarshal(writer.data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Season.ID != 3 {
		t.Errorf("snapshot season id = %d, want 3", snap.Season.ID)
	}
	if len(snap.Holdings) != 2 {
		t.Errorf("snapshot holdings = %d, want 2", len(snap.Holdings))
	}
	if len(snap.Positions) != 1 {
		t.Errorf("snapshot positions = %d, want 1", len(snap.Positions))
	}
	if !snap.ArchivedAt.Equal(now) {
		t.Errorf("archived at = %v, want %v", snap.ArchivedAt, now)
	}

	if len(audit.logged) != 1 || audit.logged[0] != "archive.season" {
		t.Errorf("audit events = %v, want [archive.season]", audit.logged)
	}
}

func TestArchiveSeasonUnknownSeason(t *testing.T) {
	a := NewArchiver(&fakeWriter{}, &fakeSeasonStore{season: domain.Season{ID: 1}},
		&fakePolicyStore{}, &fakeVaultStore{}, &fakeAuditStore{})

	_, err := a.ArchiveSeason(context.Background(), 9, time.Hour, time.Now())
	if err == nil {
		t.Fatal("expected error for unknown season")
	}
}
