package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
	"github.com/cropshield/cropshield/internal/ledger"
)

// adminLockKey guards season rollover and phase advance across replicas.
const adminLockKey = "season_admin"

// adminLockTTL bounds how long a crashed replica can hold the admin lock.
const adminLockTTL = 30 * time.Second

// SeasonArchiver snapshots a finished season into object storage.
type SeasonArchiver interface {
	ArchiveSeason(ctx context.Context, seasonID uint64, window time.Duration, now time.Time) (string, error)
}

// SeasonService drives the season lifecycle: rollover, phase advance, and
// season queries. Admin mutations are serialized across replicas through the
// lock manager.
type SeasonService struct {
	engine   *ledger.Engine
	seasons  domain.SeasonStore
	locks    domain.LockManager
	recorder *Recorder
	archiver SeasonArchiver
	window   time.Duration
	logger   *slog.Logger
}

// NewSeasonService creates a SeasonService. seasons, locks, and archiver may
// be nil when the corresponding infrastructure is not configured.
func NewSeasonService(
	engine *ledger.Engine,
	seasons domain.SeasonStore,
	locks domain.LockManager,
	recorder *Recorder,
	archiver SeasonArchiver,
	window time.Duration,
	logger *slog.Logger,
) *SeasonService {
	return &SeasonService{
		engine:   engine,
		seasons:  seasons,
		locks:    locks,
		recorder: recorder,
		archiver: archiver,
		window:   window,
		logger:   logger.With(slog.String("component", "season_service")),
	}
}

// Current returns the latest season and its phase.
func (s *SeasonService) Current() (domain.Season, domain.Phase) {
	return s.engine.CurrentSeason(), s.engine.CurrentPhase()
}

// Get returns one season by id.
func (s *SeasonService) Get(id uint64) (domain.Season, error) {
	return s.engine.SeasonByID(id)
}

// List returns every season, oldest first.
func (s *SeasonService) List() []domain.Season {
	latest := s.engine.CurrentSeason().ID
	out := make([]domain.Season, 0, latest)
	for id := uint64(1); id <= latest; id++ {
		season, err := s.engine.SeasonByID(id)
		if err != nil {
			continue
		}
		out = append(out, season)
	}
	return out
}

// StartNewSeason rolls the fund into a new season with the given premium.
// The finished season is journaled and, when an archiver is configured,
// snapshotted to object storage before the new season is persisted.
func (s *SeasonService) StartNewSeason(ctx context.Context, caller string, premium int64) (domain.NewSeasonStarted, error) {
	unlock, err := s.acquireAdminLock(ctx)
	if err != nil {
		return domain.NewSeasonStarted{}, err
	}
	defer unlock()

	prevID := s.engine.CurrentSeason().ID

	evt, err := s.engine.StartNewSeason(ctx, caller, premium)
	if err != nil {
		return domain.NewSeasonStarted{}, err
	}

	s.persistSeason(ctx, prevID)
	s.persistSeason(ctx, evt.SeasonID)

	if s.archiver != nil {
		if path, archErr := s.archiver.ArchiveSeason(ctx, prevID, s.window, time.Now()); archErr != nil {
			s.logger.WarnContext(ctx, "season archive failed",
				slog.Uint64("season_id", prevID),
				slog.String("error", archErr.Error()),
			)
		} else {
			s.logger.InfoContext(ctx, "season archived",
				slog.Uint64("season_id", prevID),
				slog.String("path", path),
			)
		}
	}

	s.recorder.Record(ctx, domain.EventNewSeasonStarted, evt,
		"New season started",
		fmt.Sprintf("Season %d opened: premium %d, payout %d per unit.",
			evt.SeasonID, evt.PremiumPerUnit, evt.PayoutPerUnit),
	)
	return evt, nil
}

// AdvancePhase fast-forwards the virtual clock to the next phase boundary.
func (s *SeasonService) AdvancePhase(ctx context.Context, caller string) (domain.PhaseAdvanced, error) {
	unlock, err := s.acquireAdminLock(ctx)
	if err != nil {
		return domain.PhaseAdvanced{}, err
	}
	defer unlock()

	evt, err := s.engine.AdvancePhase(ctx, caller)
	if err != nil {
		return domain.PhaseAdvanced{}, err
	}

	s.persistSeason(ctx, evt.SeasonID)

	s.recorder.Record(ctx, domain.EventPhaseAdvanced, evt,
		"Phase advanced",
		fmt.Sprintf("Season %d is now in the %s phase.", evt.SeasonID, evt.Phase),
	)
	return evt, nil
}

// acquireAdminLock takes the cross-replica admin lock when a lock manager is
// configured. The returned function is always safe to call.
func (s *SeasonService) acquireAdminLock(ctx context.Context) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	unlock, err := s.locks.Acquire(ctx, adminLockKey, adminLockTTL)
	if err != nil {
		return nil, fmt.Errorf("season_service: admin lock: %w", err)
	}
	return unlock, nil
}

// persistSeason writes the engine's view of a season through to the store.
func (s *SeasonService) persistSeason(ctx context.Context, id uint64) {
	if s.seasons == nil {
		return
	}
	season, err := s.engine.SeasonByID(id)
	if err != nil {
		return
	}
	if err := s.seasons.Upsert(ctx, season); err != nil {
		s.logger.WarnContext(ctx, "persist season failed",
			slog.Uint64("season_id", id),
			slog.String("error", err.Error()),
		)
	}
}
