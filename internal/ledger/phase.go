package ledger

import (
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

// PhaseAt computes the lifecycle phase at the given instant for a season with
// "season over" boundary T and the configured window w:
//
//	now <  T-w        active
//	[T-w, T)          inactive
//	[T,   T+w)        claim
//	[T+w, T+2w)       withdraw
//	now >= T+2w       finished
//
// Encoding the phase as a pure function of time, rather than a stored enum,
// means phase and wall-clock time can never desynchronize.
func PhaseAt(now, boundary time.Time, window time.Duration) domain.Phase {
	switch {
	case now.Before(boundary.Add(-window)):
		return domain.PhaseActive
	case now.Before(boundary):
		return domain.PhaseInactive
	case now.Before(boundary.Add(window)):
		return domain.PhaseClaim
	case now.Before(boundary.Add(2 * window)):
		return domain.PhaseWithdraw
	default:
		return domain.PhaseFinished
	}
}

// nextPhaseStart returns the first instant of the phase after the one in
// effect at now, and false when the season is already finished.
func nextPhaseStart(now, boundary time.Time, window time.Duration) (time.Time, bool) {
	switch PhaseAt(now, boundary, window) {
	case domain.PhaseActive:
		return boundary.Add(-window), true
	case domain.PhaseInactive:
		return boundary, true
	case domain.PhaseClaim:
		return boundary.Add(window), true
	case domain.PhaseWithdraw:
		return boundary.Add(2 * window), true
	default:
		return time.Time{}, false
	}
}
