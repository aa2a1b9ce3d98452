// Package oracle provides trigger-oracle implementations that do not depend
// on a chain connection: a settable static oracle for simulate mode and
// tests.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

// Static is a TriggerOracle whose reading is set programmatically. Each Set
// call starts a new round.
type Static struct {
	mu      sync.Mutex
	reading domain.OracleReading
}

// NewStatic creates a Static oracle with an initial value at round 1.
func NewStatic(value int64) *Static {
	return &Static{
		reading: domain.OracleReading{
			RoundID:   1,
			Value:     value,
			UpdatedAt: time.Now().UTC(),
		},
	}
}

// Set replaces the current value and advances the round.
func (s *Static) Set(value int64) {
	s.mu.Lock()
	s.reading = domain.OracleReading{
		RoundID:   s.reading.RoundID + 1,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Unlock()
}

// LatestReading returns the current reading.
func (s *Static) LatestReading(_ context.Context) (domain.OracleReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading, nil
}
