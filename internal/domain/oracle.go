package domain

import (
	"context"
	"time"
)

// OracleReading is one round of the external weather signal. Value is a
// signed index (e.g. a rainfall index); claims are eligible while
// Value < the configured trigger threshold.
type OracleReading struct {
	RoundID   uint64    `json:"round_id"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerOracle is the read-only source of the claim-eligibility signal.
type TriggerOracle interface {
	LatestReading(ctx context.Context) (OracleReading, error)
}
