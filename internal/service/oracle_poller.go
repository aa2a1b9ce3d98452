package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

// OraclePoller periodically reads the trigger oracle, caches the latest
// round, and announces new rounds on the signal bus so connected clients see
// index updates without polling the chain themselves.
type OraclePoller struct {
	oracle   domain.TriggerOracle
	cache    domain.ReadingCache
	bus      domain.SignalBus
	interval time.Duration
	logger   *slog.Logger

	lastRound uint64
}

// NewOraclePoller creates an OraclePoller. cache and bus may be nil.
func NewOraclePoller(
	oracle domain.TriggerOracle,
	cache domain.ReadingCache,
	bus domain.SignalBus,
	interval time.Duration,
	logger *slog.Logger,
) *OraclePoller {
	return &OraclePoller{
		oracle:   oracle,
		cache:    cache,
		bus:      bus,
		interval: interval,
		logger:   logger.With(slog.String("component", "oracle_poller")),
	}
}

// Run polls until ctx is cancelled. An immediate first poll warms the cache
// before the ticker takes over.
func (p *OraclePoller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll fetches one reading and fans it out. Errors are logged, never fatal:
// the next tick retries.
func (p *OraclePoller) poll(ctx context.Context) {
	reading, err := p.oracle.LatestReading(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "oracle read failed", slog.String("error", err.Error()))
		return
	}

	if p.cache != nil {
		if err := p.cache.SetReading(ctx, reading); err != nil {
			p.logger.WarnContext(ctx, "cache reading failed", slog.String("error", err.Error()))
		}
	}

	if reading.RoundID == p.lastRound {
		return
	}
	p.lastRound = reading.RoundID

	p.logger.InfoContext(ctx, "new oracle round",
		slog.Uint64("round", reading.RoundID),
		slog.Int64("value", reading.Value),
	)

	if p.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"event":      "oracle_round",
			"round":      reading.RoundID,
			"value":      reading.Value,
			"updated_at": reading.UpdatedAt.Format(time.RFC3339),
		})
		if err := p.bus.Publish(ctx, "events:oracle_round", payload); err != nil {
			p.logger.WarnContext(ctx, "publish oracle round failed", slog.String("error", err.Error()))
		}
	}
}
