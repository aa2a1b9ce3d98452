package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cropshield/cropshield/internal/domain"
)

// readingKey is the hash holding the most recent oracle round.
const readingKey = "oracle:latest"

// ReadingCache implements domain.ReadingCache using a Redis hash with a TTL.
// A stale entry simply expires; callers fall back to the oracle itself.
type ReadingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReadingCache creates a ReadingCache. A non-positive ttl disables expiry.
func NewReadingCache(c *Client, ttl time.Duration) *ReadingCache {
	return &ReadingCache{rdb: c.Underlying(), ttl: ttl}
}

// SetReading stores the reading and refreshes the TTL.
func (rc *ReadingCache) SetReading(ctx context.Context, r domain.OracleReading) error {
	fields := map[string]interface{}{
		"round":      strconv.FormatUint(r.RoundID, 10),
		"value":      strconv.FormatInt(r.Value, 10),
		"updated_at": strconv.FormatInt(r.UpdatedAt.UnixNano(), 10),
	}
	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, readingKey, fields)
	if rc.ttl > 0 {
		pipe.Expire(ctx, readingKey, rc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set reading: %w", err)
	}
	return nil
}

// GetReading retrieves the cached reading, returning domain.ErrNotFound when
// the key is absent or expired.
func (rc *ReadingCache) GetReading(ctx context.Context) (domain.OracleReading, error) {
	vals, err := rc.rdb.HGetAll(ctx, readingKey).Result()
	if err != nil {
		return domain.OracleReading{}, fmt.Errorf("redis: get reading: %w", err)
	}
	if len(vals) == 0 {
		return domain.OracleReading{}, domain.ErrNotFound
	}

	round, err := strconv.ParseUint(vals["round"], 10, 64)
	if err != nil {
		return domain.OracleReading{}, fmt.Errorf("redis: parse reading round: %w", err)
	}
	value, err := strconv.ParseInt(vals["value"], 10, 64)
	if err != nil {
		return domain.OracleReading{}, fmt.Errorf("redis: parse reading value: %w", err)
	}
	tsNano, err := strconv.ParseInt(vals["updated_at"], 10, 64)
	if err != nil {
		return domain.OracleReading{}, fmt.Errorf("redis: parse reading timestamp: %w", err)
	}

	return domain.OracleReading{
		RoundID:   round,
		Value:     value,
		UpdatedAt: time.Unix(0, tsNano).UTC(),
	}, nil
}

// Compile-time interface check.
var _ domain.ReadingCache = (*ReadingCache)(nil)
