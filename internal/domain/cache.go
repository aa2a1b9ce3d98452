package domain

import (
	"context"
	"time"
)

// ReadingCache caches the latest oracle reading so claim-heavy periods do not
// hammer the upstream aggregator.
type ReadingCache interface {
	SetReading(ctx context.Context, r OracleReading) error
	GetReading(ctx context.Context) (OracleReading, error)
}

// LockManager provides distributed locking, used to guard admin operations
// (season rollover, phase advance) when several replicas share one fund.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub fan-out and durable streams for ledger events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// BlobWriter uploads season archives to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

// BlobReader retrieves previously archived objects.
type BlobReader interface {
	Get(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
