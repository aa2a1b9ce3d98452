// Package service coordinates the ledger engine with the persistence,
// messaging, and notification infrastructure. The engine remains the source
// of truth; everything the services do around it is write-through journaling
// and best-effort fan-out.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cropshield/cropshield/internal/domain"
)

// eventStream is the durable stream every ledger event is appended to.
const eventStream = "events"

// Alerter is the slice of the notifier the services need.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Recorder fans a ledger event out to the audit log, the signal bus, and the
// operator notifier. All destinations are optional and all failures are
// logged rather than propagated: the engine already committed the mutation,
// so the journal must never veto it.
type Recorder struct {
	audit   domain.AuditStore
	bus     domain.SignalBus
	alerter Alerter
	logger  *slog.Logger
}

// NewRecorder creates a Recorder. Any of audit, bus, and alerter may be nil.
func NewRecorder(audit domain.AuditStore, bus domain.SignalBus, alerter Alerter, logger *slog.Logger) *Recorder {
	return &Recorder{
		audit:   audit,
		bus:     bus,
		alerter: alerter,
		logger:  logger.With(slog.String("component", "recorder")),
	}
}

// Record journals one event. The payload is marshalled once and reused for
// the audit detail, the pub/sub message, and the durable stream entry.
func (r *Recorder) Record(ctx context.Context, event string, payload any, title, message string) {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.ErrorContext(ctx, "marshal event payload",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}

	if r.audit != nil {
		var detail map[string]any
		if err := json.Unmarshal(raw, &detail); err == nil {
			if err := r.audit.Log(ctx, event, detail); err != nil {
				r.logger.WarnContext(ctx, "audit log failed",
					slog.String("event", event),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if r.bus != nil {
		envelope, _ := json.Marshal(map[string]any{
			"event":   event,
			"payload": json.RawMessage(raw),
		})
		if err := r.bus.Publish(ctx, "events:"+event, envelope); err != nil {
			r.logger.WarnContext(ctx, "publish event failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
		if err := r.bus.StreamAppend(ctx, eventStream, envelope); err != nil {
			r.logger.WarnContext(ctx, "stream append failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.alerter != nil && title != "" {
		if err := r.alerter.Notify(ctx, event, title, message); err != nil {
			r.logger.WarnContext(ctx, "notify failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}
}

// fmtAccount shortens long hex accounts for notification text.
func fmtAccount(account string) string {
	if len(account) > 12 {
		return account[:6] + "…" + account[len(account)-4:]
	}
	return account
}
