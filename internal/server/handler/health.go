package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process liveness and the state of backing services.
type HealthHandler struct {
	started time.Time
	deps    map[string]Pinger
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. deps maps a service name to its
// pinger; nil pingers are skipped.
func NewHealthHandler(deps map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		started: time.Now(),
		deps:    deps,
		logger:  componentLogger(logger, "health_handler"),
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(h.deps))
	healthy := true
	for name, p := range h.deps {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			services[name] = "unreachable"
			healthy = false
			h.logger.WarnContext(ctx, "health check failed",
				slog.String("service", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		services[name] = "ok"
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":   state,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"services": services,
	})
}
