package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cropshield/cropshield/internal/domain"
)

// OracleHandler serves the latest trigger-oracle reading. It prefers the
// cache warmed by the poller and falls back to a direct oracle read.
type OracleHandler struct {
	cache  domain.ReadingCache
	oracle domain.TriggerOracle
	logger *slog.Logger
}

// NewOracleHandler creates an OracleHandler. cache may be nil.
func NewOracleHandler(cache domain.ReadingCache, oracle domain.TriggerOracle, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		cache:  cache,
		oracle: oracle,
		logger: componentLogger(logger, "oracle_handler"),
	}
}

// Latest returns the most recent oracle reading.
func (h *OracleHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		reading, err := h.cache.GetReading(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, reading)
			return
		}
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(r.Context(), "reading cache miss",
				slog.String("error", err.Error()))
		}
	}

	reading, err := h.oracle.LatestReading(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}
