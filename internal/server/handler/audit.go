package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditHandler serves the append-only audit log.
type AuditHandler struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

func NewAuditHandler(audit domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: componentLogger(logger, "audit_handler"),
	}
}

// List returns audit entries, newest first. Supports limit, offset, since,
// and until query parameters; since/until are RFC 3339 timestamps.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseListOpts(w, r)
	if !ok {
		return
	}
	entries, err := h.audit.List(r.Context(), opts)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func parseListOpts(w http.ResponseWriter, r *http.Request) (domain.ListOpts, bool) {
	opts := domain.ListOpts{Limit: defaultAuditLimit}
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return opts, false
		}
		opts.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return opts, false
		}
		opts.Offset = n
	}
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return opts, false
		}
		opts.Since = &t
	}
	if raw := q.Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until timestamp")
			return opts, false
		}
		opts.Until = &t
	}
	return opts, true
}
