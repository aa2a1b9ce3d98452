package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cropshield/cropshield/internal/domain"
)

// maxBodyBytes bounds request bodies so a client cannot exhaust memory.
const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps ledger sentinel errors onto HTTP status codes. Phase
// and eligibility violations are conflicts: the request was well-formed but
// the fund's current state forbids it.
func writeDomainError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoPoliciesToClaim):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotActivePeriod),
		errors.Is(err, domain.ErrNotClaimPeriod),
		errors.Is(err, domain.ErrNotWithdrawPeriod),
		errors.Is(err, domain.ErrNotFinished),
		errors.Is(err, domain.ErrSeasonNotActive),
		errors.Is(err, domain.ErrConditionNotMet),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrNoInvestorCapital),
		errors.Is(err, domain.ErrFixedClock):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrLockHeld):
		status = http.StatusLocked
	default:
		logger.ErrorContext(ctx, "handler error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// decodeBody parses a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathID parses a numeric path segment like /api/seasons/{id}.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String("component", name))
}
