package handler

import (
	"log/slog"
	"net/http"

	"github.com/cropshield/cropshield/internal/service"
)

// SeasonHandler serves season lifecycle queries and the admin mutations that
// roll and advance seasons. Admin calls act as the configured admin account;
// the admin-token middleware on those routes decides who gets in.
type SeasonHandler struct {
	seasons  *service.SeasonService
	policies *service.PolicyService
	admin    string
	logger   *slog.Logger
}

func NewSeasonHandler(seasons *service.SeasonService, policies *service.PolicyService, admin string, logger *slog.Logger) *SeasonHandler {
	return &SeasonHandler{
		seasons:  seasons,
		policies: policies,
		admin:    admin,
		logger:   componentLogger(logger, "season_handler"),
	}
}

// Current returns the latest season together with its computed phase.
func (h *SeasonHandler) Current(w http.ResponseWriter, r *http.Request) {
	season, phase := h.seasons.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"season": season,
		"phase":  phase.String(),
	})
}

// List returns every season, oldest first.
func (h *SeasonHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"seasons": h.seasons.List()})
}

// Get returns one season by id.
func (h *SeasonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	season, err := h.seasons.Get(id)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, season)
}

// Holdings returns every policy holding of a season.
func (h *SeasonHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	holdings, err := h.policies.SeasonHoldings(id)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"season_id": id,
		"holdings":  holdings,
	})
}

type startSeasonRequest struct {
	Premium int64 `json:"premium"`
}

// Start rolls the fund into a new season with the given premium per unit.
func (h *SeasonHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSeasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	evt, err := h.seasons.StartNewSeason(r.Context(), h.admin, req.Premium)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, evt)
}

// Advance fast-forwards the virtual clock to the next phase boundary.
func (h *SeasonHandler) Advance(w http.ResponseWriter, r *http.Request) {
	evt, err := h.seasons.AdvancePhase(r.Context(), h.admin)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}
