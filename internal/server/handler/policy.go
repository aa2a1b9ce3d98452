package handler

import (
	"log/slog"
	"net/http"

	"github.com/cropshield/cropshield/internal/service"
)

// PolicyHandler serves coverage purchases, claims, and holding queries.
type PolicyHandler struct {
	policies *service.PolicyService
	logger   *slog.Logger
}

func NewPolicyHandler(policies *service.PolicyService, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{
		policies: policies,
		logger:   componentLogger(logger, "policy_handler"),
	}
}

type buyPolicyRequest struct {
	Holder string `json:"holder"`
	Units  int64  `json:"units"`
}

// Buy purchases coverage units in the current season.
func (h *PolicyHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyPolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return
	}
	evt, err := h.policies.Buy(r.Context(), req.Holder, req.Units)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, evt)
}

type claimRequest struct {
	Holder string `json:"holder"`
}

// Claim settles the holder's coverage for the current season.
func (h *PolicyHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return
	}
	evt, err := h.policies.Claim(r.Context(), req.Holder)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

// Holding returns one holder's unit balance for a season.
func (h *PolicyHandler) Holding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	holder := r.PathValue("holder")
	if holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return
	}
	units, err := h.policies.UnitBalance(id, holder)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"season_id": id,
		"holder":    holder,
		"units":     units,
	})
}
