package handler

import (
	"log/slog"
	"net/http"

	"github.com/cropshield/cropshield/internal/service"
)

// VaultHandler serves investor deposits, redemptions, and pool queries.
type VaultHandler struct {
	vault  *service.VaultService
	logger *slog.Logger
}

func NewVaultHandler(vault *service.VaultService, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vault:  vault,
		logger: componentLogger(logger, "vault_handler"),
	}
}

type depositRequest struct {
	Investor string `json:"investor"`
	Amount   int64  `json:"amount"`
}

// Deposit invests into the pool, minting shares at the current price.
func (h *VaultHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Investor == "" {
		writeError(w, http.StatusBadRequest, "investor is required")
		return
	}
	evt, err := h.vault.Deposit(r.Context(), req.Investor, req.Amount)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, evt)
}

type redeemRequest struct {
	Investor string `json:"investor"`
	Shares   int64  `json:"shares"`
}

// Redeem burns shares and pays out the investor's pro-rata pool slice.
func (h *VaultHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Investor == "" {
		writeError(w, http.StatusBadRequest, "investor is required")
		return
	}
	evt, err := h.vault.Redeem(r.Context(), req.Investor, req.Shares)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

// Positions returns every non-zero vault position.
func (h *VaultHandler) Positions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"positions": h.vault.Positions()})
}

// Position returns one investor's shares and their current redeemable value.
func (h *VaultHandler) Position(w http.ResponseWriter, r *http.Request) {
	investor := r.PathValue("investor")
	if investor == "" {
		writeError(w, http.StatusBadRequest, "investor is required")
		return
	}
	shares := h.vault.Position(investor)
	value, err := h.vault.RedeemableValue(r.Context(), investor)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"investor":         investor,
		"shares":           shares,
		"redeemable_value": value,
	})
}

// Pool returns the pool balance and total share supply.
func (h *VaultHandler) Pool(w http.ResponseWriter, r *http.Request) {
	snap, err := h.vault.Pool(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
