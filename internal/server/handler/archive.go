package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cropshield/cropshield/internal/domain"
)

// archivePrefix mirrors the key layout the season archiver writes under.
const archivePrefix = "archive/seasons/"

// ArchiveHandler serves season snapshots previously uploaded to object
// storage.
type ArchiveHandler struct {
	blobs  domain.BlobReader
	logger *slog.Logger
}

func NewArchiveHandler(blobs domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		blobs:  blobs,
		logger: componentLogger(logger, "archive_handler"),
	}
}

// List returns the object keys of all archived seasons.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.blobs.List(r.Context(), archivePrefix)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": keys})
}

// Get streams one archived season snapshot back to the caller.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	key := fmt.Sprintf("%s%06d.json", archivePrefix, id)
	data, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
