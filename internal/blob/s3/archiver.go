package s3blob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

// SeasonSnapshot is the archived record of one finished season: its terms,
// the final policy holdings, the investor positions at archive time, and the
// audit trail up to the end of the withdrawal window.
type SeasonSnapshot struct {
	Season     domain.Season          `json:"season"`
	Holdings   []domain.PolicyHolding `json:"holdings"`
	Positions  []domain.VaultPosition `json:"positions"`
	AuditTrail []domain.AuditEntry    `json:"audit_trail"`
	ArchivedAt time.Time              `json:"archived_at"`
}

// Archiver snapshots finished seasons into object storage. Archived rows are
// intentionally not deleted from the primary store; pruning is a separate,
// explicit step once an archive has been verified.
type Archiver struct {
	writer   domain.BlobWriter
	seasons  domain.SeasonStore
	policies domain.PolicyStore
	vault    domain.VaultStore
	audit    domain.AuditStore
}

// NewArchiver creates an Archiver over the given stores.
func NewArchiver(
	writer domain.BlobWriter,
	seasons domain.SeasonStore,
	policies domain.PolicyStore,
	vault domain.VaultStore,
	audit domain.AuditStore,
) *Archiver {
	return &Archiver{
		writer:   writer,
		seasons:  seasons,
		policies: policies,
		vault:    vault,
		audit:    audit,
	}
}

// ArchiveSeason uploads a snapshot of the given season and returns the
// object key. The audit trail cutoff is the end of the season's withdrawal
// window, so later seasons' events do not leak into the archive.
func (a *Archiver) ArchiveSeason(ctx context.Context, seasonID uint64, window time.Duration, now time.Time) (string, error) {
	season, err := a.seasons.GetByID(ctx, seasonID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive season %d: %w", seasonID, err)
	}

	holdings, err := a.policies.ListBySeason(ctx, seasonID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive season %d holdings: %w", seasonID, err)
	}
	positions, err := a.vault.List(ctx, domain.ListOpts{})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive season %d positions: %w", seasonID, err)
	}
	trail, err := a.audit.ListBefore(ctx, season.Boundary.Add(2*window))
	if err != nil {
		return "", fmt.Errorf("s3blob: archive season %d audit trail: %w", seasonID, err)
	}

	snapshot := SeasonSnapshot{
		Season:     season,
		Holdings:   holdings,
		Positions:  positions,
		AuditTrail: trail,
		ArchivedAt: now.UTC(),
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal season %d snapshot: %w", seasonID, err)
	}

	path := seasonArchivePath(seasonID)
	if err := a.upload(ctx, path, data); err != nil {
		return "", fmt.Errorf("s3blob: upload season %d snapshot: %w", seasonID, err)
	}

	if err := a.audit.Log(ctx, "archive.season", map[string]any{
		"season_id": seasonID,
		"path":      path,
		"holdings":  len(holdings),
		"positions": len(positions),
	}); err != nil {
		return path, fmt.Errorf("s3blob: audit season %d archive: %w", seasonID, err)
	}
	return path, nil
}

// multipartPutter is satisfied by writers that support multipart upload.
type multipartPutter interface {
	PutMultipart(ctx context.Context, path string, data []byte, contentType string, partSize int64) error
}

// multipartCutoff is the snapshot size above which the archiver switches to
// multipart upload. Long audit trails can push a snapshot past this.
const multipartCutoff = 8 * 1024 * 1024

func (a *Archiver) upload(ctx context.Context, path string, data []byte) error {
	if mp, ok := a.writer.(multipartPutter); ok && int64(len(data)) >= multipartCutoff {
		return mp.PutMultipart(ctx, path, data, "application/json", minPartSize)
	}
	return a.writer.Put(ctx, path, data, "application/json")
}

// seasonArchivePath builds the object key for a season snapshot, zero-padded
// so keys sort numerically.
func seasonArchivePath(seasonID uint64) string {
	return fmt.Sprintf("archive/seasons/%06d.json", seasonID)
}
