package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// MediaAssetRepository persists models.MediaAsset, including the
// content_hash lookup the Hasher/Dedup component drives (spec.md §4.F).
type MediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) *MediaAssetRepository {
	return &MediaAssetRepository{db: db}
}

const mediaAssetColumns = "id, edition_id, content_hash, media_type, current_path, file_size_bytes, is_detached, missing_scans, retired_at, created_at, updated_at"

func scanMediaAsset(row interface{ Scan(dest ...interface{}) error }) (*models.MediaAsset, error) {
	var m models.MediaAsset
	var id, editionID string
	var mediaType string
	var retiredAt sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&id, &editionID, &m.ContentHash, &mediaType, &m.CurrentPath, &m.FileSizeBytes,
		&m.IsDetached, &m.MissingScans, &retiredAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.ID = uuid.MustParse(id)
	m.EditionID = uuid.MustParse(editionID)
	m.MediaType = models.MediaType(mediaType)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	if retiredAt.Valid {
		t := parseTime(retiredAt.String)
		m.RetiredAt = &t
	}
	return &m, nil
}

func (r *MediaAssetRepository) Upsert(m *models.MediaAsset) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	var retiredAt interface{}
	if m.RetiredAt != nil {
		retiredAt = m.RetiredAt.Format(time.RFC3339)
	}

	_, err := r.db.Exec(fmt.Sprintf(`
		INSERT INTO media_assets (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			edition_id = excluded.edition_id, content_hash = excluded.content_hash,
			media_type = excluded.media_type, current_path = excluded.current_path,
			file_size_bytes = excluded.file_size_bytes, is_detached = excluded.is_detached,
			missing_scans = excluded.missing_scans, retired_at = excluded.retired_at,
			updated_at = excluded.updated_at`, mediaAssetColumns),
		m.ID.String(), m.EditionID.String(), m.ContentHash, string(m.MediaType), m.CurrentPath, m.FileSizeBytes,
		m.IsDetached, m.MissingScans, retiredAt, m.CreatedAt.Format(time.RFC3339), m.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("media asset upsert: %w", err)
	}
	return nil
}

// FindByContentHash is the core of the dedup check: content_hash is unique
// across all assets (spec.md §3).
func (r *MediaAssetRepository) FindByContentHash(hash string) (*models.MediaAsset, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM media_assets WHERE content_hash = ?", mediaAssetColumns), hash)
	m, err := scanMediaAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("media asset find by content hash: %w", err)
	}
	return m, nil
}

// UpdateCurrentPath relinks an asset to a new path without touching its
// content_hash, the no-rescore path taken on a duplicate-relink (spec.md
// §4.F step 3).
func (r *MediaAssetRepository) UpdateCurrentPath(id uuid.UUID, path string) error {
	_, err := r.db.Exec(`UPDATE media_assets SET current_path = ?, updated_at = ? WHERE id = ?`,
		path, time.Now().UTC().Format(time.RFC3339), id.String())
	if err != nil {
		return fmt.Errorf("media asset relink: %w", err)
	}
	return nil
}

// MarkMissingScan increments missing_scans; at 2 it is the caller's signal
// to retire the asset (spec.md §3 MediaAsset lifecycle).
func (r *MediaAssetRepository) MarkMissingScan(id uuid.UUID) (int, error) {
	_, err := r.db.Exec(`UPDATE media_assets SET missing_scans = missing_scans + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id.String())
	if err != nil {
		return 0, fmt.Errorf("media asset mark missing: %w", err)
	}
	var count int
	if err := r.db.QueryRow(`SELECT missing_scans FROM media_assets WHERE id = ?`, id.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("media asset read missing_scans: %w", err)
	}
	return count, nil
}

// Retire soft-deletes an asset after it's been missing on two consecutive
// scans.
func (r *MediaAssetRepository) Retire(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE media_assets SET retired_at = ?, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id.String())
	if err != nil {
		return fmt.Errorf("media asset retire: %w", err)
	}
	return nil
}

// MarkDetached flags an asset whose file was not found on disk during a
// Great Inhale scan (spec.md §4.J step 3).
func (r *MediaAssetRepository) MarkDetached(id uuid.UUID, detached bool) error {
	_, err := r.db.Exec(`UPDATE media_assets SET is_detached = ?, updated_at = ? WHERE id = ?`,
		detached, time.Now().UTC().Format(time.RFC3339), id.String())
	if err != nil {
		return fmt.Errorf("media asset mark detached: %w", err)
	}
	return nil
}
