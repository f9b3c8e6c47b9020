package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// ClaimRepository persists models.MetadataClaim. Claims are immutable once
// written (spec.md §3) — this repository only ever inserts, never updates.
type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

const claimColumns = "id, entity_kind, entity_id, field_key, value, provider_name, observed_at, is_user_locked"

func scanClaim(row interface{ Scan(dest ...interface{}) error }) (*models.MetadataClaim, error) {
	var c models.MetadataClaim
	var id, entityKind, entityID, observedAt string

	if err := row.Scan(&id, &entityKind, &entityID, &c.FieldKey, &c.Value, &c.ProviderName, &observedAt, &c.IsUserLocked); err != nil {
		return nil, err
	}
	c.ID = uuid.MustParse(id)
	c.EntityKind = models.EntityKind(entityKind)
	c.EntityID = uuid.MustParse(entityID)
	c.ObservedAt = parseTime(observedAt)
	return &c, nil
}

// Insert appends a new claim. Stamps a UUID if the caller hasn't set one.
func (r *ClaimRepository) Insert(c *models.MetadataClaim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ObservedAt.IsZero() {
		c.ObservedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(fmt.Sprintf("INSERT INTO metadata_claims (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", claimColumns),
		c.ID.String(), string(c.EntityKind), c.EntityID.String(), c.FieldKey, c.Value, c.ProviderName,
		c.ObservedAt.Format(time.RFC3339), c.IsUserLocked)
	if err != nil {
		return fmt.Errorf("claim insert: %w", err)
	}
	return nil
}

// ByEntity returns every claim for entityID, the full set the Scoring
// Engine re-scores from (spec.md §4.H).
func (r *ClaimRepository) ByEntity(entityID uuid.UUID) ([]models.MetadataClaim, error) {
	rows, err := r.db.Query(fmt.Sprintf("SELECT %s FROM metadata_claims WHERE entity_id = ?", claimColumns), entityID.String())
	if err != nil {
		return nil, fmt.Errorf("claim list by entity: %w", err)
	}
	defer rows.Close()

	var claims []models.MetadataClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("claim scan: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}
