package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// CanonicalRepository persists models.CanonicalValue, keyed (entity_id,
// field_key) (spec.md §3).
type CanonicalRepository struct {
	db *sql.DB
}

func NewCanonicalRepository(db *sql.DB) *CanonicalRepository {
	return &CanonicalRepository{db: db}
}

const canonicalColumns = "entity_kind, entity_id, field_key, value, last_scored_at, is_conflicted"

func scanCanonical(row interface{ Scan(dest ...interface{}) error }) (*models.CanonicalValue, error) {
	var c models.CanonicalValue
	var entityKind, entityID, lastScoredAt string

	if err := row.Scan(&entityKind, &entityID, &c.FieldKey, &c.Value, &lastScoredAt, &c.IsConflicted); err != nil {
		return nil, err
	}
	c.EntityKind = models.EntityKind(entityKind)
	c.EntityID = uuid.MustParse(entityID)
	c.LastScoredAt = parseTime(lastScoredAt)
	return &c, nil
}

// Upsert writes or replaces the canonical winner for (entity_id, field_key).
func (r *CanonicalRepository) Upsert(c models.CanonicalValue) error {
	_, err := r.db.Exec(fmt.Sprintf(`
		INSERT INTO canonical_values (%s) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, field_key) DO UPDATE SET
			value = excluded.value, last_scored_at = excluded.last_scored_at,
			is_conflicted = excluded.is_conflicted`, canonicalColumns),
		string(c.EntityKind), c.EntityID.String(), c.FieldKey, c.Value,
		c.LastScoredAt.Format(time.RFC3339), c.IsConflicted)
	if err != nil {
		return fmt.Errorf("canonical upsert: %w", err)
	}
	return nil
}

// ByEntity returns every canonical field currently on record for entityID.
func (r *CanonicalRepository) ByEntity(entityID uuid.UUID) ([]models.CanonicalValue, error) {
	rows, err := r.db.Query(fmt.Sprintf("SELECT %s FROM canonical_values WHERE entity_id = ?", canonicalColumns), entityID.String())
	if err != nil {
		return nil, fmt.Errorf("canonical list by entity: %w", err)
	}
	defer rows.Close()

	var values []models.CanonicalValue
	for rows.Next() {
		c, err := scanCanonical(rows)
		if err != nil {
			return nil, fmt.Errorf("canonical scan: %w", err)
		}
		values = append(values, *c)
	}
	return values, rows.Err()
}
