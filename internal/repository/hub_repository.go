// Package repository provides per-entity CRUD against the SQLite store,
// following the column-list-const + scan-helper pattern of CineVault's
// internal/repository/library_repository.go, adapted to sqlite's `?`
// placeholders in place of postgres's `$1` style.
package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// HubRepository persists models.Hub.
type HubRepository struct {
	db *sql.DB
}

func NewHubRepository(db *sql.DB) *HubRepository {
	return &HubRepository{db: db}
}

const hubColumns = "id, display_name, display_name_ci, franchise, wikidata_qid, year, last_organized, created_at, updated_at"

func scanHub(row interface{ Scan(dest ...interface{}) error }) (*models.Hub, error) {
	var h models.Hub
	var id string
	var displayNameCI string
	var lastOrganized sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&id, &h.DisplayName, &displayNameCI, &h.Franchise, &h.WikidataQID, &h.Year, &lastOrganized, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	h.ID = uuid.MustParse(id)
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = parseTime(updatedAt)
	if lastOrganized.Valid {
		t := parseTime(lastOrganized.String)
		h.LastOrganized = &t
	}
	return &h, nil
}

// Upsert inserts h, or updates it in place if a hub with this id already
// exists.
func (r *HubRepository) Upsert(h *models.Hub) error {
	now := time.Now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now

	var lastOrganized interface{}
	if h.LastOrganized != nil {
		lastOrganized = h.LastOrganized.Format(time.RFC3339)
	}

	_, err := r.db.Exec(fmt.Sprintf(`
		INSERT INTO hubs (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			display_name_ci = excluded.display_name_ci,
			franchise = excluded.franchise,
			wikidata_qid = excluded.wikidata_qid,
			year = excluded.year,
			last_organized = excluded.last_organized,
			updated_at = excluded.updated_at`, hubColumns),
		h.ID.String(), h.DisplayName, strings.ToLower(h.DisplayName), h.Franchise, h.WikidataQID, h.Year,
		lastOrganized, h.CreatedAt.Format(time.RFC3339), h.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("hub upsert: %w", err)
	}
	return nil
}

// FindByDisplayName looks up a Hub case-insensitively, the lookup the Great
// Inhale Scanner's XML-wins reconciliation depends on (spec.md §4.J).
func (r *HubRepository) FindByDisplayName(displayName string) (*models.Hub, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM hubs WHERE display_name_ci = ?", hubColumns), strings.ToLower(displayName))
	h, err := scanHub(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hub find by display name: %w", err)
	}
	return h, nil
}

func (r *HubRepository) FindByID(id uuid.UUID) (*models.Hub, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM hubs WHERE id = ?", hubColumns), id.String())
	h, err := scanHub(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hub find by id: %w", err)
	}
	return h, nil
}

// All returns every hub, used by the Arbiter to build its candidate set.
func (r *HubRepository) All() ([]models.Hub, error) {
	rows, err := r.db.Query(fmt.Sprintf("SELECT %s FROM hubs", hubColumns))
	if err != nil {
		return nil, fmt.Errorf("hub list: %w", err)
	}
	defer rows.Close()

	var hubs []models.Hub
	for rows.Next() {
		h, err := scanHub(rows)
		if err != nil {
			return nil, fmt.Errorf("hub scan: %w", err)
		}
		hubs = append(hubs, *h)
	}
	return hubs, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
