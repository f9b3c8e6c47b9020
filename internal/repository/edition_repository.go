package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// EditionRepository persists models.Edition.
type EditionRepository struct {
	db *sql.DB
}

func NewEditionRepository(db *sql.DB) *EditionRepository {
	return &EditionRepository{db: db}
}

const editionColumns = "id, work_id, format, edition_label, created_at, updated_at"

func scanEdition(row interface{ Scan(dest ...interface{}) error }) (*models.Edition, error) {
	var e models.Edition
	var id, workID, createdAt, updatedAt string
	if err := row.Scan(&id, &workID, &e.Format, &e.EditionLabel, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.ID = uuid.MustParse(id)
	e.WorkID = uuid.MustParse(workID)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func (r *EditionRepository) Upsert(e *models.Edition) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := r.db.Exec(fmt.Sprintf(`
		INSERT INTO editions (%s) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			work_id = excluded.work_id, format = excluded.format,
			edition_label = excluded.edition_label, updated_at = excluded.updated_at`, editionColumns),
		e.ID.String(), e.WorkID.String(), e.Format, e.EditionLabel, e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("edition upsert: %w", err)
	}
	return nil
}

func (r *EditionRepository) FindByID(id uuid.UUID) (*models.Edition, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM editions WHERE id = ?", editionColumns), id.String())
	e, err := scanEdition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("edition find by id: %w", err)
	}
	return e, nil
}
