package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// WorkRepository persists models.Work.
type WorkRepository struct {
	db *sql.DB
}

func NewWorkRepository(db *sql.DB) *WorkRepository {
	return &WorkRepository{db: db}
}

const workColumns = "id, hub_id, needs_review, created_at, updated_at"

func scanWork(row interface{ Scan(dest ...interface{}) error }) (*models.Work, error) {
	var w models.Work
	var id, createdAt, updatedAt string
	var hubID sql.NullString
	var needsReview bool
	if err := row.Scan(&id, &hubID, &needsReview, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.ID = uuid.MustParse(id)
	if hubID.Valid {
		parsed := uuid.MustParse(hubID.String)
		w.HubID = &parsed
	}
	w.NeedsReview = needsReview
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

func (r *WorkRepository) Upsert(w *models.Work) error {
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	var hubID interface{}
	if w.HubID != nil {
		hubID = w.HubID.String()
	}

	_, err := r.db.Exec(fmt.Sprintf(`
		INSERT INTO works (%s) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET hub_id = excluded.hub_id, needs_review = excluded.needs_review, updated_at = excluded.updated_at`, workColumns),
		w.ID.String(), hubID, w.NeedsReview, w.CreatedAt.Format(time.RFC3339), w.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("work upsert: %w", err)
	}
	return nil
}

func (r *WorkRepository) FindByID(id uuid.UUID) (*models.Work, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM works WHERE id = ?", workColumns), id.String())
	w, err := scanWork(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("work find by id: %w", err)
	}
	return w, nil
}

// ByHub returns every Work owned by hubID.
func (r *WorkRepository) ByHub(hubID uuid.UUID) ([]models.Work, error) {
	rows, err := r.db.Query(fmt.Sprintf("SELECT %s FROM works WHERE hub_id = ?", workColumns), hubID.String())
	if err != nil {
		return nil, fmt.Errorf("work list by hub: %w", err)
	}
	defer rows.Close()

	var works []models.Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("work scan: %w", err)
		}
		works = append(works, *w)
	}
	return works, rows.Err()
}
