package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// ProfileRepository persists models.Profile. Identity/profile CRUD surface
// is out of scope (spec.md §1); this repository exists only so the seed
// profile and administrator-count invariant have somewhere to live.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = "id, name, role, is_seed, created_at"

func scanProfile(row interface{ Scan(dest ...interface{}) error }) (*models.Profile, error) {
	var p models.Profile
	var id, role, createdAt string
	if err := row.Scan(&id, &p.Name, &role, &p.IsSeed, &createdAt); err != nil {
		return nil, err
	}
	p.ID = uuid.MustParse(id)
	p.Role = models.ProfileRole(role)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (r *ProfileRepository) Insert(p *models.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(fmt.Sprintf("INSERT INTO profiles (%s) VALUES (?, ?, ?, ?, ?)", profileColumns),
		p.ID.String(), p.Name, string(p.Role), p.IsSeed, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("profile insert: %w", err)
	}
	return nil
}

// AdministratorCount supports the invariant that at least one Administrator
// must always exist.
func (r *ProfileRepository) AdministratorCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE role = ?`, string(models.ProfileAdministrator)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("profile administrator count: %w", err)
	}
	return count, nil
}

func (r *ProfileRepository) All() ([]models.Profile, error) {
	rows, err := r.db.Query(fmt.Sprintf("SELECT %s FROM profiles", profileColumns))
	if err != nil {
		return nil, fmt.Errorf("profile list: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("profile scan: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}
