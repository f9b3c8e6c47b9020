package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// PersonRepository persists models.Person, including the enrichment writes
// the person-enrichment pass performs (SPEC_FULL.md §7 item 1).
type PersonRepository struct {
	db *sql.DB
}

func NewPersonRepository(db *sql.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

const personColumns = "id, name, role, wikidata_qid, headshot_url, biography, created_at, enriched_at"

func scanPerson(row interface{ Scan(dest ...interface{}) error }) (*models.Person, error) {
	var p models.Person
	var id, role, createdAt string
	var enrichedAt sql.NullString

	if err := row.Scan(&id, &p.Name, &role, &p.WikidataQID, &p.HeadshotURL, &p.Biography, &createdAt, &enrichedAt); err != nil {
		return nil, err
	}
	p.ID = uuid.MustParse(id)
	p.Role = models.PersonRole(role)
	p.CreatedAt = parseTime(createdAt)
	if enrichedAt.Valid {
		t := parseTime(enrichedAt.String)
		p.EnrichedAt = &t
	}
	return &p, nil
}

func (r *PersonRepository) Upsert(p *models.Person) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var enrichedAt interface{}
	if p.EnrichedAt != nil {
		enrichedAt = p.EnrichedAt.Format(time.RFC3339)
	}

	_, err := r.db.Exec(fmt.Sprintf(`
		INSERT INTO persons (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, role = excluded.role, wikidata_qid = excluded.wikidata_qid,
			headshot_url = excluded.headshot_url, biography = excluded.biography,
			enriched_at = excluded.enriched_at`, personColumns),
		p.ID.String(), p.Name, string(p.Role), p.WikidataQID, p.HeadshotURL, p.Biography,
		p.CreatedAt.Format(time.RFC3339), enrichedAt)
	if err != nil {
		return fmt.Errorf("person upsert: %w", err)
	}
	return nil
}

func (r *PersonRepository) FindByName(name string, role models.PersonRole) (*models.Person, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM persons WHERE name = ? AND role = ?", personColumns), name, string(role))
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("person find by name: %w", err)
	}
	return p, nil
}

// MarkEnriched stamps enriched_at after an enrichment pass that changed the
// person's wikidata_qid or headshot_url. The enrichment pass does not read
// this stamp, so it does not skip already-enriched persons.
func (r *PersonRepository) MarkEnriched(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE persons SET enriched_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id.String())
	if err != nil {
		return fmt.Errorf("person mark enriched: %w", err)
	}
	return nil
}
