package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/db"
	"github.com/tanaste-io/tanaste/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	conn, err := db.Connect(path)
	if err != nil {
		t.Fatalf("db.Connect() error: %v", err)
	}
	if err := db.Bootstrap(conn); err != nil {
		t.Fatalf("db.Bootstrap() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubRepository_UpsertAndFindByDisplayNameIsCaseInsensitive(t *testing.T) {
	conn := openTestDB(t)
	repo := NewHubRepository(conn)

	h := &models.Hub{ID: uuid.New(), DisplayName: "The Hobbit"}
	if err := repo.Upsert(h); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	found, err := repo.FindByDisplayName("the hobbit")
	if err != nil {
		t.Fatalf("FindByDisplayName() error: %v", err)
	}
	if found == nil || found.ID != h.ID {
		t.Fatalf("expected case-insensitive match, got %+v", found)
	}
}

func TestHubRepository_FindByDisplayNameMissReturnsNilNotError(t *testing.T) {
	conn := openTestDB(t)
	repo := NewHubRepository(conn)

	found, err := repo.FindByDisplayName("does not exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Fatalf("expected nil for a miss, got %+v", found)
	}
}

func TestMediaAssetRepository_FindByContentHashAndRelink(t *testing.T) {
	conn := openTestDB(t)
	hubs := NewHubRepository(conn)
	works := NewWorkRepository(conn)
	editions := NewEditionRepository(conn)
	assets := NewMediaAssetRepository(conn)

	hub := &models.Hub{ID: uuid.New(), DisplayName: "Dune"}
	if err := hubs.Upsert(hub); err != nil {
		t.Fatal(err)
	}
	work := &models.Work{ID: uuid.New(), HubID: &hub.ID}
	if err := works.Upsert(work); err != nil {
		t.Fatal(err)
	}
	edition := &models.Edition{ID: uuid.New(), WorkID: work.ID, Format: "epub"}
	if err := editions.Upsert(edition); err != nil {
		t.Fatal(err)
	}

	asset := &models.MediaAsset{
		ID:          uuid.New(),
		EditionID:   edition.ID,
		ContentHash: "abc123",
		MediaType:   models.MediaTypeEpub,
		CurrentPath: "/incoming/dune.epub",
	}
	if err := assets.Upsert(asset); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	found, err := assets.FindByContentHash("abc123")
	if err != nil {
		t.Fatalf("FindByContentHash() error: %v", err)
	}
	if found == nil || found.CurrentPath != "/incoming/dune.epub" {
		t.Fatalf("expected to find the asset at its original path, got %+v", found)
	}

	if err := assets.UpdateCurrentPath(asset.ID, "/library/dune.epub"); err != nil {
		t.Fatalf("UpdateCurrentPath() error: %v", err)
	}
	relinked, err := assets.FindByContentHash("abc123")
	if err != nil {
		t.Fatal(err)
	}
	if relinked.CurrentPath != "/library/dune.epub" {
		t.Fatalf("CurrentPath = %q, want /library/dune.epub", relinked.CurrentPath)
	}
}

func TestClaimRepository_InsertAndByEntity(t *testing.T) {
	conn := openTestDB(t)
	claims := NewClaimRepository(conn)

	entityID := uuid.New()
	c := &models.MetadataClaim{
		EntityKind:   models.EntityWork,
		EntityID:     entityID,
		FieldKey:     "title",
		Value:        "Dune",
		ProviderName: "openlibrary",
	}
	if err := claims.Insert(c); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	found, err := claims.ByEntity(entityID)
	if err != nil {
		t.Fatalf("ByEntity() error: %v", err)
	}
	if len(found) != 1 || found[0].Value != "Dune" {
		t.Fatalf("ByEntity() = %+v, want one claim with value Dune", found)
	}
}

func TestProfileRepository_AdministratorCount(t *testing.T) {
	conn := openTestDB(t)
	repo := NewProfileRepository(conn)

	count, err := repo.AdministratorCount()
	if err != nil {
		t.Fatalf("AdministratorCount() error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 administrators on a fresh store, got %d", count)
	}

	if err := repo.Insert(&models.Profile{Name: "root", Role: models.ProfileAdministrator, IsSeed: true}); err != nil {
		t.Fatal(err)
	}

	count, err = repo.AdministratorCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("AdministratorCount() = %d, want 1", count)
	}
}
