package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

func testEntity() models.EntityRef {
	return models.EntityRef{Kind: models.EntityWork, ID: uuid.New()}
}

func TestScore_MajorityWinsWithoutConflict(t *testing.T) {
	e := New(Config{ConflictEpsilon: 0.05})
	entity := testEntity()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	claims := []models.MetadataClaim{
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune", ProviderName: "openlibrary", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune", ProviderName: "wikidata", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dun", ProviderName: "audnexus", ObservedAt: now},
	}

	results := e.Score(entity, claims, now)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Value != "Dune" {
		t.Fatalf("Value = %q, want Dune", results[0].Value)
	}
	if results[0].IsConflicted {
		t.Fatal("expected no conflict, 2-vs-1 majority clears the epsilon margin")
	}
}

func TestScore_UserLockOverridesMajority(t *testing.T) {
	e := New(Config{ConflictEpsilon: 0.05})
	entity := testEntity()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	claims := []models.MetadataClaim{
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune", ProviderName: "openlibrary", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune", ProviderName: "wikidata", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune: Special Edition", ProviderName: "user", ObservedAt: now, IsUserLocked: true},
	}

	results := e.Score(entity, claims, now)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Value != "Dune: Special Edition" {
		t.Fatalf("Value = %q, want the user-locked value", results[0].Value)
	}
	if results[0].IsConflicted {
		t.Fatal("a user-locked winner must never be flagged as conflicted")
	}
}

func TestScore_CloseCallFlaggedAsConflicted(t *testing.T) {
	e := New(Config{ConflictEpsilon: 0.10})
	entity := testEntity()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	claims := []models.MetadataClaim{
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune", ProviderName: "openlibrary", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune (1965)", ProviderName: "wikidata", ObservedAt: now},
	}

	results := e.Score(entity, claims, now)
	if !results[0].IsConflicted {
		t.Fatal("expected conflict flag for a 50/50 split within epsilon")
	}
}

func TestScore_StaleClaimDecayed(t *testing.T) {
	e := New(Config{
		ConflictEpsilon:       0.05,
		StaleClaimDecayDays:   90,
		StaleClaimDecayFactor: 0.1,
		DefaultProviderWeight: map[string]float64{"openlibrary": 1.0, "wikidata": 1.0},
	})
	entity := testEntity()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	stale := now.AddDate(0, 0, -120)

	claims := []models.MetadataClaim{
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Old Title", ProviderName: "openlibrary", ObservedAt: stale},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "New Title", ProviderName: "wikidata", ObservedAt: now},
	}

	results := e.Score(entity, claims, now)
	if results[0].Value != "New Title" {
		t.Fatalf("Value = %q, want the fresh claim to win after decay", results[0].Value)
	}
}

func TestScore_FieldWeightOverridesProviderDefault(t *testing.T) {
	e := New(Config{
		ConflictEpsilon:       0.05,
		DefaultProviderWeight: map[string]float64{"openlibrary": 0.1},
		FieldWeights: map[string]map[string]float64{
			"openlibrary": {"title": 5.0},
		},
	})
	entity := testEntity()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	claims := []models.MetadataClaim{
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "From OpenLibrary", ProviderName: "openlibrary", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "From Wikidata", ProviderName: "wikidata", ObservedAt: now},
	}

	results := e.Score(entity, claims, now)
	if results[0].Value != "From OpenLibrary" {
		t.Fatalf("Value = %q, want field-specific weight (5.0) to outweigh wikidata's global default (1.0)", results[0].Value)
	}
}

func TestScore_DeterministicAcrossRuns(t *testing.T) {
	e := New(Config{ConflictEpsilon: 0.05})
	entity := testEntity()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	claims := []models.MetadataClaim{
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune", ProviderName: "openlibrary", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "author", Value: "Frank Herbert", ProviderName: "openlibrary", ObservedAt: now},
	}

	first := e.Score(entity, claims, now)
	second := e.Score(entity, claims, now)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic result count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic result at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestScore_NormalizesBeforeGrouping(t *testing.T) {
	e := New(Config{ConflictEpsilon: 0.05})
	entity := testEntity()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	claims := []models.MetadataClaim{
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "Dune", ProviderName: "openlibrary", ObservedAt: now},
		{EntityKind: entity.Kind, EntityID: entity.ID, FieldKey: "title", Value: "  Dune  ", ProviderName: "wikidata", ObservedAt: now},
	}

	results := e.Score(entity, claims, now)
	if len(results) != 1 {
		t.Fatalf("got %d canonical values, want the two claims grouped into 1", len(results))
	}
	if results[0].IsConflicted {
		t.Fatal("trimmed-equivalent values must group together, not conflict")
	}
}
