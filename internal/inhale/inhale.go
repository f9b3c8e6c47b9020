// Package inhale implements the Great Inhale Scanner: it walks the library
// tree and replays every tanaste.xml sidecar it finds to reconstruct
// database state, on the rule that XML always wins (spec.md §4.J). It shares
// the database's migration-replay idiom — walk, apply, record — generalized
// from schema replay to sidecar replay.
package inhale

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tanaste-io/tanaste/internal/models"
	"github.com/tanaste-io/tanaste/internal/repository"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/sidecar"
)

// LibraryScanResult summarizes one full scan, spec.md §4.J.
type LibraryScanResult struct {
	HubsSeen         int
	EditionsSeen     int
	AssetsSeen       int
	UserLocksApplied int
	FilesMissing     int
}

// Scanner reconstructs database state by replaying sidecars found under a
// library root.
type Scanner struct {
	Hubs      *repository.HubRepository
	Works     *repository.WorkRepository
	Editions  *repository.EditionRepository
	Assets    *repository.MediaAssetRepository
	Claims    *repository.ClaimRepository
	Canonical *repository.CanonicalRepository
	Scorer    *scoring.Engine
}

// New builds a Scanner over the given repositories and scoring engine.
func New(hubs *repository.HubRepository, works *repository.WorkRepository, editions *repository.EditionRepository,
	assets *repository.MediaAssetRepository, claims *repository.ClaimRepository, canonical *repository.CanonicalRepository,
	scorer *scoring.Engine) *Scanner {
	return &Scanner{
		Hubs: hubs, Works: works, Editions: editions, Assets: assets,
		Claims: claims, Canonical: canonical, Scorer: scorer,
	}
}

// Scan walks libraryRoot recursively, replaying every sidecar it finds, then
// triggers a full re-score of every entity touched during the walk.
func (s *Scanner) Scan(libraryRoot string) (*LibraryScanResult, error) {
	result := &LibraryScanResult{}
	hubByDir := map[string]uuid.UUID{}
	touched := map[models.EntityRef]bool{}

	err := filepath.WalkDir(libraryRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		if parentHub, ok := hubByDir[filepath.Dir(path)]; ok {
			hubByDir[path] = parentHub
		}

		if hub := sidecar.ReadHub(path); hub != nil {
			result.HubsSeen++
			id, err := s.replayHub(hub)
			if err != nil {
				return fmt.Errorf("inhale: replay hub at %s: %w", path, err)
			}
			hubByDir[path] = id
		}

		if edition := sidecar.ReadEdition(path); edition != nil {
			result.EditionsSeen++
			hubID, ok := hubByDir[path]
			if !ok {
				log.Printf("[inhale] edition sidecar at %s has no ancestor hub, skipping", path)
				return nil
			}
			editionRef, locksApplied, missing, err := s.replayEdition(path, hubID, edition)
			if err != nil {
				return fmt.Errorf("inhale: replay edition at %s: %w", path, err)
			}
			result.AssetsSeen++
			result.UserLocksApplied += locksApplied
			if missing {
				result.FilesMissing++
			}
			touched[editionRef] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for ref := range touched {
		if err := s.rescore(ref); err != nil {
			log.Printf("[inhale] rescore %s/%s failed: %v", ref.Kind, ref.ID, err)
		}
	}

	log.Printf("[inhale] scan of %s complete: %d hubs, %d editions, %d assets, %d locks, %d missing",
		libraryRoot, result.HubsSeen, result.EditionsSeen, result.AssetsSeen, result.UserLocksApplied, result.FilesMissing)
	return result, nil
}

// replayHub looks up the Hub by display_name (case-insensitive); if found,
// the sidecar's values overwrite the DB's, otherwise a new Hub is inserted.
// XML always wins.
func (s *Scanner) replayHub(hub *sidecar.Hub) (uuid.UUID, error) {
	existing, err := s.Hubs.FindByDisplayName(hub.DisplayName)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	if existing != nil {
		id = existing.ID
	}

	model := &models.Hub{
		ID:          id,
		DisplayName: hub.DisplayName,
		Year:        hub.Year,
		WikidataQID: ptrOrNil(hub.WikidataQID),
		Franchise:   ptrOrNil(hub.Franchise),
	}
	if !hub.LastOrganized.IsZero() {
		t := hub.LastOrganized
		model.LastOrganized = &t
	}
	if existing != nil {
		model.CreatedAt = existing.CreatedAt
	}
	if err := s.Hubs.Upsert(model); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// replayEdition ensures the Work/Edition/MediaAsset chain exists for an
// edition sidecar, keyed back to any existing asset by content_hash so
// re-scans preserve identity, and writes a claim per populated field plus
// one per user lock.
func (s *Scanner) replayEdition(dir string, hubID uuid.UUID, e *sidecar.Edition) (models.EntityRef, int, bool, error) {
	workID := uuid.New()
	editionID := uuid.New()
	assetID := uuid.New()

	existingAsset, err := s.Assets.FindByContentHash(e.ContentHash)
	if err != nil {
		return models.EntityRef{}, 0, false, err
	}
	if existingAsset != nil {
		assetID = existingAsset.ID
		editionID = existingAsset.EditionID
		if existingEdition, err := s.Editions.FindByID(editionID); err == nil && existingEdition != nil {
			workID = existingEdition.WorkID
		}
	}

	if err := s.Works.Upsert(&models.Work{ID: workID, HubID: &hubID}); err != nil {
		return models.EntityRef{}, 0, false, err
	}
	if err := s.Editions.Upsert(&models.Edition{ID: editionID, WorkID: workID, Format: e.MediaType}); err != nil {
		return models.EntityRef{}, 0, false, err
	}

	assetPath, size, missing := locateAssetFile(dir)
	if assetPath == "" {
		assetPath = dir
	}
	asset := &models.MediaAsset{
		ID:            assetID,
		EditionID:     editionID,
		ContentHash:   e.ContentHash,
		MediaType:     parseMediaType(e.MediaType),
		CurrentPath:   assetPath,
		FileSizeBytes: size,
		IsDetached:    missing,
	}
	if err := s.Assets.Upsert(asset); err != nil {
		return models.EntityRef{}, 0, false, err
	}

	ref := models.EntityRef{Kind: models.EntityEdition, ID: editionID}
	for field, value := range map[string]string{
		"title":      e.Title,
		"author":     e.Author,
		"media_type": e.MediaType,
		"isbn":       e.ISBN,
		"asin":       e.ASIN,
	} {
		if value == "" {
			continue
		}
		if err := s.Claims.Insert(&models.MetadataClaim{
			EntityKind:   ref.Kind,
			EntityID:     ref.ID,
			FieldKey:     field,
			Value:        value,
			ProviderName: "sidecar",
			ObservedAt:   time.Now().UTC(),
		}); err != nil {
			return models.EntityRef{}, 0, false, fmt.Errorf("insert sidecar claim %s: %w", field, err)
		}
	}

	applied := 0
	for _, lock := range e.UserLocks {
		if err := s.Claims.Insert(&models.MetadataClaim{
			EntityKind:   ref.Kind,
			EntityID:     ref.ID,
			FieldKey:     lock.Key,
			Value:        lock.Value,
			ProviderName: "user",
			ObservedAt:   lock.LockedAt,
			IsUserLocked: true,
		}); err != nil {
			return models.EntityRef{}, 0, false, fmt.Errorf("insert user lock %s: %w", lock.Key, err)
		}
		applied++
	}

	return ref, applied, missing, nil
}

// rescore re-derives canonical values for ref from the claims now on
// record, the step that makes the restored claim set authoritative again
// (spec.md §4.J step 4).
func (s *Scanner) rescore(ref models.EntityRef) error {
	claims, err := s.Claims.ByEntity(ref.ID)
	if err != nil {
		return err
	}
	values := s.Scorer.Score(ref, claims, time.Now().UTC())
	for _, v := range values {
		if err := s.Canonical.Upsert(v); err != nil {
			return err
		}
	}
	return nil
}

// locateAssetFile returns the first regular file in dir that isn't the
// sidecar itself or the cover image, its size, and whether no such file was
// found (the detached case, spec.md §4.J step 3 — no re-hashing, only an
// existence check).
func locateAssetFile(dir string) (string, int64, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, true
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == sidecar.FileName || name == "cover.jpg" || name == "cover.png" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		return filepath.Join(dir, name), info.Size(), false
	}
	return "", 0, true
}

func parseMediaType(s string) models.MediaType {
	switch models.MediaType(s) {
	case models.MediaTypeEpub, models.MediaTypeAudiobook, models.MediaTypeMovie:
		return models.MediaType(s)
	default:
		return models.MediaTypeUnknown
	}
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
