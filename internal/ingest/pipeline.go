// Package ingest glues the ingestion pipeline's stages together: Watcher ->
// Debounce -> Hasher -> (dedup) -> Harvester -> Scoring -> Arbiter -> sidecar
// write -> organizer move (spec.md §2 data flow D -> E -> F -> G -> H -> I).
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tanaste-io/tanaste/internal/arbiter"
	"github.com/tanaste-io/tanaste/internal/config"
	"github.com/tanaste-io/tanaste/internal/harvester"
	"github.com/tanaste-io/tanaste/internal/hasher"
	"github.com/tanaste-io/tanaste/internal/models"
	"github.com/tanaste-io/tanaste/internal/notifications"
	"github.com/tanaste-io/tanaste/internal/organizer"
	"github.com/tanaste-io/tanaste/internal/providers"
	"github.com/tanaste-io/tanaste/internal/repository"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/sidecar"
)

// Pipeline carries everything one ingestion needs to run end to end. It has
// no mutable state of its own beyond what its dependencies hold internally
// (the scoring engine's per-entity locks, the sidecar codec's per-path
// write locks),
// so a single Pipeline is safe to share across concurrently-running
// ingestion tasks (spec.md §5: ingestion tasks "may run in parallel across
// distinct (path) keys").
type Pipeline struct {
	cfg *config.Config

	hubs      *repository.HubRepository
	works     *repository.WorkRepository
	editions  *repository.EditionRepository
	assets    *repository.MediaAssetRepository
	claims    *repository.ClaimRepository
	canonical *repository.CanonicalRepository
	txlog     *repository.TransactionLogRepository
	persons   *repository.PersonRepository

	harvester  *harvester.Harvester
	scorer     *scoring.Engine
	arbiterCfg arbiter.Config
	dispatcher *notifications.Dispatcher
	templates  *organizer.Registry
}

// Deps bundles Pipeline's constructor arguments.
type Deps struct {
	Config     *config.Config
	Hubs       *repository.HubRepository
	Works      *repository.WorkRepository
	Editions   *repository.EditionRepository
	Assets     *repository.MediaAssetRepository
	Claims     *repository.ClaimRepository
	Canonical  *repository.CanonicalRepository
	TxLog      *repository.TransactionLogRepository
	Persons    *repository.PersonRepository
	Harvester  *harvester.Harvester
	Scorer     *scoring.Engine
	Dispatcher *notifications.Dispatcher
	Templates  *organizer.Registry
}

// New builds a Pipeline from deps.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		cfg:       deps.Config,
		hubs:      deps.Hubs,
		works:     deps.Works,
		editions:  deps.Editions,
		assets:    deps.Assets,
		claims:    deps.Claims,
		canonical: deps.Canonical,
		txlog:     deps.TxLog,
		persons:   deps.Persons,
		harvester: deps.Harvester,
		scorer:    deps.Scorer,
		arbiterCfg: arbiter.Config{
			AutoLinkThreshold: deps.Config.Scoring.AutoLinkThreshold,
			ConflictThreshold: deps.Config.Scoring.ConflictThreshold,
		},
		dispatcher: deps.Dispatcher,
		templates:  deps.Templates,
	}
}

// Ingest runs one file through the full pipeline. It returns a *FailedError
// for every outcome spec.md §7 classifies as a failure so the caller (the
// asynq handler) can decide whether to retry.
func (p *Pipeline) Ingest(ctx context.Context, path string) error {
	p.dispatcher.Dispatch(notifications.Event{Type: notifications.IngestionStarted, Path: path})

	if err := hasher.WaitUnlocked(path, hasher.DefaultLockTimeout); err != nil {
		return p.fail(path, ReasonLockTimeout, err)
	}

	contentHash, err := hasher.Hash(path)
	if err != nil {
		return p.quarantine(path, ReasonCorruption, err)
	}
	p.dispatcher.Dispatch(notifications.Event{Type: notifications.IngestionHashed, Path: path, Detail: contentHash})

	if existing, err := p.assets.FindByContentHash(contentHash); err != nil {
		return p.fail(path, ReasonCorruption, fmt.Errorf("dedup lookup: %w", err))
	} else if existing != nil {
		return p.handleDuplicate(path, existing)
	}

	mediaType, ok := classifyMediaType(path)
	if !ok {
		return p.quarantine(path, ReasonUnsupportedFormat, fmt.Errorf("unrecognized extension %q", filepath.Ext(path)))
	}

	info, err := os.Stat(path)
	if err != nil {
		return p.fail(path, ReasonLockTimeout, fmt.Errorf("stat after hashing: %w", err))
	}

	workID := uuid.New()
	if err := p.harvestAndScoreWork(ctx, workID, path, mediaType); err != nil {
		return p.fail(path, ReasonCorruption, err)
	}

	canonicalFields, err := p.canonical.ByEntity(workID)
	if err != nil {
		return p.fail(path, ReasonCorruption, fmt.Errorf("read scored fields: %w", err))
	}
	title, author, year := fieldsOf(canonicalFields)
	if title == "" {
		title = titleHint(path)
	}
	if p.persons != nil && author != "" {
		go func() {
			if err := p.EnrichPerson(context.Background(), uuid.New(), author, models.RoleAuthor); err != nil {
				log.Printf("[ingest] person enrichment failed for %q: %v", author, err)
			}
		}()
	}

	decision, hub, err := p.decideHub(title, author, year)
	if err != nil {
		return p.fail(path, ReasonCorruption, fmt.Errorf("arbiter lookup: %w", err))
	}

	editionID := uuid.New()
	assetID := uuid.New()

	if hub == nil {
		if err := p.persistPendingReview(workID, editionID, assetID, mediaType, path, contentHash, info.Size()); err != nil {
			return p.fail(path, ReasonCorruption, fmt.Errorf("persist pending-review entity chain: %w", err))
		}
		p.txlog.Append(string(models.EntityMediaAsset), assetID.String(), "needs_review", string(decision.Status))
		p.dispatcher.Dispatch(notifications.Event{
			Type:   notifications.HubNeedsReview,
			Path:   path,
			Detail: fmt.Sprintf("title=%q author=%q", title, author),
		})
		return nil
	}

	if err := p.persistChain(hub, workID, editionID, assetID, mediaType, path, contentHash, info.Size()); err != nil {
		return p.fail(path, ReasonCorruption, fmt.Errorf("persist entity chain: %w", err))
	}

	destination := p.organize(hub, title, mediaType, path)
	finalPath, err := organizer.ExecuteMove(path, destination, true)
	if err != nil {
		return p.fail(path, ReasonLockTimeout, fmt.Errorf("move into library: %w", err))
	}
	if err := p.assets.UpdateCurrentPath(assetID, finalPath); err != nil {
		return p.fail(path, ReasonCorruption, fmt.Errorf("record final path: %w", err))
	}

	if err := p.writeSidecars(hub, workID, editionID, title, author, mediaType, contentHash, finalPath); err != nil {
		log.Printf("[ingest] sidecar write failed for %s: %v (file already moved, DB state is authoritative until next Great Inhale)", finalPath, err)
	}

	p.txlog.Append(string(models.EntityMediaAsset), assetID.String(), "ingested", string(decision.Status))
	p.dispatcher.Dispatch(notifications.Event{
		Type: notifications.IngestionCompleted,
		Path: finalPath,
		Detail: string(decision.Status),
	})
	return nil
}

// handleDuplicate implements spec.md §4.F step 3's no-rescore relink path.
func (p *Pipeline) handleDuplicate(path string, existing *models.MediaAsset) error {
	if existing.CurrentPath == path {
		return nil
	}
	if err := p.assets.UpdateCurrentPath(existing.ID, path); err != nil {
		return p.fail(path, ReasonCorruption, fmt.Errorf("relink duplicate: %w", err))
	}
	p.dispatcher.Dispatch(notifications.Event{
		Type:   notifications.IngestionCompleted,
		Path:   path,
		Reason: string(ReasonDuplicateSkip),
		Detail: "duplicate-relink",
	})
	return nil
}

// harvestAndScoreWork dispatches provider lookups for the about-to-exist
// Work, inserts the returned claims, and re-scores the entity so its
// canonical title/author/year are available to the Arbiter.
func (p *Pipeline) harvestAndScoreWork(ctx context.Context, workID uuid.UUID, path string, mediaType models.MediaType) error {
	req := providers.LookupRequest{
		EntityKind: models.EntityWork,
		EntityID:   workID,
		MediaType:  mediaType,
		Title:      titleHint(path),
	}

	results := p.harvester.Harvest(ctx, req, mediaType)
	for _, r := range results {
		for _, c := range r.Claims {
			if err := p.claims.Insert(&c); err != nil {
				return fmt.Errorf("insert claim from %s: %w", r.Provider, err)
			}
		}
		if len(r.Claims) > 0 {
			p.dispatcher.Dispatch(notifications.Event{
				Type: notifications.MetadataHarvested,
				Path: path,
				Detail: fmt.Sprintf("%s contributed %d claims", r.Provider, len(r.Claims)),
			})
		}
	}

	claims, err := p.claims.ByEntity(workID)
	if err != nil {
		return fmt.Errorf("read claims for scoring: %w", err)
	}
	for _, v := range p.scorer.Score(models.EntityRef{Kind: models.EntityWork, ID: workID}, claims, time.Now().UTC()) {
		if err := p.canonical.Upsert(v); err != nil {
			return fmt.Errorf("upsert canonical %s: %w", v.FieldKey, err)
		}
	}
	return nil
}

func fieldsOf(values []models.CanonicalValue) (title, author string, year *int) {
	for _, v := range values {
		switch v.FieldKey {
		case "title":
			title = v.Value
		case "author":
			author = v.Value
		case "release_year":
			if y, err := strconv.Atoi(v.Value); err == nil {
				year = &y
			}
		}
	}
	return title, author, year
}

// decideHub runs the Arbiter against every known Hub. It returns the Hub the
// Work should belong to: the linked Hub for StatusAutoLinked, a freshly
// minted one for StatusNewHub, or nil for StatusNeedsReview — a Work whose
// similarity score falls in the review band is never given a Hub of its
// own, minted or borrowed, until a human resolves the ambiguity
// (spec.md §8 Scenario 6).
func (p *Pipeline) decideHub(title, author string, year *int) (arbiter.Decision, *models.Hub, error) {
	existingHubs, err := p.hubs.All()
	if err != nil {
		return arbiter.Decision{}, nil, err
	}

	candidates := make([]arbiter.Candidate, 0, len(existingHubs))
	for _, h := range existingHubs {
		candidates = append(candidates, arbiter.Candidate{Hub: h, Title: h.DisplayName})
	}

	decision := arbiter.Decide(p.arbiterCfg, title, author, year, candidates)

	switch decision.Status {
	case models.StatusAutoLinked:
		return decision, decision.Hub, nil
	case models.StatusNeedsReview:
		return decision, nil, nil
	default:
		hub := &models.Hub{ID: uuid.New(), DisplayName: title, Year: year}
		if err := p.hubs.Upsert(hub); err != nil {
			return decision, nil, err
		}
		return decision, hub, nil
	}
}

func (p *Pipeline) persistChain(hub *models.Hub, workID, editionID, assetID uuid.UUID, mediaType models.MediaType, path, contentHash string, size int64) error {
	if err := p.works.Upsert(&models.Work{ID: workID, HubID: &hub.ID}); err != nil {
		return err
	}
	if err := p.editions.Upsert(&models.Edition{ID: editionID, WorkID: workID, Format: string(mediaType)}); err != nil {
		return err
	}
	return p.assets.Upsert(&models.MediaAsset{
		ID:            assetID,
		EditionID:     editionID,
		ContentHash:   contentHash,
		MediaType:     mediaType,
		CurrentPath:   path,
		FileSizeBytes: size,
	})
}

// persistPendingReview stores the Work/Edition/MediaAsset chain for a
// StatusNeedsReview outcome: no Hub is linked, the Work is flagged
// NeedsReview, and the file is left at its original path since organizing
// requires a Hub's display name and year that don't exist yet.
func (p *Pipeline) persistPendingReview(workID, editionID, assetID uuid.UUID, mediaType models.MediaType, path, contentHash string, size int64) error {
	if err := p.works.Upsert(&models.Work{ID: workID, HubID: nil, NeedsReview: true}); err != nil {
		return err
	}
	if err := p.editions.Upsert(&models.Edition{ID: editionID, WorkID: workID, Format: string(mediaType)}); err != nil {
		return err
	}
	return p.assets.Upsert(&models.MediaAsset{
		ID:            assetID,
		EditionID:     editionID,
		ContentHash:   contentHash,
		MediaType:     mediaType,
		CurrentPath:   path,
		FileSizeBytes: size,
	})
}

func (p *Pipeline) organize(hub *models.Hub, title string, mediaType models.MediaType, path string) string {
	candidate := TemplateCandidate{
		Category: categoryForMediaType(mediaType),
		HubName:  hub.DisplayName,
		Year:     hub.Year,
		Format:   formatLabel(mediaType),
		Ext:      filepath.Ext(path),
	}
	relative := p.templates.CalculatePath(candidate, p.cfg.OrganizationTemplate)
	return filepath.Join(p.cfg.LibraryRoot, relative)
}

func (p *Pipeline) writeSidecars(hub *models.Hub, workID, editionID uuid.UUID, title, author string, mediaType models.MediaType, contentHash, finalPath string) error {
	dir := filepath.Dir(finalPath)
	if err := sidecar.WriteHub(dir, &sidecar.Hub{DisplayName: hub.DisplayName, Year: hub.Year}); err != nil {
		return fmt.Errorf("write hub sidecar: %w", err)
	}
	return sidecar.WriteEdition(dir, &sidecar.Edition{
		Title:       title,
		Author:      author,
		MediaType:   string(mediaType),
		ContentHash: contentHash,
	})
}

// quarantine moves a deterministically-rejected file under
// library_root/.quarantine, mirroring its path under the watch root
// (spec.md §7, SPEC_FULL.md §7 item 4).
func (p *Pipeline) quarantine(path string, reason Reason, cause error) error {
	rel, err := filepath.Rel(p.cfg.WatchDirectory, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	dest := filepath.Join(p.cfg.LibraryRoot, ".quarantine", rel)
	if _, moveErr := organizer.ExecuteMove(path, dest, true); moveErr != nil {
		log.Printf("[ingest] quarantine move failed for %s: %v", path, moveErr)
	}
	return p.fail(path, reason, cause)
}

func (p *Pipeline) fail(path string, reason Reason, cause error) error {
	log.Printf("[ingest] %s failed for %s: %v", reason, path, cause)
	p.dispatcher.Dispatch(notifications.Event{
		Type:   notifications.IngestionFailed,
		Path:   path,
		Reason: string(reason),
		Detail: cause.Error(),
	})
	return &FailedError{Reason: reason, Err: cause}
}
