package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tanaste-io/tanaste/internal/config"
	"github.com/tanaste-io/tanaste/internal/db"
	"github.com/tanaste-io/tanaste/internal/debounce"
	"github.com/tanaste-io/tanaste/internal/harvester"
	"github.com/tanaste-io/tanaste/internal/health"
	"github.com/tanaste-io/tanaste/internal/ingest"
	"github.com/tanaste-io/tanaste/internal/inhale"
	"github.com/tanaste-io/tanaste/internal/jobs"
	"github.com/tanaste-io/tanaste/internal/models"
	"github.com/tanaste-io/tanaste/internal/notifications"
	"github.com/tanaste-io/tanaste/internal/providers"
	"github.com/tanaste-io/tanaste/internal/repository"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/watcher"
)

// enrichPersonPayload is the JSON body a TypeEnrichPerson task carries.
type enrichPersonPayload struct {
	PersonID uuid.UUID         `json:"person_id"`
	Name     string            `json:"name"`
	Role     models.PersonRole `json:"role"`
}

const bannerArt = `
 _____                  _
|_   _|_ _ _ __   __ _ ___| |_ ___
  | |/ _' | '_ \ / _' / __| __/ _ \
  | | (_| | | | | (_| \__ \ ||  __/
  |_|\__,_|_| |_|\__,_|___/\__\___|
`

func main() {
	manifestPath := flag.String("config", "tanaste_master.json", "path to tanaste_master.json")
	redisAddr := flag.String("redis", "127.0.0.1:6379", "redis address for the job queue")
	flag.Parse()

	fmt.Println(bannerArt)
	fmt.Println("  Personal Media Cataloging Engine")

	cfg, err := config.Load(*manifestPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	conn, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close()
	if err := db.Bootstrap(conn); err != nil {
		log.Fatalf("failed to bootstrap schema: %v", err)
	}
	log.Println("database connected and bootstrapped")

	hubs := repository.NewHubRepository(conn)
	works := repository.NewWorkRepository(conn)
	editions := repository.NewEditionRepository(conn)
	assets := repository.NewMediaAssetRepository(conn)
	claims := repository.NewClaimRepository(conn)
	canonical := repository.NewCanonicalRepository(conn)
	txlog := repository.NewTransactionLogRepository(conn)
	persons := repository.NewPersonRepository(conn)
	providerRepo := repository.NewProviderRepository(conn)

	dispatcher := notifications.NewDispatcher()
	dispatcher.Register(notifications.LoggingSender{})
	if cfg.NotificationWebhookURL != "" {
		dispatcher.Register(notifications.NewWebhookSender(cfg.NotificationWebhookURL))
		log.Printf("notification webhook enabled: %s", cfg.NotificationWebhookURL)
	}

	registeredProviders := buildProviders(cfg, providerRepo)
	harv := harvester.New(registeredProviders)

	templates := ingest.NewDefaultRegistry()
	if err := templates.ValidateTemplate(cfg.OrganizationTemplate); err != nil {
		log.Fatalf("invalid organization_template: %v", err)
	}

	scorer := scoring.New(scoring.Config{
		DefaultProviderWeight: defaultProviderWeights(cfg),
		StaleClaimDecayDays:   cfg.Scoring.StaleClaimDecayDays,
		StaleClaimDecayFactor: cfg.Scoring.StaleClaimDecayFactor,
		ConflictEpsilon:       cfg.Scoring.ConflictEpsilon,
	})

	pipeline := ingest.New(ingest.Deps{
		Config:     cfg,
		Hubs:       hubs,
		Works:      works,
		Editions:   editions,
		Assets:     assets,
		Claims:     claims,
		Canonical:  canonical,
		TxLog:      txlog,
		Persons:    persons,
		Harvester:  harv,
		Scorer:     scorer,
		Dispatcher: dispatcher,
		Templates:  templates,
	})

	queue := jobs.NewQueue(*redisAddr)
	// TypeHash carries the whole hash->harvest->score->arbitrate->organize
	// chain as one task: the harvester is already internally concurrent
	// (bounded semaphores, SPEC_FULL.md domain stack) and splitting each
	// stage into its own queued task would only add redundant enqueue
	// round-trips without a concurrency benefit. TypeEnrichPerson is queued
	// separately since it runs independently of any one file's ingestion.
	queue.RegisterHandler(jobs.TypeHash, func(ctx context.Context, task *asynq.Task) error {
		path := string(task.Payload())
		return pipeline.Ingest(ctx, path)
	})
	queue.RegisterHandler(jobs.TypeEnrichPerson, func(ctx context.Context, task *asynq.Task) error {
		var req enrichPersonPayload
		if err := json.Unmarshal(task.Payload(), &req); err != nil {
			return fmt.Errorf("decode enrich payload: %w", err)
		}
		return pipeline.EnrichPerson(ctx, req.PersonID, req.Name, req.Role)
	})
	go func() {
		if err := queue.Start(); err != nil {
			log.Printf("job queue worker stopped: %v", err)
		}
	}()
	defer queue.Stop()
	log.Println("job queue started")

	debounceQueue := debounce.New(debounce.DefaultWindow, func(ev debounce.StableEvent) {
		if ev.Kind == watcher.Deleted {
			return
		}
		task := asynq.NewTask(jobs.TypeHash, []byte(ev.Path))
		if err := queue.EnqueueUnique(task, ev.Path); err != nil {
			log.Printf("[watcher] enqueue error for %s: %v", ev.Path, err)
		}
	})

	fsWatcher := watcher.New(func(ev watcher.FileEvent) {
		debounceQueue.Push(ev)
	})
	if err := fsWatcher.AddDirectory(cfg.WatchDirectory, true); err != nil {
		log.Printf("failed to configure watch directory: %v", err)
	} else if err := fsWatcher.Start(); err != nil {
		log.Printf("filesystem watcher failed to start: %v", err)
	} else {
		defer fsWatcher.Stop()
		log.Printf("watching %s for new media", cfg.WatchDirectory)
	}

	scanner := inhale.New(hubs, works, editions, assets, claims, canonical, scorer)
	if result, err := scanner.Scan(cfg.LibraryRoot); err != nil {
		log.Printf("initial library scan failed: %v", err)
	} else {
		log.Printf("great inhale complete: %d hubs, %d editions, %d assets, %d user locks, %d missing files",
			result.HubsSeen, result.EditionsSeen, result.AssetsSeen, result.UserLocksApplied, result.FilesMissing)
	}

	monitor := health.New(dispatcher, health.DefaultInterval, cfg.WatchDirectory, cfg.LibraryRoot)
	if err := monitor.Start(); err != nil {
		log.Printf("folder health monitor failed to start: %v", err)
	} else {
		defer monitor.Stop()
	}

	if cfg.Maintenance.MaxTransactionLogEntries > 0 {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				if err := db.PruneTransactionLog(conn, cfg.Maintenance.MaxTransactionLogEntries); err != nil {
					log.Printf("transaction log prune failed: %v", err)
				}
			}
		}()
	}

	log.Println("tanaste running, press Ctrl+C to stop")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("shutting down")
}

// buildProviders resolves each manifest-declared provider entry to its
// reference adapter and registers it with the database so provider_registry
// reflects what's actually configured (SPEC_FULL.md §7 item 2).
func buildProviders(cfg *config.Config, repo *repository.ProviderRepository) []harvester.RegisteredProvider {
	adapters := map[string]providers.Adapter{
		"openlibrary": providers.NewOpenLibraryAdapter(),
		"audnexus":    providers.NewAudnexusAdapter(),
		"wikidata":    providers.NewWikidataAdapter(),
	}

	registered := make([]harvester.RegisteredProvider, 0, len(cfg.Providers))
	for _, entry := range cfg.Providers {
		adapter, ok := adapters[entry.Name]
		if !ok {
			log.Printf("[providers] no adapter for configured provider %q, skipping", entry.Name)
			continue
		}

		pcfg := models.ProviderConfig{
			Name:           entry.Name,
			Enabled:        entry.Enabled,
			DefaultWeight:  entry.Weight,
			FieldWeights:   entry.FieldWeights,
			Domain:         models.ProviderDomain(entry.Domain),
			CapabilityTags: entry.CapabilityTags,
			BaseURL:        cfg.ProviderEndpoints[entry.Name],
		}
		if err := repo.RegisterProvider(entry.Name, entry.Version, pcfg.BaseURL); err != nil {
			log.Printf("[providers] failed to register %q: %v", entry.Name, err)
		}
		if err := repo.UpsertConfig(pcfg); err != nil {
			log.Printf("[providers] failed to persist config for %q: %v", entry.Name, err)
		}

		registered = append(registered, harvester.RegisteredProvider{Adapter: adapter, Config: pcfg})
	}
	return registered
}

// defaultProviderWeights seeds the Scoring Engine's per-provider fallback
// weight table from the manifest, plus a 1.0 weight for the "user" and
// "sidecar" sources. User-locked claims win regardless of this table: the
// engine gives them an infinite weight.
func defaultProviderWeights(cfg *config.Config) map[string]float64 {
	weights := map[string]float64{"user": 1.0, "sidecar": 1.0}
	for _, entry := range cfg.Providers {
		if entry.Weight > 0 {
			weights[entry.Name] = entry.Weight
		}
	}
	return weights
}
