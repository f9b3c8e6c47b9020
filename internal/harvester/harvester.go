// Package harvester dispatches ProviderLookupRequests to every enabled
// provider adapter whose domain matches, under bounded concurrency
// (spec.md §4.G).
package harvester

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tanaste-io/tanaste/internal/models"
	"github.com/tanaste-io/tanaste/internal/providers"
)

// DefaultPerProviderConcurrency and DefaultGlobalConcurrency are the caps
// spec.md §4.G mandates absent configuration.
const (
	DefaultPerProviderConcurrency = 4
	DefaultGlobalConcurrency      = 16
)

// RegisteredProvider pairs an adapter with its tuning.
type RegisteredProvider struct {
	Adapter providers.Adapter
	Config  models.ProviderConfig
	// Limiter, if non-nil, rate-limits requests to this provider's host
	// (SPEC_FULL.md domain stack: golang.org/x/time/rate, optional).
	Limiter *rate.Limiter
}

// Harvester dispatches lookups concurrently across registered providers.
type Harvester struct {
	providers []RegisteredProvider

	globalSem      *semaphore.Weighted
	perProviderSem map[string]*semaphore.Weighted
}

// New builds a Harvester over the given providers, applying the default
// global and per-provider concurrency caps.
func New(registered []RegisteredProvider) *Harvester {
	perProvider := make(map[string]*semaphore.Weighted, len(registered))
	for _, p := range registered {
		perProvider[p.Adapter.Name()] = semaphore.NewWeighted(DefaultPerProviderConcurrency)
	}
	return &Harvester{
		providers:      registered,
		globalSem:      semaphore.NewWeighted(DefaultGlobalConcurrency),
		perProviderSem: perProvider,
	}
}

// HarvestResult pairs a provider's name with whatever claims it returned,
// so the caller can tell which adapter contributed what even though every
// adapter failure is already swallowed into an empty slice.
type HarvestResult struct {
	Provider string
	Claims   []models.MetadataClaim
}

// indexedResult threads a candidate's original slot through the fan-out so
// results can be placed back in a stable order despite completing out of
// order.
type indexedResult struct {
	idx    int
	result HarvestResult
}

// Harvest dispatches req to every enabled provider whose domain matches
// mediaType (or is Universal), aggregating results. Each adapter gets an
// independent timeout; a slow or failing adapter never blocks the others.
func (h *Harvester) Harvest(ctx context.Context, req providers.LookupRequest, mediaType models.MediaType) []HarvestResult {
	candidates := make([]RegisteredProvider, 0, len(h.providers))
	for _, p := range h.providers {
		if !p.Config.Enabled {
			continue
		}
		if !p.Config.MatchesMediaType(mediaType) {
			continue
		}
		candidates = append(candidates, p)
	}

	results := make(chan indexedResult, len(candidates))
	for i, p := range candidates {
		go h.dispatchOne(ctx, i, p, req, results)
	}

	out := make([]HarvestResult, len(candidates))
	for range candidates {
		r := <-results
		out[r.idx] = r.result
	}
	return out
}

// dispatchOne acquires the global and per-provider semaphores, applies any
// configured rate limiter, runs the adapter under its own timeout, and
// always sends exactly one result — an adapter never blocks the harvest
// beyond its own timeout.
func (h *Harvester) dispatchOne(ctx context.Context, idx int, p RegisteredProvider, req providers.LookupRequest, out chan<- indexedResult) {
	name := p.Adapter.Name()
	empty := func() { out <- indexedResult{idx, HarvestResult{Provider: name}} }

	if err := h.globalSem.Acquire(ctx, 1); err != nil {
		empty()
		return
	}
	defer h.globalSem.Release(1)

	sem := h.perProviderSem[name]
	if err := sem.Acquire(ctx, 1); err != nil {
		empty()
		return
	}
	defer sem.Release(1)

	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			empty()
			return
		}
	}

	adapterCtx, cancel := context.WithTimeout(ctx, providers.DefaultTimeout)
	defer cancel()

	req.BaseURL = p.Config.BaseURL
	claims := p.Adapter.Fetch(adapterCtx, req)
	for i := range claims {
		claims[i].ObservedAt = time.Now().UTC()
	}

	log.Printf("[harvester] %s returned %d claims for entity %s", name, len(claims), req.EntityID)
	out <- indexedResult{idx, HarvestResult{Provider: name, Claims: claims}}
}
