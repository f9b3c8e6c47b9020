// Package scoring resolves competing metadata claims into one canonical
// value per (entity, field) (spec.md §4.H).
package scoring

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tanaste-io/tanaste/internal/models"
)

// Config holds the tuning knobs the scoring engine is driven by. It mirrors
// config.ScoringConfig plus the per-provider weight tables the Scoring
// Engine needs that ScoringConfig doesn't carry directly.
type Config struct {
	DefaultProviderWeight map[string]float64
	FieldWeights          map[string]map[string]float64 // [provider][field]
	StaleClaimDecayDays    float64
	StaleClaimDecayFactor  float64
	ConflictEpsilon        float64
}

// globalDefaultWeight is the fallback when neither a field-specific nor a
// provider-default weight is configured (spec.md §9 Open Question, resolved
// in DESIGN.md: global default of 1.0).
const globalDefaultWeight = 1.0

// Engine serializes re-scoring per entity via a keyed mutex: concurrent
// Score calls for the same entity run one after another, each over the
// claims passed to it. Concurrent calls are not merged into one.
type Engine struct {
	cfg Config

	entityLocks sync.Map // map[string]*sync.Mutex, keyed by entity_id
}

// New creates an Engine driven by cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) lockFor(entityID string) *sync.Mutex {
	v, _ := e.entityLocks.LoadOrStore(entityID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Score re-scores every field present in claims for one entity, producing
// one CanonicalValue per field_key. claims must all belong to the same
// entity; callers are responsible for fetching the full, current claim set
// before calling Score so a concurrent re-score sees the union.
func (e *Engine) Score(entity models.EntityRef, claims []models.MetadataClaim, now time.Time) []models.CanonicalValue {
	mu := e.lockFor(entity.ID.String())
	mu.Lock()
	defer mu.Unlock()

	byField := make(map[string][]models.MetadataClaim)
	for _, c := range claims {
		byField[c.FieldKey] = append(byField[c.FieldKey], c)
	}

	fields := make([]string, 0, len(byField))
	for f := range byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	results := make([]models.CanonicalValue, 0, len(fields))
	for _, field := range fields {
		results = append(results, e.scoreField(entity, field, byField[field], now))
	}
	return results
}

// scoreField implements spec.md §4.H steps 1-6 for a single field.
func (e *Engine) scoreField(entity models.EntityRef, field string, claims []models.MetadataClaim, now time.Time) models.CanonicalValue {
	type group struct {
		value       string
		totalWeight float64
		mostRecent  time.Time
		bestProv    string
	}
	groups := make(map[string]*group)
	var totalAllGroups float64

	for _, c := range claims {
		key := normalizeValue(c.Value)
		g, ok := groups[key]
		if !ok {
			g = &group{value: strings.TrimSpace(c.Value)}
			groups[key] = g
		}

		w := e.effectiveWeight(c, now)
		if math.IsInf(w, 1) {
			// A user lock wins unconditionally: collapse to a single
			// winning group regardless of any other claim's weight.
			return models.CanonicalValue{
				EntityKind:   entity.Kind,
				EntityID:     entity.ID,
				FieldKey:     field,
				Value:        strings.TrimSpace(c.Value),
				LastScoredAt: now,
				IsConflicted: false,
			}
		}

		g.totalWeight += w
		totalAllGroups += w
		if c.ObservedAt.After(g.mostRecent) || (c.ObservedAt.Equal(g.mostRecent) && (g.bestProv == "" || c.ProviderName < g.bestProv)) {
			g.mostRecent = c.ObservedAt
			g.bestProv = c.ProviderName
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// Deterministic candidate ordering before applying the tie-break rule:
	// by descending normalized weight, then most-recent observed_at, then
	// lexicographic provider name (spec.md §4.H step 4).
	sort.Slice(keys, func(i, j int) bool {
		gi, gj := groups[keys[i]], groups[keys[j]]
		if gi.totalWeight != gj.totalWeight {
			return gi.totalWeight > gj.totalWeight
		}
		if !gi.mostRecent.Equal(gj.mostRecent) {
			return gi.mostRecent.After(gj.mostRecent)
		}
		return gi.bestProv < gj.bestProv
	})

	winnerKey := keys[0]
	winner := groups[winnerKey]
	winnerNorm := winner.totalWeight
	if totalAllGroups > 0 {
		winnerNorm = winner.totalWeight / totalAllGroups
	}

	conflicted := false
	if len(keys) > 1 {
		runnerUp := groups[keys[1]]
		runnerUpNorm := runnerUp.totalWeight
		if totalAllGroups > 0 {
			runnerUpNorm = runnerUp.totalWeight / totalAllGroups
		}
		if winnerNorm-runnerUpNorm <= e.cfg.ConflictEpsilon {
			conflicted = true
		}
	}

	return models.CanonicalValue{
		EntityKind:   entity.Kind,
		EntityID:     entity.ID,
		FieldKey:     field,
		Value:        winner.value,
		LastScoredAt: now,
		IsConflicted: conflicted,
	}
}

// effectiveWeight computes a claim's weight per spec.md §4.H step 2. A user
// lock returns +Inf, the caller's signal to short-circuit the whole field.
func (e *Engine) effectiveWeight(c models.MetadataClaim, now time.Time) float64 {
	if c.IsUserLocked {
		return math.Inf(1)
	}

	w := globalDefaultWeight
	if dw, ok := e.cfg.DefaultProviderWeight[c.ProviderName]; ok {
		w = dw
	}
	if perField, ok := e.cfg.FieldWeights[c.ProviderName]; ok {
		if fw, ok := perField[c.FieldKey]; ok {
			w = fw
		}
	}

	if e.cfg.StaleClaimDecayDays > 0 {
		age := now.Sub(c.ObservedAt)
		if age.Hours()/24 > e.cfg.StaleClaimDecayDays {
			w *= e.cfg.StaleClaimDecayFactor
		}
	}
	return w
}

// normalizeValue produces the NFC-normalized, trimmed key used to partition
// claims by byte-exact value (spec.md §4.H step 1).
func normalizeValue(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}
