// Package arbiter decides whether a newly scored Work links to an existing
// Hub, needs human review, or anchors a brand new Hub (spec.md §4.I).
package arbiter

import (
	"strings"

	"github.com/tanaste-io/tanaste/internal/models"
)

// Config tunes the Arbiter's thresholds, mirroring config.ScoringConfig's
// auto_link_threshold/conflict_threshold.
type Config struct {
	AutoLinkThreshold float64
	ConflictThreshold float64
}

// Candidate is one Hub under consideration, reduced to the identity fields
// similarity is computed over.
type Candidate struct {
	Hub    models.Hub
	Title  string // normalized title of an existing representative Work, if known
	Author string
}

// Decision is the Arbiter's verdict for one Work.
type Decision struct {
	Status    models.ArbiterStatus
	Hub       *models.Hub // non-nil only for StatusAutoLinked
	BestScore float64
}

// Decide scores title/author against every candidate and returns the
// three-way verdict per spec.md §4.I.
func Decide(cfg Config, title, author string, year *int, candidates []Candidate) Decision {
	var best Candidate
	var bestScore float64
	found := false

	for _, c := range candidates {
		score := similarity(title, author, year, c)
		if !found || score > bestScore {
			best = c
			bestScore = score
			found = true
		}
	}

	if !found {
		return Decision{Status: models.StatusNewHub, BestScore: 0}
	}

	switch {
	case bestScore >= cfg.AutoLinkThreshold:
		hub := best.Hub
		return Decision{Status: models.StatusAutoLinked, Hub: &hub, BestScore: bestScore}
	case bestScore >= cfg.ConflictThreshold:
		return Decision{Status: models.StatusNeedsReview, BestScore: bestScore}
	default:
		return Decision{Status: models.StatusNewHub, BestScore: bestScore}
	}
}

// similarity combines token-set Jaccard similarity of the normalized
// title+author identity with a year-proximity factor (spec.md §4.I).
func similarity(title, author string, year *int, c Candidate) float64 {
	identityA := tokenSet(title + " " + author)
	identityB := tokenSet(c.Title + " " + c.Author)
	jaccard := jaccardSimilarity(identityA, identityB)

	yearFactor := yearProximity(year, c.Hub.Year)
	return jaccard * yearFactor
}

// tokenSet lowercases and splits on whitespace, returning a set of unique
// tokens.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccardSimilarity computes |A ∩ B| / |A ∪ B|. Two empty sets are treated
// as having no similarity, since there is no identity to compare.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// yearProximity returns the factor spec.md §4.I defines: 1.0 within one
// year, 0.7 within three years, 0.4 otherwise. Either year being unknown is
// treated as "else" (0.4) — absence of evidence isn't evidence of a match.
func yearProximity(a, b *int) float64 {
	if a == nil || b == nil {
		return 0.4
	}
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 1:
		return 1.0
	case diff <= 3:
		return 0.7
	default:
		return 0.4
	}
}
