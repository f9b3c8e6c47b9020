package arbiter

import (
	"testing"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

func intPtr(v int) *int { return &v }

func defaultConfig() Config {
	return Config{AutoLinkThreshold: 0.85, ConflictThreshold: 0.60}
}

func TestDecide_AutoLinksOnHighSimilarity(t *testing.T) {
	candidates := []Candidate{
		{Hub: models.Hub{ID: uuid.New(), DisplayName: "Dune", Year: intPtr(1965)}, Title: "Dune", Author: "Frank Herbert"},
	}
	d := Decide(defaultConfig(), "Dune", "Frank Herbert", intPtr(1965), candidates)
	if d.Status != models.StatusAutoLinked {
		t.Fatalf("Status = %v, want AutoLinked (score %v)", d.Status, d.BestScore)
	}
	if d.Hub == nil || d.Hub.DisplayName != "Dune" {
		t.Fatal("expected the matching hub to be returned")
	}
}

func TestDecide_NeedsReviewInMiddleBand(t *testing.T) {
	// jaccard({dune,frank,herbert}, {dune,extended,edition,frank,herbert}) =
	// 3/5 = 0.6, year factor 1.0 (same year) -> combined score 0.6, landing
	// exactly in the [conflict_threshold, auto_link_threshold) band.
	candidates := []Candidate{
		{Hub: models.Hub{ID: uuid.New(), DisplayName: "Dune Extended Edition", Year: intPtr(1965)}, Title: "Dune Extended Edition", Author: "Frank Herbert"},
	}
	d := Decide(defaultConfig(), "Dune", "Frank Herbert", intPtr(1965), candidates)
	if d.Status != models.StatusNeedsReview {
		t.Fatalf("Status = %v, want NeedsReview (score %v)", d.Status, d.BestScore)
	}
	if d.Hub != nil {
		t.Fatal("NeedsReview must never carry a linked hub")
	}
}

func TestDecide_NewHubWhenNoCandidatesClose(t *testing.T) {
	candidates := []Candidate{
		{Hub: models.Hub{ID: uuid.New(), DisplayName: "Foundation", Year: intPtr(1951)}, Title: "Foundation", Author: "Isaac Asimov"},
	}
	d := Decide(defaultConfig(), "Dune", "Frank Herbert", intPtr(1965), candidates)
	if d.Status != models.StatusNewHub {
		t.Fatalf("Status = %v, want NewHub (score %v)", d.Status, d.BestScore)
	}
}

func TestDecide_NewHubWithNoCandidatesAtAll(t *testing.T) {
	d := Decide(defaultConfig(), "Dune", "Frank Herbert", intPtr(1965), nil)
	if d.Status != models.StatusNewHub {
		t.Fatalf("Status = %v, want NewHub", d.Status)
	}
}

func TestDecide_NeverAutoLinksBelowThreshold(t *testing.T) {
	candidates := []Candidate{
		{Hub: models.Hub{ID: uuid.New(), DisplayName: "Dune Messiah", Year: intPtr(1969)}, Title: "Dune Messiah", Author: "Frank Herbert"},
	}
	d := Decide(defaultConfig(), "Dune", "Frank Herbert", intPtr(1965), candidates)
	if d.Status == models.StatusAutoLinked {
		t.Fatalf("hub integrity violated: auto-linked at score %v below threshold", d.BestScore)
	}
}

func TestYearProximity(t *testing.T) {
	cases := []struct {
		a, b int
		want float64
	}{
		{1965, 1965, 1.0},
		{1965, 1966, 1.0},
		{1965, 1968, 0.7},
		{1965, 1970, 0.4},
	}
	for _, c := range cases {
		a, b := c.a, c.b
		if got := yearProximity(&a, &b); got != c.want {
			t.Errorf("yearProximity(%d, %d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestJaccardSimilarity_IdenticalSets(t *testing.T) {
	a := tokenSet("Dune Frank Herbert")
	b := tokenSet("dune frank herbert")
	if got := jaccardSimilarity(a, b); got != 1.0 {
		t.Fatalf("jaccardSimilarity() = %v, want 1.0 for case-insensitive identical sets", got)
	}
}
