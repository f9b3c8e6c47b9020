package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/tanaste-io/tanaste/internal/models"
)

const defaultAudnexusBaseURL = "https://api.audnex.us"

// AudnexusAdapter looks up audiobooks by ASIN. Like OpenLibrary's ISBN
// bibkey lookup, Audnexus has no title-search fallback: the adapter makes
// zero network calls when the ASIN is missing, grounded on CineVault's
// metadata/audnexus.go (whose Search is a permanent no-op for the same
// reason).
type AudnexusAdapter struct {
	HTTPClient *http.Client
}

func NewAudnexusAdapter() *AudnexusAdapter {
	return &AudnexusAdapter{HTTPClient: &http.Client{Timeout: DefaultTimeout}}
}

func (a *AudnexusAdapter) Name() string                 { return "audnexus" }
func (a *AudnexusAdapter) Domain() models.ProviderDomain { return models.DomainAudiobook }

type audnexusBookResponse struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate"`
	Image       string `json:"image"`
	Narrators   []struct {
		Name string `json:"name"`
	} `json:"narrators"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

// Fetch short-circuits to no claims when ASIN is absent (spec.md §4.G:
// "Audnexus without an ASIN makes zero network calls").
func (a *AudnexusAdapter) Fetch(ctx context.Context, req LookupRequest) []models.MetadataClaim {
	asin := strings.TrimSpace(req.ASIN)
	if asin == "" {
		return nil
	}

	base := req.BaseURL
	if base == "" {
		base = defaultAudnexusBaseURL
	}
	endpoint := fmt.Sprintf("%s/books/%s", strings.TrimRight(base, "/"), asin)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Printf("[audnexus] build request: %v", err)
		return nil
	}

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		log.Printf("[audnexus] request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[audnexus] non-2xx status %d", resp.StatusCode)
		return nil
	}

	var book audnexusBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		log.Printf("[audnexus] decode response: %v", err)
		return nil
	}

	var claims []models.MetadataClaim
	if book.Title != "" {
		claims = append(claims, claim(req, a.Name(), "title", book.Title))
	}
	if len(book.Authors) > 0 && book.Authors[0].Name != "" {
		claims = append(claims, claim(req, a.Name(), "author", book.Authors[0].Name))
	}
	if len(book.Narrators) > 0 && book.Narrators[0].Name != "" {
		claims = append(claims, claim(req, a.Name(), "narrator", book.Narrators[0].Name))
	}
	if year := parsePublishYear(book.ReleaseDate); year != "" {
		claims = append(claims, claim(req, a.Name(), "release_year", year))
	}
	if book.Image != "" {
		claims = append(claims, claim(req, a.Name(), "cover", book.Image))
	}
	return claims
}
