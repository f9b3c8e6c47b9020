package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/tanaste-io/tanaste/internal/models"
)

const defaultWikidataBaseURL = "https://www.wikidata.org"

// WikidataAdapter resolves a person's QID and description (emitted as the
// "biography" claim) by name; it returns no headshot URL. It serves the
// person-enrichment pass (SPEC_FULL.md §7 item 1). It is Universal domain —
// the harvester consults it regardless of media type — grounded on the
// general scraper-contract shape of CineVault's metadata/scraper.go.
type WikidataAdapter struct {
	HTTPClient *http.Client
}

func NewWikidataAdapter() *WikidataAdapter {
	return &WikidataAdapter{HTTPClient: &http.Client{Timeout: DefaultTimeout}}
}

func (a *WikidataAdapter) Name() string                 { return "wikidata" }
func (a *WikidataAdapter) Domain() models.ProviderDomain { return models.DomainUniversal }

type wikidataSearchResponse struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
}

// Fetch short-circuits when no person name is present — Wikidata person
// enrichment has nothing to key a search on otherwise. Any failure (network
// error, timeout, non-2xx, bad JSON) yields an empty slice, never an error;
// ctx's deadline is what bounds the independent per-adapter timeout the
// harvester imposes.
func (a *WikidataAdapter) Fetch(ctx context.Context, req LookupRequest) []models.MetadataClaim {
	name := strings.TrimSpace(req.PersonName)
	if name == "" {
		return nil
	}

	base := req.BaseURL
	if base == "" {
		base = defaultWikidataBaseURL
	}
	endpoint := fmt.Sprintf("%s/w/api.php?action=wbsearchentities&search=%s&language=en&format=json&type=item",
		strings.TrimRight(base, "/"), url.QueryEscape(name))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Printf("[wikidata] build request: %v", err)
		return nil
	}

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		log.Printf("[wikidata] request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[wikidata] non-2xx status %d", resp.StatusCode)
		return nil
	}

	var payload wikidataSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Printf("[wikidata] decode response: %v", err)
		return nil
	}
	if len(payload.Search) == 0 {
		return nil
	}

	best := payload.Search[0]
	var claims []models.MetadataClaim
	if best.ID != "" {
		claims = append(claims, claim(req, a.Name(), "wikidata_qid", best.ID))
	}
	if best.Description != "" {
		claims = append(claims, claim(req, a.Name(), "biography", best.Description))
	}
	return claims
}
