package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tanaste-io/tanaste/internal/models"
)

// defaultOpenLibraryBaseURL is used only when the request doesn't override
// it; adapters must always honor request.BaseURL when set.
const defaultOpenLibraryBaseURL = "https://openlibrary.org"

// OpenLibraryAdapter looks up ebook editions by ISBN, grounded on
// CineVault's metadata/scraper_openlibrary.go.
type OpenLibraryAdapter struct {
	HTTPClient *http.Client
}

// NewOpenLibraryAdapter builds an adapter with the contract's default
// 10-second per-call timeout.
func NewOpenLibraryAdapter() *OpenLibraryAdapter {
	return &OpenLibraryAdapter{HTTPClient: &http.Client{Timeout: DefaultTimeout}}
}

func (a *OpenLibraryAdapter) Name() string                  { return "openlibrary" }
func (a *OpenLibraryAdapter) Domain() models.ProviderDomain  { return models.DomainEbook }

type openLibraryBookResponse struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	PublishDate string `json:"publish_date"`
	Cover       struct {
		Large string `json:"large"`
	} `json:"cover"`
}

// Fetch short-circuits to no claims when ISBN is absent, since OpenLibrary's
// bibkey lookup requires one. Any network or parse failure is swallowed.
func (a *OpenLibraryAdapter) Fetch(ctx context.Context, req LookupRequest) []models.MetadataClaim {
	isbn := strings.TrimSpace(req.ISBN)
	if isbn == "" {
		return nil
	}

	base := req.BaseURL
	if base == "" {
		base = defaultOpenLibraryBaseURL
	}

	endpoint := fmt.Sprintf("%s/api/books?bibkeys=ISBN:%s&format=json&jscmd=data",
		strings.TrimRight(base, "/"), url.QueryEscape(isbn))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Printf("[openlibrary] build request: %v", err)
		return nil
	}

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		log.Printf("[openlibrary] request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[openlibrary] non-2xx status %d", resp.StatusCode)
		return nil
	}

	var payload map[string]openLibraryBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Printf("[openlibrary] decode response: %v", err)
		return nil
	}

	book, ok := payload["ISBN:"+isbn]
	if !ok {
		return nil
	}

	var claims []models.MetadataClaim
	if book.Title != "" {
		claims = append(claims, claim(req, a.Name(), "title", book.Title))
	}
	if len(book.Authors) > 0 && book.Authors[0].Name != "" {
		claims = append(claims, claim(req, a.Name(), "author", book.Authors[0].Name))
	}
	if year := parsePublishYear(book.PublishDate); year != "" {
		claims = append(claims, claim(req, a.Name(), "release_year", year))
	}
	if book.Cover.Large != "" {
		claims = append(claims, claim(req, a.Name(), "cover", book.Cover.Large))
	}
	return claims
}

// parsePublishYear pulls a 4-digit year out of OpenLibrary's loosely
// formatted publish_date field ("1965", "March 1965", "1965-03-01").
func parsePublishYear(raw string) string {
	fields := strings.Fields(raw)
	for _, f := range fields {
		f = strings.Trim(f, ",.")
		if len(f) >= 4 {
			if _, err := strconv.Atoi(f[:4]); err == nil {
				return f[:4]
			}
		}
	}
	return ""
}
