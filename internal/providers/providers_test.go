package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

func TestAudnexusAdapter_ShortCircuitsWithoutASIN(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := &AudnexusAdapter{HTTPClient: srv.Client()}
	req := LookupRequest{
		EntityKind: models.EntityEdition,
		EntityID:   uuid.New(),
		BaseURL:    srv.URL,
	}

	claims := a.Fetch(context.Background(), req)
	if claims != nil {
		t.Fatalf("Fetch() = %v, want nil", claims)
	}
	if calls != 0 {
		t.Fatalf("expected zero network calls without an ASIN, got %d", calls)
	}
}

func TestAudnexusAdapter_GracefulDegradationOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := &AudnexusAdapter{HTTPClient: srv.Client()}
	req := LookupRequest{
		EntityKind: models.EntityEdition,
		EntityID:   uuid.New(),
		ASIN:       "B00ABCXYZ",
		BaseURL:    srv.URL,
	}

	claims := a.Fetch(context.Background(), req)
	if claims != nil {
		t.Fatalf("Fetch() = %v, want nil on server error", claims)
	}
}

// TestWikidataAdapter_GracefulTimeout exercises the graceful-timeout
// contract: a provider whose server hangs past the context deadline must
// still return an empty slice, never an error or a panic.
func TestWikidataAdapter_GracefulTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := &WikidataAdapter{HTTPClient: srv.Client()}
	req := LookupRequest{
		EntityKind: models.EntityPerson,
		EntityID:   uuid.New(),
		PersonName: "Frank Herbert",
		BaseURL:    srv.URL,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	claims := a.Fetch(ctx, req)
	if claims != nil {
		t.Fatalf("Fetch() = %v, want nil on context timeout", claims)
	}
}

func TestWikidataAdapter_ShortCircuitsWithoutPersonName(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	a := &WikidataAdapter{HTTPClient: srv.Client()}
	req := LookupRequest{EntityKind: models.EntityPerson, EntityID: uuid.New(), BaseURL: srv.URL}

	claims := a.Fetch(context.Background(), req)
	if claims != nil {
		t.Fatalf("Fetch() = %v, want nil", claims)
	}
	if calls != 0 {
		t.Fatalf("expected zero network calls without a person name, got %d", calls)
	}
}

func TestOpenLibraryAdapter_ShortCircuitsWithoutISBN(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	a := &OpenLibraryAdapter{HTTPClient: srv.Client()}
	req := LookupRequest{EntityKind: models.EntityEdition, EntityID: uuid.New(), BaseURL: srv.URL}

	claims := a.Fetch(context.Background(), req)
	if claims != nil {
		t.Fatalf("Fetch() = %v, want nil", claims)
	}
	if calls != 0 {
		t.Fatalf("expected zero network calls without an ISBN, got %d", calls)
	}
}

func TestParsePublishYear(t *testing.T) {
	cases := map[string]string{
		"1965":          "1965",
		"March 1965":    "1965",
		"1965-03-01":    "1965",
		"":              "",
		"unknown":       "",
	}
	for in, want := range cases {
		if got := parsePublishYear(in); got != want {
			t.Errorf("parsePublishYear(%q) = %q, want %q", in, got, want)
		}
	}
}
