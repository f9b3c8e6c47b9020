// Package providers defines the uniform adapter contract external metadata
// sources satisfy, plus a small number of reference adapters (spec.md §4.G).
package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tanaste-io/tanaste/internal/models"
)

// LookupRequest carries every hint a provider might key a lookup on. An
// adapter that needs an identifier it doesn't find here must short-circuit
// to an empty claim slice rather than guess.
type LookupRequest struct {
	EntityKind models.EntityKind
	EntityID   uuid.UUID
	MediaType  models.MediaType

	Title      string
	Author     string
	Narrator   string
	ISBN       string
	ASIN       string
	PersonName string
	PersonRole models.PersonRole

	// BaseURL overrides the adapter's default endpoint. Adapters must
	// never hard-code a host; they honor this field when set.
	BaseURL string
}

// Adapter is the uniform contract every provider satisfies. Fetch must
// never propagate an error: any network failure, timeout, non-2xx status,
// or unparseable response is swallowed and reported as an empty slice
// (spec.md §4.G graceful degradation contract).
type Adapter interface {
	// Name identifies the provider, matching its ProviderConfig.Name.
	Name() string
	// Domain is the media-type domain this adapter serves; Harvester
	// dispatches to it when the entity's media type matches, or when
	// Domain is models.DomainUniversal.
	Domain() models.ProviderDomain
	// Fetch performs the lookup. It never returns an error to the caller;
	// a nil/empty slice means "no claims", for any reason.
	Fetch(ctx context.Context, req LookupRequest) []models.MetadataClaim
}

// DefaultTimeout is the independent per-adapter timeout spec.md §4.G
// mandates absent configuration.
const DefaultTimeout = 10 * time.Second

// claim is a small constructor helper shared by the reference adapters, to
// keep observed_at stamping and entity targeting in one place.
func claim(req LookupRequest, provider, field, value string) models.MetadataClaim {
	return models.MetadataClaim{
		ID:           uuid.New(),
		EntityKind:   req.EntityKind,
		EntityID:     req.EntityID,
		FieldKey:     field,
		Value:        value,
		ProviderName: provider,
		ObservedAt:   time.Now().UTC(),
	}
}
