// Package models holds the core entities of the library intelligence engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

// MediaType classifies the physical kind of a MediaAsset.
type MediaType string

const (
	MediaTypeEpub      MediaType = "epub"
	MediaTypeAudiobook MediaType = "audiobook"
	MediaTypeMovie     MediaType = "movie"
	MediaTypeUnknown   MediaType = "unknown"
)

// PersonRole classifies a Person's relationship to the media they're linked to.
type PersonRole string

const (
	RoleAuthor   PersonRole = "author"
	RoleNarrator PersonRole = "narrator"
	RoleDirector PersonRole = "director"
)

// ProfileRole is the access level of a local user Profile.
type ProfileRole string

const (
	ProfileAdministrator ProfileRole = "administrator"
	ProfileCurator       ProfileRole = "curator"
	ProfileViewer        ProfileRole = "viewer"
)

// ProviderDomain scopes which media types a provider is consulted for.
type ProviderDomain string

const (
	DomainUniversal  ProviderDomain = "universal"
	DomainEbook      ProviderDomain = "ebook"
	DomainAudiobook  ProviderDomain = "audiobook"
	DomainVideo      ProviderDomain = "video"
)

// EntityKind tags which table an EntityRef points into. Claims and canonical
// values reference "an entity" that may be any of these kinds; we represent
// the owner as a tagged variant persisted as two columns rather than reaching
// for an inheritance hierarchy (see DESIGN.md / spec.md §9).
type EntityKind string

const (
	EntityWork       EntityKind = "work"
	EntityEdition    EntityKind = "edition"
	EntityMediaAsset EntityKind = "media_asset"
	EntityPerson     EntityKind = "person"
)

// EntityRef is the polymorphic owner of a MetadataClaim or CanonicalValue.
type EntityRef struct {
	Kind EntityKind
	ID   uuid.UUID
}

// ArbiterStatus is the outcome of an Arbiter decision for a newly scored Work.
type ArbiterStatus string

const (
	StatusAutoLinked  ArbiterStatus = "auto_linked"
	StatusNeedsReview ArbiterStatus = "needs_review"
	StatusNewHub      ArbiterStatus = "new_hub"
)

// ──────────────────── Hub ────────────────────

// Hub is the identity anchor grouping related Works (e.g. "The Hobbit"
// across formats, translations, and editions).
type Hub struct {
	ID            uuid.UUID `json:"id" db:"id"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	Franchise     *string   `json:"franchise,omitempty" db:"franchise"`
	WikidataQID   *string   `json:"wikidata_qid,omitempty" db:"wikidata_qid"`
	Year          *int      `json:"year,omitempty" db:"year"`
	LastOrganized *time.Time `json:"last_organized,omitempty" db:"last_organized"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Work ────────────────────

// Work is one creative work. A Work is normally owned by exactly one Hub;
// the ownership field lives on the Work (hub_id), not as a back-pointer
// container on the Hub — "Hub owns its Works" is discovered by query.
// HubID is nil and NeedsReview is true while the Arbiter's similarity score
// falls in the review band: the Work is scored and stored, but no Hub is
// linked or minted on its behalf until a human resolves the ambiguity.
type Work struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	HubID       *uuid.UUID `json:"hub_id,omitempty" db:"hub_id"`
	NeedsReview bool       `json:"needs_review" db:"needs_review"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Edition ────────────────────

// Edition is one published form of a Work (e.g. "Hardback 1st ed.").
type Edition struct {
	ID           uuid.UUID `json:"id" db:"id"`
	WorkID       uuid.UUID `json:"work_id" db:"work_id"`
	Format       string    `json:"format" db:"format"`
	EditionLabel string    `json:"edition_label" db:"edition_label"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── MediaAsset ────────────────────

// MediaAsset is one physical file on disk.
type MediaAsset struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	EditionID     uuid.UUID  `json:"edition_id" db:"edition_id"`
	ContentHash   string     `json:"content_hash" db:"content_hash"`
	MediaType     MediaType  `json:"media_type" db:"media_type"`
	CurrentPath   string     `json:"current_path" db:"current_path"`
	FileSizeBytes int64      `json:"file_size_bytes" db:"file_size_bytes"`
	IsDetached    bool       `json:"is_detached" db:"is_detached"`
	MissingScans  int        `json:"missing_scans" db:"missing_scans"`
	RetiredAt     *time.Time `json:"retired_at,omitempty" db:"retired_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Ref returns this asset's polymorphic entity reference.
func (m *MediaAsset) Ref() EntityRef { return EntityRef{Kind: EntityMediaAsset, ID: m.ID} }

// ──────────────────── Person ────────────────────

// Person is a creator linked to assets (author, narrator, director).
type Person struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Role        PersonRole `json:"role" db:"role"`
	WikidataQID *string    `json:"wikidata_qid,omitempty" db:"wikidata_qid"`
	HeadshotURL *string    `json:"headshot_url,omitempty" db:"headshot_url"`
	Biography   *string    `json:"biography,omitempty" db:"biography"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	EnrichedAt  *time.Time `json:"enriched_at,omitempty" db:"enriched_at"`
}

// Ref returns this person's polymorphic entity reference.
func (p *Person) Ref() EntityRef { return EntityRef{Kind: EntityPerson, ID: p.ID} }

// ──────────────────── MetadataClaim ────────────────────

// MetadataClaim is one provider's assertion about one (entity, field) pair.
// Immutable once written; never updated in place, only superseded by a newer
// claim from the same provider via insertion.
type MetadataClaim struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	EntityKind   EntityKind `json:"entity_kind" db:"entity_kind"`
	EntityID     uuid.UUID  `json:"entity_id" db:"entity_id"`
	FieldKey     string     `json:"field_key" db:"field_key"`
	Value        string     `json:"value" db:"value"`
	ProviderName string     `json:"provider_name" db:"provider_name"`
	ObservedAt   time.Time  `json:"observed_at" db:"observed_at"`
	IsUserLocked bool       `json:"is_user_locked" db:"is_user_locked"`
}

// Entity returns the claim's polymorphic owner reference.
func (c *MetadataClaim) Entity() EntityRef {
	return EntityRef{Kind: c.EntityKind, ID: c.EntityID}
}

// ──────────────────── CanonicalValue ────────────────────

// CanonicalValue is the scored winner for one (entity, field) pair.
type CanonicalValue struct {
	EntityKind   EntityKind `json:"entity_kind" db:"entity_kind"`
	EntityID     uuid.UUID  `json:"entity_id" db:"entity_id"`
	FieldKey     string     `json:"field_key" db:"field_key"`
	Value        string     `json:"value" db:"value"`
	LastScoredAt time.Time  `json:"last_scored_at" db:"last_scored_at"`
	IsConflicted bool       `json:"is_conflicted" db:"is_conflicted"`
}

// Entity returns the canonical value's polymorphic owner reference.
func (c *CanonicalValue) Entity() EntityRef {
	return EntityRef{Kind: c.EntityKind, ID: c.EntityID}
}

// ──────────────────── Profile ────────────────────

// Profile is a local user identity with a role. The seed profile is
// protected from deletion; at least one Administrator must always exist.
type Profile struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	Role       ProfileRole `json:"role" db:"role"`
	IsSeed     bool        `json:"is_seed" db:"is_seed"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// ──────────────────── ProviderConfig ────────────────────

// ProviderConfig is per-provider tuning: weight, domain, field overrides.
type ProviderConfig struct {
	Name           string             `json:"name" db:"name"`
	Enabled        bool               `json:"enabled" db:"enabled"`
	DefaultWeight  float64            `json:"default_weight" db:"default_weight"`
	FieldWeights   map[string]float64 `json:"field_weights" db:"-"`
	Domain         ProviderDomain     `json:"domain" db:"domain"`
	CapabilityTags []string           `json:"capability_tags" db:"-"`
	BaseURL        string             `json:"base_url" db:"base_url"`
}

// MatchesMediaType reports whether this provider should be consulted for an
// asset of the given media type: Universal providers apply to everything,
// otherwise the domain must line up with the media type's natural domain.
func (p ProviderConfig) MatchesMediaType(mt MediaType) bool {
	if p.Domain == DomainUniversal {
		return true
	}
	switch mt {
	case MediaTypeEpub:
		return p.Domain == DomainEbook
	case MediaTypeAudiobook:
		return p.Domain == DomainAudiobook
	case MediaTypeMovie:
		return p.Domain == DomainVideo
	default:
		return false
	}
}
