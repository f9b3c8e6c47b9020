package ingest

import (
	"strconv"
	"strings"

	"github.com/tanaste-io/tanaste/internal/models"
	"github.com/tanaste-io/tanaste/internal/organizer"
)

// TemplateCandidate is the token source CalculatePath resolves an
// organization_template against, one per file about to be organized
// (spec.md §4.C, §8 item 5).
type TemplateCandidate struct {
	Category string
	HubName  string
	Year     *int
	Format   string
	Edition  string
	Ext      string
}

// NewDefaultRegistry registers the token set spec.md §8 item 5 exercises:
// Category, HubName, Year, Format, Edition, Ext.
func NewDefaultRegistry() *organizer.Registry {
	r := organizer.NewRegistry()

	r.Register("Category", func(candidate interface{}) (string, bool) {
		c := candidate.(TemplateCandidate)
		return c.Category, c.Category != ""
	}, "Books")

	r.Register("HubName", func(candidate interface{}) (string, bool) {
		c := candidate.(TemplateCandidate)
		return c.HubName, c.HubName != ""
	}, "Dune")

	r.Register("Year", func(candidate interface{}) (string, bool) {
		c := candidate.(TemplateCandidate)
		if c.Year == nil {
			return "", false
		}
		return strconv.Itoa(*c.Year), true
	}, "1965")

	r.Register("Format", func(candidate interface{}) (string, bool) {
		c := candidate.(TemplateCandidate)
		return c.Format, c.Format != ""
	}, "Epub")

	r.Register("Edition", func(candidate interface{}) (string, bool) {
		c := candidate.(TemplateCandidate)
		return c.Edition, c.Edition != ""
	}, "1st Edition")

	r.Register("Ext", func(candidate interface{}) (string, bool) {
		c := candidate.(TemplateCandidate)
		return c.Ext, c.Ext != ""
	}, ".epub")

	return r
}

// categoryForMediaType names the top-level shelf a media type organizes
// under.
func categoryForMediaType(mt models.MediaType) string {
	switch mt {
	case models.MediaTypeEpub:
		return "Books"
	case models.MediaTypeAudiobook:
		return "Audiobooks"
	case models.MediaTypeMovie:
		return "Movies"
	default:
		return "Unsorted"
	}
}

// formatLabel title-cases a media type for display in a path, e.g. "epub" ->
// "Epub".
func formatLabel(mt models.MediaType) string {
	s := string(mt)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
