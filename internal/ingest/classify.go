package ingest

import (
	"path/filepath"
	"strings"

	"github.com/tanaste-io/tanaste/internal/models"
)

// supportedExtensions maps a lowercased file extension to the MediaType it
// represents. Anything else is ReasonUnsupportedFormat.
var supportedExtensions = map[string]models.MediaType{
	".epub": models.MediaTypeEpub,
	".mobi": models.MediaTypeEpub,
	".azw3": models.MediaTypeEpub,
	".m4b":  models.MediaTypeAudiobook,
	".mp3":  models.MediaTypeAudiobook,
	".mp4":  models.MediaTypeMovie,
	".mkv":  models.MediaTypeMovie,
	".avi":  models.MediaTypeMovie,
}

// classifyMediaType returns the MediaType for path's extension, or ok=false
// if the extension isn't recognized.
func classifyMediaType(path string) (models.MediaType, bool) {
	mt, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return mt, ok
}

// titleHint derives a best-effort title from a file's base name, the file
// itself being the only "provider" available before embedded-tag parsing
// (an external collaborator this system doesn't implement; spec.md §1).
func titleHint(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, ".", " ")
	return strings.TrimSpace(name)
}
