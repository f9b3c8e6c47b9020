// Package sidecar reads and writes the per-folder tanaste.xml files that are
// the authoritative source of truth for the library (spec.md §4.B). Writes
// are atomic; reads are tolerant — malformed or mismatched XML yields a nil
// result, never an error, the same way CineVault's nfo.go treats an NFO
// without a recognizable root element as "not real metadata" rather than a
// failure.
package sidecar

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the sidecar's fixed filename, shared by both shapes.
const FileName = "tanaste.xml"

// UserLock is one user-pinned field override recorded in an edition sidecar.
type UserLock struct {
	Key      string    `xml:"key"`
	Value    string    `xml:"value"`
	LockedAt time.Time `xml:"locked_at"`
}

// Hub is the hub-level sidecar shape, root <tanaste-hub>.
type Hub struct {
	XMLName       xml.Name   `xml:"tanaste-hub"`
	DisplayName   string     `xml:"display_name"`
	Year          *int       `xml:"year,omitempty"`
	WikidataQID   string     `xml:"wikidata_qid,omitempty"`
	Franchise     string     `xml:"franchise,omitempty"`
	LastOrganized time.Time  `xml:"last_organized"`
}

// Edition is the edition-level sidecar shape, root <tanaste-edition>.
type Edition struct {
	XMLName       xml.Name   `xml:"tanaste-edition"`
	Title         string     `xml:"title,omitempty"`
	Author        string     `xml:"author,omitempty"`
	MediaType     string     `xml:"media_type,omitempty"`
	ISBN          string     `xml:"isbn,omitempty"`
	ASIN          string     `xml:"asin,omitempty"`
	ContentHash   string     `xml:"content_hash"`
	CoverPath     string     `xml:"cover_path"`
	UserLocks     []UserLock `xml:"user_locks>lock"`
	LastOrganized time.Time  `xml:"last_organized"`
}

// pathLocks serializes writes per target path, as a keyed mutex — distinct
// paths may be written concurrently, but the same path is never written
// twice at once.
var pathLocks sync.Map // map[string]*sync.Mutex

func lockFor(path string) *sync.Mutex {
	v, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// WriteHub atomically writes a hub-level sidecar to dir/tanaste.xml.
func WriteHub(dir string, h *Hub) error {
	if h.LastOrganized.IsZero() {
		h.LastOrganized = time.Now().UTC()
	}
	return writeAtomic(filepath.Join(dir, FileName), h)
}

// WriteEdition atomically writes an edition-level sidecar to dir/tanaste.xml.
func WriteEdition(dir string, e *Edition) error {
	if e.ContentHash == "" {
		return fmt.Errorf("sidecar: edition content_hash is required")
	}
	if e.CoverPath == "" {
		e.CoverPath = "cover.jpg"
	}
	if e.LastOrganized.IsZero() {
		e.LastOrganized = time.Now().UTC()
	}
	return writeAtomic(filepath.Join(dir, FileName), e)
}

// writeAtomic serializes v to two-space-indented, LF-terminated UTF-8 XML
// and swaps it into place via tempfile + fsync + rename, grounded on
// mutagen's filesystem.WriteFileAtomic (_examples/mutagen-io-mutagen/pkg/
// filesystem/atomic.go): create a sibling temp file, write, fsync, close,
// rename over the final path. Writes to the same path are serialized by a
// keyed mutex so concurrent writers never interleave.
func writeAtomic(path string, v interface{}) error {
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	out := append([]byte(xml.Header), body...)
	out = append(out, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create sidecar directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tanaste-sidecar-*")
	if err != nil {
		return fmt.Errorf("create temp sidecar: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp sidecar: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fsync temp sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp sidecar: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp sidecar: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp sidecar: %w", err)
	}
	return nil
}

// ReadHub reads dir/tanaste.xml and returns nil (not an error) if the file
// is missing, unreadable, malformed, or not a hub-shaped sidecar.
func ReadHub(dir string) *Hub {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil
	}
	var h Hub
	if err := xml.Unmarshal(data, &h); err != nil {
		return nil
	}
	if h.XMLName.Local != "tanaste-hub" {
		return nil
	}
	if h.DisplayName == "" {
		return nil
	}
	return &h
}

// ReadEdition reads dir/tanaste.xml and returns nil (not an error) if the
// file is missing, unreadable, malformed, or not an edition-shaped sidecar.
func ReadEdition(dir string) *Edition {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil
	}
	var e Edition
	if err := xml.Unmarshal(data, &e); err != nil {
		return nil
	}
	if e.XMLName.Local != "tanaste-edition" {
		return nil
	}
	if e.ContentHash == "" {
		return nil
	}
	return &e
}
