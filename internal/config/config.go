// Package config loads and validates the tanaste_master.json manifest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cast"
)

// ScoringConfig tunes the Scoring Engine (spec.md §4.H).
type ScoringConfig struct {
	AutoLinkThreshold    float64 `json:"auto_link_threshold"`
	ConflictThreshold    float64 `json:"conflict_threshold"`
	ConflictEpsilon      float64 `json:"conflict_epsilon"`
	StaleClaimDecayDays  float64 `json:"stale_claim_decay_days"`
	StaleClaimDecayFactor float64 `json:"stale_claim_decay_factor"`
}

// MaintenanceConfig tunes housekeeping behaviour.
type MaintenanceConfig struct {
	MaxTransactionLogEntries int  `json:"max_transaction_log_entries"`
	VacuumOnStartup          bool `json:"vacuum_on_startup"`
}

// ProviderEntry is one provider's manifest-declared configuration.
type ProviderEntry struct {
	Name           string             `json:"name"`
	Version        string             `json:"version"`
	Enabled        bool               `json:"enabled"`
	Weight         float64            `json:"weight"`
	Domain         string             `json:"domain"`
	CapabilityTags []string           `json:"capability_tags"`
	FieldWeights   map[string]float64 `json:"field_weights"`
}

// Config is the fully-resolved runtime configuration, derived from
// tanaste_master.json with all paths resolved relative to the manifest's
// own directory.
type Config struct {
	SchemaVersion          int                `json:"schema_version"`
	DatabasePath           string             `json:"database_path"`
	DataRoot               string             `json:"data_root"`
	WatchDirectory         string             `json:"watch_directory"`
	LibraryRoot            string             `json:"library_root"`
	OrganizationTemplate   string             `json:"organization_template"`
	Providers              []ProviderEntry    `json:"providers"`
	Maintenance            MaintenanceConfig  `json:"maintenance"`
	Scoring                ScoringConfig      `json:"scoring"`
	ProviderEndpoints      map[string]string  `json:"provider_endpoints"`
	NotificationWebhookURL string             `json:"notification_webhook_url"`

	// manifestDir is the directory the manifest was loaded from; all
	// relative paths above are resolved against it.
	manifestDir string `json:"-"`
}

// defaults mirrors spec.md §6's stated defaults, applied when the manifest
// omits a scoring field (JSON zero-values would otherwise silently disable
// thresholds).
func defaults() ScoringConfig {
	return ScoringConfig{
		AutoLinkThreshold:     0.85,
		ConflictThreshold:     0.60,
		ConflictEpsilon:       0.05,
		StaleClaimDecayDays:   90,
		StaleClaimDecayFactor: 0.8,
	}
}

// Load reads and validates the manifest at path, resolving relative paths
// against the manifest's directory. Any failure here is a configuration
// error per spec.md §7: the caller should fail fast and not partially start.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var cfg Config
	cfg.Scoring = defaults()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	cfg.manifestDir = filepath.Dir(path)
	cfg.DatabasePath = cfg.resolve(cfg.DatabasePath)
	cfg.DataRoot = cfg.resolve(cfg.DataRoot)
	cfg.WatchDirectory = cfg.resolve(cfg.WatchDirectory)
	cfg.LibraryRoot = cfg.resolve(cfg.LibraryRoot)

	applyScoringDefaults(&cfg.Scoring)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &cfg, nil
}

// applyScoringDefaults fills in any zero-valued scoring fields with the
// spec-mandated defaults — a manifest author may reasonably specify only
// the fields they want to override.
func applyScoringDefaults(s *ScoringConfig) {
	d := defaults()
	if s.AutoLinkThreshold == 0 {
		s.AutoLinkThreshold = d.AutoLinkThreshold
	}
	if s.ConflictThreshold == 0 {
		s.ConflictThreshold = d.ConflictThreshold
	}
	if s.ConflictEpsilon == 0 {
		s.ConflictEpsilon = d.ConflictEpsilon
	}
	if s.StaleClaimDecayDays == 0 {
		s.StaleClaimDecayDays = d.StaleClaimDecayDays
	}
	if s.StaleClaimDecayFactor == 0 {
		s.StaleClaimDecayFactor = d.StaleClaimDecayFactor
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.manifestDir, p)
}

func (c *Config) validate() error {
	if c.WatchDirectory == "" {
		return fmt.Errorf("watch_directory is required")
	}
	if c.LibraryRoot == "" {
		return fmt.Errorf("library_root is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.OrganizationTemplate == "" {
		return fmt.Errorf("organization_template is required")
	}
	if c.Scoring.AutoLinkThreshold <= c.Scoring.ConflictThreshold {
		return fmt.Errorf("scoring.auto_link_threshold must exceed scoring.conflict_threshold")
	}
	return nil
}

// MergeSetting applies a loosely-typed settings-table value (as CineVault's
// own config.MergeFromDB merges free-form key/value rows) into the running
// config by key, coercing via cast rather than hand-rolled strconv at every
// call site.
func (c *Config) MergeSetting(key string, value interface{}) {
	switch key {
	case "auto_link_threshold":
		c.Scoring.AutoLinkThreshold = cast.ToFloat64(value)
	case "conflict_threshold":
		c.Scoring.ConflictThreshold = cast.ToFloat64(value)
	case "conflict_epsilon":
		c.Scoring.ConflictEpsilon = cast.ToFloat64(value)
	case "stale_claim_decay_days":
		c.Scoring.StaleClaimDecayDays = cast.ToFloat64(value)
	case "stale_claim_decay_factor":
		c.Scoring.StaleClaimDecayFactor = cast.ToFloat64(value)
	case "vacuum_on_startup":
		c.Maintenance.VacuumOnStartup = cast.ToBool(value)
	case "max_transaction_log_entries":
		c.Maintenance.MaxTransactionLogEntries = cast.ToInt(value)
	}
}
