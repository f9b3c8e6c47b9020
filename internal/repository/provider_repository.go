package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/models"
)

// ProviderRepository persists the provider registry and per-provider
// ProviderConfig rows (SPEC_FULL.md §7 item 2). The rows are rewritten from
// the manifest at every startup.
type ProviderRepository struct {
	db *sql.DB
}

func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// RegisterProvider records a provider's presence (name, version, base_url)
// in the registry, idempotently.
func (r *ProviderRepository) RegisterProvider(name, version, baseURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO provider_registry (name, version, base_url) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET version = excluded.version, base_url = excluded.base_url`,
		name, version, baseURL)
	if err != nil {
		return fmt.Errorf("provider registry upsert: %w", err)
	}
	return nil
}

// UpsertConfig writes a provider's tuning.
func (r *ProviderRepository) UpsertConfig(cfg models.ProviderConfig) error {
	fieldWeights, err := json.Marshal(cfg.FieldWeights)
	if err != nil {
		return fmt.Errorf("marshal field_weights: %w", err)
	}
	capabilityTags, err := json.Marshal(cfg.CapabilityTags)
	if err != nil {
		return fmt.Errorf("marshal capability_tags: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO provider_config (name, enabled, default_weight, domain, field_weights, capability_tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			enabled = excluded.enabled, default_weight = excluded.default_weight,
			domain = excluded.domain, field_weights = excluded.field_weights,
			capability_tags = excluded.capability_tags`,
		cfg.Name, cfg.Enabled, cfg.DefaultWeight, string(cfg.Domain), string(fieldWeights), string(capabilityTags))
	if err != nil {
		return fmt.Errorf("provider config upsert: %w", err)
	}
	return nil
}

// Enabled returns every provider whose config row has enabled = true.
func (r *ProviderRepository) Enabled() ([]models.ProviderConfig, error) {
	rows, err := r.db.Query(`SELECT name, enabled, default_weight, domain, field_weights, capability_tags
		FROM provider_config WHERE enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("provider config list enabled: %w", err)
	}
	defer rows.Close()

	var configs []models.ProviderConfig
	for rows.Next() {
		var cfg models.ProviderConfig
		var domain, fieldWeights, capabilityTags string
		if err := rows.Scan(&cfg.Name, &cfg.Enabled, &cfg.DefaultWeight, &domain, &fieldWeights, &capabilityTags); err != nil {
			return nil, fmt.Errorf("provider config scan: %w", err)
		}
		cfg.Domain = models.ProviderDomain(domain)
		if err := json.Unmarshal([]byte(fieldWeights), &cfg.FieldWeights); err != nil {
			return nil, fmt.Errorf("unmarshal field_weights for %s: %w", cfg.Name, err)
		}
		if err := json.Unmarshal([]byte(capabilityTags), &cfg.CapabilityTags); err != nil {
			return nil, fmt.Errorf("unmarshal capability_tags for %s: %w", cfg.Name, err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
