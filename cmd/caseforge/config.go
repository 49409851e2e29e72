package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/caseforge/internal/secrets"
	"github.com/pdiddy/caseforge/pkg/types"
)

// setDefaults registers every configuration key with its default so that
// environment variables and Unmarshal see the full key set.
func setDefaults(v *viper.Viper) {
	d := types.DefaultPipelineConfig()

	v.SetDefault("search.backend", string(d.Search.Backend))
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.email", "")
	v.SetDefault("search.requests_per_second", d.Search.RequestsPerSecond)
	v.SetDefault("search.cache_size", d.Search.CacheSize)
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.user_agent", d.Search.UserAgent)

	v.SetDefault("ai.quick_model", d.AI.QuickModel)
	v.SetDefault("ai.full_model", d.AI.FullModel)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.max_attempts", d.AI.MaxAttempts)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.user_agent", d.AI.UserAgent)

	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("suppress_synthetic", d.SuppressSynthetic)
	v.SetDefault("strict_availability", d.StrictAvailability)
	v.SetDefault("database_path", d.DatabasePath)
}

// loadConfig decodes the merged viper configuration and fills API keys
// that were not configured from the secrets directory.
func loadConfig(v *viper.Viper, loaded map[string]string) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.AI.APIKey = secrets.Value(loaded, secrets.AnthropicAPIKey, cfg.AI.APIKey)
	switch cfg.Search.Backend {
	case types.BackendSemanticScholar:
		cfg.Search.APIKey = secrets.Value(loaded, secrets.SemanticScholarAPIKey, cfg.Search.APIKey)
	default:
		cfg.Search.APIKey = secrets.Value(loaded, secrets.NCBIAPIKey, cfg.Search.APIKey)
		cfg.Search.Email = secrets.Value(loaded, secrets.NCBIEmail, cfg.Search.Email)
	}
	return cfg, nil
}
