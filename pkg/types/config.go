package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "caseforge/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchBackend identifies the literature-search service.
type SearchBackend string

const (
	BackendPubMed          SearchBackend = "pubmed"
	BackendSemanticScholar SearchBackend = "semantic_scholar"
)

// SearchConfig holds settings for evidence retrieval.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the literature service (default pubmed).
	Backend SearchBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// MaxResults bounds the ranked evidence list (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// APIKey is the optional NCBI or Semantic Scholar key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email is sent to NCBI with every E-utilities request.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// RequestsPerSecond paces calls to the backend (default 3, NCBI's keyless limit).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// CacheSize is the number of query responses kept in memory (default 128).
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// AIConfig holds settings for the LLM completion service.
type AIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// QuickModel is the fast model used in quick mode.
	QuickModel string `json:"quick_model" yaml:"quick_model" mapstructure:"quick_model"`

	// FullModel is the larger-context model used in full mode.
	FullModel string `json:"full_model" yaml:"full_model" mapstructure:"full_model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxAttempts caps calls per field including the first (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
}

// PipelineConfig groups all settings for one synthesis run.
type PipelineConfig struct {
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	AI     AIConfig     `json:"ai" yaml:"ai" mapstructure:"ai"`

	// Timeout is the overall deadline for a synthesis run (default 4m).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// SuppressSynthetic drops placeholder evidence from the final document.
	// Placeholders are still offered to the model as prompt material.
	SuppressSynthetic bool `json:"suppress_synthetic" yaml:"suppress_synthetic" mapstructure:"suppress_synthetic"`

	// StrictAvailability makes Synthesize return ErrUnavailable alongside the
	// document when no LLM call succeeded.
	StrictAvailability bool `json:"strict_availability" yaml:"strict_availability" mapstructure:"strict_availability"`

	// DatabasePath is the SQLite file used to persist documents.
	DatabasePath string `json:"database_path" yaml:"database_path" mapstructure:"database_path"`
}

// DefaultPipelineConfig returns the configuration used when no file or
// flag overrides a value.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Search: SearchConfig{
			HTTPConfig:        HTTPConfig{Timeout: 30 * time.Second, UserAgent: "caseforge/0.1"},
			Backend:           BackendPubMed,
			MaxResults:        5,
			RequestsPerSecond: 3,
			CacheSize:         128,
		},
		AI: AIConfig{
			HTTPConfig:  HTTPConfig{Timeout: 120 * time.Second, UserAgent: "caseforge/0.1"},
			QuickModel:  "claude-haiku-4-5",
			FullModel:   "claude-sonnet-4-5",
			MaxAttempts: 3,
		},
		Timeout:      4 * time.Minute,
		DatabasePath: "caseforge.db",
	}
}
