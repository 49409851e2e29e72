// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/caseforge/internal/evidence"
	"github.com/pdiddy/caseforge/internal/generate"
	"github.com/pdiddy/caseforge/internal/llm"
	"github.com/pdiddy/caseforge/pkg/types"
)

// NewSearchBackend returns the configured literature backend wrapped in the
// circuit breaker and response cache.
func NewSearchBackend(cfg types.SearchConfig, log *zap.Logger) (evidence.Backend, error) {
	var backend evidence.Backend
	switch cfg.Backend {
	case "", types.BackendPubMed:
		backend = evidence.NewPubMedBackend(cfg)
	case types.BackendSemanticScholar:
		backend = &evidence.SemanticScholarBackend{
			Client:    &http.Client{Timeout: cfg.Timeout},
			APIKey:    cfg.APIKey,
			UserAgent: cfg.UserAgent,
		}
	default:
		return nil, fmt.Errorf("unknown search backend %q: use pubmed or semantic_scholar", cfg.Backend)
	}
	resilient, err := evidence.NewResilientBackend(backend, cfg.CacheSize, log)
	if err != nil {
		return nil, err
	}
	return resilient, nil
}

// NewFromConfig wires a Pipeline against the live services in cfg.
func NewFromConfig(cfg types.PipelineConfig, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("no Anthropic API key: set ai.api_key, CASEFORGE_AI_API_KEY or .secrets/anthropic-api-key")
	}

	backend, err := NewSearchBackend(cfg.Search, log)
	if err != nil {
		return nil, err
	}

	completer := &llm.ClaudeBackend{
		APIKey:    cfg.AI.APIKey,
		Model:     cfg.AI.QuickModel,
		UserAgent: cfg.AI.UserAgent,
		Client:    &http.Client{Timeout: cfg.AI.Timeout},
	}

	return New(
		evidence.NewSearcher(backend, log.Named("evidence")),
		generate.New(completer, cfg.AI, log.Named("generate")),
		cfg,
		log,
	), nil
}
