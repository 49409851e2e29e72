// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence retrieves literature for a case through a search
// backend, classifies each result by evidence level, and returns a
// deduplicated, ranked, bounded list. When no literature can be retrieved
// it returns clearly tagged synthetic placeholders instead of nothing.
package evidence

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/pdiddy/caseforge/pkg/types"
)

// DefaultMaxResults bounds the ranked list when Options.MaxResults is unset.
const DefaultMaxResults = 5

// Backend searches a single literature service. PubMed and Semantic
// Scholar implement this interface.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, maxResults int) ([]types.SearchRecord, error)
}

// Request describes the clinical topic to search for.
type Request struct {
	Condition          string
	Specialization     string
	Symptoms           []string
	PriorInterventions []string
}

// Options tunes a search run.
type Options struct {
	MaxResults int
}

// Searcher runs the query strategies against a backend.
type Searcher struct {
	Backend Backend
	Logger  *zap.Logger
}

// NewSearcher returns a Searcher over backend. A nil logger is replaced by a no-op logger.
func NewSearcher(backend Backend, log *zap.Logger) *Searcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{Backend: backend, Logger: log}
}

// Search executes the strategies in priority order, stopping once enough
// unique results have accumulated, then ranks and truncates. It never
// returns an empty list: total retrieval failure yields synthetic items.
func (s *Searcher) Search(ctx context.Context, req Request, opts Options) []types.EvidenceItem {
	max := opts.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}
	log := s.logger()

	strategies := buildStrategies(req)
	perStrategy := (max + len(strategies) - 1) / len(strategies)

	seen := make(map[string]bool)
	var records []types.SearchRecord
	failures := 0

	for _, q := range strategies {
		if len(records) >= max {
			break
		}
		if ctx.Err() != nil {
			failures++
			break
		}
		got, err := s.backendSearch(ctx, q, perStrategy)
		if err != nil {
			failures++
			log.Warn("evidence strategy failed",
				zap.String("strategy", q.Strategy),
				zap.Error(err))
			continue
		}
		added := 0
		for _, r := range got {
			if r.ID == "" || seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			records = append(records, r)
			added++
		}
		log.Debug("evidence strategy complete",
			zap.String("strategy", q.Strategy),
			zap.Int("returned", len(got)),
			zap.Int("new", added))
	}

	if len(records) == 0 {
		log.Warn("no literature retrieved, using synthetic placeholders",
			zap.String("condition", req.Condition),
			zap.Int("failed_strategies", failures))
		return Placeholders(req.Condition, req.Specialization)
	}

	items := Rank(records, req)
	if len(items) > max {
		items = items[:max]
	}
	return items
}

func (s *Searcher) backendSearch(ctx context.Context, q Query, max int) ([]types.SearchRecord, error) {
	if s.Backend == nil {
		return nil, errNoBackend
	}
	return s.Backend.Search(ctx, q, max)
}

func (s *Searcher) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Rank classifies and scores records against the request terms and returns them as evidence items
// sorted by descending score. Ties are broken by ID so the order does not
// depend on the order records arrived in. Records sharing an ID are
// collapsed to the first occurrence.
func Rank(records []types.SearchRecord, req Request) []types.EvidenceItem {
	terms := newTermSet(req)
	seen := make(map[string]bool, len(records))
	items := make([]types.EvidenceItem, 0, len(records))
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		item := toItem(r)
		item.Score = score(item, terms)
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func toItem(r types.SearchRecord) types.EvidenceItem {
	item := types.EvidenceItem{
		ID:       r.ID,
		Title:    r.Title,
		Abstract: r.Abstract,
		Authors:  append([]string{}, r.Authors...),
		Date:     r.Date,
		Source:   r.Source,
		URL:      r.URL,
		Level:    Classify(r.Title, r.PublicationTypes),
	}
	if item.URL == "" {
		item.URL = canonicalURL(r)
	}
	item.Citation = FormatCitation(item)
	return item
}
