// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth is the caller-facing entry point: it validates a case,
// resolves its knowledge context, retrieves evidence, runs generation and
// assembles the document.
package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/caseforge/internal/assemble"
	"github.com/pdiddy/caseforge/internal/evidence"
	"github.com/pdiddy/caseforge/internal/generate"
	"github.com/pdiddy/caseforge/internal/knowledge"
	"github.com/pdiddy/caseforge/pkg/types"
)

var (
	// ErrInvalidInput is returned before any I/O when required case
	// fields are missing or the mode is unknown.
	ErrInvalidInput = errors.New("invalid case input")

	// ErrUnavailable is returned, together with the degraded document, when
	// StrictAvailability is set and no completion call succeeded.
	ErrUnavailable = errors.New("completion service unavailable")
)

// Pipeline synthesizes case documents.
type Pipeline struct {
	Searcher  *evidence.Searcher
	Generator *generate.Orchestrator
	Config    types.PipelineConfig
	Logger    *zap.Logger

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// New returns a Pipeline over the given searcher and generator.
func New(s *evidence.Searcher, g *generate.Orchestrator, cfg types.PipelineConfig, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		Searcher:  s,
		Generator: g,
		Config:    cfg,
		Logger:    log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Synthesize produces the case document for c. Recoverable failures degrade
// the document and are listed in its Diagnostics; the only errors are
// ErrInvalidInput and, under StrictAvailability, ErrUnavailable.
func (p *Pipeline) Synthesize(ctx context.Context, c types.CaseInput, mode types.Mode) (types.CaseDocument, error) {
	if err := c.Validate(); err != nil {
		return types.CaseDocument{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if mode != types.ModeQuick && mode != types.ModeFull {
		return types.CaseDocument{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}

	if p.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.Timeout)
		defer cancel()
	}

	log := p.logger().With(zap.String("case", c.ID), zap.String("mode", string(mode)))
	start := p.clock()

	kc := knowledge.Resolve(c)
	log.Info("knowledge context resolved", zap.String("bucket", string(kc.Bucket)))

	items := p.Searcher.Search(ctx, evidence.Request{
		Condition:          c.Condition,
		Specialization:     c.Specialization,
		Symptoms:           c.Symptoms,
		PriorInterventions: c.PriorInterventions,
	}, evidence.Options{MaxResults: p.Config.Search.MaxResults})

	retrieved := evidence.Real(items)
	log.Info("evidence retrieved", zap.Int("items", len(items)), zap.Int("synthetic", len(items)-len(retrieved)))

	res := p.Generator.Generate(ctx, c, kc, items, mode)

	docEvidence := items
	if p.Config.SuppressSynthetic {
		docEvidence = retrieved
	}
	if len(retrieved) == 0 {
		res.Diagnostics = append([]types.Diagnostic{{
			Phase:  "evidence",
			Field:  "evidence",
			Reason: "no literature retrieved, synthetic placeholders used",
		}}, res.Diagnostics...)
	}

	doc := assemble.Assemble(assemble.Input{
		ID:        p.id(),
		CreatedAt: start.UTC(),
		Case:      c,
		Mode:      mode,
		Result:    res,
		Evidence:  docEvidence,
		Knowledge: kc,
	})

	log.Info("case synthesized",
		zap.String("document", doc.ID),
		zap.Int("sections", len(doc.Sections)),
		zap.Int("diagnostics", len(doc.Diagnostics)),
		zap.Duration("elapsed", p.clock().Sub(start)))

	if p.Config.StrictAvailability && res.Succeeded == 0 {
		return doc, fmt.Errorf("%w: %d calls failed", ErrUnavailable, res.Calls)
	}
	return doc, nil
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func (p *Pipeline) id() string {
	if p.newID == nil {
		return uuid.NewString()
	}
	return p.newID()
}
