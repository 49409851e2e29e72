// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate drives the completion service through the fixed phases
// that produce a case document's text. Every call is isolated: a failure
// substitutes the field's default and records a diagnostic, so Generate
// always returns a complete Result.
//
// Phases run in order and each is a barrier:
//
//	phase1   entities, terms, clinical reasoning (full only), concurrent
//	phase2a  sections; quick all at once, full in batches of two
//	phase2b  one consolidated JSON call for the structured fields
//	phase2c  guideline and assessment-tool notes (full only), concurrent
package generate

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/caseforge/internal/httputil"
	"github.com/pdiddy/caseforge/internal/llm"
	"github.com/pdiddy/caseforge/pkg/types"
)

const (
	Phase1  = "phase1"
	Phase2a = "phase2a"
	Phase2b = "phase2b"
	Phase2c = "phase2c"
)

// sectionBatchSize caps concurrent section calls in full mode.
const sectionBatchSize = 2

// maxListItems caps the entity and term lists extracted in phase 1.
const maxListItems = 15

// DefaultConsolidatedDelay is the pause before the structured-fields call
// that lets the service's rate limiter recover from the phase 2a burst.
const DefaultConsolidatedDelay = 1500 * time.Millisecond

// budget holds the per-mode model and token limits.
type budget struct {
	model         string
	listTokens    int
	sectionTokens int
	fieldsTokens  int
	noteTokens    int
}

const (
	listTemperature    = 0.2
	sectionTemperature = 0.4
	fieldsTemperature  = 0.2
	noteTemperature    = 0.3
)

// Orchestrator runs the generation phases against a Completer.
type Orchestrator struct {
	Completer   llm.Completer
	Logger      *zap.Logger
	QuickModel  string
	FullModel   string
	MaxAttempts int

	// ConsolidatedDelay precedes the phase 2b call.
	ConsolidatedDelay time.Duration
}

// New returns an Orchestrator configured from cfg.
func New(c llm.Completer, cfg types.AIConfig, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		Completer:   c,
		Logger:      log,
		QuickModel:  cfg.QuickModel,
		FullModel:   cfg.FullModel,
		MaxAttempts: cfg.MaxAttempts,

		ConsolidatedDelay: DefaultConsolidatedDelay,
	}
}

// Result is everything the phases produced. Sections are in catalog order;
// a failed section is present with an empty body and Defaulted set.
type Result struct {
	Sections []types.Section
	Fields   types.StructuredFields

	Entities []string
	Terms    []string

	ClinicalReasoning   string
	GuidelineNotes      string
	AssessmentToolNotes string

	Diagnostics []types.Diagnostic

	// Calls and Succeeded count completion calls issued and answered.
	Calls     int
	Succeeded int
}

// run is the per-Generate state shared by the phases.
type run struct {
	o      *Orchestrator
	mode   types.Mode
	budget budget
	system string
	data   promptData

	calls     atomic.Int32
	succeeded atomic.Int32
}

// callResult is written by exactly one goroutine and read after the barrier.
type callResult struct {
	text string
	diag *types.Diagnostic
}

func (o *Orchestrator) budgetFor(mode types.Mode) budget {
	if mode == types.ModeFull {
		return budget{model: o.FullModel, listTokens: 400, sectionTokens: 1800, fieldsTokens: 3000, noteTokens: 1200}
	}
	return budget{model: o.QuickModel, listTokens: 250, sectionTokens: 700, fieldsTokens: 1500, noteTokens: 600}
}

// Generate runs all phases for mode. It never fails: when ctx ends, calls
// in flight are abandoned and every unresolved field keeps its default.
func (o *Orchestrator) Generate(ctx context.Context, c types.CaseInput, kc types.KnowledgeContext, items []types.EvidenceItem, mode types.Mode) Result {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	r := &run{
		o:      o,
		mode:   mode,
		budget: o.budgetFor(mode),
		system: systemPrompt(c, kc),
		data:   newPromptData(c, kc, items),
	}
	res := Result{Fields: types.DefaultFields(), Entities: []string{}, Terms: []string{}, Diagnostics: []types.Diagnostic{}}

	r.phase1(ctx, &res)
	r.phase2a(ctx, &res)
	r.phase2b(ctx, &res)
	if mode == types.ModeFull {
		r.phase2c(ctx, &res, kc)
	}

	res.Calls = int(r.calls.Load())
	res.Succeeded = int(r.succeeded.Load())
	o.Logger.Info("generation complete",
		zap.String("mode", string(mode)),
		zap.Int("calls", res.Calls),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("diagnostics", len(res.Diagnostics)))
	return res
}

// call issues one completion through the shared retry policy. On failure it
// logs and returns a diagnostic; the caller keeps the field default.
func (r *run) call(ctx context.Context, phase, field, prompt string, temperature float64, maxTokens int) callResult {
	label := phase + "." + field
	r.calls.Add(1)
	start := time.Now()
	text, err := llm.Call(ctx, r.o.Completer, llm.Request{
		System:      r.system,
		Prompt:      prompt,
		Model:       r.budget.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Label:       label,
	}, r.o.MaxAttempts)
	if err != nil {
		r.o.Logger.Warn("completion failed, using default",
			zap.String("call", label),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return callResult{diag: &types.Diagnostic{Phase: phase, Field: field, Reason: err.Error()}}
	}
	r.succeeded.Add(1)
	r.o.Logger.Debug("completion done", zap.String("call", label), zap.Duration("elapsed", time.Since(start)))
	return callResult{text: strings.TrimSpace(text)}
}

func (r *run) phase1(ctx context.Context, res *Result) {
	var entities, terms, reasoning callResult
	var g errgroup.Group
	g.Go(func() error {
		entities = r.call(ctx, Phase1, "entities", render(entitiesTmpl, r.data), listTemperature, r.budget.listTokens)
		return nil
	})
	g.Go(func() error {
		terms = r.call(ctx, Phase1, "terms", render(termsTmpl, r.data), listTemperature, r.budget.listTokens)
		return nil
	})
	if r.mode == types.ModeFull {
		g.Go(func() error {
			reasoning = r.call(ctx, Phase1, "clinical_reasoning", render(reasoningTmpl, r.data), sectionTemperature, r.budget.sectionTokens)
			return nil
		})
	}
	g.Wait()

	res.Entities = parseList(entities.text, maxListItems)
	res.Terms = parseList(terms.text, maxListItems)
	res.ClinicalReasoning = reasoning.text
	res.addDiagnostics(entities, terms, reasoning)

	r.data.Entities = strings.Join(res.Entities, "\n")
	r.data.Terms = strings.Join(res.Terms, ", ")
}

func (r *run) phase2a(ctx context.Context, res *Result) {
	specs := Sections(r.mode)
	batch := len(specs)
	if r.mode == types.ModeFull {
		batch = sectionBatchSize
	}

	results := make([]callResult, len(specs))
	for lo := 0; lo < len(specs); lo += batch {
		hi := min(lo+batch, len(specs))
		var g errgroup.Group
		for i := lo; i < hi; i++ {
			data := r.data
			data.Section = specs[i]
			g.Go(func() error {
				results[i] = r.call(ctx, Phase2a, specs[i].Title, render(sectionTmpl, data), sectionTemperature, r.budget.sectionTokens)
				return nil
			})
		}
		g.Wait()
	}

	res.Sections = make([]types.Section, len(specs))
	titles := make([]string, 0, len(specs))
	for i, spec := range specs {
		res.Sections[i] = types.Section{Title: spec.Title, Body: results[i].text, Defaulted: results[i].diag != nil}
		res.addDiagnostics(results[i])
		if results[i].diag == nil {
			titles = append(titles, spec.Title)
		}
	}
	r.data.Sections = strings.Join(titles, ", ")
}

func (r *run) phase2b(ctx context.Context, res *Result) {
	if err := httputil.Sleep(ctx, r.o.ConsolidatedDelay); err != nil {
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{Phase: Phase2b, Field: "structured_fields", Reason: err.Error()})
		return
	}

	out := r.call(ctx, Phase2b, "structured_fields", render(fieldsTmpl, r.data), fieldsTemperature, r.budget.fieldsTokens)
	if out.diag != nil {
		res.addDiagnostics(out)
		return
	}

	fields, problems, err := parseFields(out.text)
	if err != nil {
		r.o.Logger.Warn("structured fields unusable, using defaults", zap.Error(err))
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{Phase: Phase2b, Field: "structured_fields", Reason: err.Error()})
		return
	}
	for _, p := range problems {
		r.o.Logger.Debug("structured field defaulted", zap.String("field", p.Field), zap.String("reason", p.Reason))
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{Phase: Phase2b, Field: p.Field, Reason: p.Reason})
	}
	res.Fields = fields
}

func (r *run) phase2c(ctx context.Context, res *Result, kc types.KnowledgeContext) {
	data := r.data
	data.Guidelines = guidelineLines(kc.Guidelines)
	if data.Guidelines == "" {
		data.Guidelines = kc.GuidelineSummary
	}
	data.Tools = bulletLines(kc.Clinimetrics)

	var guidelines, tools callResult
	var g errgroup.Group
	g.Go(func() error {
		guidelines = r.call(ctx, Phase2c, "guideline_notes", render(guidelineTmpl, data), noteTemperature, r.budget.noteTokens)
		return nil
	})
	g.Go(func() error {
		tools = r.call(ctx, Phase2c, "assessment_tool_notes", render(toolsTmpl, data), noteTemperature, r.budget.noteTokens)
		return nil
	})
	g.Wait()

	res.GuidelineNotes = guidelines.text
	res.AssessmentToolNotes = tools.text
	res.addDiagnostics(guidelines, tools)
}

func (res *Result) addDiagnostics(rs ...callResult) {
	for _, r := range rs {
		if r.diag != nil {
			res.Diagnostics = append(res.Diagnostics, *r.diag)
		}
	}
}
