// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/caseforge/internal/httputil"
	"github.com/pdiddy/caseforge/internal/knowledge"
	"github.com/pdiddy/caseforge/internal/llm"
	"github.com/pdiddy/caseforge/pkg/types"
)

func TestMain(m *testing.M) {
	// Override delays to avoid real sleeps.
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

const fieldsJSON = `Here is the JSON you asked for:
{"diagnostic_reasoning":"Mechanical pattern.","intervention_rationale":"Exercise first.","prognosis":"Good.",
 "red_flags":"None reported.","outcome_measures":"ODI, NPRS.","patient_education":"Reassurance.",
 "goal_setting":"Return to work.","home_program":"Walking.","reflective_questions":"What if pain spreads?",
 "codes":[{"code":"b28013","title":"Pain in back"}],"assessment_findings":["Reduced flexion"],
 "intervention_plan":["Graded activity"],"guidelines":[{"name":"NICE NG59","source":"NICE","year":2016,"recommended":["Exercise"],"avoid":["Imaging"]}],
 "evidence_levels":{"Level I":2}}
Let me know if you need more.`

// recorder is a Completer that logs call start/end order and the peak
// number of concurrent calls per phase.
type recorder struct {
	mu       sync.Mutex
	events   []string
	requests []llm.Request
	inFlight map[string]int
	peak     map[string]int
	delay    time.Duration
	respond  func(req llm.Request, n int) (string, error)
	perLabel map[string]int
}

func newRecorder(respond func(llm.Request, int) (string, error)) *recorder {
	return &recorder{
		inFlight: map[string]int{},
		peak:     map[string]int{},
		perLabel: map[string]int{},
		respond:  respond,
	}
}

func phaseOf(label string) string {
	p, _, _ := strings.Cut(label, ".")
	return p
}

func (r *recorder) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	phase := phaseOf(req.Label)
	r.mu.Lock()
	r.events = append(r.events, "start:"+req.Label)
	r.requests = append(r.requests, req)
	r.perLabel[req.Label]++
	n := r.perLabel[req.Label]
	r.inFlight[phase]++
	if r.inFlight[phase] > r.peak[phase] {
		r.peak[phase] = r.inFlight[phase]
	}
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	text, err := r.respond(req, n)

	r.mu.Lock()
	r.inFlight[phase]--
	r.events = append(r.events, "end:"+req.Label)
	r.mu.Unlock()
	return llm.Response{Text: text}, err
}

func (r *recorder) index(event string) int {
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

// fixedResponder answers every call with plain text and the structured call
// with fieldsJSON.
func fixedResponder(req llm.Request, _ int) (string, error) {
	switch {
	case strings.HasPrefix(req.Label, Phase2b):
		return fieldsJSON, nil
	case strings.HasPrefix(req.Label, Phase1+".entities"):
		return "- exercise therapy\n- 2. graded activity\n\n* exercise therapy\n", nil
	default:
		return "Generated text for " + req.Label, nil
	}
}

func lbpCase() types.CaseInput {
	return types.CaseInput{
		ID:             "case-1",
		Age:            40,
		Gender:         "Male",
		Condition:      "chronic non-specific low back pain",
		Specialization: "Orthopedic",
	}
}

func newTestOrchestrator(t *testing.T, c llm.Completer) *Orchestrator {
	o := New(c, types.AIConfig{QuickModel: "quick-model", FullModel: "full-model", MaxAttempts: 3}, zaptest.NewLogger(t))
	o.ConsolidatedDelay = 0
	return o
}

func TestGenerateQuick(t *testing.T) {
	rec := newRecorder(fixedResponder)
	kc := knowledge.Resolve(lbpCase())
	res := newTestOrchestrator(t, rec).Generate(context.Background(), lbpCase(), kc, nil, types.ModeQuick)

	require.Len(t, res.Sections, 2)
	assert.Equal(t, "Case Summary", res.Sections[0].Title)
	assert.Equal(t, "Assessment and Management", res.Sections[1].Title)
	for _, s := range res.Sections {
		assert.NotEmpty(t, s.Body)
		assert.False(t, s.Defaulted)
	}
	assert.Equal(t, []string{"exercise therapy", "graded activity"}, res.Entities)
	assert.Equal(t, "Mechanical pattern.", res.Fields.DiagnosticReasoning)
	assert.Equal(t, map[string]int{"Level I": 2}, res.Fields.EvidenceLevels)
	assert.Empty(t, res.ClinicalReasoning)
	assert.Empty(t, res.GuidelineNotes)
	assert.Empty(t, res.Diagnostics)

	assert.Equal(t, 5, res.Calls)
	assert.Equal(t, 5, res.Succeeded)
	for _, req := range rec.requests {
		assert.Equal(t, "quick-model", req.Model)
		assert.Contains(t, req.System, "orthopedic")
		assert.NotContains(t, req.Label, Phase2c)
	}
}

func TestGenerateFullBatchesAndBarriers(t *testing.T) {
	rec := newRecorder(fixedResponder)
	rec.delay = 20 * time.Millisecond
	kc := knowledge.Resolve(lbpCase())
	res := newTestOrchestrator(t, rec).Generate(context.Background(), lbpCase(), kc, nil, types.ModeFull)

	require.Len(t, res.Sections, len(fullSections))
	for i, s := range res.Sections {
		assert.Equal(t, fullSections[i].Title, s.Title)
	}
	assert.NotEmpty(t, res.ClinicalReasoning)
	assert.NotEmpty(t, res.GuidelineNotes)
	assert.NotEmpty(t, res.AssessmentToolNotes)
	assert.Equal(t, 3+len(fullSections)+1+2, res.Calls)

	assert.Equal(t, sectionBatchSize, rec.peak[Phase2a])
	assert.Equal(t, 3, rec.peak[Phase1])

	start2b := rec.index("start:" + Phase2b + ".structured_fields")
	require.GreaterOrEqual(t, start2b, 0)
	for _, spec := range fullSections {
		end := rec.index("end:" + Phase2a + "." + spec.Title)
		require.GreaterOrEqual(t, end, 0)
		assert.Less(t, end, start2b, "phase 2b started before %s finished", spec.Title)
	}
	for _, e := range rec.events {
		if strings.HasPrefix(e, "start:"+Phase2a) {
			assert.Greater(t, rec.index(e), rec.index("end:"+Phase1+".terms"))
		}
	}

	// Batches are sequential: the third section cannot start before the
	// first batch is done.
	assert.Greater(t, rec.index("start:"+Phase2a+".Objective Assessment"), rec.index("end:"+Phase2a+".Patient Profile"))
	assert.Greater(t, rec.index("start:"+Phase2a+".Objective Assessment"), rec.index("end:"+Phase2a+".Subjective Assessment"))

	var quickTokens, fullTokens int
	for _, req := range rec.requests {
		assert.Equal(t, "full-model", req.Model)
		if phaseOf(req.Label) == Phase2a {
			fullTokens = req.MaxTokens
		}
	}
	quickTokens = (&Orchestrator{}).budgetFor(types.ModeQuick).sectionTokens
	assert.Greater(t, fullTokens, quickTokens)
}

func TestGenerateRetriesRateLimitedSection(t *testing.T) {
	rec := newRecorder(func(req llm.Request, n int) (string, error) {
		if req.Label == Phase2a+".Case Summary" && n <= 2 {
			return "", &llm.StatusError{Code: 429, Body: "rate_limit_error"}
		}
		return fixedResponder(req, n)
	})
	res := newTestOrchestrator(t, rec).Generate(context.Background(), lbpCase(), knowledge.Resolve(lbpCase()), nil, types.ModeQuick)

	assert.Equal(t, 3, rec.perLabel[Phase2a+".Case Summary"])
	assert.False(t, res.Sections[0].Defaulted)
	assert.Equal(t, "Generated text for phase2a.Case Summary", res.Sections[0].Body)
	assert.Empty(t, res.Diagnostics)
}

func TestGenerateAlwaysRateLimitedUsesDefault(t *testing.T) {
	rec := newRecorder(func(req llm.Request, n int) (string, error) {
		if req.Label == Phase2a+".Assessment and Management" {
			return "", &llm.StatusError{Code: 429, Body: "slow down"}
		}
		return fixedResponder(req, n)
	})
	res := newTestOrchestrator(t, rec).Generate(context.Background(), lbpCase(), knowledge.Resolve(lbpCase()), nil, types.ModeQuick)

	assert.Equal(t, 3, rec.perLabel[Phase2a+".Assessment and Management"])
	require.Len(t, res.Sections, 2)
	assert.True(t, res.Sections[1].Defaulted)
	assert.Empty(t, res.Sections[1].Body)
	assert.False(t, res.Sections[0].Defaulted)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, Phase2a, res.Diagnostics[0].Phase)
	assert.Equal(t, "Assessment and Management", res.Diagnostics[0].Field)
}

func TestGeneratePhase1FailureIsIsolated(t *testing.T) {
	rec := newRecorder(func(req llm.Request, n int) (string, error) {
		if req.Label == Phase1+".entities" {
			return "", &llm.StatusError{Code: 500, Body: "internal"}
		}
		return fixedResponder(req, n)
	})
	res := newTestOrchestrator(t, rec).Generate(context.Background(), lbpCase(), knowledge.Resolve(lbpCase()), nil, types.ModeQuick)

	assert.Equal(t, 1, rec.perLabel[Phase1+".entities"])
	assert.Empty(t, res.Entities)
	assert.NotNil(t, res.Entities)
	assert.NotEmpty(t, res.Terms)
	assert.Len(t, res.Sections, 2)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "entities", res.Diagnostics[0].Field)
	assert.Equal(t, 4, res.Succeeded)
}

func TestGenerateMalformedFieldsUseDefaults(t *testing.T) {
	rec := newRecorder(func(req llm.Request, n int) (string, error) {
		if strings.HasPrefix(req.Label, Phase2b) {
			return "I cannot produce JSON {not valid", nil
		}
		return fixedResponder(req, n)
	})
	res := newTestOrchestrator(t, rec).Generate(context.Background(), lbpCase(), knowledge.Resolve(lbpCase()), nil, types.ModeQuick)

	assert.Equal(t, types.DefaultFields(), res.Fields)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, Phase2b, res.Diagnostics[0].Phase)
	assert.Equal(t, "structured_fields", res.Diagnostics[0].Field)
}

// hangingCompleter never answers until released, ignoring its context.
type hangingCompleter struct{ release chan struct{} }

func (h *hangingCompleter) Complete(context.Context, llm.Request) (llm.Response, error) {
	<-h.release
	return llm.Response{Text: "too late"}, nil
}

func TestGenerateDeadlineReturnsDefaults(t *testing.T) {
	h := &hangingCompleter{release: make(chan struct{})}
	defer close(h.release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := newTestOrchestrator(t, h).Generate(ctx, lbpCase(), knowledge.Resolve(lbpCase()), nil, types.ModeFull)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, res.Sections, len(fullSections))
	for _, s := range res.Sections {
		assert.True(t, s.Defaulted)
	}
	assert.Equal(t, types.DefaultFields(), res.Fields)
	assert.Zero(t, res.Succeeded)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestSectionsCatalog(t *testing.T) {
	assert.Len(t, Sections(types.ModeQuick), 2)
	assert.Len(t, Sections(types.ModeFull), 7)

	s := Sections(types.ModeQuick)
	s[0].Title = "changed"
	assert.Equal(t, "Case Summary", quickSections[0].Title)
}

func TestParseList(t *testing.T) {
	in := "1. Lumbar spine\n2) Disc\n- disc\n• Sciatica\n\n   \n* Pain"
	assert.Equal(t, []string{"Lumbar spine", "Disc", "Sciatica", "Pain"}, parseList(in, 15))
	assert.Equal(t, []string{"Lumbar spine", "Disc"}, parseList(in, 2))
	assert.Empty(t, parseList("", 15))
}

func TestSystemPromptUsesRole(t *testing.T) {
	c := lbpCase()
	kc := knowledge.Resolve(c)
	assert.Contains(t, systemPrompt(c, kc), "orthopedic physiotherapist")

	c.Role = "You are a senior clinical tutor."
	assert.True(t, strings.HasPrefix(systemPrompt(c, kc), "You are a senior clinical tutor."))
}
