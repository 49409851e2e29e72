// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/caseforge/internal/evidence"
	"github.com/pdiddy/caseforge/internal/knowledge"
	"github.com/pdiddy/caseforge/pkg/types"
)

// SectionSpec names one generated section and what it must cover.
type SectionSpec struct {
	Title    string
	Guidance string
}

// quickSections are generated concurrently in quick mode.
var quickSections = []SectionSpec{
	{"Case Summary", "Summarize the patient profile, presenting complaint, relevant history and the key subjective and objective findings."},
	{"Assessment and Management", "Give the clinical impression, the prioritized problem list and an evidence-based management plan with measurable goals."},
}

// fullSections are generated in batches in full mode, in this order.
var fullSections = []SectionSpec{
	{"Patient Profile", "Describe demographics, occupation, social context, comorbidities and psychosocial factors."},
	{"Subjective Assessment", "Report the history of the presenting condition, pain behaviour, aggravating and easing factors, and patient goals."},
	{"Objective Assessment", "Report observation, movement testing, special tests and baseline outcome measures with plausible values."},
	{"Clinical Impression", "State the working diagnosis, differential diagnoses and the reasoning that links findings to the impression."},
	{"Goals", "Write short- and long-term SMART goals agreed with the patient."},
	{"Intervention Plan", "Describe the treatment plan, dosage, progression criteria and the evidence supporting each intervention."},
	{"Progress and Outcomes", "Describe the expected course, reassessment points, outcome measure changes and discharge criteria."},
}

// Sections returns the section catalog for mode.
func Sections(mode types.Mode) []SectionSpec {
	if mode == types.ModeFull {
		return append([]SectionSpec(nil), fullSections...)
	}
	return append([]SectionSpec(nil), quickSections...)
}

// promptData is the shared input of every prompt template.
type promptData struct {
	Summary        string
	Specialization string
	Knowledge      string
	Evidence       string
	Entities       string
	Terms          string
	Section        SectionSpec
	Sections       string
	Guidelines     string
	Tools          string
}

var entitiesTmpl = template.Must(template.New("entities").Parse(`List the key clinical entities in the literature below that matter for this case: conditions, interventions, outcome measures and populations.
Write one entity per line with no numbering and no commentary. At most 15 lines.

Patient: {{.Summary}}

Literature:
{{.Evidence}}
`))

var termsTmpl = template.Must(template.New("terms").Parse(`List the biomedical terms a {{.Specialization}} clinician would use to document this case: anatomy, pathology, impairments and tests.
Write one term per line with no numbering and no commentary. At most 15 lines.

Patient: {{.Summary}}
`))

var reasoningTmpl = template.Must(template.New("reasoning").Parse(`Write the clinical reasoning narrative for this {{.Specialization}} case in 3 to 5 paragraphs. Walk through hypothesis generation, the findings that support or refute each hypothesis, and how the working diagnosis was reached.

Patient: {{.Summary}}

{{.Knowledge}}
`))

var sectionTmpl = template.Must(template.New("section").Parse(`Write the "{{.Section.Title}}" section of a {{.Specialization}} teaching case study.
{{.Section.Guidance}}
Write plain prose with short paragraphs. Do not repeat the section title. Cite evidence by its bracketed number where it supports a statement.

Patient: {{.Summary}}
{{if .Entities}}
Key clinical entities:
{{.Entities}}
{{end}}{{if .Terms}}
Terminology:
{{.Terms}}
{{end}}
{{.Knowledge}}

Evidence:
{{.Evidence}}
`))

var fieldsTmpl = template.Must(template.New("fields").Parse(`Produce the structured supplementary fields for this {{.Specialization}} case study as ONE JSON object with exactly these keys:

  "diagnostic_reasoning": string
  "intervention_rationale": string
  "prognosis": string
  "red_flags": string
  "outcome_measures": string
  "patient_education": string
  "goal_setting": string
  "home_program": string
  "reflective_questions": string
  "codes": array of {"code": string, "title": string} ICF codes
  "assessment_findings": array of strings
  "intervention_plan": array of strings
  "guidelines": array of {"name": string, "source": string, "year": number, "recommended": [string], "avoid": [string]}
  "evidence_levels": object mapping evidence level ("Level I" .. "Level V") to a count of cited studies

Respond with the JSON object only.

Patient: {{.Summary}}
{{if .Sections}}
Sections already written: {{.Sections}}
{{end}}
{{.Knowledge}}

Evidence:
{{.Evidence}}
`))

var guidelineTmpl = template.Must(template.New("guidelines").Parse(`Explain how the following clinical practice guidance applies to this patient. For each recommendation say whether and how it is used in this case, and why any "avoid" item is relevant.

Patient: {{.Summary}}

Guidance:
{{.Guidelines}}
`))

var toolsTmpl = template.Must(template.New("tools").Parse(`For each assessment tool below, describe what it measures, how to administer it to this patient, a plausible baseline score and the minimal clinically important difference.

Patient: {{.Summary}}

Assessment tools:
{{.Tools}}
`))

// systemPrompt returns the role instruction for every call. The case's own
// Role text wins over the default voice.
func systemPrompt(c types.CaseInput, kc types.KnowledgeContext) string {
	role := strings.TrimSpace(c.Role)
	if role == "" {
		role = fmt.Sprintf("You are an experienced %s physiotherapist and clinical educator writing realistic teaching case studies.", specialization(c))
	}
	if kc.CoachingHint != "" {
		role += " " + kc.CoachingHint
	}
	return role
}

func specialization(c types.CaseInput) string {
	if s := strings.TrimSpace(c.Specialization); s != "" {
		return strings.ToLower(s)
	}
	return "musculoskeletal"
}

func newPromptData(c types.CaseInput, kc types.KnowledgeContext, items []types.EvidenceItem) promptData {
	return promptData{
		Summary:        c.Summary(),
		Specialization: specialization(c),
		Knowledge:      knowledge.PromptBlock(kc),
		Evidence:       evidence.FormatForPrompt(items),
	}
}

func render(t *template.Template, data promptData) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// The templates are fixed and the data is plain strings.
		panic(fmt.Sprintf("rendering %s prompt: %v", t.Name(), err))
	}
	return buf.String()
}

func guidelineLines(gs []types.Guideline) string {
	var b strings.Builder
	for _, g := range gs {
		fmt.Fprintf(&b, "%s (%s", g.Name, g.Source)
		if g.Year > 0 {
			fmt.Fprintf(&b, ", %d", g.Year)
		}
		b.WriteString(")\n")
		for _, r := range g.Recommended {
			fmt.Fprintf(&b, "- Recommended: %s\n", r)
		}
		for _, a := range g.Avoid {
			fmt.Fprintf(&b, "- Avoid: %s\n", a)
		}
	}
	return b.String()
}

func bulletLines(items []string) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}

// parseList turns a one-item-per-line completion into a clean list:
// bullets and numbering stripped, blanks and duplicates dropped, capped at limit.
func parseList(text string, limit int) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•· \t")
		line = trimNumbering(line)
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}

// trimNumbering drops a leading "1." or "2)" marker.
func trimNumbering(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
