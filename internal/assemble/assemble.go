// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble merges generated text, structured fields, evidence and
// the knowledge context into a CaseDocument.
package assemble

import (
	"time"

	"github.com/pdiddy/caseforge/internal/evidence"
	"github.com/pdiddy/caseforge/internal/generate"
	"github.com/pdiddy/caseforge/pkg/types"
)

// ReferencesTitle is the title of the synthesized evidence section.
const ReferencesTitle = "Evidence-Based References"

const noEvidenceText = "No evidence was retrieved for this case."

// Input is everything Assemble merges.
type Input struct {
	ID        string
	CreatedAt time.Time
	Case      types.CaseInput
	Mode      types.Mode
	Result    generate.Result
	Evidence  []types.EvidenceItem
	Knowledge types.KnowledgeContext
}

// Assemble builds the document. Sections are the generated sections in
// generation order, then the references section, then every non-empty
// narrative in fixed order. Codes and guidelines come from the model when
// it produced any, otherwise from the knowledge context; the two are never
// merged. Every slice and map in the result is non-nil.
func Assemble(in Input) types.CaseDocument {
	fields := normalizeFields(in.Result.Fields)

	doc := types.CaseDocument{
		ID:          in.ID,
		CaseID:      in.Case.ID,
		Mode:        in.Mode,
		Bucket:      in.Knowledge.Bucket,
		CreatedAt:   in.CreatedAt,
		Sections:    buildSections(in.Result, fields, in.Evidence),
		Evidence:    append([]types.EvidenceItem{}, in.Evidence...),
		Fields:      fields,
		Diagnostics: append([]types.Diagnostic{}, in.Result.Diagnostics...),
	}

	if len(fields.Codes) > 0 {
		doc.Codes = append([]types.ClassificationCode{}, fields.Codes...)
	} else {
		doc.Codes = append([]types.ClassificationCode{}, in.Knowledge.StarterCodes...)
	}

	if len(fields.Guidelines) > 0 {
		doc.Guidelines = append([]types.Guideline{}, fields.Guidelines...)
	} else {
		doc.Guidelines = append([]types.Guideline{}, in.Knowledge.Guidelines...)
	}

	if len(fields.EvidenceLevels) > 0 {
		doc.EvidenceLevels = copyLevels(fields.EvidenceLevels)
	} else {
		doc.EvidenceLevels = evidence.Histogram(in.Evidence)
	}
	return doc
}

func buildSections(res generate.Result, fields types.StructuredFields, items []types.EvidenceItem) []types.Section {
	sections := make([]types.Section, 0, len(res.Sections)+1+12)
	sections = append(sections, res.Sections...)

	refs := evidence.FormatList(items)
	if refs == "" {
		refs = noEvidenceText
	}
	sections = append(sections, types.Section{Title: ReferencesTitle, Body: refs})

	for _, n := range narratives(res, fields) {
		if n.Body != "" {
			sections = append(sections, types.Section{Title: n.Title, Body: n.Body})
		}
	}
	return sections
}

// narratives lists the supplementary text in display order.
func narratives(res generate.Result, fields types.StructuredFields) []types.NarrativeText {
	out := fields.Narratives()
	return append(out,
		types.NarrativeText{Title: "Clinical Reasoning", Body: res.ClinicalReasoning},
		types.NarrativeText{Title: "Guideline Application", Body: res.GuidelineNotes},
		types.NarrativeText{Title: "Assessment Tools", Body: res.AssessmentToolNotes},
	)
}

// normalizeFields replaces nil collections with empty ones.
func normalizeFields(f types.StructuredFields) types.StructuredFields {
	d := types.DefaultFields()
	if f.Codes == nil {
		f.Codes = d.Codes
	}
	if f.AssessmentFindings == nil {
		f.AssessmentFindings = d.AssessmentFindings
	}
	if f.InterventionPlan == nil {
		f.InterventionPlan = d.InterventionPlan
	}
	if f.Guidelines == nil {
		f.Guidelines = d.Guidelines
	}
	if f.EvidenceLevels == nil {
		f.EvidenceLevels = d.EvidenceLevels
	}
	return f
}

func copyLevels(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
