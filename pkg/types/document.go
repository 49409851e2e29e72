// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Section is a titled block of generated text in a case document.
type Section struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`

	// Defaulted is set when generation failed and the body is the empty default.
	Defaulted bool `json:"defaulted,omitempty" yaml:"defaulted,omitempty"`
}

// StructuredFields holds the supplementary fields produced by the single
// consolidated structured-output call. The JSON keys are the contract the
// model is asked to follow.
type StructuredFields struct {
	DiagnosticReasoning   string `json:"diagnostic_reasoning" yaml:"diagnostic_reasoning"`
	InterventionRationale string `json:"intervention_rationale" yaml:"intervention_rationale"`
	Prognosis             string `json:"prognosis" yaml:"prognosis"`
	RedFlags              string `json:"red_flags" yaml:"red_flags"`
	OutcomeMeasures       string `json:"outcome_measures" yaml:"outcome_measures"`
	PatientEducation      string `json:"patient_education" yaml:"patient_education"`
	GoalSetting           string `json:"goal_setting" yaml:"goal_setting"`
	HomeProgram           string `json:"home_program" yaml:"home_program"`
	ReflectiveQuestions   string `json:"reflective_questions" yaml:"reflective_questions"`

	Codes              []ClassificationCode `json:"codes" yaml:"codes"`
	AssessmentFindings []string             `json:"assessment_findings" yaml:"assessment_findings"`
	InterventionPlan   []string             `json:"intervention_plan" yaml:"intervention_plan"`
	Guidelines         []Guideline          `json:"guidelines" yaml:"guidelines"`
	EvidenceLevels     map[string]int       `json:"evidence_levels" yaml:"evidence_levels"`
}

// DefaultFields returns the value substituted when the structured call
// fails or returns nothing usable. Every collection is empty but non-nil.
func DefaultFields() StructuredFields {
	return StructuredFields{
		Codes:              []ClassificationCode{},
		AssessmentFindings: []string{},
		InterventionPlan:   []string{},
		Guidelines:         []Guideline{},
		EvidenceLevels:     map[string]int{},
	}
}

// NarrativeText pairs a display title with narrative content.
type NarrativeText struct {
	Title string
	Body  string
}

// Narratives returns the nine narrative fields in display order.
func (f StructuredFields) Narratives() []NarrativeText {
	return []NarrativeText{
		{"Diagnostic Reasoning", f.DiagnosticReasoning},
		{"Intervention Rationale", f.InterventionRationale},
		{"Prognosis", f.Prognosis},
		{"Red Flags and Precautions", f.RedFlags},
		{"Outcome Measures", f.OutcomeMeasures},
		{"Patient Education", f.PatientEducation},
		{"Goal Setting", f.GoalSetting},
		{"Home Exercise Program", f.HomeProgram},
		{"Reflective Questions", f.ReflectiveQuestions},
	}
}

// Diagnostic records a default-value substitution so degraded output stays
// observable.
type Diagnostic struct {
	Phase  string `json:"phase" yaml:"phase"`
	Field  string `json:"field" yaml:"field"`
	Reason string `json:"reason" yaml:"reason"`
}

// CaseDocument is the assembled pipeline output. After Assemble returns,
// every slice and map is non-nil.
type CaseDocument struct {
	ID        string    `json:"id" yaml:"id"`
	CaseID    string    `json:"case_id" yaml:"case_id"`
	Mode      Mode      `json:"mode" yaml:"mode"`
	Bucket    Bucket    `json:"bucket" yaml:"bucket"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	Sections       []Section            `json:"sections" yaml:"sections"`
	Evidence       []EvidenceItem       `json:"evidence" yaml:"evidence"`
	Codes          []ClassificationCode `json:"codes" yaml:"codes"`
	Fields         StructuredFields     `json:"fields" yaml:"fields"`
	Guidelines     []Guideline          `json:"guidelines" yaml:"guidelines"`
	EvidenceLevels map[string]int       `json:"evidence_levels" yaml:"evidence_levels"`

	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

// Degraded reports whether any field was substituted with its default.
func (d CaseDocument) Degraded() bool {
	return len(d.Diagnostics) > 0
}
