// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the caseforge pipeline:
// the patient case input, the knowledge context derived from it, evidence
// items, and the assembled case document.
package types

import (
	"fmt"
	"strings"
)

// Mode selects how much of the case document is generated.
type Mode string

const (
	// ModeQuick generates two sections with the fast model and a smaller token budget.
	ModeQuick Mode = "quick"
	// ModeFull generates every section and every supplementary field with the large model.
	ModeFull Mode = "full"
)

// ParseMode converts a user-supplied string to a Mode. An empty string maps to ModeQuick.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeQuick:
		return ModeQuick, nil
	case ModeFull:
		return ModeFull, nil
	default:
		return "", fmt.Errorf("unknown mode %q: use quick or full", s)
	}
}

// CaseInput is the patient record a case document is synthesized from.
// The pipeline never mutates it.
type CaseInput struct {
	// ID identifies the patient case in the caller's system.
	ID string `json:"id" yaml:"id"`

	Age    int    `json:"age" yaml:"age"`
	Gender string `json:"gender" yaml:"gender"`

	// Condition is the working diagnosis (e.g. "chronic non-specific low back pain").
	Condition string `json:"condition" yaml:"condition"`

	// PresentingComplaint is the patient's chief complaint in their own terms.
	PresentingComplaint string `json:"presenting_complaint" yaml:"presenting_complaint"`

	Background string `json:"background" yaml:"background"`
	History    string `json:"history" yaml:"history"`

	Comorbidities       []string `json:"comorbidities" yaml:"comorbidities"`
	PsychosocialFactors []string `json:"psychosocial_factors" yaml:"psychosocial_factors"`

	// Specialization is the clinical specialty tag (e.g. "Orthopedic", "Neurological").
	Specialization string `json:"specialization" yaml:"specialization"`

	// Role is a free-text instruction describing the voice the case is written in.
	Role string `json:"role" yaml:"role"`

	// Symptoms and PriorInterventions refine the literature search when present.
	Symptoms           []string `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	PriorInterventions []string `json:"prior_interventions,omitempty" yaml:"prior_interventions,omitempty"`
}

// Validate reports the required fields that are missing. A nil error means
// the input can enter the pipeline.
func (c CaseInput) Validate() error {
	var missing []string
	if c.Age <= 0 {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(c.Gender) == "" {
		missing = append(missing, "gender")
	}
	if strings.TrimSpace(c.Condition) == "" {
		missing = append(missing, "condition")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required case fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Summary renders the demographic and clinical facts as a short paragraph
// used at the top of every generation prompt.
func (c CaseInput) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-year-old %s presenting with %s.", c.Age, strings.ToLower(c.Gender), c.Condition)
	if c.PresentingComplaint != "" {
		fmt.Fprintf(&b, " Chief complaint: %s.", strings.TrimSuffix(c.PresentingComplaint, "."))
	}
	if c.Background != "" {
		fmt.Fprintf(&b, " Background: %s.", strings.TrimSuffix(c.Background, "."))
	}
	if c.History != "" {
		fmt.Fprintf(&b, " History: %s.", strings.TrimSuffix(c.History, "."))
	}
	if len(c.Comorbidities) > 0 {
		fmt.Fprintf(&b, " Comorbidities: %s.", strings.Join(c.Comorbidities, ", "))
	}
	if len(c.PsychosocialFactors) > 0 {
		fmt.Fprintf(&b, " Psychosocial factors: %s.", strings.Join(c.PsychosocialFactors, ", "))
	}
	return b.String()
}
