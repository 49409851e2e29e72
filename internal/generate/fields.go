// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/caseforge/pkg/types"
)

var (
	errNoJSONObject = errors.New("no JSON object in response")
	errNoFields     = errors.New("JSON object has no recognised fields")
)

// extractJSONObject returns the first balanced {...} substring of text.
// Braces inside JSON strings are ignored. A brace that never closes is
// skipped and the scan resumes at the next one.
func extractJSONObject(text string) (string, bool) {
	for from := 0; from < len(text); {
		i := strings.IndexByte(text[from:], '{')
		if i < 0 {
			return "", false
		}
		start := from + i
		if end := balancedEnd(text, start); end > 0 {
			return text[start:end], true
		}
		from = start + 1
	}
	return "", false
}

// balancedEnd returns the index just past the brace closing text[start],
// or -1 when it never closes.
func balancedEnd(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// fieldProblem notes one key of the structured object that was missing or
// could not be decoded into its declared type.
type fieldProblem struct {
	Field  string
	Reason string
}

// parseFields decodes the consolidated structured-output response. Each key
// is validated on its own: a key with the wrong shape keeps its default and
// is reported as a problem while the rest of the object is used. An error
// means nothing usable was found and the result is DefaultFields.
func parseFields(text string) (types.StructuredFields, []fieldProblem, error) {
	fields := types.DefaultFields()

	obj, ok := extractJSONObject(text)
	if !ok {
		return fields, nil, errNoJSONObject
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return fields, nil, fmt.Errorf("parsing JSON object: %w", err)
	}

	var problems []fieldProblem
	decoded := 0
	note := func(field string, err error) {
		if err != nil {
			problems = append(problems, fieldProblem{Field: field, Reason: err.Error()})
			return
		}
		decoded++
	}

	for _, n := range []struct {
		key string
		dst *string
	}{
		{"diagnostic_reasoning", &fields.DiagnosticReasoning},
		{"intervention_rationale", &fields.InterventionRationale},
		{"prognosis", &fields.Prognosis},
		{"red_flags", &fields.RedFlags},
		{"outcome_measures", &fields.OutcomeMeasures},
		{"patient_education", &fields.PatientEducation},
		{"goal_setting", &fields.GoalSetting},
		{"home_program", &fields.HomeProgram},
		{"reflective_questions", &fields.ReflectiveQuestions},
	} {
		if msg, ok := raw[n.key]; ok {
			note(n.key, decodeNarrative(msg, n.dst))
		} else {
			problems = append(problems, fieldProblem{Field: n.key, Reason: "missing"})
		}
	}

	decodeKey := func(key string, fn func(json.RawMessage) error) {
		msg, ok := raw[key]
		if !ok {
			problems = append(problems, fieldProblem{Field: key, Reason: "missing"})
			return
		}
		note(key, fn(msg))
	}
	decodeKey("codes", func(m json.RawMessage) error {
		codes, err := decodeCodes(m)
		if err == nil {
			fields.Codes = codes
		}
		return err
	})
	decodeKey("assessment_findings", func(m json.RawMessage) error {
		return decodeStrings(m, &fields.AssessmentFindings)
	})
	decodeKey("intervention_plan", func(m json.RawMessage) error {
		return decodeStrings(m, &fields.InterventionPlan)
	})
	decodeKey("guidelines", func(m json.RawMessage) error {
		gs, err := decodeGuidelines(m)
		if err == nil {
			fields.Guidelines = gs
		}
		return err
	})
	decodeKey("evidence_levels", func(m json.RawMessage) error {
		levels, err := decodeLevels(m)
		if err == nil {
			fields.EvidenceLevels = levels
		}
		return err
	})

	if decoded == 0 {
		return types.DefaultFields(), problems, errNoFields
	}
	sort.SliceStable(problems, func(i, j int) bool { return problems[i].Field < problems[j].Field })
	return fields, problems, nil
}

// decodeNarrative accepts a string, or an array of strings joined by
// newlines.
func decodeNarrative(m json.RawMessage, dst *string) error {
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		*dst = strings.TrimSpace(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(m, &parts); err != nil {
		return fmt.Errorf("want string")
	}
	*dst = strings.TrimSpace(strings.Join(parts, "\n"))
	return nil
}

func decodeStrings(m json.RawMessage, dst *[]string) error {
	var in []string
	if err := json.Unmarshal(m, &in); err != nil {
		return fmt.Errorf("want array of strings")
	}
	out := []string{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
	return nil
}

// decodeCodes accepts [{"code","title"}] objects or "b280 Sensation of pain"
// strings. Entries without a code are dropped.
func decodeCodes(m json.RawMessage) ([]types.ClassificationCode, error) {
	var objs []types.ClassificationCode
	if err := json.Unmarshal(m, &objs); err == nil {
		out := []types.ClassificationCode{}
		for _, c := range objs {
			c.Code = strings.TrimSpace(c.Code)
			c.Title = strings.TrimSpace(c.Title)
			if c.Code != "" {
				out = append(out, c)
			}
		}
		return out, nil
	}

	var strs []string
	if err := json.Unmarshal(m, &strs); err != nil {
		return nil, fmt.Errorf("want array of codes")
	}
	out := []types.ClassificationCode{}
	for _, s := range strs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		code, title, _ := strings.Cut(s, " ")
		title = strings.TrimSpace(strings.TrimLeft(title, "-:– "))
		out = append(out, types.ClassificationCode{Code: strings.TrimRight(code, ":"), Title: title})
	}
	return out, nil
}

func decodeGuidelines(m json.RawMessage) ([]types.Guideline, error) {
	var in []types.Guideline
	if err := json.Unmarshal(m, &in); err != nil {
		return nil, fmt.Errorf("want array of guideline objects")
	}
	out := []types.Guideline{}
	for _, g := range in {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		if g.Recommended == nil {
			g.Recommended = []string{}
		}
		if g.Avoid == nil {
			g.Avoid = []string{}
		}
		out = append(out, g)
	}
	return out, nil
}

// maxLevelCount bounds a single histogram bucket.
const maxLevelCount = math.MaxInt32

// decodeLevels accepts whole-number counts written as integers or floats.
// Negative, fractional and out-of-range counts are invalid.
func decodeLevels(m json.RawMessage) (map[string]int, error) {
	var in map[string]float64
	if err := json.Unmarshal(m, &in); err != nil {
		return nil, fmt.Errorf("want object of counts")
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		switch {
		case v < 0:
			return nil, fmt.Errorf("negative count for %q", k)
		case v > maxLevelCount:
			return nil, fmt.Errorf("count out of range for %q", k)
		case v != math.Trunc(v):
			return nil, fmt.Errorf("fractional count for %q", k)
		}
		out[strings.TrimSpace(k)] = int(v)
	}
	return out, nil
}
