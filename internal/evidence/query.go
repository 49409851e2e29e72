// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"errors"
	"strings"
	"unicode"
)

var errNoBackend = errors.New("no search backend configured")

// Strategy names, in execution priority order.
const (
	StrategyHigh     = "high"
	StrategyModerate = "moderate"
	StrategyBroad    = "broad"
)

// Evidence-type terms in order of strength. The high-specificity strategy
// uses only the first two.
var evidenceTypeTerms = []string{
	"systematic review",
	"randomized controlled trial",
	"meta-analysis",
	"clinical practice guideline",
	"cohort study",
}

var specialtyTerms = []string{"physiotherapy", "physical therapy", "rehabilitation"}

var treatmentTerms = []string{"treatment", "management", "exercise", "therapy"}

// stopwords are dropped when splitting a condition into primary terms.
var stopwords = map[string]bool{
	"and": true, "the": true, "with": true, "for": true, "of": true, "in": true,
	"non": true, "specific": true, "chronic": true, "acute": true, "subacute": true,
	"left": true, "right": true, "bilateral": true, "after": true, "post": true,
}

// Query is a conjunction of term groups; terms inside a group are
// alternatives. Backends render it in their own syntax.
type Query struct {
	Strategy string
	Groups   [][]string
}

// Boolean renders the query in PubMed-style boolean syntax:
// ("a" OR "b") AND ("c").
func (q Query) Boolean() string {
	parts := make([]string, 0, len(q.Groups))
	for _, g := range q.Groups {
		if len(g) == 0 {
			continue
		}
		quoted := make([]string, len(g))
		for i, t := range g {
			quoted[i] = quoteTerm(t)
		}
		parts = append(parts, "("+strings.Join(quoted, " OR ")+")")
	}
	return strings.Join(parts, " AND ")
}

// Plain renders the query as space-separated keywords for services that do
// not accept boolean syntax: the first term of every group.
func (q Query) Plain() string {
	parts := make([]string, 0, len(q.Groups))
	for _, g := range q.Groups {
		if len(g) > 0 {
			parts = append(parts, g[0])
		}
	}
	return strings.Join(parts, " ")
}

func quoteTerm(t string) string {
	if strings.ContainsAny(t, " -") {
		return `"` + t + `"`
	}
	return t
}

// buildStrategies returns the three query variants in decreasing
// specificity: high, moderate, broad.
func buildStrategies(req Request) []Query {
	condition := strings.ToLower(strings.Join(strings.Fields(req.Condition), " "))
	primary := primaryTerms(req.Condition)
	specialty := specializationGroup(req.Specialization)

	high := Query{Strategy: StrategyHigh, Groups: [][]string{
		cleanTerms([]string{condition}),
		specialty,
		evidenceTypeTerms[:2],
	}}

	moderate := Query{Strategy: StrategyModerate, Groups: [][]string{
		cleanTerms([]string{strings.Join(primary, " ")}),
		specialty,
	}}
	if symptoms := cleanTerms(req.Symptoms); len(symptoms) > 0 {
		moderate.Groups = append(moderate.Groups, symptoms)
	}
	moderate.Groups = append(moderate.Groups, evidenceTypeTerms)

	broadSpecialty := []string{"rehabilitation"}
	if s := strings.ToLower(strings.TrimSpace(req.Specialization)); s != "" {
		broadSpecialty = []string{s, "rehabilitation"}
	}
	broad := Query{Strategy: StrategyBroad, Groups: [][]string{
		cleanTerms([]string{strings.Join(primary, " ")}),
		broadSpecialty,
		treatmentTerms,
	}}

	return []Query{high, moderate, broad}
}

func specializationGroup(spec string) []string {
	group := make([]string, 0, len(specialtyTerms)+1)
	if s := strings.ToLower(strings.TrimSpace(spec)); s != "" {
		group = append(group, s)
	}
	return append(group, specialtyTerms...)
}

// primaryTerms splits the condition into its content words.
func primaryTerms(condition string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(normalize(condition)) {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	if len(terms) == 0 {
		if c := normalize(condition); c != "" {
			terms = []string{c}
		}
	}
	return terms
}

func cleanTerms(in []string) []string {
	var out []string
	for _, t := range in {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// termSet holds the normalized terms a title is scored against.
type termSet struct {
	primary   []string
	secondary []string
	specialty []string
}

func newTermSet(req Request) termSet {
	ts := termSet{primary: primaryTerms(req.Condition)}
	for _, t := range append(cleanTerms(req.Symptoms), cleanTerms(req.PriorInterventions)...) {
		if n := normalize(t); n != "" {
			ts.secondary = append(ts.secondary, n)
		}
	}
	for _, t := range specializationGroup(req.Specialization) {
		ts.specialty = append(ts.specialty, normalize(t))
	}
	return ts
}

// normalize lower-cases s and folds runs of non-alphanumeric runes to one space.
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// containsWord reports whether the normalized phrase occurs in the
// normalized text on word boundaries.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
