// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge maps a patient case to curated clinical knowledge: the
// condition bucket, its guideline, assessment checklist, reasoning traps,
// clinimetric tools, and starter classification codes. Resolution is pure
// and deterministic.
package knowledge

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/caseforge/pkg/types"
)

// Caps keep the flattened knowledge block small enough for every prompt.
const (
	maxChecklist     = 6
	maxTraps         = 5
	maxClinimetrics  = 6
	maxRecommended   = 3
	maxAvoid         = 2
	starterCodeCount = 5
)

// Resolve derives the knowledge context for a case. It never fails: text
// that matches no bucket resolves to the general bucket.
func Resolve(c types.CaseInput) types.KnowledgeContext {
	e := lookup(ResolveBucket(c))

	kc := types.KnowledgeContext{
		Bucket:       e.Bucket,
		Guidelines:   []types.Guideline{},
		Checklist:    flatten(e.Checklist, maxChecklist),
		Traps:        flatten(e.Traps, maxTraps),
		Clinimetrics: flattenNotes(e.Clinimetrics, maxClinimetrics),
		StarterCodes: append([]types.ClassificationCode(nil), e.Codes...),
		CoachingHint: e.CoachingHint,
	}

	if e.Guideline != nil {
		g := trimGuideline(*e.Guideline)
		kc.Guidelines = append(kc.Guidelines, g)
		kc.GuidelineSummary = summarize(g)
	} else {
		kc.GuidelineSummary = strings.TrimSpace(e.Summary)
	}
	return kc
}

// ResolveBucket returns the first bucket in priority order whose keywords
// occur in the case's condition, complaint, or specialization.
func ResolveBucket(c types.CaseInput) types.Bucket {
	text := " " + normalize(c.Condition+" "+c.PresentingComplaint+" "+c.Specialization) + " "
	for _, e := range table {
		for _, kw := range e.Keywords {
			if strings.Contains(text, kw) {
				return e.Bucket
			}
		}
	}
	return types.BucketGeneral
}

// StarterCodes returns the curated fallback codes for a bucket.
func StarterCodes(b types.Bucket) []types.ClassificationCode {
	return append([]types.ClassificationCode(nil), lookup(b).Codes...)
}

// normalize lower-cases s and folds every run of non-alphanumeric runes to
// a single space.
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func lookup(b types.Bucket) entry {
	for _, e := range table {
		if e.Bucket == b {
			return e
		}
	}
	return table[len(table)-1]
}

func trimGuideline(g types.Guideline) types.Guideline {
	out := g
	out.Recommended = capped(g.Recommended, maxRecommended)
	out.Avoid = capped(g.Avoid, maxAvoid)
	return out
}

func capped(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return append([]string{}, s...)
}

func summarize(g types.Guideline) string {
	var b strings.Builder
	b.WriteString(g.Name)
	if g.Source != "" {
		if g.Year > 0 {
			fmt.Fprintf(&b, " (%s, %d)", g.Source, g.Year)
		} else {
			fmt.Fprintf(&b, " (%s)", g.Source)
		}
	}
	b.WriteString(".")
	if len(g.Recommended) > 0 {
		fmt.Fprintf(&b, " Recommended: %s.", strings.Join(g.Recommended, "; "))
	}
	if len(g.Avoid) > 0 {
		fmt.Fprintf(&b, " Avoid: %s.", strings.Join(g.Avoid, "; "))
	}
	return b.String()
}
