// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"strings"

	"github.com/pdiddy/caseforge/pkg/types"
)

// Title-match weights added on top of the evidence-level ordinal.
const (
	primaryMatchPoints   = 5
	secondaryMatchPoints = 2
	specialtyMatchPoints = 3
)

// levelRules maps title or publication-type keywords to an evidence level.
// Rules are checked strongest first; anything unmatched is Level V.
var levelRules = []struct {
	level    types.EvidenceLevel
	keywords []string
}{
	{types.LevelI, []string{"meta analysis", "metaanalysis", "systematic review", "umbrella review"}},
	{types.LevelII, []string{"randomized controlled", "randomised controlled", "randomized trial", "randomised trial", "rct"}},
	{types.LevelIII, []string{"cohort", "prospective study", "longitudinal study"}},
	{types.LevelIV, []string{"case control", "case series", "case report"}},
}

// Classify assigns an evidence level from a title and any publication-type
// tags the backend supplied.
func Classify(title string, publicationTypes []string) types.EvidenceLevel {
	text := normalize(title + " " + strings.Join(publicationTypes, " "))
	for _, rule := range levelRules {
		for _, kw := range rule.keywords {
			if containsWord(text, kw) {
				return rule.level
			}
		}
	}
	return types.LevelV
}

// score is the composite ranking score: level ordinal plus title matches.
func score(item types.EvidenceItem, terms termSet) int {
	title := normalize(item.Title)
	total := item.Level.Ordinal()
	for _, t := range terms.primary {
		if containsWord(title, t) {
			total += primaryMatchPoints
		}
	}
	for _, t := range terms.secondary {
		if containsWord(title, t) {
			total += secondaryMatchPoints
		}
	}
	for _, t := range terms.specialty {
		if containsWord(title, t) {
			total += specialtyMatchPoints
			break
		}
	}
	return total
}

// canonicalURL builds the landing page for records whose backend did not
// supply one.
func canonicalURL(r types.SearchRecord) string {
	switch {
	case r.ID == "":
		return ""
	case r.Source == sourcePubMed:
		return "https://pubmed.ncbi.nlm.nih.gov/" + r.ID + "/"
	case strings.HasPrefix(r.ID, "10."):
		return "https://doi.org/" + r.ID
	case r.Source == sourceSemanticScholar:
		return "https://www.semanticscholar.org/paper/" + r.ID
	default:
		return ""
	}
}
