// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"fmt"
	"strings"

	"github.com/pdiddy/caseforge/pkg/types"
)

// SyntheticTag prefixes the citation of every placeholder item.
const SyntheticTag = "[SYNTHETIC PLACEHOLDER]"

const maxCitedAuthors = 3

// FormatCitation renders an item as "Authors (Year). Title. Source. URL".
func FormatCitation(item types.EvidenceItem) string {
	var b strings.Builder
	if item.Synthetic {
		b.WriteString(SyntheticTag + " ")
	}
	if authors := formatAuthors(item.Authors); authors != "" {
		b.WriteString(authors + " ")
	}
	if item.Date.IsZero() {
		b.WriteString("(n.d.).")
	} else {
		fmt.Fprintf(&b, "(%d).", item.Date.Year())
	}
	if t := strings.TrimSuffix(strings.TrimSpace(item.Title), "."); t != "" {
		b.WriteString(" " + t + ".")
	}
	if item.Source != "" {
		b.WriteString(" " + item.Source + ".")
	}
	if item.URL != "" {
		b.WriteString(" " + item.URL)
	}
	return b.String()
}

func formatAuthors(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	if len(authors) > maxCitedAuthors {
		return strings.Join(authors[:maxCitedAuthors], ", ") + ", et al."
	}
	return strings.Join(authors, ", ")
}

// FormatList renders items as a numbered reference list with evidence
// levels, one item per line.
func FormatList(items []types.EvidenceItem) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, it.Citation, it.Level)
	}
	return b.String()
}

const promptAbstractLimit = 400

// FormatForPrompt renders items with truncated abstracts for inclusion in
// model prompts.
func FormatForPrompt(items []types.EvidenceItem) string {
	if len(items) == 0 {
		return "No evidence available."
	}
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, it.Citation, it.Level)
		if abs := truncate(strings.TrimSpace(it.Abstract), promptAbstractLimit); abs != "" {
			fmt.Fprintf(&b, "    Abstract: %s\n", abs)
		}
	}
	return b.String()
}

// Histogram counts items per evidence level.
func Histogram(items []types.EvidenceItem) map[string]int {
	h := make(map[string]int)
	for _, it := range items {
		h[string(it.Level)]++
	}
	return h
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
