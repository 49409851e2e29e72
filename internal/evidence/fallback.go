// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"fmt"
	"strings"

	"github.com/pdiddy/caseforge/pkg/types"
)

const sourceSynthetic = "caseforge"

// Placeholders returns the fixed set of synthetic evidence items used when
// no literature could be retrieved. Every item is marked Synthetic and its
// citation carries SyntheticTag.
func Placeholders(condition, specialization string) []types.EvidenceItem {
	topic := strings.TrimSpace(condition)
	if topic == "" {
		topic = "the presenting condition"
	}
	field := strings.TrimSpace(specialization)
	if field == "" {
		field = "physiotherapy"
	}

	titles := []string{
		fmt.Sprintf("Current clinical practice guideline for %s", topic),
		fmt.Sprintf("Systematic reviews of %s interventions for %s", strings.ToLower(field), topic),
		fmt.Sprintf("Randomized trials of exercise therapy for %s", topic),
	}

	// Placeholders are always Level V.
	items := make([]types.EvidenceItem, len(titles))
	for i, title := range titles {
		item := types.EvidenceItem{
			ID:        fmt.Sprintf("synthetic-%d", i+1),
			Title:     title + " (no literature retrieved; verify before citing)",
			Source:    sourceSynthetic,
			Level:     types.LevelV,
			Synthetic: true,
			Authors:   []string{},
		}
		item.Citation = FormatCitation(item)
		items[i] = item
	}
	return items
}

// Real returns the items that are not synthetic placeholders.
func Real(items []types.EvidenceItem) []types.EvidenceItem {
	out := make([]types.EvidenceItem, 0, len(items))
	for _, it := range items {
		if !it.Synthetic {
			out = append(out, it)
		}
	}
	return out
}
