// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"fmt"
	"strings"

	"github.com/pdiddy/caseforge/pkg/types"
)

// PromptBlock renders the knowledge context as the plain-text block that
// every generation prompt embeds.
func PromptBlock(kc types.KnowledgeContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Condition category: %s\n", kc.Bucket)
	if kc.GuidelineSummary != "" {
		fmt.Fprintf(&b, "Guideline: %s\n", kc.GuidelineSummary)
	}
	writeList(&b, "Assessment checklist", kc.Checklist)
	writeList(&b, "Reasoning traps to avoid", kc.Traps)
	writeList(&b, "Suggested clinimetric tools", kc.Clinimetrics)
	if len(kc.StarterCodes) > 0 {
		codes := make([]string, len(kc.StarterCodes))
		for i, c := range kc.StarterCodes {
			codes[i] = c.Code + " " + c.Title
		}
		fmt.Fprintf(&b, "Starter ICF codes: %s\n", strings.Join(codes, "; "))
	}
	if kc.CoachingHint != "" {
		fmt.Fprintf(&b, "Coaching boundary: %s\n", kc.CoachingHint)
	}
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
