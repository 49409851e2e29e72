// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/caseforge/pkg/types"
)

// RenderMarkdown formats a document for reading in a terminal or editor.
func RenderMarkdown(doc types.CaseDocument) string {
	var b strings.Builder

	title := doc.CaseID
	if title == "" {
		title = doc.ID
	}
	fmt.Fprintf(&b, "# Case Study %s\n\n", title)
	fmt.Fprintf(&b, "- Mode: %s\n", doc.Mode)
	fmt.Fprintf(&b, "- Condition category: %s\n", doc.Bucket)
	if !doc.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", doc.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n")

	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		body := strings.TrimSpace(s.Body)
		if body == "" {
			body = "_Not available._"
		}
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	if len(doc.Codes) > 0 {
		b.WriteString("## ICF Codes\n\n")
		for _, c := range doc.Codes {
			fmt.Fprintf(&b, "- **%s** %s\n", c.Code, c.Title)
		}
		b.WriteString("\n")
	}

	if len(doc.Guidelines) > 0 {
		b.WriteString("## Guidelines\n\n")
		for _, g := range doc.Guidelines {
			fmt.Fprintf(&b, "### %s\n\n", guidelineHeading(g))
			for _, r := range g.Recommended {
				fmt.Fprintf(&b, "- Recommended: %s\n", r)
			}
			for _, a := range g.Avoid {
				fmt.Fprintf(&b, "- Avoid: %s\n", a)
			}
			b.WriteString("\n")
		}
	}

	if len(doc.EvidenceLevels) > 0 {
		b.WriteString("## Evidence Levels\n\n")
		levels := make([]string, 0, len(doc.EvidenceLevels))
		for l := range doc.EvidenceLevels {
			levels = append(levels, l)
		}
		sort.Strings(levels)
		for _, l := range levels {
			fmt.Fprintf(&b, "- %s: %d\n", l, doc.EvidenceLevels[l])
		}
		b.WriteString("\n")
	}

	if doc.Degraded() {
		fmt.Fprintf(&b, "_%d field(s) fell back to defaults._\n", len(doc.Diagnostics))
	}
	return b.String()
}

func guidelineHeading(g types.Guideline) string {
	var parts []string
	if g.Source != "" {
		parts = append(parts, g.Source)
	}
	if g.Year > 0 {
		parts = append(parts, fmt.Sprint(g.Year))
	}
	if len(parts) == 0 {
		return g.Name
	}
	return fmt.Sprintf("%s (%s)", g.Name, strings.Join(parts, ", "))
}
