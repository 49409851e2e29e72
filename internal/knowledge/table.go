// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/caseforge/pkg/types"
)

//go:embed table.yaml
var tableYAML []byte

// entry is one bucket in the curated knowledge table.
type entry struct {
	Bucket       types.Bucket               `yaml:"bucket"`
	Keywords     []string                   `yaml:"keywords"`
	CoachingHint string                     `yaml:"coaching_hint"`
	Summary      string                     `yaml:"summary"`
	Codes        []types.ClassificationCode `yaml:"codes"`
	Guideline    *types.Guideline           `yaml:"guideline"`
	Checklist    []group                    `yaml:"checklist"`
	Traps        []group                    `yaml:"traps"`
	Clinimetrics []note                     `yaml:"clinimetrics"`
}

// group is a named category of notes in the nested checklist and trap tables.
type group struct {
	Category string `yaml:"category"`
	Items    []note `yaml:"items"`
}

type note struct {
	Name     string `yaml:"name"`
	Guidance string `yaml:"guidance"`
}

func (n note) String() string {
	return n.Name + ": " + n.Guidance
}

// table holds the parsed entries in match priority order.
var table = mustParseTable(tableYAML)

func mustParseTable(data []byte) []entry {
	entries, err := parseTable(data)
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded table: %v", err))
	}
	return entries
}

// parseTable decodes the knowledge table and checks the invariants the
// resolver relies on: every bucket has exactly five starter codes and the
// last entry is the keyword-less general fallback. Unknown keys are errors:
// an unquoted comma inside a flow mapping splits a value into stray keys.
func parseTable(data []byte) ([]entry, error) {
	var entries []entry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing table: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	seen := make(map[types.Bucket]bool, len(entries))
	for i, e := range entries {
		if e.Bucket == "" {
			return nil, fmt.Errorf("entry %d: missing bucket", i)
		}
		if seen[e.Bucket] {
			return nil, fmt.Errorf("entry %d: duplicate bucket %q", i, e.Bucket)
		}
		seen[e.Bucket] = true
		if len(e.Codes) != starterCodeCount {
			return nil, fmt.Errorf("bucket %s: %d starter codes, want %d", e.Bucket, len(e.Codes), starterCodeCount)
		}
	}
	last := entries[len(entries)-1]
	if last.Bucket != types.BucketGeneral || len(last.Keywords) != 0 {
		return nil, fmt.Errorf("last entry must be the keyword-less %s bucket", types.BucketGeneral)
	}
	return entries, nil
}

// flatten renders nested groups as "name: guidance" lines in table order,
// stopping at limit.
func flatten(groups []group, limit int) []string {
	out := make([]string, 0, limit)
	for _, g := range groups {
		for _, it := range g.Items {
			if len(out) == limit {
				return out
			}
			out = append(out, it.String())
		}
	}
	return out
}

func flattenNotes(notes []note, limit int) []string {
	out := make([]string, 0, limit)
	for _, n := range notes {
		if len(out) == limit {
			break
		}
		out = append(out, n.String())
	}
	return out
}
