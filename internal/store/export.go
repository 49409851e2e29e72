// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/caseforge/pkg/types"
)

const exportLimit = 100000

// Export writes every stored document matching opts to w as a YAML or
// JSON list.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, opts ListOptions) error {
	if opts.Limit <= 0 {
		opts.Limit = exportLimit
	}
	summaries, err := s.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	docs := make([]types.CaseDocument, 0, len(summaries))
	for _, sum := range summaries {
		doc, err := s.Get(ctx, sum.ID)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q: use yaml or json", format)
	}
}
