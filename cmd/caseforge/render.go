package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/caseforge/internal/assemble"
	"github.com/pdiddy/caseforge/pkg/types"
)

// writeDocument renders doc to w as markdown, yaml, or json.
func writeDocument(w io.Writer, doc types.CaseDocument, format string) error {
	switch format {
	case "markdown", "md", "":
		_, err := io.WriteString(w, assemble.RenderMarkdown(doc))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		return writeJSON(w, doc)
	default:
		return fmt.Errorf("unknown format %q: use markdown, yaml, or json", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// readCase decodes a YAML (or JSON) case record from path. A path of "-"
// reads standard input.
func readCase(path string) (types.CaseInput, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return types.CaseInput{}, fmt.Errorf("opening case file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var c types.CaseInput
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return types.CaseInput{}, fmt.Errorf("parsing case file %s: %w", path, err)
	}
	return c, nil
}
