// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads caseforge credentials from a directory, normally
// .secrets/, holding one plain-text file per credential. The file name is
// the key and the trimmed contents are the value.
//
// The Anthropic key authenticates completion calls. The NCBI key and email
// identify E-utilities traffic and raise the PubMed rate limit. The Semantic
// Scholar key does the same for the graph API. Recognised files are checked
// for obvious paste mistakes; other files are loaded as-is.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key file names.
const (
	AnthropicAPIKey       = "anthropic-api-key"
	NCBIAPIKey            = "ncbi-api-key"
	NCBIEmail             = "ncbi-email"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
)

// checks validates recognised keys. A failing value is dropped with a warning
// so a bad file falls back to config or the keyless service tier.
var checks = map[string]func(string) error{
	AnthropicAPIKey:       singleToken,
	NCBIAPIKey:            singleToken,
	SemanticScholarAPIKey: singleToken,
	NCBIEmail:             emailAddress,
}

func singleToken(v string) error {
	if strings.ContainsAny(v, " \t\r\n") {
		return fmt.Errorf("contains whitespace")
	}
	return nil
}

func emailAddress(v string) error {
	at := strings.IndexByte(v, '@')
	if at <= 0 || at == len(v)-1 || strings.ContainsAny(v, " \t\r\n") {
		return fmt.Errorf("not an email address")
	}
	return nil
}

// Load returns the credentials in dir keyed by file name. A missing
// directory yields an empty map. Dotfiles, subdirectories and empty files
// are skipped; unreadable or invalid files are reported on stderr and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		value, err := readValue(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping secret %s: %v\n", name, err)
			continue
		}
		if value == "" {
			continue
		}
		if check, ok := checks[name]; ok {
			if err := check(value); err != nil {
				fmt.Fprintf(os.Stderr, "warning: skipping secret %s: %v\n", name, err)
				continue
			}
		}
		out[name] = value
	}
	return out, nil
}

func readValue(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Value returns override when it is set, otherwise the loaded secret for key.
func Value(secrets map[string]string, key, override string) string {
	if override != "" {
		return override
	}
	return secrets[key]
}
