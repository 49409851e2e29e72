// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/caseforge/pkg/types"
)

// Summary is the listing view of a stored document.
type Summary struct {
	ID        string     `json:"id" yaml:"id"`
	CaseID    string     `json:"case_id" yaml:"case_id"`
	Mode      types.Mode `json:"mode" yaml:"mode"`
	Bucket    string     `json:"bucket" yaml:"bucket"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	Degraded  bool       `json:"degraded" yaml:"degraded"`
	Sections  int        `json:"sections" yaml:"sections"`
}

// ListOptions filters List.
type ListOptions struct {
	// CaseID restricts results to one patient case.
	CaseID string

	// Limit caps the number of results. Zero uses the store default.
	Limit int
}

// Match is one section whose title or body contains the search text.
type Match struct {
	DocumentID string `json:"document_id" yaml:"document_id"`
	CaseID     string `json:"case_id" yaml:"case_id"`
	Section    string `json:"section" yaml:"section"`
	Snippet    string `json:"snippet" yaml:"snippet"`
}

// Get returns the document with id.
func (s *Store) Get(ctx context.Context, id string) (types.CaseDocument, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CaseDocument{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.CaseDocument{}, fmt.Errorf("querying document: %w", err)
	}

	var doc types.CaseDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return types.CaseDocument{}, fmt.Errorf("decoding document %s: %w", id, err)
	}
	return doc, nil
}

// List returns document summaries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT d.id, d.case_id, d.mode, d.bucket, d.created_at, d.degraded,
			(SELECT count(*) FROM sections s WHERE s.document_id = d.id)
		FROM documents d`)
	if opts.CaseID != "" {
		qb.WriteString(` WHERE d.case_id = ?`)
		args = append(args, opts.CaseID)
	}
	qb.WriteString(` ORDER BY d.created_at DESC, d.id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			mode    string
			created string
		)
		if err := rows.Scan(&sum.ID, &sum.CaseID, &mode, &sum.Bucket, &created, &sum.Degraded, &sum.Sections); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		sum.Mode = types.Mode(mode)
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			sum.CreatedAt = t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

const snippetRadius = 60

// Search finds sections whose title or body contains text, case-insensitively.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty search text")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.document_id, d.case_id, s.title, s.body
		 FROM sections s JOIN documents d ON d.id = s.document_id
		 WHERE lower(s.title) LIKE ? ESCAPE '\' OR lower(s.body) LIKE ? ESCAPE '\'
		 ORDER BY d.created_at DESC, s.document_id, s.position
		 LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching sections: %w", err)
	}
	defer rows.Close()

	out := []Match{}
	for rows.Next() {
		var m Match
		var body string
		if err := rows.Scan(&m.DocumentID, &m.CaseID, &m.Section, &body); err != nil {
			return nil, fmt.Errorf("scanning section row: %w", err)
		}
		m.Snippet = snippet(body, text)
		out = append(out, m)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet returns the text around the first case-insensitive occurrence of
// needle in body, or the start of body when the match was in the title.
func snippet(body, needle string) string {
	runes := []rune(body)
	lower := []rune(strings.ToLower(body))
	idx := strings.Index(string(lower), strings.ToLower(needle))
	start := 0
	if idx >= 0 {
		start = min(len(runes), len([]rune(string(lower)[:idx])))
	}
	lo := max(0, start-snippetRadius)
	hi := min(len(runes), start+len([]rune(needle))+snippetRadius)
	out := strings.TrimSpace(string(runes[lo:hi]))
	if lo > 0 {
		out = "..." + out
	}
	if hi < len(runes) {
		out += "..."
	}
	return out
}
