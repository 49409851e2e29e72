// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists synthesized case documents in SQLite so they can
// be listed, searched and re-rendered after the run that produced them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/caseforge/pkg/types"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

const defaultListLimit = 50

// Store manages the document database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating its directory and
// the schema when they do not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			case_id TEXT,
			mode TEXT NOT NULL,
			bucket TEXT NOT NULL,
			created_at TEXT NOT NULL,
			degraded INTEGER NOT NULL DEFAULT 0,
			body TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_case_id ON documents(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at)`,
		`CREATE TABLE IF NOT EXISTS sections (
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (document_id, position)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts doc, replacing any stored document with the same id.
func (s *Store) Save(ctx context.Context, doc types.CaseDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("saving document: empty id")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, case_id, mode, bucket, created_at, degraded, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			case_id=excluded.case_id, mode=excluded.mode, bucket=excluded.bucket,
			created_at=excluded.created_at, degraded=excluded.degraded, body=excluded.body`,
		doc.ID, doc.CaseID, string(doc.Mode), string(doc.Bucket),
		doc.CreatedAt.UTC().Format(time.RFC3339Nano), doc.Degraded(), string(body),
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("deleting old sections: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sections (document_id, position, title, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, sec := range doc.Sections {
		if _, err := stmt.ExecContext(ctx, doc.ID, i, sec.Title, sec.Body); err != nil {
			return fmt.Errorf("inserting section %q: %w", sec.Title, err)
		}
	}

	return tx.Commit()
}

// Delete removes a document and its sections.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
