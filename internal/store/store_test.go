package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/caseforge/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "caseforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(id, caseID string, created time.Time) types.CaseDocument {
	return types.CaseDocument{
		ID:        id,
		CaseID:    caseID,
		Mode:      types.ModeQuick,
		Bucket:    types.BucketLowBackPain,
		CreatedAt: created,
		Sections: []types.Section{
			{Title: "Case Summary", Body: "A 40-year-old office worker with recurrent lumbar pain after lifting."},
			{Title: "Assessment and Management", Body: "Graded activity and education about pain.", Defaulted: false},
			{Title: "Evidence-Based References", Body: "1. Hayden JA (2021). Exercise therapy. [Level I]\n"},
		},
		Evidence: []types.EvidenceItem{{
			ID: "34580864", Title: "Exercise therapy", Authors: []string{"Hayden JA"},
			Level: types.LevelI, Citation: "Hayden JA (2021). Exercise therapy.",
		}},
		Codes:          []types.ClassificationCode{{Code: "b280", Title: "Sensation of pain"}},
		Fields:         types.DefaultFields(),
		Guidelines:     []types.Guideline{{Name: "NICE NG59", Source: "NICE", Year: 2016, Recommended: []string{"Exercise"}, Avoid: []string{}}},
		EvidenceLevels: map[string]int{"Level I": 1},
		Diagnostics:    []types.Diagnostic{},
	}
}

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

// --- tests ---

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	doc := testDoc("doc-1", "case-1", t0)
	require.NoError(t, s.Save(ctx, doc))

	got, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestSaveReplacesSections(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	doc := testDoc("doc-1", "case-1", t0)
	require.NoError(t, s.Save(ctx, doc))

	doc.Sections = doc.Sections[:1]
	doc.Diagnostics = []types.Diagnostic{{Phase: "phase2b", Field: "structured_fields", Reason: "no JSON"}}
	require.NoError(t, s.Save(ctx, doc))

	list, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Sections)
	assert.True(t, list[0].Degraded)
}

func TestSaveRequiresID(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.Save(context.Background(), testDoc("", "case-1", t0)))
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirstAndFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testDoc("a", "case-1", t0)))
	require.NoError(t, s.Save(ctx, testDoc("b", "case-2", t0.Add(time.Hour))))
	require.NoError(t, s.Save(ctx, testDoc("c", "case-1", t0.Add(2*time.Hour))))

	list, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, t0.Add(2*time.Hour), list[0].CreatedAt)
	assert.Equal(t, 3, list[0].Sections)
	assert.Equal(t, types.ModeQuick, list[0].Mode)
	assert.False(t, list[0].Degraded)

	list, err = s.List(ctx, ListOptions{CaseID: "case-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].ID)

	list, err = s.List(ctx, ListOptions{CaseID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testDoc("a", "case-1", t0)))

	matches, err := s.Search(ctx, "GRADED activity", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].DocumentID)
	assert.Equal(t, "case-1", matches[0].CaseID)
	assert.Equal(t, "Assessment and Management", matches[0].Section)
	assert.Contains(t, matches[0].Snippet, "Graded activity")

	matches, err = s.Search(ctx, "summary", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1, "title matches count")
	assert.Equal(t, "Case Summary", matches[0].Section)

	matches, err = s.Search(ctx, "100%", 0)
	require.NoError(t, err)
	assert.Empty(t, matches, "wildcards are literal")

	_, err = s.Search(ctx, "  ", 0)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testDoc("a", "case-1", t0)))

	require.NoError(t, s.Delete(ctx, "a"))
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	matches, err := s.Search(ctx, "graded", 0)
	require.NoError(t, err)
	assert.Empty(t, matches, "sections are deleted with their document")

	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testDoc("a", "case-1", t0)))
	require.NoError(t, s.Save(ctx, testDoc("b", "case-2", t0.Add(time.Minute))))

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, &buf, "yaml", ListOptions{}))
	var fromYAML []types.CaseDocument
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.Equal(t, "b", fromYAML[0].ID)

	buf.Reset()
	require.NoError(t, s.Export(ctx, &buf, "json", ListOptions{CaseID: "case-1"}))
	var fromJSON []types.CaseDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 1)
	assert.Equal(t, "a", fromJSON[0].ID)

	assert.Error(t, s.Export(ctx, &buf, "csv", ListOptions{}))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short body", snippet("short body", "body"))
	long := "start " + string(bytes.Repeat([]byte("x"), 100)) + " needle " + string(bytes.Repeat([]byte("y"), 100))
	got := snippet(long, "NEEDLE")
	assert.Contains(t, got, "needle")
	assert.True(t, len(got) < len(long))
	assert.Equal(t, "...", got[:3])
}
