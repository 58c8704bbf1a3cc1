package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func tagAt(name string, start, end int) *Occurrence {
	return &Occurrence{Kind: KindTag, Name: name, StartOffset: start, EndOffset: end, EndCol: end}
}

// replaceTestDocument records url with the given occurrences and deps.
func replaceTestDocument(t *testing.T, s *Store, url string, occs []*Occurrence, deps ...string) *Document {
	t.Helper()
	doc := &Document{URL: url, Hash: ContentHash(url)}
	require.NoError(t, s.ReplaceDocument(doc, occs, deps))
	require.Positive(t, doc.ID)
	return doc
}

func occurrenceURLs(occs []*Occurrence) []string {
	var out []string
	for _, o := range occs {
		out = append(out, o.URL)
	}
	return out
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"documents", "occurrences", "dependencies"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestNewStore_InMemory(t *testing.T) {
	t.Parallel()
	s, err := NewStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	replaceTestDocument(t, s, "a.html", []*Occurrence{tagAt("x-a", 1, 5)})
	got, err := s.OccurrencesByName(KindTag, "x-a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// =============================================================================
// Documents
// =============================================================================

func TestDocument_ReplaceAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	doc := &Document{URL: "a/index.html", Hash: "abc", LastIndexed: now}
	occ := &Occurrence{Kind: KindBinding, Name: "foo", Scope: "x-a", StartOffset: 10, EndOffset: 13,
		StartLine: 1, StartCol: 4, EndLine: 1, EndCol: 7}
	require.NoError(t, s.ReplaceDocument(doc, []*Occurrence{occ}, []string{"a/dep.html"}))
	assert.Equal(t, doc.ID, occ.DocumentID)
	assert.Equal(t, "a/index.html", occ.URL)
	assert.Positive(t, occ.ID)

	got, err := s.DocumentByURL("a/index.html")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "abc", got.Hash)
	assert.True(t, now.Equal(got.LastIndexed))

	occs, err := s.OccurrencesByDocument("a/index.html")
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, *occ, *occs[0])
}

func TestDocument_ByURLNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.DocumentByURL("missing.html")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDocument_ReplaceDiscardsPrevious(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	replaceTestDocument(t, s, "a.html", []*Occurrence{tagAt("x-old", 0, 6)}, "old-dep.html")
	replaceTestDocument(t, s, "a.html", []*Occurrence{tagAt("x-new", 0, 6)}, "new-dep.html")

	old, err := s.OccurrencesByName(KindTag, "x-old")
	require.NoError(t, err)
	assert.Empty(t, old)

	fresh, err := s.OccurrencesByName(KindTag, "x-new")
	require.NoError(t, err)
	assert.Len(t, fresh, 1)

	deps, err := s.Dependents("old-dep.html")
	require.NoError(t, err)
	assert.Empty(t, deps)
	deps, err = s.Dependents("new-dep.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html"}, deps)

	docs, err := s.Documents()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocument_Delete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	replaceTestDocument(t, s, "a.html", []*Occurrence{tagAt("x-a", 0, 4)}, "dep.html")
	require.NoError(t, s.DeleteDocument("a.html"))
	require.NoError(t, s.DeleteDocument("never-seen.html"))

	got, err := s.DocumentByURL("a.html")
	require.NoError(t, err)
	assert.Nil(t, got)

	occs, err := s.OccurrencesByName(KindTag, "x-a")
	require.NoError(t, err)
	assert.Empty(t, occs)

	deps, err := s.Dependents("dep.html")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestDocuments_OrderedByURL(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	replaceTestDocument(t, s, "c.html", nil)
	replaceTestDocument(t, s, "a.html", nil)
	replaceTestDocument(t, s, "b.html", nil)

	docs, err := s.Documents()
	require.NoError(t, err)
	var urls []string
	for _, d := range docs {
		urls = append(urls, d.URL)
	}
	assert.Equal(t, []string{"a.html", "b.html", "c.html"}, urls)
}

func TestDependents(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	replaceTestDocument(t, s, "b.html", nil, "shared.html", "only-b.html")
	replaceTestDocument(t, s, "a.html", nil, "shared.html")

	deps, err := s.Dependents("shared.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html"}, deps)

	deps, err = s.Dependents("nobody.html")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

// =============================================================================
// Occurrences
// =============================================================================

func TestOccurrencesByName_OrderAndFilter(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	replaceTestDocument(t, s, "b.html", []*Occurrence{tagAt("x-a", 30, 34), tagAt("x-a", 2, 6), tagAt("x-b", 10, 14)})
	replaceTestDocument(t, s, "a.html", []*Occurrence{tagAt("x-a", 5, 9)})
	replaceTestDocument(t, s, "c.html", []*Occurrence{tagAt("x-a", 0, 4)})

	all, err := s.OccurrencesByName(KindTag, "x-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html", "b.html", "c.html"}, occurrenceURLs(all))
	assert.Equal(t, 2, all[1].StartOffset)
	assert.Equal(t, 30, all[2].StartOffset)

	some, err := s.OccurrencesByName(KindTag, "x-a", "c.html", "b.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.html", "b.html", "c.html"}, occurrenceURLs(some))

	none, err := s.OccurrencesByName(KindBinding, "x-a")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOccurrencesInScope(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	replaceTestDocument(t, s, "a.html", []*Occurrence{
		{Kind: KindBinding, Name: "foo", Scope: "x-a", StartOffset: 1, EndOffset: 4},
		{Kind: KindBinding, Name: "foo", Scope: "x-b", StartOffset: 8, EndOffset: 11},
		{Kind: KindBinding, Name: "foo", Scope: "x-a", StartOffset: 20, EndOffset: 23},
	})

	got, err := s.OccurrencesInScope(KindBinding, "foo", "x-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].StartOffset)
	assert.Equal(t, 20, got[1].StartOffset)
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
	assert.Len(t, ContentHash(""), 64)
}

func TestPlaceholderList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", placeholderList(0))
	assert.Equal(t, "?", placeholderList(1))
	assert.Equal(t, "?,?,?", placeholderList(3))
}
