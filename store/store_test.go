package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixdegrees/wikigraph/search"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite3")
	s, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPageRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add(0, "foo"))
	require.NoError(t, s.Add(1, "bar"))
	require.NoError(t, s.Add(65537, "baz"))

	id, err := s.Index("baz")
	require.NoError(t, err)
	assert.Equal(t, uint32(65537), id)

	id, err = s.Index("foo")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)

	_, err = s.Index("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	title, err := s.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, "bar", title)

	_, err = s.Lookup(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddDuplicateIDFails(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add(1, "foo"))
	err := s.Add(1, "bar")
	assert.Error(t, err)
}

func TestLinksDedupAndSort(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []uint32{1, 2, 3} {
		require.NoError(t, s.Add(id, string(rune('a'+id))))
	}

	require.NoError(t, s.AddLink(1, 2))
	require.NoError(t, s.AddLink(2, 3))
	require.NoError(t, s.AddLink(3, 2))
	require.NoError(t, s.AddLink(3, 2))

	to, err := s.LinksTo(2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3}, to)

	from, err := s.LinksFrom(2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, from)
}

func TestLinksInvariants(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []uint32{1, 2} {
		require.NoError(t, s.Add(id, string(rune('a'+id))))
	}
	require.NoError(t, s.AddLink(1, 2))

	to, err := s.LinksTo(2)
	require.NoError(t, err)
	assert.Contains(t, to, uint32(1))

	from, err := s.LinksFrom(1)
	require.NoError(t, err)
	assert.Contains(t, from, uint32(2))
}

func TestSearchWithRedirect(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add(1, "Dog"))
	require.NoError(t, s.Add(2, "Doghouse"))
	require.NoError(t, s.AddRedirect(1, "Canine"))

	results, err := s.Search("Dog%")
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[uint32]SearchResult{}
	for _, r := range results {
		byID[r.ID] = r
	}
	require.True(t, byID[1].RedirectTarget.Valid)
	assert.Equal(t, "Canine", byID[1].RedirectTarget.String)
	assert.False(t, byID[2].RedirectTarget.Valid)
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add(1, "Wikipedia"))

	results, err := s.Search("wikipedia")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestOpenExistingWithoutCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.sqlite3")
	s, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	s.Close()

	cfg := DefaultConfig(path)
	cfg.CreateIfMissing = false
	s2, err := Open(cfg)
	require.NoError(t, err)
	defer s2.Close()
}

func TestPathResolvesTitles(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add(1, "A"))
	require.NoError(t, s.Add(2, "B"))
	require.NoError(t, s.Add(3, "C"))
	require.NoError(t, s.AddLink(1, 2))
	require.NoError(t, s.AddLink(2, 3))

	titles, err := s.Path("A", "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, titles)
}

func TestPathUnknownTitle(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add(1, "A"))

	_, err := s.Path("A", "Nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrUnknownTitle)
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sqlite3")
	cfg := DefaultConfig(path)
	cfg.CreateIfMissing = false
	_, err := Open(cfg)
	assert.Error(t, err)
}
