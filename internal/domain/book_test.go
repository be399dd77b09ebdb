package domain

import (
	"encoding/json/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_Valid(t *testing.T) {
	for _, l := range Lists() {
		assert.True(t, l.Valid(), "list %q should be valid", l)
	}
	assert.False(t, List("reading").Valid())
	assert.False(t, List("").Valid())
}

func TestBook_Normalize(t *testing.T) {
	b := &Book{ID: "gbooks:abc", List: ListWantToRead}
	b.Normalize()

	assert.Equal(t, UnknownTitle, b.Title)
	assert.Equal(t, []string{UnknownAuthor}, b.Authors)

	// Existing values are left alone.
	b2 := &Book{ID: "ol:xyz", Title: "Dune", Authors: []string{"Frank Herbert"}}
	b2.Normalize()
	assert.Equal(t, "Dune", b2.Title)
	assert.Equal(t, []string{"Frank Herbert"}, b2.Authors)
}

// TestBook_WireFormat pins the JSON field names shared with the remote
// mirror. A rename here would silently orphan every synced record.
func TestBook_WireFormat(t *testing.T) {
	b := Book{
		ID:          "gbooks:abc",
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		ISBN:        "9780441172719",
		CoverURL:    "https://example.com/dune.jpg",
		PublishYear: 1965,
		PageCount:   412,
		List:        ListOwn,
		DateAdded:   1700000000000,
		Rating:      5,
		Categories:  []string{"Sci-Fi"},
	}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{
		"id", "title", "authors", "isbn", "coverUrl",
		"publishYear", "pageCount", "list", "dateAdded",
		"notes", "rating", "categories",
	} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, "own", raw["list"])
}

func TestCounts(t *testing.T) {
	var c Counts
	c.Inc(ListWantToRead)
	c.Inc(ListWantToRead)
	c.Inc(ListRead)
	c.Inc(ListOwn)
	c.Inc(List("bogus")) // ignored

	assert.Equal(t, 2, c.WantToRead)
	assert.Equal(t, 1, c.Read)
	assert.Equal(t, 1, c.Own)
	assert.Equal(t, 4, c.Total())
}

func TestUserSettings_ValidCategories(t *testing.T) {
	s := &UserSettings{Categories: []string{"Sci-Fi", "History"}}

	assert.True(t, s.HasCategory("Sci-Fi"))
	assert.False(t, s.HasCategory("Cooking"))

	// A label referencing a deleted category is dropped at read time.
	got := s.ValidCategories([]string{"Sci-Fi", "Cooking"})
	assert.Equal(t, []string{"Sci-Fi"}, got)

	assert.Nil(t, s.ValidCategories(nil))
}
