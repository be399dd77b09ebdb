package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFixture = `{
  "numFound": 2,
  "docs": [
    {
      "key": "/works/OL893415W",
      "title": "Dune",
      "author_name": ["Frank Herbert"],
      "first_publish_year": 1965,
      "isbn": ["0441172717", "9780441172719", "0340960191"],
      "cover_i": 11481354,
      "number_of_pages_median": 604
    },
    {
      "key": "/works/OL000001W",
      "title": ""
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(nil)
	c.baseURL = server.URL
	return c
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(searchFixture))
	})

	results, err := c.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "ol:OL893415W", first.ID, "works prefix stripped")
	assert.Equal(t, "Dune", first.Title)
	assert.Equal(t, []string{"Frank Herbert"}, first.Authors)
	assert.Equal(t, "9780441172719", first.ISBN, "13-digit ISBN preferred")
	assert.Equal(t, "https://covers.openlibrary.org/b/id/11481354-M.jpg", first.CoverURL)
	assert.Equal(t, 1965, first.PublishYear)
	assert.Equal(t, 604, first.PageCount)

	second := results[1]
	assert.Equal(t, "ol:OL000001W", second.ID)
	assert.Equal(t, "Unknown Title", second.Title)
	assert.Equal(t, []string{"Unknown Author"}, second.Authors)
	assert.Empty(t, second.CoverURL)
}

func TestSearch_ISBNMode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9780306406157", r.URL.Query().Get("isbn"))
		assert.Empty(t, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"numFound": 0, "docs": []}`))
	})

	results, err := c.Search(context.Background(), "978-0-306-40615-7")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNormalize_ISBNFallback(t *testing.T) {
	result := normalize(&doc{Key: "/works/OL1W", Title: "X", ISBN: []string{"0441172717"}})
	assert.Equal(t, "0441172717", result.ISBN, "10-digit kept when no 13-digit present")
}
