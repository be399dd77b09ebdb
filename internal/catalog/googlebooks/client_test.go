package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumesFixture = `{
  "totalItems": 2,
  "items": [
    {
      "id": "zyTCAlFPjgYC",
      "volumeInfo": {
        "title": "The Google Story",
        "authors": ["David A. Vise", "Mark Malseed"],
        "publishedDate": "2005-11-15",
        "pageCount": 207,
        "industryIdentifiers": [
          {"type": "ISBN_10", "identifier": "055380457X"},
          {"type": "ISBN_13", "identifier": "9780553804577"}
        ],
        "imageLinks": {
          "smallThumbnail": "http://books.google.com/books/content?id=zyTCAlFPjgYC&zoom=5&edge=curl",
          "thumbnail": "http://books.google.com/books/content?id=zyTCAlFPjgYC&zoom=1&edge=curl"
        }
      }
    },
    {
      "id": "bare",
      "volumeInfo": {}
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
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "books", r.URL.Query().Get("printType"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(volumesFixture))
	})

	results, err := c.Search(context.Background(), "the google story")
	require.NoError(t, err)
	assert.Equal(t, "the google story", gotQuery)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "gbooks:zyTCAlFPjgYC", first.ID)
	assert.Equal(t, "The Google Story", first.Title)
	assert.Equal(t, []string{"David A. Vise", "Mark Malseed"}, first.Authors)
	assert.Equal(t, "9780553804577", first.ISBN, "ISBN-13 preferred over ISBN-10")
	assert.Equal(t, 2005, first.PublishYear)
	assert.Equal(t, 207, first.PageCount)
	assert.Equal(t, "https://books.google.com/books/content?id=zyTCAlFPjgYC&zoom=1", first.CoverURL,
		"cover upgraded to https with edge=curl stripped")

	// Sparse volumes get placeholder title and author.
	second := results[1]
	assert.Equal(t, "gbooks:bare", second.ID)
	assert.Equal(t, "Unknown Title", second.Title)
	assert.Equal(t, []string{"Unknown Author"}, second.Authors)
	assert.Empty(t, second.ISBN)
	assert.Zero(t, second.PublishYear)
}

func TestSearch_ISBNMode(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	})

	results, err := c.Search(context.Background(), "978-0-306-40615-7")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, "isbn:9780306406157", gotQuery)
}

func TestSearch_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestPublishYear(t *testing.T) {
	assert.Equal(t, 1965, publishYear("1965"))
	assert.Equal(t, 1965, publishYear("1965-08-01"))
	assert.Zero(t, publishYear(""))
	assert.Zero(t, publishYear("n.d."))
}
