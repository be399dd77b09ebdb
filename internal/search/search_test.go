package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
	"github.com/booktrackerapp/booktracker-server/internal/sse"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testBook(id, title string, authors []string, list domain.List) *domain.Book {
	return &domain.Book{
		ID:        id,
		Title:     title,
		Authors:   authors,
		List:      list,
		DateAdded: 1700000000000,
	}
}

func TestSearch_TitleMatch(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBook(testBook("b1", "The Left Hand of Darkness", []string{"Ursula K. Le Guin"}, domain.ListRead)))
	require.NoError(t, idx.IndexBook(testBook("b2", "A Wizard of Earthsea", []string{"Ursula K. Le Guin"}, domain.ListOwn)))

	params := DefaultParams()
	params.Query = "darkness"

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "b1", result.Hits[0].ID)
	assert.Equal(t, "The Left Hand of Darkness", result.Hits[0].Title)
	assert.Equal(t, domain.ListRead, result.Hits[0].List)
}

func TestSearch_AuthorMatch(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBook(testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListRead)))
	require.NoError(t, idx.IndexBook(testBook("b2", "Neuromancer", []string{"William Gibson"}, domain.ListRead)))

	params := DefaultParams()
	params.Query = "gibson"

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "b2", result.Hits[0].ID)
}

func TestSearch_FuzzyToleratesTypo(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBook(testBook("b1", "Neuromancer", []string{"William Gibson"}, domain.ListRead)))

	params := DefaultParams()
	params.Query = "neuromancr"

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "b1", result.Hits[0].ID)
}

func TestSearch_ListFilter(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBook(testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListRead)))
	require.NoError(t, idx.IndexBook(testBook("b2", "Dune Messiah", []string{"Frank Herbert"}, domain.ListOwn)))

	params := DefaultParams()
	params.Query = "dune"
	params.List = domain.ListOwn

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "b2", result.Hits[0].ID)
}

func TestSearch_CategoryFilter(t *testing.T) {
	idx := newTestIndex(t)
	b := testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListOwn)
	b.Categories = []string{"Sci-Fi"}
	require.NoError(t, idx.IndexBook(b))
	require.NoError(t, idx.IndexBook(testBook("b2", "Dune Messiah", []string{"Frank Herbert"}, domain.ListOwn)))

	params := DefaultParams()
	params.Category = "Sci-Fi"

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "b1", result.Hits[0].ID)
}

func TestSearch_EmptyQueryListsAll(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBooks([]*domain.Book{
		testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListRead),
		testBook("b2", "Neuromancer", []string{"William Gibson"}, domain.ListOwn),
	}))

	result, err := idx.Search(context.Background(), DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestDeleteBook(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBook(testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListRead)))
	require.NoError(t, idx.DeleteBook("b1"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestReplaceAll(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBook(testBook("stale", "Old Book", nil, domain.ListRead)))

	require.NoError(t, idx.ReplaceAll([]*domain.Book{
		testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListRead),
	}))

	params := DefaultParams()
	params.Query = "old"
	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

type fakeBookSource struct {
	books map[string]*domain.Book
}

func (f *fakeBookSource) GetBook(_ context.Context, id string) (*domain.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookSource) GetAllBooks(_ context.Context) ([]*domain.Book, error) {
	out := make([]*domain.Book, 0, len(f.books))
	for _, b := range f.books {
		out = append(out, b)
	}
	return out, nil
}

func TestIndexer_BookChangedEvents(t *testing.T) {
	idx := newTestIndex(t)
	source := &fakeBookSource{books: map[string]*domain.Book{
		"b1": testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListRead),
	}}
	indexer := NewIndexer(idx, source, testLogger())

	indexer.Emit(sse.NewBookChangedEvent("b1", domain.ListRead, "added"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	indexer.Emit(sse.NewBookChangedEvent("b1", "", "removed"))

	count, err = idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndexer_LibraryReplacedTriggersReindex(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexBook(testBook("stale", "Old Book", nil, domain.ListRead)))

	source := &fakeBookSource{books: map[string]*domain.Book{
		"b1": testBook("b1", "Dune", []string{"Frank Herbert"}, domain.ListRead),
		"b2": testBook("b2", "Neuromancer", []string{"William Gibson"}, domain.ListOwn),
	}}
	indexer := NewIndexer(idx, source, testLogger())

	indexer.Emit(sse.NewLibraryReplacedEvent(2, "reconciliation"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	params := DefaultParams()
	params.Query = "old"
	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestIndexer_IgnoresUnrelatedEvents(t *testing.T) {
	idx := newTestIndex(t)
	indexer := NewIndexer(idx, &fakeBookSource{}, testLogger())

	indexer.Emit("not an event")
	indexer.Emit(sse.NewHeartbeatEvent())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
