package search

import (
	"context"
	"log/slog"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
	"github.com/booktrackerapp/booktracker-server/internal/sse"
)

// BookSource reads book records for index maintenance.
type BookSource interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetAllBooks(ctx context.Context) ([]*domain.Book, error)
}

// Indexer keeps the search index in step with the record store by
// consuming the same change events the UI stream consumes. Index writes
// are best-effort: a failed write is logged and the index drifts until
// the next full replace rebuilds it.
type Indexer struct {
	index  *Index
	books  BookSource
	logger *slog.Logger
}

// NewIndexer creates an indexer feeding the given index from the given source.
func NewIndexer(index *Index, books BookSource, logger *slog.Logger) *Indexer {
	return &Indexer{index: index, books: books, logger: logger}
}

// Emit reacts to a library change event. Implements the store and
// coordinator emitter interfaces; unknown events are ignored.
func (ix *Indexer) Emit(event any) {
	e, ok := event.(sse.Event)
	if !ok {
		return
	}

	switch e.Type {
	case sse.EventBookChanged:
		data, ok := e.Data.(sse.BookChangedData)
		if !ok {
			return
		}
		ix.applyBookChange(data)
	case sse.EventLibraryReplaced:
		ix.reindexAll()
	}
}

// Reindex rebuilds the whole index from the record store.
// Called at startup so a fresh or outdated index catches up.
func (ix *Indexer) Reindex(ctx context.Context) error {
	books, err := ix.books.GetAllBooks(ctx)
	if err != nil {
		return err
	}
	return ix.index.ReplaceAll(books)
}

func (ix *Indexer) applyBookChange(data sse.BookChangedData) {
	if data.Action == "removed" {
		if err := ix.index.DeleteBook(data.BookID); err != nil {
			ix.logger.Warn("search index delete failed", "book_id", data.BookID, "error", err)
		}
		return
	}

	book, err := ix.books.GetBook(context.Background(), data.BookID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			// Removed again before we got here; the remove event will clean up.
			return
		}
		ix.logger.Warn("search index refresh fetch failed", "book_id", data.BookID, "error", err)
		return
	}

	if err := ix.index.IndexBook(book); err != nil {
		ix.logger.Warn("search index write failed", "book_id", data.BookID, "error", err)
	}
}

func (ix *Indexer) reindexAll() {
	if err := ix.Reindex(context.Background()); err != nil {
		ix.logger.Warn("search index rebuild failed", "error", err)
	}
}
