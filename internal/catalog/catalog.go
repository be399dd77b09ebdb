// Package catalog searches public book catalogs. Two providers back the
// search: Google Books is tried first and Open Library picks up when it
// fails. Results are normalized into a single shape regardless of origin.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
)

// MaxResults caps how many results a search returns.
const MaxResults = 20

// Result is one normalized catalog hit. IDs are namespaced by provider
// (gbooks:, ol:) so the same edition found through different providers
// stays distinguishable.
type Result struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Authors     []string    `json:"authors"`
	ISBN        string      `json:"isbn,omitempty"`
	CoverURL    string      `json:"coverUrl,omitempty"`
	PublishYear int         `json:"publishYear,omitempty"`
	PageCount   int         `json:"pageCount,omitempty"`
	List        domain.List `json:"list,omitempty"`
}

// Provider is a single catalog backend.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
	Name() string
}

// ListLookup answers whether a record is already in the library, so
// search results can carry their current list.
type ListLookup interface {
	BookExists(ctx context.Context, id string) (bool, domain.List, error)
}

// Service searches the primary provider and falls back to the secondary.
type Service struct {
	primary  Provider
	fallback Provider
	books    ListLookup
	logger   *slog.Logger
}

// NewService wires the providers together. books may be nil, in which
// case results are never annotated with a list.
func NewService(primary, fallback Provider, books ListLookup, logger *slog.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, books: books, logger: logger}
}

// Search runs the query against the primary provider, falling back to
// the secondary when the primary fails. A blank query returns no results
// without touching the network. Both providers failing is a SearchFailed
// error, distinct from a successful search with zero hits.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}

	results, err := s.primary.Search(ctx, query)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("primary catalog provider failed, trying fallback",
				"provider", s.primary.Name(),
				"fallback", s.fallback.Name(),
				"error", err,
			)
		}
		results, err = s.fallback.Search(ctx, query)
		if err != nil {
			return nil, errors.SearchFailed("all catalog providers failed").WithCause(err)
		}
	}

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	s.annotate(ctx, results)
	return results, nil
}

// annotate marks results that are already on one of the user's lists.
// Lookup failures leave the result unannotated rather than failing the
// whole search.
func (s *Service) annotate(ctx context.Context, results []Result) {
	if s.books == nil {
		return
	}
	for i := range results {
		exists, list, err := s.books.BookExists(ctx, results[i].ID)
		if err != nil {
			continue
		}
		if exists {
			results[i].List = list
		}
	}
}
