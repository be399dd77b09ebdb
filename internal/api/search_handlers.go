package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booktrackerapp/booktracker-server/internal/catalog"
	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
	"github.com/booktrackerapp/booktracker-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search-catalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search book catalogs",
		Description: "Searches Google Books with Open Library as fallback. ISBN queries are detected automatically.",
		Tags:        []string{"Search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-library",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/search",
		Summary:     "Search the local library",
		Description: "Full-text search over saved records: titles, authors, notes, categories, ISBNs.",
		Tags:        []string{"Search"},
	}, s.handleLibrarySearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the catalogs.
type SearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Title, author, or ISBN"`
}

// SearchOutput wraps the search results.
type SearchOutput struct {
	Body struct {
		Query   string           `json:"query" doc:"Original search query"`
		Results []catalog.Result `json:"results" doc:"Normalized catalog hits, capped at 20"`
	}
}

// LibrarySearchInput contains parameters for searching saved records.
type LibrarySearchInput struct {
	Query    string `query:"q" maxLength:"200" doc:"Title, author, notes, or ISBN"`
	List     string `query:"list" doc:"Restrict to one list: wantToRead, read, or own"`
	Category string `query:"category" maxLength:"100" doc:"Restrict to one category label"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Page size"`
	Offset   int    `query:"offset" minimum:"0" default:"0" doc:"Page offset"`
	SortBy   string `query:"sort" doc:"Sort order: relevance, title, or recent"`
}

// LibrarySearchOutput wraps local search results.
type LibrarySearchOutput struct {
	Body search.Result
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	results, err := s.catalog.Search(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	out := &SearchOutput{}
	out.Body.Query = input.Query
	out.Body.Results = results
	if out.Body.Results == nil {
		out.Body.Results = []catalog.Result{}
	}
	return out, nil
}

func (s *Server) handleLibrarySearch(ctx context.Context, input *LibrarySearchInput) (*LibrarySearchOutput, error) {
	if input.List != "" && !domain.List(input.List).Valid() {
		return nil, errors.Validationf("unknown list %q", input.List)
	}

	params := search.DefaultParams()
	params.Query = input.Query
	params.List = domain.List(input.List)
	params.Category = input.Category
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return &LibrarySearchOutput{Body: *result}, nil
}
