package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
)

// Params configures a library search query.
type Params struct {
	Query string // User's search query

	// Filters
	List     domain.List // Restrict to one list (empty = all)
	Category string      // Restrict to one category label (own list)

	// Pagination
	Limit  int
	Offset int

	// Sorting: "relevance", "title", "recent"
	SortBy string

	// Options
	Highlight bool
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:     20,
		Offset:    0,
		SortBy:    "relevance",
		Highlight: true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"tookMs"`
	Hits   []Hit  `json:"hits"`
}

// Hit represents a single search result.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Authors    string            `json:"authors,omitempty"`
	List       domain.List       `json:"list"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query against the local library.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("authors")
	}

	searchRequest.Fields = []string{"id", "title", "authors", "list"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		if a, ok := hit.Fields["authors"].(string); ok {
			h.Authors = a
		}
		if l, ok := hit.Fields["list"].(string); ok {
			h.List = domain.List(l)
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		textQueries := []query.Query{}

		// Title match with highest boost
		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		// Author match
		authorMatch := bleve.NewMatchQuery(params.Query)
		authorMatch.SetField("authors")
		authorMatch.SetBoost(2.0)
		textQueries = append(textQueries, authorMatch)

		// Notes match, lowest weight
		notesMatch := bleve.NewMatchQuery(params.Query)
		notesMatch.SetField("notes")
		notesMatch.SetBoost(0.5)
		textQueries = append(textQueries, notesMatch)

		// Fuzzy matching for typo tolerance on title
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for incremental typing (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Bare ISBN input matches exactly
		isbnQuery := bleve.NewTermQuery(params.Query)
		isbnQuery.SetField("isbn")
		isbnQuery.SetBoost(5.0)
		textQueries = append(textQueries, isbnQuery)

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// List filter
	if params.List != "" {
		lq := bleve.NewTermQuery(string(params.List))
		lq.SetField("list")
		queries = append(queries, lq)
	}

	// Category filter
	if params.Category != "" {
		cq := bleve.NewTermQuery(params.Category)
		cq.SetField("categories")
		queries = append(queries, cq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting applies the requested sort order to the search request.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title":
		req.SortBy([]string{"title", "-_score"})
	case "recent":
		req.SortBy([]string{"-date_added", "-_score"})
	default:
		// relevance
		req.SortBy([]string{"-_score", "-date_added"})
	}
}
