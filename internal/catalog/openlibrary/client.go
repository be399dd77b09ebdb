// Package openlibrary queries the Open Library search API, the fallback
// catalog provider.
package openlibrary

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/booktrackerapp/booktracker-server/internal/catalog"
	"github.com/booktrackerapp/booktracker-server/internal/domain"
)

const (
	defaultBaseURL = "https://openlibrary.org/search.json"
	coversBaseURL  = "https://covers.openlibrary.org/b/id/"

	// The fields parameter keeps response payloads small; Open Library
	// returns very large documents otherwise.
	searchFields = "key,title,author_name,first_publish_year,isbn,cover_i,number_of_pages_median"
)

// Client provides access to the Open Library search API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	baseURL     string
}

// NewClient creates a new Open Library client.
// Rate limited to 1 request per second, burst of 3, per their usage policy.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:      logger,
	}
}

// Name identifies this provider in logs.
func (c *Client) Name() string { return "openlibrary" }

// Search queries the search API. ISBN-looking queries use the dedicated
// isbn parameter instead of freetext search.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Result, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	if isbn, ok := catalog.NormalizeISBN(query); ok {
		params.Set("isbn", isbn)
	} else {
		params.Set("q", query)
	}
	params.Set("fields", searchFields)
	params.Set("limit", strconv.Itoa(catalog.MaxResults))

	base := c.baseURL
	if base == "" {
		base = defaultBaseURL
	}
	searchURL := base + "?" + params.Encode()

	if c.logger != nil {
		c.logger.Debug("searching Open Library", "query", query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d", resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.UnmarshalRead(resp.Body, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]catalog.Result, 0, len(searchResp.Docs))
	for i := range searchResp.Docs {
		results = append(results, normalize(&searchResp.Docs[i]))
	}
	return results, nil
}

// normalize converts one work document into the shared result shape.
func normalize(d *doc) catalog.Result {
	var coverURL string
	if d.CoverID != 0 {
		coverURL = coversBaseURL + strconv.Itoa(d.CoverID) + "-M.jpg"
	}

	// Prefer a 13-digit ISBN, fall back to whatever comes first.
	var isbn string
	for _, candidate := range d.ISBN {
		if len(candidate) == 13 {
			isbn = candidate
			break
		}
	}
	if isbn == "" && len(d.ISBN) > 0 {
		isbn = d.ISBN[0]
	}

	result := catalog.Result{
		ID:          "ol:" + strings.Replace(d.Key, "/works/", "", 1),
		Title:       d.Title,
		Authors:     d.AuthorName,
		ISBN:        isbn,
		CoverURL:    coverURL,
		PublishYear: d.FirstPublishYear,
		PageCount:   d.NumberOfPagesMedian,
	}
	if result.Title == "" {
		result.Title = domain.UnknownTitle
	}
	if len(result.Authors) == 0 {
		result.Authors = []string{domain.UnknownAuthor}
	}
	return result
}
