// Package googlebooks queries the Google Books volumes API, the primary
// catalog provider.
package googlebooks

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

const defaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// Client provides access to the Google Books volumes API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	baseURL     string
}

// NewClient creates a new Google Books client.
// Rate limited to roughly 100 requests per minute, burst of 10.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Every(600*time.Millisecond), 10),
		logger:      logger,
	}
}

// Name identifies this provider in logs.
func (c *Client) Name() string { return "googlebooks" }

// Search queries the volumes API. ISBN-looking queries use the isbn:
// field qualifier instead of freetext search.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Result, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	q := query
	if isbn, ok := catalog.NormalizeISBN(query); ok {
		q = "isbn:" + isbn
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", strconv.Itoa(catalog.MaxResults))
	params.Set("printType", "books")

	base := c.baseURL
	if base == "" {
		base = defaultBaseURL
	}
	searchURL := base + "?" + params.Encode()

	if c.logger != nil {
		c.logger.Debug("searching Google Books", "query", q)
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

	results := make([]catalog.Result, 0, len(searchResp.Items))
	for i := range searchResp.Items {
		results = append(results, normalize(&searchResp.Items[i]))
	}
	return results, nil
}

// normalize converts one volume into the shared result shape.
func normalize(item *volume) catalog.Result {
	info := item.VolumeInfo

	// ISBN-13 wins; ISBN-10 is kept only when no 13 shows up later.
	var isbn string
	for _, id := range info.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			isbn = id.Identifier
			break
		}
		if id.Type == "ISBN_10" && isbn == "" {
			isbn = id.Identifier
		}
	}

	var coverURL string
	if info.ImageLinks != nil {
		coverURL = info.ImageLinks.Thumbnail
		if coverURL == "" {
			coverURL = info.ImageLinks.SmallThumbnail
		}
		coverURL = cleanCoverURL(coverURL)
	}

	result := catalog.Result{
		ID:          "gbooks:" + item.ID,
		Title:       info.Title,
		Authors:     info.Authors,
		ISBN:        isbn,
		CoverURL:    coverURL,
		PageCount:   info.PageCount,
		PublishYear: publishYear(info.PublishedDate),
	}
	if result.Title == "" {
		result.Title = domain.UnknownTitle
	}
	if len(result.Authors) == 0 {
		result.Authors = []string{domain.UnknownAuthor}
	}
	return result
}

// cleanCoverURL upgrades thumbnail links to https and drops the
// page-curl effect parameter.
func cleanCoverURL(u string) string {
	u = strings.Replace(u, "http://", "https://", 1)
	return strings.Replace(u, "&edge=curl", "", 1)
}

// publishYear extracts the year from a published date, which may be a
// bare year, YYYY-MM, or a full date.
func publishYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
