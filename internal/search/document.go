// Package search provides full-text search over the local library using Bleve.
// The index is a throwaway projection of the record store: it can be rebuilt
// from scratch at any time and is never the source of truth.
package search

import (
	"strings"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
)

// document is the indexed projection of a book record.
type document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     string   `json:"authors"` // joined for phrase matching
	ISBN        string   `json:"isbn,omitempty"`
	List        string   `json:"list"`
	Categories  []string `json:"categories,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	PublishYear int      `json:"publish_year,omitempty"`
	DateAdded   int64    `json:"date_added"`
}

func newDocument(b *domain.Book) *document {
	return &document{
		ID:          b.ID,
		Title:       b.Title,
		Authors:     strings.Join(b.Authors, " "),
		ISBN:        b.ISBN,
		List:        string(b.List),
		Categories:  b.Categories,
		Notes:       b.Notes,
		PublishYear: b.PublishYear,
		DateAdded:   b.DateAdded,
	}
}

// toMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but the
// mapping uses lowercase names, so we convert explicitly.
func (d *document) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"authors":    d.Authors,
		"list":       d.List,
		"date_added": d.DateAdded,
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	if d.PublishYear > 0 {
		m["publish_year"] = d.PublishYear
	}
	return m
}
