// Package domain contains the core business entities and domain logic for the BookTracker library.
package domain

import (
	"time"
)

// List identifies which of the three personal lists a book belongs to.
// Every book is on exactly one list at a time.
type List string

// The three lists. The JSON values are part of the wire format shared
// with the remote mirror, so they never change.
const (
	ListWantToRead List = "wantToRead"
	ListRead       List = "read"
	ListOwn        List = "own"
)

// Lists enumerates all valid list values in display order.
func Lists() []List {
	return []List{ListWantToRead, ListRead, ListOwn}
}

// Valid reports whether l is one of the three known lists.
func (l List) Valid() bool {
	switch l {
	case ListWantToRead, ListRead, ListOwn:
		return true
	}
	return false
}

// Placeholder values used when a catalog provider returns no title or author.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// MaxRating is the upper bound of the star rating scale.
const MaxRating = 5

// MaxCategories caps how many category labels a single owned book may carry.
const MaxCategories = 2

// Book is a record on one of the user's lists.
//
// The JSON field names are the synchronization wire format: they are stored
// verbatim in the local store and in the per-user remote mirror documents,
// so a record written by any device round-trips unchanged.
type Book struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	ISBN        string   `json:"isbn,omitempty"`
	CoverURL    string   `json:"coverUrl,omitempty"`
	PublishYear int      `json:"publishYear,omitempty"`
	PageCount   int      `json:"pageCount,omitempty"`
	List        List     `json:"list" validate:"required,oneof=wantToRead read own"`
	DateAdded   int64    `json:"dateAdded"`
	Notes       string   `json:"notes"`
	Rating      int      `json:"rating" validate:"gte=0,lte=5"`
	Categories  []string `json:"categories,omitempty" validate:"max=2"`
}

// Normalize fills placeholder title/author values so a record is always
// renderable, matching what the catalog providers do for their results.
func (b *Book) Normalize() {
	if b.Title == "" {
		b.Title = UnknownTitle
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{UnknownAuthor}
	}
}

// NowMillis returns the current time as Unix milliseconds, the resolution
// used for DateAdded. Kept in one place so tests can reason about it.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Counts holds the number of books on each list, used for tab badges.
type Counts struct {
	WantToRead int `json:"wantToRead"`
	Read       int `json:"read"`
	Own        int `json:"own"`
}

// Inc increments the count for the given list. Unknown lists are ignored,
// mirroring how unrecognized rows are skipped when counting.
func (c *Counts) Inc(l List) {
	switch l {
	case ListWantToRead:
		c.WantToRead++
	case ListRead:
		c.Read++
	case ListOwn:
		c.Own++
	}
}

// Total returns the size of the whole collection.
func (c Counts) Total() int {
	return c.WantToRead + c.Read + c.Own
}
