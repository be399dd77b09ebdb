// Package mirror provides the per-user remote copy of the library.
//
// A Mirror holds one collection of book records per user plus a settings
// document. Implementations must treat writes as idempotent upserts and
// report transport problems as REMOTE_UNAVAILABLE so callers can degrade
// to local-only operation.
package mirror

import (
	"context"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
)

// SnapshotFunc receives the full remote collection after a change.
// Implementations deliver complete snapshots, never deltas.
type SnapshotFunc func(books []*domain.Book)

// Mirror is the remote store for a user's library.
type Mirror interface {
	// Put upserts a single record in the user's remote collection.
	Put(ctx context.Context, userID string, book *domain.Book) error

	// Remove deletes a record from the user's remote collection.
	// Removing an absent record is not an error.
	Remove(ctx context.Context, userID, bookID string) error

	// FetchAll returns every record in the user's remote collection.
	FetchAll(ctx context.Context, userID string) ([]*domain.Book, error)

	// Subscribe starts a live subscription on the user's collection and
	// invokes onSnapshot with the full collection after every remote
	// change. The returned cancel function stops delivery; after it
	// returns no further snapshots are delivered.
	Subscribe(ctx context.Context, userID string, onSnapshot SnapshotFunc) (cancel func(), err error)

	// PutSettings upserts the user's settings document.
	PutSettings(ctx context.Context, userID string, settings *domain.UserSettings) error

	// FetchSettings returns the user's settings document, or an empty
	// document when none has been written yet.
	FetchSettings(ctx context.Context, userID string) (*domain.UserSettings, error)

	// Close releases the underlying connection.
	Close() error
}
