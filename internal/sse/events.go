// Package sse implements Server-Sent Events for pushing library changes to connected UI clients.
package sse

import (
	"time"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
)

// The UI never mutates state through this channel; it re-reads the record
// store when told something changed. Events therefore carry just enough to
// decide which views to refresh.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookChanged represents a single record being added, mutated, or removed.
	EventBookChanged EventType = "book.changed"

	// EventLibraryReplaced represents the whole store being overwritten,
	// either by sign-in reconciliation or by a remote snapshot.
	EventLibraryReplaced EventType = "library.replaced"

	// EventSyncState represents a change in the sync coordinator state.
	EventSyncState EventType = "sync.state"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// BookChangedData is the payload for book.changed events.
type BookChangedData struct {
	BookID string      `json:"book_id"`
	List   domain.List `json:"list,omitempty"`
	Action string      `json:"action"` // added, updated, removed
}

// LibraryReplacedData is the payload for library.replaced events.
type LibraryReplacedData struct {
	Count  int    `json:"count"`
	Source string `json:"source"` // reconciliation, snapshot
}

// SyncStateData is the payload for sync.state events.
type SyncStateData struct {
	State  string `json:"state"` // signedOut, syncing, signedIn
	UserID string `json:"user_id,omitempty"`
}

// HeartbeatData is the payload for heartbeat events.
type HeartbeatData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookChangedEvent creates a book.changed event.
func NewBookChangedEvent(bookID string, list domain.List, action string) Event {
	return Event{
		Type:      EventBookChanged,
		Timestamp: time.Now(),
		Data:      BookChangedData{BookID: bookID, List: list, Action: action},
	}
}

// NewLibraryReplacedEvent creates a library.replaced event.
func NewLibraryReplacedEvent(count int, source string) Event {
	return Event{
		Type:      EventLibraryReplaced,
		Timestamp: time.Now(),
		Data:      LibraryReplacedData{Count: count, Source: source},
	}
}

// NewSyncStateEvent creates a sync.state event.
func NewSyncStateEvent(state, userID string) Event {
	return Event{
		Type:      EventSyncState,
		Timestamp: time.Now(),
		Data:      SyncStateData{State: state, UserID: userID},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatData{ServerTime: time.Now()},
	}
}
