// Package store implements the local record store: a durable badger-backed
// key-value store of book records with a secondary index by list. It is the
// sole source of truth for rendering; the remote mirror is only ever folded
// back into it through ReplaceAllBooks.
package store

import (
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/booktrackerapp/booktracker-server/internal/errors"
)

// EventEmitter is the interface for emitting SSE events.
// Store uses this to broadcast changes without depending on SSE implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// EmitterGroup fans events out to multiple emitters. Sinks can be added
// after the store is constructed, which breaks the cycle between the
// store and consumers that read back from it on events.
type EmitterGroup struct {
	mu       sync.RWMutex
	emitters []EventEmitter
}

// NewEmitterGroup creates a group with the given initial sinks.
func NewEmitterGroup(emitters ...EventEmitter) *EmitterGroup {
	return &EmitterGroup{emitters: emitters}
}

// Add registers an additional sink.
func (g *EmitterGroup) Add(e EventEmitter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emitters = append(g.emitters, e)
}

// Emit implements EventEmitter by forwarding to every sink in order.
func (g *EmitterGroup) Emit(event any) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.emitters {
		e.Emit(event)
	}
}

// Store wraps a Badger database instance.
//
// All mutating operations take writeMu: every mutation is a get-then-put
// transaction, and two mutations on the same id must never interleave
// their get phases. A single store-wide write lock keeps that simple;
// reads go through badger snapshots and are never blocked by it.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// SSE event emitter for broadcasting changes.
	eventEmitter EventEmitter

	writeMu sync.Mutex
}

// New opens (creating if necessary) the record store at the given path.
// Returns a StorageUnavailable error when the environment forbids
// persistent storage; callers must treat that as fatal to initialization.
func New(path string, logger *slog.Logger, emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.StorageUnavailable("failed to open record store").WithCause(err)
	}

	store := &Store{
		db:           db,
		logger:       logger,
		eventEmitter: emitter,
	}

	if logger != nil {
		logger.Info("record store opened", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing record store")
	}
	return s.db.Close()
}

// emit broadcasts an event if an emitter is configured.
func (s *Store) emit(event any) {
	if s.eventEmitter != nil {
		s.eventEmitter.Emit(event)
	}
}
