// Package sync keeps the local record store and the per-user remote
// mirror converged. The Coordinator reacts to sign-in and sign-out,
// reconciles the two stores on sign-in, folds live remote snapshots into
// the local store, and propagates committed local mutations outward.
package sync

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/booktrackerapp/booktracker-server/internal/auth"
	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
	"github.com/booktrackerapp/booktracker-server/internal/mirror"
	"github.com/booktrackerapp/booktracker-server/internal/sse"
	"github.com/booktrackerapp/booktracker-server/internal/store"
)

// State describes where the coordinator is in its lifecycle.
type State string

const (
	// StateSignedOut means no identity; all operations are local-only.
	StateSignedOut State = "signedOut"

	// StateSyncing means sign-in reconciliation is running. Mutations
	// are rejected until it finishes.
	StateSyncing State = "syncing"

	// StateSignedIn means reconciliation succeeded and the live
	// subscription is active.
	StateSignedIn State = "signedIn"

	// StateLocalOnly means the user is signed in but the remote store
	// could not be reached; operations continue locally.
	StateLocalOnly State = "localOnly"
)

// Status is the coordinator's externally visible condition, served by
// the sync status endpoint.
type Status struct {
	State  State  `json:"state"`
	UserID string `json:"userId,omitempty"`
}

// EventEmitter publishes UI refresh events.
type EventEmitter interface {
	Emit(event any)
}

// Coordinator drives synchronization between the record store and the
// remote mirror for the currently signed-in user.
type Coordinator struct {
	store   *store.Store
	mirror  mirror.Mirror
	auth    *auth.Manager
	emitter EventEmitter
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	userID  string
	session *session

	done chan struct{}
}

// session is one live subscription. Its mutex makes cancellation
// synchronous: deactivate blocks until any in-flight snapshot delivery
// has been applied, and no delivery is applied afterwards.
type session struct {
	mu     sync.Mutex
	active bool
	cancel func()
}

func (s *session) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// NewCoordinator creates a Coordinator in the signed-out state.
func NewCoordinator(st *store.Store, m mirror.Mirror, am *auth.Manager, emitter EventEmitter, logger *slog.Logger) *Coordinator {
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}
	return &Coordinator{
		store:   st,
		mirror:  m,
		auth:    am,
		emitter: emitter,
		logger:  logger,
		state:   StateSignedOut,
		done:    make(chan struct{}),
	}
}

// Run consumes auth transitions until ctx is canceled or the auth
// manager closes its stream. It owns the coordinator lifecycle; callers
// run it in a goroutine and wait on Done after canceling ctx.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)

	stream := c.auth.Subscribe()
	for {
		select {
		case <-ctx.Done():
			c.handleSignOut()
			return
		case state, ok := <-stream:
			if !ok {
				c.handleSignOut()
				return
			}
			if state.SignedIn() {
				c.handleSignIn(ctx, *state.Identity)
			} else {
				c.handleSignOut()
			}
		}
	}
}

// Done is closed when Run has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Status returns the current state and user.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, UserID: c.userID}
}

// CheckMutationsAllowed rejects mutations while reconciliation is
// rewriting the store. Signed-out and local-only operation both accept
// mutations; they simply do not propagate.
func (c *Coordinator) CheckMutationsAllowed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSyncing {
		return errors.StorageUnavailable("sign-in synchronization in progress, retry shortly")
	}
	return nil
}

// PropagatePut pushes a committed local upsert to the remote mirror.
// Best effort: a false return means the record is not yet synced, never
// that the local write failed.
func (c *Coordinator) PropagatePut(ctx context.Context, book *domain.Book) bool {
	state, userID := c.snapshotState()
	if state != StateSignedIn {
		return false
	}
	if err := c.mirror.Put(ctx, userID, book); err != nil {
		c.warn("failed to propagate record to remote", "book_id", book.ID, "error", err)
		return false
	}
	return true
}

// PropagateRemove pushes a committed local removal to the remote mirror.
func (c *Coordinator) PropagateRemove(ctx context.Context, bookID string) bool {
	state, userID := c.snapshotState()
	if state != StateSignedIn {
		return false
	}
	if err := c.mirror.Remove(ctx, userID, bookID); err != nil {
		c.warn("failed to propagate removal to remote", "book_id", bookID, "error", err)
		return false
	}
	return true
}

// PropagateSettings pushes the settings document to the remote mirror.
func (c *Coordinator) PropagateSettings(ctx context.Context, settings *domain.UserSettings) bool {
	state, userID := c.snapshotState()
	if state != StateSignedIn {
		return false
	}
	if err := c.mirror.PutSettings(ctx, userID, settings); err != nil {
		c.warn("failed to propagate settings to remote", "error", err)
		return false
	}
	return true
}

func (c *Coordinator) snapshotState() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.userID
}

func (c *Coordinator) handleSignIn(ctx context.Context, identity auth.Identity) {
	c.teardownSession()
	c.setState(StateSyncing, identity.UserID)

	if err := c.reconcile(ctx, identity.UserID); err != nil {
		c.warn("sign-in reconciliation failed, continuing local-only", "user_id", identity.UserID, "error", err)
		c.setState(StateLocalOnly, identity.UserID)
		return
	}

	// The subscription starts only after reconciliation has finished,
	// so snapshot folds never interleave with the initial merge.
	sess := &session{active: true}
	onSnapshot := func(books []*domain.Book) {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if !sess.active {
			return
		}
		c.foldSnapshot(books)
	}

	cancel, err := c.mirror.Subscribe(ctx, identity.UserID, onSnapshot)
	if err != nil {
		c.warn("failed to subscribe to remote changes, continuing local-only", "user_id", identity.UserID, "error", err)
		c.setState(StateLocalOnly, identity.UserID)
		return
	}
	sess.cancel = cancel

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	c.setState(StateSignedIn, identity.UserID)
	if c.logger != nil {
		c.logger.Info("synchronization established", "user_id", identity.UserID)
	}
}

func (c *Coordinator) handleSignOut() {
	c.teardownSession()
	c.setState(StateSignedOut, "")
}

// teardownSession cancels the live subscription. It returns only after
// any in-flight snapshot delivery has completed; local data is untouched.
func (c *Coordinator) teardownSession() {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	if sess != nil {
		sess.deactivate()
	}
}

// reconcile merges the remote and local collections on sign-in.
//
// Presence in the remote store wins: a record in both stores takes the
// remote version. Records only in the local store are pushed up and kept.
// An empty remote store with local records means a first sign-in from
// this device's data, so the cloud is seeded instead of the store wiped.
func (c *Coordinator) reconcile(ctx context.Context, userID string) error {
	var remote, local []*domain.Book

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		remote, err = c.mirror.FetchAll(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		local, err = c.store.GetAllBooks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if len(remote) == 0 && len(local) == 0 {
		return nil
	}

	if len(remote) == 0 {
		if c.logger != nil {
			c.logger.Info("remote store empty, seeding from local records", "user_id", userID, "count", len(local))
		}
		for _, book := range local {
			if err := c.mirror.Put(ctx, userID, book); err != nil {
				return err
			}
		}
		return nil
	}

	remoteIDs := make(map[string]struct{}, len(remote))
	for _, book := range remote {
		remoteIDs[book.ID] = struct{}{}
	}

	merged := slices.Clone(remote)
	for _, book := range local {
		if _, ok := remoteIDs[book.ID]; ok {
			continue
		}
		if err := c.mirror.Put(ctx, userID, book); err != nil {
			return err
		}
		merged = append(merged, book)
	}

	if err := c.store.ReplaceAllBooks(ctx, merged); err != nil {
		return err
	}

	c.emitter.Emit(sse.NewLibraryReplacedEvent(len(merged), "reconciliation"))
	if c.logger != nil {
		c.logger.Info("reconciliation complete", "user_id", userID, "remote", len(remote), "local", len(local), "merged", len(merged))
	}
	return nil
}

// foldSnapshot replaces the local store with a remote snapshot. Empty
// snapshots are ignored: an empty collection from the feed means the
// data has not loaded yet, not that the user deleted everything.
func (c *Coordinator) foldSnapshot(books []*domain.Book) {
	if len(books) == 0 {
		return
	}
	if err := c.store.ReplaceAllBooks(context.Background(), books); err != nil {
		c.warn("failed to apply remote snapshot", "count", len(books), "error", err)
		return
	}
	c.emitter.Emit(sse.NewLibraryReplacedEvent(len(books), "snapshot"))
}

func (c *Coordinator) setState(state State, userID string) {
	c.mu.Lock()
	changed := c.state != state || c.userID != userID
	c.state = state
	c.userID = userID
	c.mu.Unlock()

	if changed {
		c.emitter.Emit(sse.NewSyncStateEvent(string(state), userID))
	}
}

func (c *Coordinator) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
