package sync_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booktrackerapp/booktracker-server/internal/auth"
	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/mirror"
	"github.com/booktrackerapp/booktracker-server/internal/store"
	libsync "github.com/booktrackerapp/booktracker-server/internal/sync"
)

type fixture struct {
	coordinator *libsync.Coordinator
	store       *store.Store
	mirror      *mirror.MemoryMirror
	auth        *auth.Manager
}

func setupCoordinator(t *testing.T) *fixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath, nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		store:  st,
		mirror: mirror.NewMemoryMirror(),
		auth:   auth.NewManager(nil),
	}
	f.coordinator = libsync.NewCoordinator(st, f.mirror, f.auth, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go f.coordinator.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-f.coordinator.Done()
	})

	return f
}

func (f *fixture) waitForState(t *testing.T, want libsync.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.coordinator.Status().State == want
	}, 2*time.Second, 5*time.Millisecond, "waiting for state %s, currently %s", want, f.coordinator.Status().State)
}

func (f *fixture) signIn(t *testing.T) auth.Identity {
	t.Helper()
	identity, err := f.auth.SignIn("reader@example.com")
	require.NoError(t, err)
	return identity
}

func book(id string, list domain.List, dateAdded int64) *domain.Book {
	return &domain.Book{ID: id, Title: "Book " + id, Authors: []string{"Author"}, List: list, DateAdded: dateAdded}
}

func TestFirstSignIn_SeedsRemote(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	require.NoError(t, f.store.AddBook(ctx, book("b1", domain.ListRead, 1)))
	require.NoError(t, f.store.AddBook(ctx, book("b2", domain.ListOwn, 2)))

	identity := f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	// The cloud was empty, so it is seeded and local records survive.
	remote, err := f.mirror.FetchAll(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Len(t, remote, 2)

	local, err := f.store.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, local, 2)
}

func TestSignIn_RemoteWinsByPresence(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	// The same record exists on both sides with diverged content, plus
	// one record unique to each side.
	localShared := book("shared", domain.ListWantToRead, 1)
	localShared.Notes = "local notes"
	require.NoError(t, f.store.AddBook(ctx, localShared))
	require.NoError(t, f.store.AddBook(ctx, book("local-only", domain.ListRead, 2)))

	remoteShared := book("shared", domain.ListOwn, 1)
	remoteShared.Notes = "remote notes"
	require.NoError(t, f.mirror.Put(ctx, "reader_at_example_com", remoteShared))
	require.NoError(t, f.mirror.Put(ctx, "reader_at_example_com", book("remote-only", domain.ListOwn, 3)))

	identity := f.signIn(t)
	require.Equal(t, "reader_at_example_com", identity.UserID)
	f.waitForState(t, libsync.StateSignedIn)

	// Local store now holds the union, with the remote version of the
	// shared record.
	local, err := f.store.GetAllBooks(ctx)
	require.NoError(t, err)
	require.Len(t, local, 3)

	got, err := f.store.GetBook(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "remote notes", got.Notes)
	assert.Equal(t, domain.ListOwn, got.List)

	// The local-only record was pushed up.
	remote, err := f.mirror.FetchAll(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Len(t, remote, 3)
}

func TestSignIn_ReconciliationIdempotent(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	require.NoError(t, f.store.AddBook(ctx, book("b1", domain.ListRead, 1)))
	require.NoError(t, f.mirror.Put(ctx, "reader_at_example_com", book("b2", domain.ListOwn, 2)))

	f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	firstLocal, err := f.store.GetAllBooks(ctx)
	require.NoError(t, err)

	f.auth.SignOut()
	f.waitForState(t, libsync.StateSignedOut)

	f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	secondLocal, err := f.store.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(firstLocal), len(secondLocal))
	assert.Len(t, secondLocal, 2)
}

func TestSignIn_RemoteFailureDegradesToLocalOnly(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	require.NoError(t, f.store.AddBook(ctx, book("b1", domain.ListRead, 1)))
	f.mirror.SetFailing(true)

	f.signIn(t)
	f.waitForState(t, libsync.StateLocalOnly)

	// Local data is intact and mutations remain allowed.
	local, err := f.store.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, local, 1)
	assert.NoError(t, f.coordinator.CheckMutationsAllowed())

	// But nothing propagates.
	assert.False(t, f.coordinator.PropagatePut(ctx, book("b2", domain.ListOwn, 2)))
}

func TestSnapshotFolding(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	identity := f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	// A change from another device lands in the mirror.
	require.NoError(t, f.mirror.Put(ctx, identity.UserID, book("from-phone", domain.ListWantToRead, 5)))

	require.Eventually(t, func() bool {
		_, err := f.store.GetBook(ctx, "from-phone")
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSnapshotFolding_EmptySnapshotIgnored(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	identity := f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	require.NoError(t, f.mirror.Put(ctx, identity.UserID, book("only", domain.ListRead, 1)))
	require.Eventually(t, func() bool {
		_, err := f.store.GetBook(ctx, "only")
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	// Deleting the last remote record produces an empty snapshot, which
	// must not wipe the local store.
	require.NoError(t, f.mirror.Remove(ctx, identity.UserID, "only"))
	time.Sleep(50 * time.Millisecond)

	got, err := f.store.GetBook(ctx, "only")
	require.NoError(t, err)
	assert.Equal(t, "only", got.ID)
}

func TestSignOut_CancelsSubscription(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	identity := f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)
	require.Equal(t, 1, f.mirror.SubscriberCount(identity.UserID))

	f.auth.SignOut()
	f.waitForState(t, libsync.StateSignedOut)
	assert.Equal(t, 0, f.mirror.SubscriberCount(identity.UserID))

	// Remote changes after sign-out never reach the local store.
	require.NoError(t, f.mirror.Put(ctx, identity.UserID, book("late", domain.ListOwn, 9)))
	time.Sleep(50 * time.Millisecond)
	_, err := f.store.GetBook(ctx, "late")
	require.Error(t, err)

	// Local data is untouched by sign-out.
	local, err := f.store.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestPropagate(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	// Signed out: propagation is a no-op reporting unsynced.
	assert.False(t, f.coordinator.PropagatePut(ctx, book("b1", domain.ListRead, 1)))
	assert.False(t, f.coordinator.PropagateRemove(ctx, "b1"))

	identity := f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	assert.True(t, f.coordinator.PropagatePut(ctx, book("b1", domain.ListRead, 1)))
	remote, err := f.mirror.FetchAll(ctx, identity.UserID)
	require.NoError(t, err)
	require.Len(t, remote, 1)

	assert.True(t, f.coordinator.PropagateRemove(ctx, "b1"))
	remote, err = f.mirror.FetchAll(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Empty(t, remote)

	// A failing remote reports unsynced without affecting local flow.
	f.mirror.SetFailing(true)
	assert.False(t, f.coordinator.PropagatePut(ctx, book("b2", domain.ListOwn, 2)))
}

func TestPropagateSettings(t *testing.T) {
	f := setupCoordinator(t)
	ctx := context.Background()

	settings := &domain.UserSettings{Categories: []string{"Sci-Fi"}}
	assert.False(t, f.coordinator.PropagateSettings(ctx, settings))

	identity := f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	assert.True(t, f.coordinator.PropagateSettings(ctx, settings))
	got, err := f.mirror.FetchSettings(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sci-Fi"}, got.Categories)
}

func TestStatus(t *testing.T) {
	f := setupCoordinator(t)

	status := f.coordinator.Status()
	assert.Equal(t, libsync.StateSignedOut, status.State)
	assert.Empty(t, status.UserID)

	identity := f.signIn(t)
	f.waitForState(t, libsync.StateSignedIn)

	status = f.coordinator.Status()
	assert.Equal(t, identity.UserID, status.UserID)
}
