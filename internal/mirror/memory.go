package mirror

import (
	"context"
	"sync"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
)

// MemoryMirror is an in-process Mirror. It backs the "memory" remote
// provider for development and gives tests a controllable remote side,
// including outage simulation via SetFailing.
type MemoryMirror struct {
	mu       sync.Mutex
	books    map[string]map[string]*domain.Book
	settings map[string]*domain.UserSettings
	subs     map[string]map[int]SnapshotFunc
	nextSub  int
	failing  bool
}

var _ Mirror = (*MemoryMirror)(nil)

// NewMemoryMirror creates an empty in-process mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{
		books:    make(map[string]map[string]*domain.Book),
		settings: make(map[string]*domain.UserSettings),
		subs:     make(map[string]map[int]SnapshotFunc),
	}
}

// SetFailing toggles simulated remote outage. While failing, every
// operation returns REMOTE_UNAVAILABLE.
func (m *MemoryMirror) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

func (m *MemoryMirror) checkUp() error {
	if m.failing {
		return errors.RemoteUnavailable("remote store unreachable")
	}
	return nil
}

func (m *MemoryMirror) userBooks(userID string) map[string]*domain.Book {
	if m.books[userID] == nil {
		m.books[userID] = make(map[string]*domain.Book)
	}
	return m.books[userID]
}

// snapshotLocked builds a copy of the user's collection. Callers hold mu.
func (m *MemoryMirror) snapshotLocked(userID string) []*domain.Book {
	records := m.books[userID]
	out := make([]*domain.Book, 0, len(records))
	for _, b := range records {
		clone := *b
		out = append(out, &clone)
	}
	return out
}

// notify delivers the current snapshot to every subscriber of the user.
// Called outside the lock so callbacks may reenter the mirror.
func (m *MemoryMirror) notify(userID string) {
	m.mu.Lock()
	snapshot := m.snapshotLocked(userID)
	fns := make([]SnapshotFunc, 0, len(m.subs[userID]))
	for _, fn := range m.subs[userID] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Put upserts a record and notifies subscribers.
func (m *MemoryMirror) Put(ctx context.Context, userID string, book *domain.Book) error {
	m.mu.Lock()
	if err := m.checkUp(); err != nil {
		m.mu.Unlock()
		return err
	}
	clone := *book
	m.userBooks(userID)[book.ID] = &clone
	m.mu.Unlock()

	m.notify(userID)
	return nil
}

// Remove deletes a record and notifies subscribers. Absent ids succeed.
func (m *MemoryMirror) Remove(ctx context.Context, userID, bookID string) error {
	m.mu.Lock()
	if err := m.checkUp(); err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.userBooks(userID), bookID)
	m.mu.Unlock()

	m.notify(userID)
	return nil
}

// FetchAll returns a copy of the user's collection.
func (m *MemoryMirror) FetchAll(ctx context.Context, userID string) ([]*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return nil, err
	}
	return m.snapshotLocked(userID), nil
}

// Subscribe registers a snapshot callback and delivers the current state
// immediately.
func (m *MemoryMirror) Subscribe(ctx context.Context, userID string, onSnapshot SnapshotFunc) (func(), error) {
	m.mu.Lock()
	if err := m.checkUp(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	id := m.nextSub
	m.nextSub++
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[int]SnapshotFunc)
	}
	m.subs[userID][id] = onSnapshot
	initial := m.snapshotLocked(userID)
	m.mu.Unlock()

	onSnapshot(initial)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[userID], id)
			m.mu.Unlock()
		})
	}
	return cancel, nil
}

// PutSettings upserts the user's settings document.
func (m *MemoryMirror) PutSettings(ctx context.Context, userID string, settings *domain.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return err
	}
	clone := *settings
	m.settings[userID] = &clone
	return nil
}

// FetchSettings returns the user's settings document, empty if unset.
func (m *MemoryMirror) FetchSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return nil, err
	}
	if s, ok := m.settings[userID]; ok {
		clone := *s
		return &clone, nil
	}
	return &domain.UserSettings{}, nil
}

// SubscriberCount reports how many live subscriptions the user has.
func (m *MemoryMirror) SubscriberCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[userID])
}

// Close is a no-op for the in-process mirror.
func (m *MemoryMirror) Close() error {
	return nil
}
