// Package auth holds the current user identity and publishes sign-in and
// sign-out transitions to the sync coordinator.
package auth

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/booktrackerapp/booktracker-server/internal/errors"
)

// Identity describes the signed-in user. The zero UserID never occurs in
// a valid Identity.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// State is one auth transition. Identity is nil when signed out.
type State struct {
	Identity *Identity
}

// SignedIn reports whether the state carries an identity.
func (s State) SignedIn() bool {
	return s.Identity != nil
}

// Manager tracks the current identity and streams state changes to at
// most one subscriber at a time.
type Manager struct {
	mu      sync.Mutex
	current *Identity
	stream  chan State
	logger  *slog.Logger
}

// NewManager creates a Manager in the signed-out state.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Current returns the active identity, or nil when signed out.
func (m *Manager) Current() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	clone := *m.current
	return &clone
}

// SignIn establishes an identity and publishes the transition. Signing
// in while already signed in replaces the identity, emitting a sign-out
// transition first so the subscriber tears down the old session.
func (m *Manager) SignIn(email string) (Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return Identity{}, errors.Validation("a valid email address is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.Email == email {
			return *m.current, nil
		}
		m.publishLocked(State{})
	}

	identity := Identity{UserID: userIDFromEmail(email), Email: email}
	m.current = &identity
	m.publishLocked(State{Identity: &identity})

	if m.logger != nil {
		m.logger.Info("user signed in", "user_id", identity.UserID)
	}
	return identity, nil
}

// SignOut clears the identity and publishes the transition. Signing out
// while already signed out is a no-op.
func (m *Manager) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return
	}
	if m.logger != nil {
		m.logger.Info("user signed out", "user_id", m.current.UserID)
	}
	m.current = nil
	m.publishLocked(State{})
}

// Subscribe returns a channel of auth transitions, starting with the
// current state. Only one subscription is active at a time; a new call
// atomically replaces the previous one, whose channel is closed.
func (m *Manager) Subscribe() <-chan State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		close(m.stream)
	}
	m.stream = make(chan State, 8)
	m.stream <- State{Identity: m.current}
	return m.stream
}

// Close tears down the active subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		close(m.stream)
		m.stream = nil
	}
}

// publishLocked delivers a transition to the subscriber. Callers hold mu.
// A full channel drops the oldest pending transition so the subscriber
// always converges on the latest state.
func (m *Manager) publishLocked(s State) {
	if m.stream == nil {
		return
	}
	for {
		select {
		case m.stream <- s:
			return
		default:
			select {
			case <-m.stream:
			default:
			}
		}
	}
}

// userIDFromEmail derives a stable, storage-safe user id from an email
// address. The mirror additionally sanitizes it for record naming.
func userIDFromEmail(email string) string {
	replacer := strings.NewReplacer("@", "_at_", ".", "_", "+", "_")
	return replacer.Replace(email)
}
