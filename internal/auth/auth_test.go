package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booktrackerapp/booktracker-server/internal/auth"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
)

func TestSignIn(t *testing.T) {
	m := auth.NewManager(nil)

	assert.Nil(t, m.Current())

	identity, err := m.SignIn("Reader@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", identity.Email)
	assert.NotEmpty(t, identity.UserID)
	assert.NotContains(t, identity.UserID, "@")

	current := m.Current()
	require.NotNil(t, current)
	assert.Equal(t, identity.UserID, current.UserID)
}

func TestSignIn_InvalidEmail(t *testing.T) {
	m := auth.NewManager(nil)

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, err := m.SignIn(email)
		require.Error(t, err, "email %q", email)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	}
	assert.Nil(t, m.Current())
}

func TestSignIn_SameUserIsIdempotent(t *testing.T) {
	m := auth.NewManager(nil)

	first, err := m.SignIn("reader@example.com")
	require.NoError(t, err)
	second, err := m.SignIn("reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
}

func TestSubscribe_DeliversTransitions(t *testing.T) {
	m := auth.NewManager(nil)
	stream := m.Subscribe()

	// Initial state is signed out.
	state := <-stream
	assert.False(t, state.SignedIn())

	_, err := m.SignIn("reader@example.com")
	require.NoError(t, err)
	state = <-stream
	require.True(t, state.SignedIn())
	assert.Equal(t, "reader@example.com", state.Identity.Email)

	m.SignOut()
	state = <-stream
	assert.False(t, state.SignedIn())

	// Signing out again publishes nothing.
	m.SignOut()
	select {
	case s, ok := <-stream:
		if ok {
			t.Fatalf("unexpected state: %+v", s)
		}
	default:
	}
}

func TestSubscribe_ReplacesPrevious(t *testing.T) {
	m := auth.NewManager(nil)

	old := m.Subscribe()
	<-old

	replacement := m.Subscribe()

	// The old channel is closed; transitions flow only to the new one.
	_, ok := <-old
	assert.False(t, ok)

	state := <-replacement
	assert.False(t, state.SignedIn())

	_, err := m.SignIn("reader@example.com")
	require.NoError(t, err)
	state = <-replacement
	assert.True(t, state.SignedIn())
}

func TestSignIn_SwitchUserEmitsSignOutFirst(t *testing.T) {
	m := auth.NewManager(nil)

	_, err := m.SignIn("first@example.com")
	require.NoError(t, err)

	stream := m.Subscribe()
	<-stream // current state: first user

	_, err = m.SignIn("second@example.com")
	require.NoError(t, err)

	state := <-stream
	assert.False(t, state.SignedIn(), "switching users tears down the old session first")

	state = <-stream
	require.True(t, state.SignedIn())
	assert.Equal(t, "second@example.com", state.Identity.Email)
}
