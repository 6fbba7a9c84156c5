package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	t.Parallel()

	newStore := func(clock *fakeClock) *SessionStore {
		s := NewSessionStore(DefaultSessionTimeout)
		s.Now = clock.Now
		return s
	}

	t.Run("anonymous until authenticated", func(t *testing.T) {
		t.Parallel()
		s := newStore(newFakeClock())

		sess, err := s.Create()
		require.NoError(t, err)
		require.Len(t, sess.ID, 43)
		require.False(t, sess.IsAuthenticated())

		authed, err := s.Authenticate(sess.ID, "user-1")
		require.NoError(t, err)
		require.True(t, authed.IsAuthenticated())
		require.NotNil(t, authed.AuthenticatedAt)

		got, ok := s.Get(sess.ID)
		require.True(t, ok)
		require.Equal(t, "user-1", got.UserID)
	})

	t.Run("nil session is anonymous", func(t *testing.T) {
		t.Parallel()
		var sess *Session
		require.False(t, sess.IsAuthenticated())
	})

	t.Run("returned sessions are copies", func(t *testing.T) {
		t.Parallel()
		s := newStore(newFakeClock())

		sess, err := s.Create()
		require.NoError(t, err)
		sess.UserID = "mallory"

		got, ok := s.Get(sess.ID)
		require.True(t, ok)
		require.Empty(t, got.UserID)
	})

	t.Run("idle timeout slides on access", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		s := newStore(clock)

		sess, err := s.Create()
		require.NoError(t, err)

		clock.Advance(DefaultSessionTimeout - time.Second)
		_, ok := s.Get(sess.ID)
		require.True(t, ok)

		clock.Advance(DefaultSessionTimeout - time.Second)
		_, ok = s.Get(sess.ID)
		require.True(t, ok)

		clock.Advance(DefaultSessionTimeout)
		_, ok = s.Get(sess.ID)
		require.False(t, ok)
		require.Zero(t, s.Len())
	})

	t.Run("authenticate unknown session", func(t *testing.T) {
		t.Parallel()
		s := newStore(newFakeClock())

		_, err := s.Authenticate("missing", "user-1")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("destroy and sweep", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		s := newStore(clock)

		a, err := s.Create()
		require.NoError(t, err)
		b, err := s.Create()
		require.NoError(t, err)
		require.Equal(t, 2, s.Len())

		s.Destroy(a.ID)
		_, ok := s.Get(a.ID)
		require.False(t, ok)

		require.Empty(t, s.Sweep(clock.Now()))
		require.Equal(t, []string{b.ID}, s.Sweep(clock.Now().Add(DefaultSessionTimeout)))
		require.Zero(t, s.Len())
	})
}
