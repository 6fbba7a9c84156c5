package service

import (
	"testing"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/stretchr/testify/require"
)

func TestAccountService(t *testing.T) {
	t.Parallel()

	t.Run("current user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.account.CurrentUser(f.ctx(), f.newSession(t))
		require.ErrorIs(t, err, ErrUnauthenticated)
		_, err = f.account.CurrentUser(f.ctx(), nil)
		require.ErrorIs(t, err, ErrUnauthenticated)

		sess := f.signedIn(t)
		user, err := f.account.CurrentUser(f.ctx(), sess)
		require.NoError(t, err)
		require.Equal(t, sess.UserID, user.ID)
		require.Equal(t, "Alice", user.DisplayName)
	})

	t.Run("logout drops session state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := f.signedIn(t)

		txn := f.txns.Create(sess.ID, testParams("c"), true)
		c, err := f.challenges.Generate(sess.ID, domain.ChallengeAuthentication, "", "")
		require.NoError(t, err)

		f.account.Logout(sess)
		f.account.Logout(nil)

		_, ok := f.sessions.Get(sess.ID)
		require.False(t, ok)
		_, err = f.txns.Get(sess.ID, txn.ID)
		require.ErrorIs(t, err, ErrTransactionNotFound)
		_, err = f.challenges.ValidateAndConsume(sess.ID, domain.ChallengeAuthentication, c.Value)
		require.ErrorIs(t, err, ErrChallengeExpired)
	})

	t.Run("delete account cascades", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := f.newSession(t)
		_, reg := f.register(t, sess, "")
		sess = f.refresh(t, sess)

		rp, err := f.rps.Create(f.ctx(), reg.UserID, RelyingPartyInput{Name: "Owned", RedirectURIs: []string{"https://owned.example.com/cb"}})
		require.NoError(t, err)

		require.ErrorIs(t, f.account.DeleteAccount(f.ctx(), f.newSession(t)), ErrUnauthenticated)
		require.NoError(t, f.account.DeleteAccount(f.ctx(), sess))

		_, err = f.store.Users().GetUserByID(f.ctx(), reg.UserID)
		require.ErrorIs(t, err, store.ErrNotFound)
		n, err := f.store.Credentials().CountCredentialsByUser(f.ctx(), reg.UserID)
		require.NoError(t, err)
		require.Zero(t, n)
		_, err = f.store.RelyingParties().GetRelyingPartyByID(f.ctx(), rp.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, ok := f.sessions.Get(sess.ID)
		require.False(t, ok)
	})
}
