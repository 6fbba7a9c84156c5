package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

// AccountService covers the session lifecycle and account removal.
type AccountService struct {
	Store        store.Store
	Sessions     *SessionStore
	Challenges   *ChallengeStore
	Transactions *TransactionStore
}

// CurrentUser returns the signed-in user of sess.
func (s *AccountService) CurrentUser(ctx context.Context, sess *Session) (domain.User, error) {
	if !sess.IsAuthenticated() {
		return domain.User{}, ErrUnauthenticated
	}
	u, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUnauthenticated
	}
	return u, err
}

// Logout destroys the session with its transactions and challenges.
func (s *AccountService) Logout(sess *Session) {
	if sess == nil {
		return
	}
	s.Sessions.Destroy(sess.ID)
	s.Transactions.DestroySession(sess.ID)
	s.Challenges.Cleanup(sess.ID)
}

// DeleteAccount removes the user. Credentials, relying parties created by
// the user and their redirect URIs go with it.
func (s *AccountService) DeleteAccount(ctx context.Context, sess *Session) error {
	if !sess.IsAuthenticated() {
		return ErrUnauthenticated
	}

	if err := s.Store.Users().DeleteUser(ctx, sess.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	slogx.FromContext(ctx).Info("account deleted", "user_id", sess.UserID)
	s.Logout(sess)
	return nil
}
