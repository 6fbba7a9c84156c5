package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

const maxPasskeyName = 100

// PasskeyService manages the signed-in user's registered credentials.
// Adding a passkey is a WebAuthn ceremony and lives on WebAuthnService.
type PasskeyService struct {
	Store store.Store
}

func (s *PasskeyService) List(ctx context.Context, userID string) ([]domain.Credential, error) {
	return s.Store.Credentials().ListCredentialsByUser(ctx, userID)
}

func (s *PasskeyService) Rename(ctx context.Context, userID, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxPasskeyName {
		return ErrInvalidRequest
	}

	if err := s.Store.Credentials().RenameCredential(ctx, id, userID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes a passkey. The last passkey of an account cannot be
// deleted; the account would become unreachable.
func (s *PasskeyService) Delete(ctx context.Context, userID, id string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		creds, err := tx.Credentials().ListCredentialsByUser(ctx, userID)
		if err != nil {
			return err
		}

		owned := false
		for _, c := range creds {
			if c.ID == id {
				owned = true
				break
			}
		}
		if !owned {
			return ErrNotFound
		}
		if len(creds) == 1 {
			return ErrLastPasskey
		}
		return tx.Credentials().DeleteCredential(ctx, id, userID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err == nil {
		slogx.FromContext(ctx).Info("passkey deleted", "user_id", userID, "credential", id)
	}
	return err
}
