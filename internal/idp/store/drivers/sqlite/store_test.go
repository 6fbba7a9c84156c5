package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/nullprofile/pkg/idx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func createUser(t *testing.T, st store.Store) domain.User {
	t.Helper()

	u := domain.User{ID: uuid.NewString(), DisplayName: "Alice", CreatedAt: time.Now().UTC()}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	u := createUser(t, st)

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.DisplayName)
	require.Nil(t, got.LastLoginAt)

	now := time.Now().UTC()
	require.NoError(t, st.Users().UpdateLastLogin(ctx, u.ID, now))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.WithinDuration(t, now, *got.LastLoginAt, time.Second)

	require.ErrorIs(t, st.Users().CreateUser(ctx, u), store.ErrAlreadyExists)

	_, err = st.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, st.Users().DeleteUser(ctx, "missing"), store.ErrNotFound)
}

func TestRelyingParties(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	owner := createUser(t, st)
	now := time.Now().UTC()

	rp := domain.RelyingParty{
		ID:              idx.New().String(),
		RPID:            "client-abc",
		Name:            "Example",
		SectorID:        "app.example.com",
		PrimaryColor:    "#112233",
		Status:          domain.RelyingPartyStatusActive,
		CreatedByUserID: owner.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
		RedirectURIs:    []string{"https://app.example.com/cb", "https://app.example.com/cb2"},
	}
	require.NoError(t, st.RelyingParties().CreateRelyingParty(ctx, rp))

	t.Run("lookup by rp id", func(t *testing.T) {
		got, err := st.RelyingParties().GetRelyingPartyByRPID(ctx, "client-abc")
		require.NoError(t, err)
		require.Equal(t, rp.ID, got.ID)
		require.Equal(t, rp.RedirectURIs, got.RedirectURIs)
		require.Equal(t, "#112233", got.PrimaryColor)
		require.Empty(t, got.LogoURL)
		require.True(t, got.IsActive())
	})

	t.Run("duplicate rp id", func(t *testing.T) {
		dup := rp
		dup.ID = idx.New().String()
		require.ErrorIs(t, st.RelyingParties().CreateRelyingParty(ctx, dup), store.ErrAlreadyExists)

		// The failed insert must not leave redirect URIs behind.
		_, err := st.RelyingParties().GetRelyingPartyByID(ctx, dup.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update replaces redirect uris", func(t *testing.T) {
		upd := rp
		upd.Name = "Renamed"
		upd.RedirectURIs = []string{"https://new.example.com/cb"}
		upd.UpdatedAt = time.Now().UTC()
		require.NoError(t, st.RelyingParties().UpdateRelyingParty(ctx, upd))

		got, err := st.RelyingParties().GetRelyingPartyByID(ctx, rp.ID)
		require.NoError(t, err)
		require.Equal(t, "Renamed", got.Name)
		require.Equal(t, "client-abc", got.RPID)
		require.Equal(t, []string{"https://new.example.com/cb"}, got.RedirectURIs)
	})

	t.Run("list by owner", func(t *testing.T) {
		list, err := st.RelyingParties().ListRelyingPartiesByOwner(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		other, err := st.RelyingParties().ListRelyingPartiesByOwner(ctx, uuid.NewString())
		require.NoError(t, err)
		require.Empty(t, other)
	})

	t.Run("seeded party without owner", func(t *testing.T) {
		seeded := domain.RelyingParty{
			ID:           idx.New().String(),
			RPID:         "seeded",
			Name:         "Seeded",
			SectorID:     "seeded.example.com",
			Status:       domain.RelyingPartyStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
			RedirectURIs: []string{"https://seeded.example.com/cb"},
		}
		require.NoError(t, st.RelyingParties().CreateRelyingParty(ctx, seeded))

		got, err := st.RelyingParties().GetRelyingPartyByRPID(ctx, "seeded")
		require.NoError(t, err)
		require.Empty(t, got.CreatedByUserID)
	})
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	u := createUser(t, st)

	cred := domain.Credential{
		ID:             idx.New().String(),
		UserID:         u.ID,
		CredentialID:   []byte{1, 2, 3, 4},
		PublicKey:      []byte{9, 9, 9},
		SignCount:      5,
		Transports:     []string{"internal", "hybrid"},
		UserPresent:    true,
		UserVerified:   true,
		BackupEligible: true,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, st.Credentials().CreateCredential(ctx, cred))
	require.ErrorIs(t, st.Credentials().CreateCredential(ctx, cred), store.ErrAlreadyExists)

	got, err := st.Credentials().GetCredentialByCredentialID(ctx, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, cred.ID, got.ID)
	require.Equal(t, uint32(5), got.SignCount)
	require.Equal(t, []string{"internal", "hybrid"}, got.Transports)
	require.True(t, got.BackupEligible)
	require.False(t, got.BackupState)
	require.Equal(t, domain.DefaultPasskeyName, got.DisplayName())

	used := time.Now().UTC()
	require.NoError(t, st.Credentials().UpdateCredentialUsage(ctx, cred.ID, 6, true, used))
	got, err = st.Credentials().GetCredentialByCredentialID(ctx, cred.CredentialID)
	require.NoError(t, err)
	require.Equal(t, uint32(6), got.SignCount)
	require.True(t, got.BackupState)
	require.NotNil(t, got.LastUsedAt)

	t.Run("rename is owner scoped", func(t *testing.T) {
		require.NoError(t, st.Credentials().RenameCredential(ctx, cred.ID, u.ID, "Laptop"))
		require.ErrorIs(t, st.Credentials().RenameCredential(ctx, cred.ID, "someone-else", "x"), store.ErrNotFound)

		list, err := st.Credentials().ListCredentialsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "Laptop", list[0].Name)
	})

	t.Run("delete user cascades", func(t *testing.T) {
		n, err := st.Credentials().CountCredentialsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		require.NoError(t, st.Users().DeleteUser(ctx, u.ID))

		n, err = st.Credentials().CountCredentialsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, n)
	})
}

func TestSigningKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	key := domain.SigningKey{
		ID:                  idx.New().String(),
		Kid:                 "kid-1",
		Algorithm:           "ES256",
		PrivateKeyEncrypted: []byte("sealed"),
		CreatedAt:           time.Now().UTC(),
	}
	require.NoError(t, st.SigningKeys().CreateSigningKey(ctx, key))

	keys, err := st.SigningKeys().ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Nil(t, keys[0].RetiredAt)

	require.NoError(t, st.SigningKeys().RetireSigningKey(ctx, "kid-1", time.Now().UTC()))
	require.ErrorIs(t, st.SigningKeys().RetireSigningKey(ctx, "kid-1", time.Now().UTC()), store.ErrNotFound)

	keys, err = st.SigningKeys().ListSigningKeys(ctx)
	require.NoError(t, err)
	require.NotNil(t, keys[0].RetiredAt)

	adapter := store.NewKeyStoreAdapter(st)
	records, err := adapter.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "kid-1", records[0].Kid)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	id := uuid.NewString()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, domain.User{ID: id, CreatedAt: time.Now().UTC()}); err != nil {
			return err
		}
		return store.ErrAlreadyExists
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = st.Users().GetUserByID(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Ping(ctx))
}
