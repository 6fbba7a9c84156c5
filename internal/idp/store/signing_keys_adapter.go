package store

import (
	"context"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/pkg/idx"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
)

// KeyStoreAdapter exposes SigningKeys as a jwtx.KeyStore so pkg/jwtx stays
// free of the domain package.
type KeyStoreAdapter struct {
	store Store
}

func NewKeyStoreAdapter(store Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: store}
}

func (a *KeyStoreAdapter) ListSigningKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]jwtx.SigningKeyRecord, len(keys))
	for i, key := range keys {
		records[i] = jwtx.SigningKeyRecord{
			Kid:                 key.Kid,
			Algorithm:           key.Algorithm,
			PrivateKeyEncrypted: key.PrivateKeyEncrypted,
			CreatedAt:           key.CreatedAt,
			RetiredAt:           key.RetiredAt,
		}
	}
	return records, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		ID:                  idx.New().String(),
		Kid:                 rec.Kid,
		Algorithm:           rec.Algorithm,
		PrivateKeyEncrypted: rec.PrivateKeyEncrypted,
		CreatedAt:           rec.CreatedAt,
	})
}
