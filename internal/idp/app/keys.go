package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/cryptox"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
)

// InitSigningKeys creates the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": a key is generated on startup and kept in memory. ID
//     tokens issued before a restart no longer verify.
//   - "persistent": the key is sealed with AES-GCM under a key derived from
//     the master secret and stored in signing_keys. One key is active; older
//     non-retired keys stay in the JWKS.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		RSABits:   cfg.RSABits,
	}

	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		secret, err := cryptox.LoadMasterSecret(cfg.MasterKeyPath, cfg.MasterKey)
		if err != nil {
			return nil, err
		}
		enc, err := cryptox.NewKeyEncrypter(secret)
		if err != nil {
			return nil, err
		}

		logger.Info("initializing persistent key manager", "algorithm", cfg.Algorithm)
		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			KeyManagerOptions: opts,
			Store:             store.NewKeyStoreAdapter(db),
			Encrypter:         enc,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing key loaded",
			"algorithm", km.Algorithm(),
			"kid", km.Signer().KID(),
			"published_keys", km.KeySet().Len(),
		)
		return km, nil

	default:
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing key", "algorithm", km.Algorithm(), "kid", km.Signer().KID())
		logger.Warn("ID tokens issued before this start no longer verify")
		return km, nil
	}
}
