package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the drivers. Work
// that spans repositories goes through WithTx.
type Store interface {
	Users() Users
	RelyingParties() RelyingParties
	Credentials() Credentials
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// DeleteUser cascades to credentials and owned relying parties.
	DeleteUser(ctx context.Context, id string) error
}

type RelyingParties interface {
	// CreateRelyingParty inserts the party and its redirect URIs.
	CreateRelyingParty(ctx context.Context, rp domain.RelyingParty) error

	// Lookups include the redirect URIs.
	GetRelyingPartyByID(ctx context.Context, id string) (domain.RelyingParty, error)
	GetRelyingPartyByRPID(ctx context.Context, rpID string) (domain.RelyingParty, error)
	ListRelyingPartiesByOwner(ctx context.Context, userID string) ([]domain.RelyingParty, error)

	// UpdateRelyingParty rewrites the mutable fields and replaces the
	// redirect URIs. RPID and owner never change.
	UpdateRelyingParty(ctx context.Context, rp domain.RelyingParty) error

	DeleteRelyingParty(ctx context.Context, id string) error
}

type Credentials interface {
	CreateCredential(ctx context.Context, c domain.Credential) error
	GetCredentialByCredentialID(ctx context.Context, credentialID []byte) (domain.Credential, error)
	ListCredentialsByUser(ctx context.Context, userID string) ([]domain.Credential, error)
	CountCredentialsByUser(ctx context.Context, userID string) (int, error)

	// UpdateCredentialUsage records a successful assertion.
	UpdateCredentialUsage(ctx context.Context, id string, signCount uint32, backupState bool, usedAt time.Time) error

	// Rename and delete are scoped to the owner; other users' credentials
	// report ErrNotFound.
	RenameCredential(ctx context.Context, id, userID, name string) error
	DeleteCredential(ctx context.Context, id, userID string) error
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// ListSigningKeys returns every key, oldest first.
	ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	RetireSigningKey(ctx context.Context, kid string, at time.Time) error
}
