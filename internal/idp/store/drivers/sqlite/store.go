package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite/gen"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

// NewStore opens dsn with foreign keys enforced. In-memory databases are
// pinned to one connection so every query sees the same database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withForeignKeys(dsn))
	if err != nil {
		return nil, err
	}

	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

// withForeignKeys adds the modernc pragma parameter so pooled connections
// also enforce foreign keys.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// atomic runs fn inside a fresh transaction.
func (s *Store) atomic(ctx context.Context, fn func(q *gen.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                   { return &usersRepo{q: s.q} }
func (s *Store) RelyingParties() store.RelyingParties { return &relyingPartiesRepo{q: s.q, atomic: s.atomic} }
func (s *Store) Credentials() store.Credentials       { return &credentialsRepo{q: s.q} }
func (s *Store) SigningKeys() store.SigningKeys       { return &signingKeysRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapAlreadyExists turns unique constraint violations into
// store.ErrAlreadyExists.
func mapAlreadyExists(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func requireRows(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapTimeNull(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		CreatedAt:   row.CreatedAt,
		LastLoginAt: mapNullTimePtr(row.LastLoginAt),
	}
}

func mapRelyingParty(row gen.RelyingParty, uris []string) domain.RelyingParty {
	return domain.RelyingParty{
		ID:              row.ID,
		RPID:            row.RpID,
		Name:            row.Name,
		SectorID:        row.SectorID,
		LogoURL:         mapNullString(row.LogoUrl),
		PrimaryColor:    mapNullString(row.PrimaryColor),
		SecondaryColor:  mapNullString(row.SecondaryColor),
		Status:          row.Status,
		CreatedByUserID: mapNullString(row.CreatedByUserID),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		RedirectURIs:    uris,
	}
}

func mapCredential(row gen.WebauthnCredential) domain.Credential {
	return domain.Credential{
		ID:              row.ID,
		UserID:          row.UserID,
		CredentialID:    row.CredentialID,
		PublicKey:       row.PublicKey,
		AttestationType: row.AttestationType,
		AAGUID:          row.Aaguid,
		SignCount:       uint32(row.SignCount),
		Transports:      strings.Fields(row.Transports),
		UserPresent:     row.UserPresent,
		UserVerified:    row.UserVerified,
		BackupEligible:  row.BackupEligible,
		BackupState:     row.BackupState,
		Name:            mapNullString(row.Name),
		CreatedAt:       row.CreatedAt,
		LastUsedAt:      mapNullTimePtr(row.LastUsedAt),
	}
}

func mapSigningKey(row gen.SigningKey) domain.SigningKey {
	return domain.SigningKey{
		ID:                  row.ID,
		Kid:                 row.Kid,
		Algorithm:           row.Algorithm,
		PrivateKeyEncrypted: row.PrivateKeyEncrypted,
		CreatedAt:           row.CreatedAt,
		RetiredAt:           mapNullTimePtr(row.RetiredAt),
	}
}
