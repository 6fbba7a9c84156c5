package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite/gen"
)

type credentialsRepo struct {
	q *gen.Queries
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.Credential) error {
	err := r.q.CreateCredential(ctx, gen.CreateCredentialParams{
		ID:              c.ID,
		UserID:          c.UserID,
		CredentialID:    c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Aaguid:          c.AAGUID,
		SignCount:       int64(c.SignCount),
		Transports:      strings.Join(c.Transports, " "),
		UserPresent:     c.UserPresent,
		UserVerified:    c.UserVerified,
		BackupEligible:  c.BackupEligible,
		BackupState:     c.BackupState,
		Name:            mapStringNull(c.Name),
		CreatedAt:       c.CreatedAt,
	})
	return mapAlreadyExists(err)
}

func (r *credentialsRepo) GetCredentialByCredentialID(ctx context.Context, credentialID []byte) (domain.Credential, error) {
	row, err := r.q.GetCredentialByCredentialID(ctx, credentialID)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	return mapCredential(row), nil
}

func (r *credentialsRepo) ListCredentialsByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	rows, err := r.q.ListCredentialsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	creds := make([]domain.Credential, len(rows))
	for i, row := range rows {
		creds[i] = mapCredential(row)
	}
	return creds, nil
}

func (r *credentialsRepo) CountCredentialsByUser(ctx context.Context, userID string) (int, error) {
	n, err := r.q.CountCredentialsByUser(ctx, userID)
	return int(n), err
}

func (r *credentialsRepo) UpdateCredentialUsage(
	ctx context.Context,
	id string,
	signCount uint32,
	backupState bool,
	usedAt time.Time,
) error {
	return r.q.UpdateCredentialUsage(ctx, gen.UpdateCredentialUsageParams{
		SignCount:   int64(signCount),
		BackupState: backupState,
		LastUsedAt:  mapTimeNull(usedAt),
		ID:          id,
	})
}

func (r *credentialsRepo) RenameCredential(ctx context.Context, id, userID, name string) error {
	return requireRows(r.q.RenameCredential(ctx, gen.RenameCredentialParams{
		Name:   mapStringNull(name),
		ID:     id,
		UserID: userID,
	}))
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, id, userID string) error {
	return requireRows(r.q.DeleteCredential(ctx, gen.DeleteCredentialParams{
		ID:     id,
		UserID: userID,
	}))
}
