package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite/gen"
)

type signingKeysRepo struct {
	q *gen.Queries
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	err := r.q.CreateSigningKey(ctx, gen.CreateSigningKeyParams{
		ID:                  key.ID,
		Kid:                 key.Kid,
		Algorithm:           key.Algorithm,
		PrivateKeyEncrypted: key.PrivateKeyEncrypted,
		CreatedAt:           key.CreatedAt,
	})
	return mapAlreadyExists(err)
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.q.ListSigningKeys(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]domain.SigningKey, len(rows))
	for i, row := range rows {
		keys[i] = mapSigningKey(row)
	}
	return keys, nil
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, at time.Time) error {
	return requireRows(r.q.RetireSigningKey(ctx, gen.RetireSigningKeyParams{
		RetiredAt: mapTimeNull(at),
		Kid:       kid,
	}))
}
