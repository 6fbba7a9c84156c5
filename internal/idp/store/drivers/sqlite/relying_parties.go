package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite/gen"
)

type relyingPartiesRepo struct {
	q      *gen.Queries
	atomic func(ctx context.Context, fn func(q *gen.Queries) error) error
}

func (r *relyingPartiesRepo) CreateRelyingParty(ctx context.Context, rp domain.RelyingParty) error {
	return r.atomic(ctx, func(q *gen.Queries) error {
		err := q.CreateRelyingParty(ctx, gen.CreateRelyingPartyParams{
			ID:              rp.ID,
			RpID:            rp.RPID,
			Name:            rp.Name,
			SectorID:        rp.SectorID,
			LogoUrl:         mapStringNull(rp.LogoURL),
			PrimaryColor:    mapStringNull(rp.PrimaryColor),
			SecondaryColor:  mapStringNull(rp.SecondaryColor),
			Status:          rp.Status,
			CreatedByUserID: mapStringNull(rp.CreatedByUserID),
			CreatedAt:       rp.CreatedAt,
			UpdatedAt:       rp.UpdatedAt,
		})
		if err != nil {
			return mapAlreadyExists(err)
		}
		return addRedirectURIs(ctx, q, rp.ID, rp.RedirectURIs, rp.CreatedAt)
	})
}

func (r *relyingPartiesRepo) GetRelyingPartyByID(ctx context.Context, id string) (domain.RelyingParty, error) {
	row, err := r.q.GetRelyingPartyByID(ctx, id)
	if err != nil {
		return domain.RelyingParty{}, mapNotFound(err)
	}
	return r.withRedirectURIs(ctx, row)
}

func (r *relyingPartiesRepo) GetRelyingPartyByRPID(ctx context.Context, rpID string) (domain.RelyingParty, error) {
	row, err := r.q.GetRelyingPartyByRPID(ctx, rpID)
	if err != nil {
		return domain.RelyingParty{}, mapNotFound(err)
	}
	return r.withRedirectURIs(ctx, row)
}

func (r *relyingPartiesRepo) ListRelyingPartiesByOwner(ctx context.Context, userID string) ([]domain.RelyingParty, error) {
	rows, err := r.q.ListRelyingPartiesByOwner(ctx, mapStringNull(userID))
	if err != nil {
		return nil, err
	}

	out := make([]domain.RelyingParty, 0, len(rows))
	for _, row := range rows {
		rp, err := r.withRedirectURIs(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}

func (r *relyingPartiesRepo) UpdateRelyingParty(ctx context.Context, rp domain.RelyingParty) error {
	return r.atomic(ctx, func(q *gen.Queries) error {
		err := requireRows(q.UpdateRelyingParty(ctx, gen.UpdateRelyingPartyParams{
			Name:           rp.Name,
			SectorID:       rp.SectorID,
			LogoUrl:        mapStringNull(rp.LogoURL),
			PrimaryColor:   mapStringNull(rp.PrimaryColor),
			SecondaryColor: mapStringNull(rp.SecondaryColor),
			UpdatedAt:      rp.UpdatedAt,
			ID:             rp.ID,
		}))
		if err != nil {
			return err
		}
		if err := q.DeleteRedirectURIs(ctx, rp.ID); err != nil {
			return err
		}
		return addRedirectURIs(ctx, q, rp.ID, rp.RedirectURIs, rp.UpdatedAt)
	})
}

func (r *relyingPartiesRepo) DeleteRelyingParty(ctx context.Context, id string) error {
	return requireRows(r.q.DeleteRelyingParty(ctx, id))
}

func (r *relyingPartiesRepo) withRedirectURIs(ctx context.Context, row gen.RelyingParty) (domain.RelyingParty, error) {
	uris, err := r.q.ListRedirectURIs(ctx, row.ID)
	if err != nil {
		return domain.RelyingParty{}, err
	}
	return mapRelyingParty(row, uris), nil
}

func addRedirectURIs(ctx context.Context, q *gen.Queries, rpID string, uris []string, at time.Time) error {
	for _, uri := range uris {
		err := q.AddRedirectURI(ctx, gen.AddRedirectURIParams{
			RelyingPartyID: rpID,
			Uri:            uri,
			CreatedAt:      at,
		})
		if err != nil {
			return mapAlreadyExists(err)
		}
	}
	return nil
}
