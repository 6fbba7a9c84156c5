package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	})
	return mapAlreadyExists(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.q.UpdateUserLastLogin(ctx, gen.UpdateUserLastLoginParams{
		LastLoginAt: mapTimeNull(at),
		ID:          id,
	})
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	return requireRows(r.q.DeleteUser(ctx, id))
}
