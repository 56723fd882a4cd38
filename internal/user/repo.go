package user

import (
	"context"

	"github.com/antonminaichev/gomarket/internal/types/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	FindByLogin(ctx context.Context, login string) (*user.User, error)
}

// AccountProvisioner creates the marketplace-side rows a fresh user
// needs: a zero balance and an empty cart. The core never creates them
// implicitly; the directory must invoke this hook after user creation.
type AccountProvisioner interface {
	ProvisionAccount(ctx context.Context, userID int64) error
}
