package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

// Identity is the public view of a buyer or seller.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}

// Resolver maps user ids to identities.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*Identity, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type resolver struct {
	repo userFinder
}

// NewResolver builds a Resolver over the users table.
func NewResolver(repo userFinder) (Resolver, error) {
	if repo == nil {
		return nil, errors.New("users repository required")
	}
	return &resolver{repo: repo}, nil
}

func (r *resolver) Resolve(ctx context.Context, id uuid.UUID) (*Identity, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := r.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user is inactive")
	}
	return &Identity{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}
