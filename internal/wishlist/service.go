package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/pagination"
)

type listingLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// Page is one page of a user's wishlist.
type Page struct {
	Items  []models.WishlistItem `json:"items"`
	Cursor string                `json:"cursor"`
}

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*Page, error)
	AddItem(ctx context.Context, userID, listingID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, listingID uuid.UUID) error
}

type service struct {
	repo     *Repository
	listings listingLoader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(repo *Repository, listings listingLoader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing repo is required")
	}
	return &service{repo: repo, listings: listings}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*Page, error) {
	decoded, err := pagination.ParseToken(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListItems(ctx, userID, decoded, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	page := &Page{Items: rows}
	if page.Items == nil {
		page.Items = []models.WishlistItem{}
	}
	if next != nil {
		page.Cursor = next.Token()
	}
	return page, nil
}

func (s *service) AddItem(ctx context.Context, userID, listingID uuid.UUID) error {
	if _, err := s.listings.FindByID(ctx, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if err := s.repo.AddItem(ctx, userID, listingID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, listingID uuid.UUID) error {
	if err := s.repo.RemoveItem(ctx, userID, listingID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}
