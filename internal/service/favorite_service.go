package service

import (
	"context"
	"time"

	"campusmarket/internal/domain"
	"campusmarket/internal/validation"
)

type FavoriteService struct {
	favorites domain.FavoriteRepository
	listings  domain.ListingRepository
	validate  *validation.Validator

	Now func() time.Time
}

func NewFavoriteService(favorites domain.FavoriteRepository, listings domain.ListingRepository, validate *validation.Validator) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		listings:  listings,
		validate:  validate,
		Now:       time.Now,
	}
}

type FavoriteInput struct {
	ListingID string `json:"listingId" validate:"notblank"`
}

// Add saves a listing for the caller. Saving it twice is a conflict.
func (s *FavoriteService) Add(ctx context.Context, who domain.Identity, in FavoriteInput) (*domain.Favorite, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.listings.GetByID(ctx, in.ListingID); err != nil {
		return nil, err
	}
	f := &domain.Favorite{UserID: who.ID, ListingID: in.ListingID, CreatedAt: s.Now().UTC()}
	if err := s.favorites.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FavoriteService) Remove(ctx context.Context, who domain.Identity, listingID string) error {
	return s.favorites.Delete(ctx, who.ID, listingID)
}

func (s *FavoriteService) List(ctx context.Context, who domain.Identity) ([]*domain.Favorite, error) {
	return s.favorites.ListForUser(ctx, who.ID)
}
