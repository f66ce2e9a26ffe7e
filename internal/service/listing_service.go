package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campusmarket/internal/contentfilter"
	"campusmarket/internal/domain"
	"campusmarket/internal/validation"
)

// ListingService owns listing search and the listing lifecycle.
type ListingService struct {
	listings domain.ListingRepository
	validate *validation.Validator
	filter   *contentfilter.Filter
	log      *zap.Logger

	Now   func() time.Time
	NewID func() string
}

func NewListingService(
	listings domain.ListingRepository,
	validate *validation.Validator,
	filter *contentfilter.Filter,
	log *zap.Logger,
) *ListingService {
	return &ListingService{
		listings: listings,
		validate: validate,
		filter:   filter,
		log:      log,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

type CreateListingInput struct {
	Title       string           `json:"title" validate:"notblank,min=3,max=100"`
	Description string           `json:"description" validate:"notblank,min=10,max=2000"`
	Price       float64          `json:"price" validate:"gt=0,lte=100000"`
	Category    string           `json:"category" validate:"notblank,max=50"`
	Condition   domain.Condition `json:"condition" validate:"required,oneof=NEW LIKE_NEW EXCELLENT GOOD FAIR POOR"`
	Location    domain.Location  `json:"location" validate:"required,oneof=ON_CAMPUS OFF_CAMPUS"`
	Images      []string         `json:"images" validate:"min=1,max=6,dive,url"`
}

// UpdateListingInput is a partial update; nil fields are left unchanged.
type UpdateListingInput struct {
	Title       *string               `json:"title" validate:"omitnil,notblank,min=3,max=100"`
	Description *string               `json:"description" validate:"omitnil,notblank,min=10,max=2000"`
	Price       *float64              `json:"price" validate:"omitnil,gt=0,lte=100000"`
	Category    *string               `json:"category" validate:"omitnil,notblank,max=50"`
	Condition   *domain.Condition     `json:"condition" validate:"omitnil,oneof=NEW LIKE_NEW EXCELLENT GOOD FAIR POOR"`
	Location    *domain.Location      `json:"location" validate:"omitnil,oneof=ON_CAMPUS OFF_CAMPUS"`
	Images      []string              `json:"images" validate:"omitempty,min=1,max=6,dive,url"`
	Status      *domain.ListingStatus `json:"status" validate:"omitnil,oneof=ACTIVE SOLD DELETED"`
}

// Search returns one page of listings and the total for the same filter.
// Only admins may see DELETED listings; for everyone else that status is
// dropped from the filter.
func (s *ListingService) Search(ctx context.Context, who domain.Identity, f domain.ListingFilter) (*domain.ListingPage, error) {
	if !who.IsAdmin() && len(f.Statuses) > 0 {
		visible := make([]domain.ListingStatus, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			if st != domain.StatusDeleted {
				visible = append(visible, st)
			}
		}
		if len(visible) == 0 {
			f = f.Normalize()
			return &domain.ListingPage{Listings: []*domain.Listing{}, Page: f.Page, Limit: f.Limit}, nil
		}
		f.Statuses = visible
	}
	f = f.Normalize()

	var (
		rows  []*domain.Listing
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.listings.Search(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.listings.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	return &domain.ListingPage{
		Listings:   rows,
		Page:       f.Page,
		Limit:      f.Limit,
		Total:      total,
		TotalPages: domain.TotalPages(total, f.Limit),
	}, nil
}

// Get returns a listing with its seller contact. Deleted listings are only
// visible to their seller and admins.
func (s *ListingService) Get(ctx context.Context, who domain.Identity, id string) (*domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == domain.StatusDeleted && !canManage(who, l) {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

func (s *ListingService) Create(ctx context.Context, who domain.Identity, in CreateListingInput) (*domain.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.filter.Check("title", in.Title, "description", in.Description); err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	l := &domain.Listing{
		ID:          s.NewID(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Condition:   in.Condition,
		Location:    in.Location,
		Images:      in.Images,
		Status:      domain.StatusActive,
		SellerID:    who.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}
	return s.listings.GetByID(ctx, l.ID)
}

func (s *ListingService) Update(ctx context.Context, who domain.Identity, id string, in UpdateListingInput) (*domain.Listing, error) {
	if in.Images != nil && len(in.Images) == 0 {
		return nil, domain.NewValidationError("images", "must have at least 1 items")
	}
	trimPtr(in.Title)
	trimPtr(in.Description)
	trimPtr(in.Category)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(who, l) {
		return nil, domain.ErrForbidden
	}

	var checks []string
	if in.Title != nil {
		checks = append(checks, "title", *in.Title)
	}
	if in.Description != nil {
		checks = append(checks, "description", *in.Description)
	}
	if err := s.filter.Check(checks...); err != nil {
		return nil, err
	}
	if in.Status != nil && !l.Status.CanTransitionTo(*in.Status) {
		return nil, domain.NewValidationError("status",
			fmt.Sprintf("cannot change from %s to %s", l.Status, *in.Status))
	}

	if in.Title != nil {
		l.Title = *in.Title
	}
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.Price != nil {
		l.Price = *in.Price
	}
	if in.Category != nil {
		l.Category = *in.Category
	}
	if in.Condition != nil {
		l.Condition = *in.Condition
	}
	if in.Location != nil {
		l.Location = *in.Location
	}
	if in.Images != nil {
		l.Images = in.Images
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	l.UpdatedAt = s.Now().UTC()

	if err := s.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	return s.listings.GetByID(ctx, id)
}

// Delete soft-deletes a listing; favorites and threads keep pointing at it.
func (s *ListingService) Delete(ctx context.Context, who domain.Identity, id string) error {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(who, l) {
		return domain.ErrForbidden
	}
	if l.Status == domain.StatusDeleted {
		return nil
	}
	l.Status = domain.StatusDeleted
	l.UpdatedAt = s.Now().UTC()
	if err := s.listings.Update(ctx, l); err != nil {
		return err
	}
	s.log.Info("listing deleted", zap.String("listing_id", id), zap.String("by", who.ID))
	return nil
}

// ListForSeller returns the caller's own listings that are not deleted.
func (s *ListingService) ListForSeller(ctx context.Context, who domain.Identity, page, limit int) (*domain.ListingPage, error) {
	return s.Search(ctx, who, domain.ListingFilter{
		SellerID: who.ID,
		Statuses: []domain.ListingStatus{domain.StatusActive, domain.StatusSold},
		Page:     page,
		Limit:    limit,
	})
}

// ── helpers ──────────────────────────────────────────────────────────────────

func canManage(who domain.Identity, l *domain.Listing) bool {
	return who.ID != "" && (l.SellerID == who.ID || who.IsAdmin())
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
