// Package seed loads demo users and listings for local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/store"
)

type demoUser struct {
	email    string
	name     string
	major    string
	gradYear int
	role     domain.Role
}

type demoListing struct {
	seller      string
	title       string
	description string
	price       float64
	category    string
	condition   domain.Condition
}

var users = []demoUser{
	{email: "seller@example.com", name: "John Doe", major: "Computer Science", gradYear: 2025, role: domain.RoleMember},
	{email: "buyer@example.com", name: "Jane Smith", major: "Business", gradYear: 2026, role: domain.RoleMember},
	{email: "admin@example.com", name: "Admin User", role: domain.RoleAdmin},
}

var listings = []demoListing{
	{"seller@example.com", `MacBook Pro 14" - Excellent Condition`,
		`2023 MacBook Pro 14" with M2 Pro chip. Used for one semester, excellent condition. Includes charger and original box.`,
		1800, "Electronics", domain.ConditionExcellent},
	{"seller@example.com", "IKEA Desk - Like New",
		"White IKEA desk, perfect for dorm room. Barely used, moving out.",
		75, "Furniture", domain.ConditionLikeNew},
	{"seller@example.com", "Calculus Textbook - 3rd Edition",
		"Stewart Calculus 3rd edition. Good condition, some highlighting.",
		45, "Books", domain.ConditionGood},
	{"buyer@example.com", "GT Hoodie - Size M",
		"Official Georgia Tech hoodie, worn a few times. Great condition.",
		35, "Clothing", domain.ConditionExcellent},
	{"buyer@example.com", "Bike Lock - Heavy Duty",
		"Kryptonite bike lock, never used. Moving and no longer need it.",
		25, "Other", domain.ConditionNew},
}

const placeholderImage = "https://placehold.co/600x400?text=Campus+Market"

// Result counts what a run created.
type Result struct {
	Users    int
	Listings int
}

// Run upserts the demo users and gives each demo seller their listings.
// Sellers that already have listings are left alone, so running twice is a
// no-op.
func Run(ctx context.Context, repos *store.Repositories, now time.Time, log *zap.Logger) (Result, error) {
	var res Result
	now = now.UTC()
	ids := make(map[string]string, len(users))

	for _, du := range users {
		u, err := repos.Users.GetByEmail(ctx, du.email)
		if errors.Is(err, domain.ErrNotFound) {
			u = &domain.User{
				ID:              uuid.NewString(),
				Email:           du.email,
				Name:            strPtr(du.name),
				Role:            du.role,
				EmailVerifiedAt: &now,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if du.major != "" {
				u.Major = strPtr(du.major)
			}
			if du.gradYear != 0 {
				u.GradYear = &du.gradYear
			}
			if err := repos.Users.Create(ctx, u); err != nil {
				return res, fmt.Errorf("create user %s: %w", du.email, err)
			}
			res.Users++
		} else if err != nil {
			return res, fmt.Errorf("lookup user %s: %w", du.email, err)
		}
		ids[du.email] = u.ID
	}

	seeded := map[string]bool{}
	for email, id := range ids {
		n, err := repos.Listings.Count(ctx, domain.ListingFilter{
			SellerID: id,
			Statuses: []domain.ListingStatus{domain.StatusActive, domain.StatusSold, domain.StatusDeleted},
		})
		if err != nil {
			return res, fmt.Errorf("count listings: %w", err)
		}
		seeded[email] = n > 0
	}

	for i, dl := range listings {
		if seeded[dl.seller] {
			continue
		}
		// Stagger timestamps so newest-first ordering is stable.
		at := now.Add(time.Duration(i) * time.Minute)
		l := &domain.Listing{
			ID:          uuid.NewString(),
			Title:       dl.title,
			Description: dl.description,
			Price:       dl.price,
			Category:    dl.category,
			Condition:   dl.condition,
			Location:    domain.LocationOnCampus,
			Images:      []string{placeholderImage},
			Status:      domain.StatusActive,
			SellerID:    ids[dl.seller],
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		if err := repos.Listings.Create(ctx, l); err != nil {
			return res, fmt.Errorf("create listing %q: %w", dl.title, err)
		}
		res.Listings++
	}

	log.Info("seed completed", zap.Int("users", res.Users), zap.Int("listings", res.Listings))
	return res, nil
}

func strPtr(s string) *string { return &s }
