package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusmarket/internal/domain"
	"campusmarket/internal/store/listingquery"
)

type ListingRepo struct {
	db *sql.DB
}

func NewListingRepo(db *sql.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

var _ domain.ListingRepository = (*ListingRepo)(nil)

const listingSelect = `
	SELECT l.id, l.title, l.description, l.price, l.category, l.condition, l.location,
	       l.images, l.status, l.seller_id, l.created_at, l.updated_at,
	       u.name, u.image, u.email, u.major, u.grad_year,
	       (SELECT COUNT(*) FROM favorites f WHERE f.listing_id = l.id) AS favorite_count
	FROM listings l
	JOIN users u ON u.id = l.seller_id
`

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	images, err := encodeImages(l.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO listings
			(id, title, description, price, category, condition, location, images, status, seller_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.Title, l.Description, l.Price, l.Category, string(l.Condition), string(l.Location),
		images, string(l.Status), l.SellerID, l.CreatedAt, l.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, listingSelect+` WHERE l.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func (r *ListingRepo) Update(ctx context.Context, l *domain.Listing) error {
	images, err := encodeImages(l.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET title = ?, description = ?, price = ?, category = ?, condition = ?, location = ?,
		    images = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, l.Title, l.Description, l.Price, l.Category, string(l.Condition), string(l.Location),
		images, string(l.Status), l.UpdatedAt, l.ID)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) Search(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error) {
	f = f.Normalize()
	pred := listingquery.Build(listingquery.SQLite, f)
	tail, args := listingquery.Page(listingquery.SQLite, pred, f)

	rows, err := r.db.QueryContext(ctx, listingSelect+` WHERE `+pred.Clause+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer rows.Close()

	res := []*domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		l.Seller.Email = nil
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r *ListingRepo) Count(ctx context.Context, f domain.ListingFilter) (int, error) {
	pred := listingquery.Build(listingquery.SQLite, f.Normalize())
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings l WHERE `+pred.Clause, pred.Args...,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func scanListing(row scanner) (*domain.Listing, error) {
	l := &domain.Listing{Seller: &domain.UserSummary{}}
	var condition, location, images, status string
	if err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Price, &l.Category, &condition, &location,
		&images, &status, &l.SellerID, &l.CreatedAt, &l.UpdatedAt,
		&l.Seller.Name, &l.Seller.Image, &l.Seller.Email, &l.Seller.Major, &l.Seller.GradYear,
		&l.FavoriteCount,
	); err != nil {
		return nil, err
	}
	decoded, err := decodeImages(images)
	if err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	l.Images = decoded
	l.Condition = domain.Condition(condition)
	l.Location = domain.Location(location)
	l.Status = domain.ListingStatus(status)
	l.Seller.ID = l.SellerID
	return l, nil
}
