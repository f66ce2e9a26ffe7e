package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"campusmarket/internal/domain"
)

type FavoriteRepo struct {
	db *sql.DB
}

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo {
	return &FavoriteRepo{db: db}
}

var _ domain.FavoriteRepository = (*FavoriteRepo)(nil)

func (r *FavoriteRepo) Create(ctx context.Context, f *domain.Favorite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, listing_id, created_at) VALUES (?, ?, ?)
	`, f.UserID, f.ListingID, f.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

func (r *FavoriteRepo) Delete(ctx context.Context, userID, listingID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND listing_id = ?
	`, userID, listingID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FavoriteRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fav.user_id, fav.listing_id, fav.created_at,
		       l.id, l.title, l.description, l.price, l.category, l.condition, l.location,
		       l.images, l.status, l.seller_id, l.created_at, l.updated_at,
		       u.name, u.image, u.email, u.major, u.grad_year,
		       (SELECT COUNT(*) FROM favorites f WHERE f.listing_id = l.id) AS favorite_count
		FROM favorites fav
		JOIN listings l ON l.id = fav.listing_id
		JOIN users u ON u.id = l.seller_id
		WHERE fav.user_id = ?
		ORDER BY fav.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	res := []*domain.Favorite{}
	for rows.Next() {
		f := &domain.Favorite{}
		l := &domain.Listing{Seller: &domain.UserSummary{}}
		var condition, location, images, status string
		if err := rows.Scan(
			&f.UserID, &f.ListingID, &f.CreatedAt,
			&l.ID, &l.Title, &l.Description, &l.Price, &l.Category, &condition, &location,
			&images, &status, &l.SellerID, &l.CreatedAt, &l.UpdatedAt,
			&l.Seller.Name, &l.Seller.Image, &l.Seller.Email, &l.Seller.Major, &l.Seller.GradYear,
			&l.FavoriteCount,
		); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		if l.Images, err = decodeImages(images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
		l.Condition = domain.Condition(condition)
		l.Location = domain.Location(location)
		l.Status = domain.ListingStatus(status)
		l.Seller.ID = l.SellerID
		l.Seller.Email = nil
		f.Listing = l
		res = append(res, f)
	}
	return res, rows.Err()
}
