package postgres

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
		INSERT INTO favorites (user_id, listing_id, created_at) VALUES ($1, $2, $3)
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
		DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2
	`, userID, listingID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListForUser returns the user's favorites newest first. The listing columns
// come first so the shared listing scanner can read them.
func (r *FavoriteRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.title, l.description, l.price::float8, l.category, l.condition, l.location,
		       l.images, l.status, l.seller_id, l.created_at, l.updated_at,
		       u.name, u.image, u.email, u.major, u.grad_year,
		       (SELECT COUNT(*) FROM favorites f WHERE f.listing_id = l.id) AS favorite_count,
		       fav.created_at
		FROM favorites fav
		JOIN listings l ON l.id = fav.listing_id
		JOIN users u ON u.id = l.seller_id
		WHERE fav.user_id = $1
		ORDER BY fav.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	res := []*domain.Favorite{}
	for rows.Next() {
		f := &domain.Favorite{UserID: userID}
		l, err := scanListing(favoriteRow{rows, &f.CreatedAt})
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		l.Seller.Email = nil
		f.ListingID = l.ID
		f.Listing = l
		res = append(res, f)
	}
	return res, rows.Err()
}

// favoriteRow appends the favorite timestamp to the listing scan targets.
type favoriteRow struct {
	rows      *sql.Rows
	createdAt any
}

func (r favoriteRow) Scan(dest ...any) error {
	return r.rows.Scan(append(dest, r.createdAt)...)
}
