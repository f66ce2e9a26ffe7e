package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campusmarket/internal/domain"
)

type ThreadRepo struct {
	db *sql.DB
}

func NewThreadRepo(db *sql.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

var _ domain.ThreadRepository = (*ThreadRepo)(nil)

const threadColumns = `id, buyer_id, seller_id, listing_id, created_at, updated_at`

// The viewer id is bound once, for the unread count.
const threadOverviewSelect = `
	SELECT t.id, t.buyer_id, t.seller_id, t.listing_id, t.created_at, t.updated_at,
	       l.title, l.price, l.images,
	       b.name, b.image, s.name, s.image,
	       lm.id, lm.sender_id, lm.text, lm.created_at, lm.read_at,
	       (SELECT COUNT(*) FROM messages um
	         WHERE um.thread_id = t.id AND um.sender_id <> ? AND um.read_at IS NULL) AS unread
	FROM message_threads t
	JOIN listings l ON l.id = t.listing_id
	JOIN users b ON b.id = t.buyer_id
	JOIN users s ON s.id = t.seller_id
	LEFT JOIN messages lm ON lm.id = (
		SELECT m.id FROM messages m
		WHERE m.thread_id = t.id
		ORDER BY m.created_at DESC
		LIMIT 1
	)
`

func (r *ThreadRepo) Create(ctx context.Context, t *domain.Thread) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_threads (`+threadColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.BuyerID, t.SellerID, t.ListingID, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

func (r *ThreadRepo) GetByID(ctx context.Context, id string) (*domain.Thread, error) {
	return r.scanThread(ctx, `SELECT `+threadColumns+` FROM message_threads WHERE id = ?`, id)
}

func (r *ThreadRepo) GetByParticipants(ctx context.Context, buyerID, sellerID, listingID string) (*domain.Thread, error) {
	return r.scanThread(ctx, `
		SELECT `+threadColumns+` FROM message_threads
		WHERE buyer_id = ? AND seller_id = ? AND listing_id = ?
	`, buyerID, sellerID, listingID)
}

func (r *ThreadRepo) GetOverview(ctx context.Context, id, viewerID string) (*domain.ThreadOverview, error) {
	ov, err := scanOverview(r.db.QueryRowContext(ctx, threadOverviewSelect+` WHERE t.id = ?`, viewerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get thread overview: %w", err)
	}
	return ov, nil
}

func (r *ThreadRepo) ListForUser(ctx context.Context, userID string) ([]*domain.ThreadOverview, error) {
	rows, err := r.db.QueryContext(ctx, threadOverviewSelect+`
		WHERE t.buyer_id = ? OR t.seller_id = ?
		ORDER BY t.updated_at DESC
	`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	res := []*domain.ThreadOverview{}
	for rows.Next() {
		ov, err := scanOverview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		res = append(res, ov)
	}
	return res, rows.Err()
}

func (r *ThreadRepo) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE message_threads SET updated_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *ThreadRepo) scanThread(ctx context.Context, query string, args ...any) (*domain.Thread, error) {
	t := &domain.Thread{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&t.ID, &t.BuyerID, &t.SellerID, &t.ListingID, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan thread: %w", err)
	}
	return t, nil
}

func scanOverview(row scanner) (*domain.ThreadOverview, error) {
	ov := &domain.ThreadOverview{
		Listing: &domain.ListingSummary{},
		Buyer:   &domain.UserSummary{},
		Seller:  &domain.UserSummary{},
	}
	var images string
	var lmID, lmSender, lmText sql.NullString
	var lmCreated, lmRead *time.Time
	if err := row.Scan(
		&ov.ID, &ov.BuyerID, &ov.SellerID, &ov.ListingID, &ov.CreatedAt, &ov.UpdatedAt,
		&ov.Listing.Title, &ov.Listing.Price, &images,
		&ov.Buyer.Name, &ov.Buyer.Image, &ov.Seller.Name, &ov.Seller.Image,
		&lmID, &lmSender, &lmText, &lmCreated, &lmRead,
		&ov.UnreadCount,
	); err != nil {
		return nil, err
	}
	decoded, err := decodeImages(images)
	if err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	ov.Listing.ID = ov.ListingID
	ov.Listing.Images = decoded
	ov.Buyer.ID = ov.BuyerID
	ov.Seller.ID = ov.SellerID
	if lmID.Valid {
		ov.LastMessage = &domain.Message{
			ID:       lmID.String,
			ThreadID: ov.ID,
			SenderID: lmSender.String,
			Text:     lmText.String,
			ReadAt:   lmRead,
		}
		if lmCreated != nil {
			ov.LastMessage.CreatedAt = *lmCreated
		}
	}
	return ov, nil
}
