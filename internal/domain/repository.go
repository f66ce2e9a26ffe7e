package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}

// ListingRepository defines persistence operations for listings. Search and
// Count must apply the identical predicate for the same filter.
type ListingRepository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id string) (*Listing, error)
	Update(ctx context.Context, l *Listing) error
	Search(ctx context.Context, f ListingFilter) ([]*Listing, error)
	Count(ctx context.Context, f ListingFilter) (int, error)
}

// FavoriteRepository defines persistence operations for favorites.
type FavoriteRepository interface {
	// Create returns ErrConflict when the pair already exists.
	Create(ctx context.Context, f *Favorite) error
	// Delete returns ErrNotFound when the pair does not exist.
	Delete(ctx context.Context, userID, listingID string) error
	ListForUser(ctx context.Context, userID string) ([]*Favorite, error)
}

// ReportRepository defines persistence operations for reports.
type ReportRepository interface {
	// Create returns ErrConflict when the reporter already has an unresolved
	// report against the same target.
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
	ListUnresolved(ctx context.Context) ([]*Report, error)
	// Resolve returns ErrConflict when the report is already resolved.
	Resolve(ctx context.Context, id, adminID string, at time.Time) error
}

// ThreadRepository defines persistence operations for message threads.
type ThreadRepository interface {
	// Create returns ErrConflict when a thread for the same triple exists.
	Create(ctx context.Context, t *Thread) error
	GetByID(ctx context.Context, id string) (*Thread, error)
	GetByParticipants(ctx context.Context, buyerID, sellerID, listingID string) (*Thread, error)
	GetOverview(ctx context.Context, id, viewerID string) (*ThreadOverview, error)
	ListForUser(ctx context.Context, userID string) ([]*ThreadOverview, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// ListForThread returns messages oldest first with sender summaries.
	ListForThread(ctx context.Context, threadID string) ([]*Message, error)
	// MarkRead sets read_at on unread messages of the thread not sent by
	// readerID and returns how many changed.
	MarkRead(ctx context.Context, threadID, readerID string, at time.Time) (int64, error)
}
