package domain

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// User represents a marketplace member.
type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Name            *string    `db:"name" json:"name"`
	Image           *string    `db:"image" json:"image"`
	Major           *string    `db:"major" json:"major"`
	GradYear        *int       `db:"grad_year" json:"gradYear"`
	Role            Role       `db:"role" json:"role"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Identity is the authenticated caller of a request. It is assembled once at
// request entry and passed explicitly to every service call.
type Identity struct {
	ID       string
	Email    string
	Role     Role
	Major    *string
	GradYear *int
}

// IsAdmin reports whether the identity holds admin rights.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IdentityOf builds the request identity for a stored user.
func IdentityOf(u *User) Identity {
	return Identity{
		ID:       u.ID,
		Email:    u.Email,
		Role:     u.Role,
		Major:    u.Major,
		GradYear: u.GradYear,
	}
}

// UserSummary is the public projection of a user embedded in other resources.
type UserSummary struct {
	ID       string  `json:"id"`
	Name     *string `json:"name"`
	Image    *string `json:"image"`
	Email    *string `json:"email,omitempty"`
	Major    *string `json:"major,omitempty"`
	GradYear *int    `json:"gradYear,omitempty"`
}

type Condition string

const (
	ConditionNew       Condition = "NEW"
	ConditionLikeNew   Condition = "LIKE_NEW"
	ConditionExcellent Condition = "EXCELLENT"
	ConditionGood      Condition = "GOOD"
	ConditionFair      Condition = "FAIR"
	ConditionPoor      Condition = "POOR"
)

type Location string

const (
	LocationOnCampus  Location = "ON_CAMPUS"
	LocationOffCampus Location = "OFF_CAMPUS"
)

type ListingStatus string

const (
	StatusActive  ListingStatus = "ACTIVE"
	StatusSold    ListingStatus = "SOLD"
	StatusDeleted ListingStatus = "DELETED"
)

// CanTransitionTo reports whether a listing may move from s to next.
// Allowed: ACTIVE→SOLD, ACTIVE→DELETED, SOLD→DELETED, and any no-op.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusActive:
		return next == StatusSold || next == StatusDeleted
	case StatusSold:
		return next == StatusDeleted
	}
	return false
}

// Listing is an item offered for sale.
type Listing struct {
	ID          string        `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Price       float64       `db:"price" json:"price"`
	Category    string        `db:"category" json:"category"`
	Condition   Condition     `db:"condition" json:"condition"`
	Location    Location      `db:"location" json:"location"`
	Images      []string      `db:"images" json:"images"`
	Status      ListingStatus `db:"status" json:"status"`
	SellerID    string        `db:"seller_id" json:"sellerId"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`

	Seller        *UserSummary `json:"seller,omitempty"`
	FavoriteCount int          `json:"favoriteCount"`
}

// ListingSummary is the compact listing projection shown in message threads.
type ListingSummary struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
}

// Favorite marks a listing as saved by a user.
type Favorite struct {
	UserID    string    `db:"user_id" json:"userId"`
	ListingID string    `db:"listing_id" json:"listingId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Listing *Listing `json:"listing,omitempty"`
}

type ReportTarget string

const (
	TargetListing ReportTarget = "LISTING"
	TargetUser    ReportTarget = "USER"
)

// Report is an abuse report against a listing or a user.
type Report struct {
	ID         string       `db:"id" json:"id"`
	TargetType ReportTarget `db:"target_type" json:"targetType"`
	TargetID   string       `db:"target_id" json:"targetId"`
	Reason     string       `db:"reason" json:"reason"`
	ReporterID string       `db:"reporter_id" json:"reporterId"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
	ResolvedAt *time.Time   `db:"resolved_at" json:"resolvedAt"`
	ResolvedBy *string      `db:"resolved_by" json:"resolvedBy"`

	Reporter *UserSummary `json:"reporter,omitempty"`
}

// Resolved reports whether an admin has closed the report.
func (r *Report) Resolved() bool {
	return r.ResolvedAt != nil
}

// Thread is a conversation scoped to one (buyer, seller, listing) triple.
type Thread struct {
	ID        string    `db:"id" json:"id"`
	BuyerID   string    `db:"buyer_id" json:"buyerId"`
	SellerID  string    `db:"seller_id" json:"sellerId"`
	ListingID string    `db:"listing_id" json:"listingId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether userID is the buyer or the seller.
func (t *Thread) HasParticipant(userID string) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// ThreadOverview is a thread with the summaries needed to render it.
type ThreadOverview struct {
	Thread
	Listing     *ListingSummary `json:"listing"`
	Buyer       *UserSummary    `json:"buyer"`
	Seller      *UserSummary    `json:"seller"`
	LastMessage *Message        `json:"lastMessage"`
	UnreadCount int             `json:"unreadCount"`
}

// Message is a single entry in a thread. Text is encrypted at rest; stores
// return the stored form and the thread service decrypts it.
type Message struct {
	ID        string     `db:"id" json:"id"`
	ThreadID  string     `db:"thread_id" json:"threadId"`
	SenderID  string     `db:"sender_id" json:"senderId"`
	Text      string     `db:"text" json:"text"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	ReadAt    *time.Time `db:"read_at" json:"readAt"`

	Sender *UserSummary `json:"sender,omitempty"`
}
