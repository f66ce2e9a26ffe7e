package domain

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (Page-1)*Limit well inside int.
	MaxPage = math.MaxInt32
)

// ListingFilter holds the optional predicates of a listing search. Every
// supplied predicate must match (logical AND); Search matches title OR
// description.
type ListingFilter struct {
	Search    string
	Category  string
	Condition Condition
	Location  Location
	MinPrice  *float64
	MaxPrice  *float64
	SellerID  string
	// Statuses defaults to ACTIVE when empty.
	Statuses []ListingStatus

	Page  int
	Limit int
}

// Normalize fills defaults and clamps pagination so that a malformed
// filter never fails the query.
func (f ListingFilter) Normalize() ListingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if len(f.Statuses) == 0 {
		f.Statuses = []ListingStatus{StatusActive}
	}
	return f
}

// Offset is the number of rows skipped before the requested page.
func (f ListingFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ListingPage is one page of a listing search.
type ListingPage struct {
	Listings   []*Listing `json:"listings"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
}

// TotalPages returns ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
