package httpserver

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/service"
)

// parseListingFilter reads search parameters from the query string.
// Malformed numbers fall back to their defaults instead of failing.
func parseListingFilter(q url.Values) domain.ListingFilter {
	f := domain.ListingFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Category:  strings.TrimSpace(q.Get("category")),
		Condition: domain.Condition(strings.TrimSpace(q.Get("condition"))),
		Location:  domain.Location(strings.TrimSpace(q.Get("location"))),
		MinPrice:  parsePrice(q.Get("minPrice")),
		MaxPrice:  parsePrice(q.Get("maxPrice")),
		SellerID:  strings.TrimSpace(q.Get("sellerId")),
		Page:      parseInt(q.Get("page")),
		Limit:     parseInt(q.Get("limit")),
	}
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, domain.ListingStatus(s))
			}
		}
	}
	return f
}

func parsePrice(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

// @Summary      Search listings
// @Description  Filtered, paginated listing search, newest first
// @Tags         listings
// @Produce      json
// @Param        search    query string false "Substring of title or description"
// @Param        category  query string false "Category"
// @Param        condition query string false "Condition"
// @Param        location  query string false "Location"
// @Param        minPrice  query number false "Inclusive lower price bound"
// @Param        maxPrice  query number false "Inclusive upper price bound"
// @Param        status    query string false "Status (default ACTIVE)"
// @Param        page      query int    false "Page (default 1)"
// @Param        limit     query int    false "Page size (default 20, max 100)"
// @Success      200  {object}  domain.ListingPage
// @Router       /listings [get]
func handleSearchListings(svc *service.ListingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.Search(r.Context(), CurrentIdentity(r), parseListingFilter(r.URL.Query()))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// @Summary      Get listing
// @Tags         listings
// @Produce      json
// @Param        id   path      string  true  "Listing ID"
// @Success      200  {object}  domain.Listing
// @Failure      404  {object}  errorBody
// @Router       /listings/{id} [get]
func handleGetListing(svc *service.ListingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := svc.Get(r.Context(), CurrentIdentity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// @Summary      Create listing
// @Tags         listings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body service.CreateListingInput true "Listing"
// @Success      201  {object}  domain.Listing
// @Failure      400  {object}  errorBody
// @Failure      422  {object}  errorBody
// @Router       /listings [post]
func handleCreateListing(svc *service.ListingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CreateListingInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		l, err := svc.Create(r.Context(), CurrentIdentity(r), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}

// @Summary      Update listing
// @Description  Partial update; only supplied fields change
// @Tags         listings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path string                     true "Listing ID"
// @Param        input body service.UpdateListingInput true "Fields to change"
// @Success      200  {object}  domain.Listing
// @Failure      400  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /listings/{id} [patch]
func handleUpdateListing(svc *service.ListingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.UpdateListingInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		l, err := svc.Update(r.Context(), CurrentIdentity(r), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// @Summary      Delete listing
// @Tags         listings
// @Security     BearerAuth
// @Param        id   path string true "Listing ID"
// @Success      204
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /listings/{id} [delete]
func handleDeleteListing(svc *service.ListingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), CurrentIdentity(r), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      My listings
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page  query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200  {object}  domain.ListingPage
// @Router       /me/listings [get]
func handleMyListings(svc *service.ListingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := svc.ListForSeller(r.Context(), CurrentIdentity(r), parseInt(q.Get("page")), parseInt(q.Get("limit")))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}
