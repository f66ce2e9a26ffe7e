package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"campusmarket/internal/service"
)

// @Summary      List favorites
// @Tags         favorites
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  domain.Favorite
// @Router       /favorites [get]
func handleListFavorites(svc *service.FavoriteService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		favs, err := svc.List(r.Context(), CurrentIdentity(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, favs)
	}
}

// @Summary      Favorite a listing
// @Tags         favorites
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body service.FavoriteInput true "Listing"
// @Success      201  {object}  domain.Favorite
// @Failure      404  {object}  errorBody
// @Failure      409  {object}  errorBody
// @Router       /favorites [post]
func handleAddFavorite(svc *service.FavoriteService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.FavoriteInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		f, err := svc.Add(r.Context(), CurrentIdentity(r), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	}
}

// @Summary      Unfavorite a listing
// @Tags         favorites
// @Security     BearerAuth
// @Param        listingID path string true "Listing ID"
// @Success      204
// @Failure      404  {object}  errorBody
// @Router       /favorites/{listingID} [delete]
func handleRemoveFavorite(svc *service.FavoriteService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Remove(r.Context(), CurrentIdentity(r), chi.URLParam(r, "listingID")); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
