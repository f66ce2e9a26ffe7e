package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"campusmarket/internal/service"
)

// @Summary      Get current user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorBody
// @Router       /me [get]
func handleMe(svc *service.UserService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Me(r.Context(), CurrentIdentity(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// @Summary      Update profile
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body service.UpdateProfileInput true "Profile fields"
// @Success      200  {object}  domain.User
// @Failure      400  {object}  errorBody
// @Router       /me [patch]
func handleUpdateMe(svc *service.UserService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.UpdateProfileInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		u, err := svc.UpdateProfile(r.Context(), CurrentIdentity(r), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// @Summary      Change user role
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path string               true "User ID"
// @Param        input body service.SetRoleInput true "Role"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorBody
// @Router       /admin/users/{id} [patch]
func handleSetRole(svc *service.UserService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.SetRoleInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		u, err := svc.SetRole(r.Context(), CurrentIdentity(r), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
