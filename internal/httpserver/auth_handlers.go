package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/service"
)

type messageResponse struct {
	Message string `json:"message"`
}

// @Summary      Request sign-in link
// @Description  Emails a one-click sign-in link to the address
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body service.SignInRequest true "Email"
// @Success      202  {object}  messageResponse
// @Failure      400  {object}  errorBody
// @Failure      502  {object}  errorBody
// @Router       /auth/email [post]
func handleRequestSignIn(authSvc *service.AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.SignInRequest
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		if err := authSvc.RequestSignInLink(r.Context(), in); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusAccepted, messageResponse{Message: "sign-in link sent"})
	}
}

// @Summary      Complete sign-in
// @Description  Exchanges a sign-in link token for an access token
// @Tags         auth
// @Produce      json
// @Param        token query string true "Token from the sign-in link"
// @Success      200  {object}  service.TokenResponse
// @Failure      401  {object}  errorBody
// @Router       /auth/callback [get]
func handleSignInCallback(authSvc *service.AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, r, log, domain.Errorf(domain.ErrUnauthorized, "missing sign-in token"))
			return
		}
		resp, err := authSvc.CompleteSignIn(r.Context(), token)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
