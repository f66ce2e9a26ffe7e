package httpserver

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/moderation"
)

type moderationRequest struct {
	Action      string `json:"action"`
	Text        string `json:"text"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type moderationResponse struct {
	Verdict     *moderation.Verdict `json:"verdict,omitempty"`
	Description string              `json:"description,omitempty"`
}

// @Summary      AI moderation
// @Description  action=moderate checks text; action=enhance rewrites a listing description. Advisory only.
// @Tags         moderation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body moderationRequest true "Request"
// @Success      200  {object}  moderationResponse
// @Failure      400  {object}  errorBody
// @Failure      503  {object}  errorBody
// @Router       /moderation [post]
func handleModeration(mod moderation.Moderator, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mod == nil {
			writeError(w, r, log, domain.Errorf(domain.ErrUnavailable, "moderation is not configured"))
			return
		}
		var req moderationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, log, err)
			return
		}

		switch req.Action {
		case "moderate":
			if strings.TrimSpace(req.Text) == "" {
				writeError(w, r, log, domain.NewValidationError("text", "is required"))
				return
			}
			v, err := mod.Moderate(r.Context(), req.Text)
			if err != nil {
				log.Warn("moderation failed", zap.Error(err))
				writeError(w, r, log, domain.Errorf(domain.ErrUnavailable, "moderation is temporarily unavailable"))
				return
			}
			writeJSON(w, http.StatusOK, moderationResponse{Verdict: &v})
		case "enhance":
			missing := map[string]string{}
			if strings.TrimSpace(req.Title) == "" {
				missing["title"] = "is required"
			}
			if strings.TrimSpace(req.Description) == "" {
				missing["description"] = "is required"
			}
			if len(missing) > 0 {
				writeError(w, r, log, &domain.ValidationError{Fields: missing})
				return
			}
			out, err := mod.Enhance(r.Context(), req.Title, req.Description)
			if err != nil {
				log.Warn("enhance failed", zap.Error(err))
				writeError(w, r, log, domain.Errorf(domain.ErrUnavailable, "moderation is temporarily unavailable"))
				return
			}
			writeJSON(w, http.StatusOK, moderationResponse{Description: out})
		default:
			writeError(w, r, log, domain.NewValidationError("action", "must be one of: moderate enhance"))
		}
	}
}
