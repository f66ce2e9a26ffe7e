package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"campusmarket/internal/service"
)

// @Summary      List threads
// @Description  Caller's threads, most recently active first, with last message and unread count
// @Tags         threads
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  domain.ThreadOverview
// @Router       /threads [get]
func handleListThreads(svc *service.ThreadService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threads, err := svc.List(r.Context(), CurrentIdentity(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, threads)
	}
}

// @Summary      Open thread
// @Description  Returns the caller's thread with the seller about a listing, creating it on first contact
// @Tags         threads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body service.OpenThreadInput true "Listing and seller"
// @Success      200  {object}  domain.Thread
// @Failure      400  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /threads [post]
func handleOpenThread(svc *service.ThreadService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.OpenThreadInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		t, err := svc.Open(r.Context(), CurrentIdentity(r), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// @Summary      Thread detail
// @Description  Thread with messages oldest first; marks the other participant's messages read
// @Tags         threads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "Thread ID"
// @Success      200  {object}  service.ThreadDetail
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /threads/{id}/messages [get]
func handleThreadDetail(svc *service.ThreadService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Detail(r.Context(), CurrentIdentity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// @Summary      Send message
// @Tags         threads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path string                   true "Thread ID"
// @Param        input body service.SendMessageInput true "Message"
// @Success      201  {object}  domain.Message
// @Failure      400  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Router       /threads/{id}/messages [post]
func handleSendMessage(svc *service.ThreadService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.SendMessageInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		m, err := svc.Send(r.Context(), CurrentIdentity(r), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}
