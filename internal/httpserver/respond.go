package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"campusmarket/internal/domain"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return domain.Errorf(domain.ErrInvalidInput, "invalid JSON body")
	}
	return nil
}

// writeError maps a service error onto its HTTP status and error body.
// Anything unrecognised is logged and reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, info := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: info})
}

func classify(err error) (int, errorInfo) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrSelfMessage):
		return http.StatusBadRequest, errorInfo{Kind: "self_message", Message: message(err)}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorInfo{Kind: "validation", Message: "validation failed", Fields: verr.Fields}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, errorInfo{Kind: "validation", Message: message(err)}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorInfo{Kind: "authentication", Message: message(err)}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorInfo{Kind: "forbidden", Message: message(err)}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorInfo{Kind: "not_found", Message: message(err)}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorInfo{Kind: "conflict", Message: message(err)}
	case errors.Is(err, domain.ErrContentRejected):
		return http.StatusUnprocessableEntity, errorInfo{Kind: "content_rejected", Message: message(err)}
	case errors.Is(err, domain.ErrDelivery):
		return http.StatusBadGateway, errorInfo{Kind: "delivery", Message: message(err)}
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, errorInfo{Kind: "unavailable", Message: message(err)}
	}
	return http.StatusInternalServerError, errorInfo{Kind: "internal", Message: domain.ErrInternal.Error()}
}

// message prefers the caller-facing text of a *domain.Error over the
// wrapped chain.
func message(err error) string {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Message
	}
	for _, kind := range []error{
		domain.ErrNotFound, domain.ErrUnauthorized, domain.ErrForbidden,
		domain.ErrConflict, domain.ErrInvalidInput,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return err.Error()
}
