package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trendteller/internal/domain"
)

// badRequestError marks malformed request input that never reached a service.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// httpStatusFromError maps domain and request errors to HTTP status codes.
func httpStatusFromError(err error) int {
	var notFound *domain.NotFoundError
	var ingestion *domain.IngestionError
	var bad *badRequestError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &ingestion), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		detail = "internal server error"
	}
	if status == http.StatusRequestEntityTooLarge {
		detail = "upload exceeds size limit"
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
