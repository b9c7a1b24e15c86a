package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	websync "github.com/1120026847/web-sync"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError logs err and writes the matching error response.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	logError(r, status, err)
	WriteError(w, status, code, message)
}

// classify maps an error to its status, error code and client-facing message.
// Client errors echo the error text; server-side failures stay generic apart
// from the storage status.
func classify(err error) (int, string, string) {
	var ue *websync.UpstreamError

	switch {
	case errors.Is(err, websync.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, websync.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large", err.Error()
	case errors.Is(err, websync.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error", "Storage access is not configured"
	case errors.As(err, &ue) && ue.Timeout():
		return http.StatusGatewayTimeout, "upstream_timeout", "Storage did not respond in time"
	case errors.As(err, &ue) && ue.StatusCode != 0:
		return http.StatusBadGateway, "upstream_error", fmt.Sprintf("Storage returned status %d", ue.StatusCode)
	case errors.Is(err, websync.ErrUpstream):
		return http.StatusBadGateway, "upstream_error", "Storage is unreachable"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

func logError(r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, code int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, text)
}
