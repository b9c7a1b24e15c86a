package http

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Content-Type"}
)

// CORSConfig controls which origins may call the gateway from a browser.
type CORSConfig struct {
	// AllowedOrigins defaults to "*". With "*" the permissive header set is
	// written on every response whether or not the request names an origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

func (c CORSConfig) wildcard() bool {
	return len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*")
}

// CORSMiddleware returns the CORS layer for cfg. Explicit origin lists are
// handled by go-chi/cors, which only answers origins it allows.
func CORSMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	if !cfg.wildcard() {
		return cors.Handler(cors.Options{
			AllowedOrigins:     cfg.AllowedOrigins,
			AllowedMethods:     corsMethods,
			AllowedHeaders:     corsHeaders,
			MaxAge:             cfg.MaxAge,
			OptionsPassthrough: true,
		})
	}

	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PreflightMiddleware answers every OPTIONS request with an empty 204.
func PreflightMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request once the response is written.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.LogAttrs(r.Context(), slog.LevelInfo, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
