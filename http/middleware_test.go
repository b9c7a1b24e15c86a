package http_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	websynchttp "github.com/1120026847/web-sync/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCORSMiddleware_WildcardWithoutOrigin(t *testing.T) {
	handler := websynchttp.CORSMiddleware(websynchttp.CORSConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assertCORS(t, rec)
	assert.Empty(t, rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSMiddleware_MaxAge(t *testing.T) {
	handler := websynchttp.CORSMiddleware(websynchttp.CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 600})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestHandler_RestrictedOrigins(t *testing.T) {
	service := new(MockService)
	service.On("ReadText", mock.Anything).Return("hi", nil)
	router := websynchttp.NewHandler(&websynchttp.HandlerConfig{
		CORS: websynchttp.CORSConfig{AllowedOrigins: []string{"https://notes.example.com"}},
	}, service).Router()

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/text", nil)
		req.Header.Set("Origin", "https://notes.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://notes.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/text", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/sign-upload", nil)
		req.Header.Set("Origin", "https://notes.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://notes.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.MethodPost, rec.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("bare options", func(t *testing.T) {
		rec := serve(router, http.MethodOptions, "/whatever", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestPreflightMiddleware(t *testing.T) {
	called := false
	handler := websynchttp.PreflightMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, called)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	handler := websynchttp.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("12345"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/text", nil))

	out := buf.String()
	assert.Contains(t, out, `"msg":"http request"`)
	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, `"path":"/api/text"`)
	assert.Contains(t, out, `"status":201`)
	assert.Contains(t, out, `"bytes":5`)
}
