package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	websync "github.com/1120026847/web-sync"
	"github.com/1120026847/web-sync/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// DefaultMaxJSONBytes caps request bodies of the JSON endpoints.
const DefaultMaxJSONBytes = 64 << 10

type Service interface {
	ReadText(ctx context.Context) (string, error)
	SaveText(ctx context.Context, text string) error
	ListFiles(ctx context.Context) ([]websync.FileEntry, error)
	SignUpload(ctx context.Context, req websync.SignUploadRequest) (websync.UploadGrant, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type HandlerConfig struct {
	// MaxTextBytes caps POST /api/text bodies. Zero selects
	// websync.DefaultNotepadMaxBytes; negative disables the cap.
	MaxTextBytes int64
	MaxJSONBytes int64
	CORS         CORSConfig
	// Metrics enables request instrumentation and GET /metrics when set.
	Metrics *metrics.Metrics
}

// Handler serves the gateway's HTTP surface.
type Handler struct {
	config   HandlerConfig
	service  Service
	validate *validator.Validate
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	cfg := *config
	if cfg.MaxTextBytes == 0 {
		cfg.MaxTextBytes = websync.DefaultNotepadMaxBytes
	}
	if cfg.MaxJSONBytes <= 0 {
		cfg.MaxJSONBytes = DefaultMaxJSONBytes
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	return &Handler{
		config:   cfg,
		service:  service,
		validate: validate,
	}
}

// Router returns the routed handler. CORS headers are set before anything
// else runs and OPTIONS is answered before routing, so both apply to every
// path including unmatched ones.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(CORSMiddleware(h.config.CORS))
	r.Use(PreflightMiddleware)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.NotFound(writeNotFound)
	r.MethodNotAllowed(writeNotFound)

	r.Get("/", h.handleIndex)
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyz)
	if h.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.config.Metrics.Handler())
	}

	r.Get("/api/text", h.handleGetText)
	r.Post("/api/text", h.handleSaveText)
	r.Get("/api/files", h.handleListFiles)
	r.Post("/api/sign-upload", h.handleSignUpload)
	r.Post("/api/delete", h.handleDelete)

	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		_, code, _ := classify(err)
		logError(r, http.StatusServiceUnavailable, err)
		_ = WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": code})
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleGetText(w http.ResponseWriter, r *http.Request) {
	text, err := h.service.ReadText(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeText(w, http.StatusOK, text)
}

func (h *Handler) handleSaveText(w http.ResponseWriter, r *http.Request) {
	body := io.Reader(r.Body)
	if h.config.MaxTextBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.config.MaxTextBytes)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		HandleError(w, r, bodyError(err))
		return
	}

	if err := h.service.SaveText(r.Context(), string(data)); err != nil {
		HandleError(w, r, err)
		return
	}

	writeText(w, http.StatusOK, "Saved")
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListFiles(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if files == nil {
		files = []websync.FileEntry{}
	}

	w.Header().Set("Cache-Control", "no-store")
	_ = WriteJSON(w, http.StatusOK, files)
}

func (h *Handler) handleSignUpload(w http.ResponseWriter, r *http.Request) {
	var req websync.SignUploadRequest
	if err := h.decode(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	grant, err := h.service.SignUpload(r.Context(), req)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, grant)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req websync.DeleteRequest
	if err := h.decode(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), req.Key); err != nil {
		HandleError(w, r, err)
		return
	}

	writeText(w, http.StatusOK, "Deleted")
}

// decode reads a JSON body into dst and validates it. The Content-Type
// header is not checked; browsers posting with fetch often send text/plain.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.config.MaxJSONBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty: %w", websync.ErrInvalidInput)
		}
		return bodyError(err)
	}
	if dec.More() {
		return fmt.Errorf("request body holds more than one JSON value: %w", websync.ErrInvalidInput)
	}

	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%s: %w", validationMessage(err), websync.ErrInvalidInput)
	}
	return nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("request body exceeds %d bytes: %w", maxErr.Limit, websync.ErrTooLarge)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at offset %d: %w", syntaxErr.Offset, websync.ErrInvalidInput)
	case errors.As(err, &typeErr):
		return fmt.Errorf("field %s must be a %s: %w", typeErr.Field, typeErr.Type, websync.ErrInvalidInput)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("truncated request body: %w", websync.ErrInvalidInput)
	default:
		return fmt.Errorf("read request body: %w", err)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fe.Field()+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
