package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	websync "github.com/1120026847/web-sync"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client talks to a web-sync gateway. Notepad, listing, signing and delete
// calls go to the gateway; file bytes travel directly between the client and
// storage through the presigned URLs the gateway hands out.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config:     &Config{Endpoint: strings.TrimSuffix(cfg.Endpoint, "/")},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Endpoint returns the gateway base URL the client talks to.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// GetText returns the current notepad content.
func (c *Client) GetText(ctx context.Context) (string, error) {
	body, err := c.call(ctx, http.MethodGet, "/api/text", "", nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// SetText replaces the notepad content.
func (c *Client) SetText(ctx context.Context, text string) error {
	_, err := c.call(ctx, http.MethodPost, "/api/text", "text/plain; charset=utf-8", strings.NewReader(text))
	return err
}

// ListFiles returns the inbox listing, newest first.
func (c *Client) ListFiles(ctx context.Context) (*ListResult, error) {
	body, err := c.call(ctx, http.MethodGet, "/api/files", "", nil)
	if err != nil {
		return nil, err
	}

	var files []websync.FileEntry
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if files == nil {
		files = []websync.FileEntry{}
	}

	return &ListResult{Files: files}, nil
}

// Upload uploads file(s) to the inbox.
// For recursive uploads every regular file under the directory is uploaded
// under its base name; the inbox is flat.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if opts.Recursive {
		return c.uploadRecursive(ctx, opts)
	}
	result, err := c.uploadSingle(ctx, opts.LocalPath, opts.Name, opts.ContentType)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

// uploadRecursive walks a directory and uploads all files.
func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		result, uploadErr := c.uploadSingle(ctx, opts.LocalPath, opts.Name, opts.ContentType)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult

	walkErr := filepath.WalkDir(opts.LocalPath, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		result, uploadErr := c.uploadSingle(ctx, path, "", "")
		if uploadErr != nil {
			result = UploadResult{
				LocalPath: path,
				Name:      filepath.Base(path),
				Err:       uploadErr,
			}
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle asks the gateway for an upload grant and streams the file to it.
func (c *Client) uploadSingle(ctx context.Context, localPath, name, contentType string) (UploadResult, error) {
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}

	if name == "" {
		name = filepath.Base(localPath)
	}
	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	grant, err := c.SignUpload(ctx, name, contentType)
	if err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, grant.URL, file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	// The grant is bound to this exact content type.
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = info.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return UploadResult{}, parseServerError(resp.StatusCode, body)
	}

	return UploadResult{
		LocalPath:   localPath,
		Key:         grant.Key,
		Name:        name,
		ContentType: contentType,
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		Size:        info.Size(),
	}, nil
}

// SignUpload requests an upload grant for name bound to contentType.
func (c *Client) SignUpload(ctx context.Context, name, contentType string) (*websync.UploadGrant, error) {
	payload, err := json.Marshal(websync.SignUploadRequest{Filename: name, Type: &contentType})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	body, err := c.call(ctx, http.MethodPost, "/api/sign-upload", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var grant websync.UploadGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if grant.URL == "" {
		return nil, errors.New("parse response: grant has no url")
	}

	return &grant, nil
}

// Download fetches a file through the download URL the listing carries.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.File == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyPath)
	}

	listing, err := c.ListFiles(ctx)
	if err != nil {
		return nil, nil, err
	}
	entry, err := resolve(listing.Files, opts.File)
	if err != nil {
		return nil, nil, fmt.Errorf("download %s: %w", opts.File, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		Key:         entry.Key,
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = filepath.Base(entry.Name)
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Delete removes one or more files from the inbox.
// Continues on error, collecting results for all files.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Files) == 0 {
		return nil, ErrNoPaths
	}

	listing, err := c.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]DeleteResult, 0, len(opts.Files))

	for _, file := range opts.Files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		// Unknown arguments are passed through as keys so that deleting an
		// already removed file still succeeds.
		key := file
		if entry, resolveErr := resolve(listing.Files, file); resolveErr == nil {
			key = entry.Key
		} else if errors.Is(resolveErr, ErrAmbiguousName) {
			results = append(results, DeleteResult{File: file, Err: resolveErr})
			continue
		}

		results = append(results, c.deleteSingle(ctx, file, key))
	}

	return results, nil
}

// deleteSingle asks the gateway to remove a single key.
func (c *Client) deleteSingle(ctx context.Context, file, key string) DeleteResult {
	payload, err := json.Marshal(websync.DeleteRequest{Key: key})
	if err != nil {
		return DeleteResult{File: file, Key: key, Err: fmt.Errorf("encode request: %w", err)}
	}

	if _, err := c.call(ctx, http.MethodPost, "/api/delete", "application/json", bytes.NewReader(payload)); err != nil {
		return DeleteResult{File: file, Key: key, Err: err}
	}

	return DeleteResult{File: file, Key: key, Deleted: true}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// call sends a request to the gateway and returns the body of a 200 response.
func (c *Client) call(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, data)
	}

	return data, nil
}

// resolve finds the listing entry for a key or a display name.
func resolve(files []websync.FileEntry, file string) (websync.FileEntry, error) {
	var (
		match websync.FileEntry
		count int
	)

	for _, f := range files {
		if f.Key == file {
			return f, nil
		}
		if f.Name == file {
			match = f
			count++
		}
	}

	switch count {
	case 0:
		return websync.FileEntry{}, ErrFileNotFound
	case 1:
		return match, nil
	default:
		return websync.FileEntry{}, fmt.Errorf("%w: %s (%d files)", ErrAmbiguousName, file, count)
	}
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return websync.DefaultContentType
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return websync.DefaultContentType
	}

	return mimeType
}

// parseServerError builds an APIError, decoding the gateway's JSON error
// body when there is one.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       strings.TrimSpace(string(body)),
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	}

	return apiErr
}

// APIError represents an error response from the gateway or from storage.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + " - " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested resource does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrBadRequest is returned when the gateway rejects the input (400).
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}

	// ErrForbidden is returned when storage rejects a presigned URL (403).
	// This typically means the grant expired or the content type differs
	// from the one it was signed for.
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrTooLarge is returned when the notepad text exceeds the gateway limit (413).
	ErrTooLarge = &APIError{StatusCode: http.StatusRequestEntityTooLarge}

	// ErrBadGateway is returned when the gateway could not reach storage (502).
	ErrBadGateway = &APIError{StatusCode: http.StatusBadGateway}
)
