package websync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultMaxListPages bounds how many listing pages one ListFiles call follows.
const DefaultMaxListPages = 10

// GatewayConfig configures a Gateway. Zero values select the defaults.
type GatewayConfig struct {
	NotepadKey      string
	NotepadMaxBytes int64
	MaxListPages    int
	Issuer          IssuerConfig
}

// Gateway is the service behind the HTTP surface. It keeps no state between
// calls; every listing and grant is produced fresh.
type Gateway struct {
	signer   *Signer
	bucket   *Bucket
	notepad  *Notepad
	issuer   *Issuer
	maxPages int
}

// NewGateway wires a Gateway from a signer and a bucket.
func NewGateway(signer *Signer, bucket *Bucket, cfg GatewayConfig) *Gateway {
	maxBytes := cfg.NotepadMaxBytes
	if maxBytes == 0 {
		maxBytes = DefaultNotepadMaxBytes
	}
	maxPages := cfg.MaxListPages
	if maxPages <= 0 {
		maxPages = DefaultMaxListPages
	}

	return &Gateway{
		signer:   signer,
		bucket:   bucket,
		notepad:  NewNotepad(signer, bucket, cfg.NotepadKey, maxBytes),
		issuer:   NewIssuer(signer, bucket, cfg.Issuer),
		maxPages: maxPages,
	}
}

// ReadText returns the shared text buffer.
func (g *Gateway) ReadText(ctx context.Context) (string, error) {
	return g.notepad.Get(ctx)
}

// SaveText overwrites the shared text buffer.
func (g *Gateway) SaveText(ctx context.Context, text string) error {
	return g.notepad.Put(ctx, text)
}

// ListFiles lists the upload namespace newest first, with a download grant
// per entry. Entries that cannot be granted are logged and left out.
func (g *Gateway) ListFiles(ctx context.Context) ([]FileEntry, error) {
	objects, err := g.listObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	SortNewestFirst(objects)

	files := make([]FileEntry, 0, len(objects))
	for _, obj := range objects {
		grant, err := g.issuer.IssueDownload(ctx, obj.Key)
		if errors.Is(err, ErrInvalidInput) {
			slog.Warn("skipped listing entry", "key", obj.Key, "err", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		files = append(files, FileEntry{
			Key:  obj.Key,
			Name: DisplayName(obj.Key, g.issuer.Prefix()),
			Size: obj.Size,
			Date: obj.LastModified,
			URL:  grant.URL,
		})
	}

	return files, nil
}

func (g *Gateway) listObjects(ctx context.Context) ([]StoredObject, error) {
	prefix := g.issuer.Prefix()
	objects := []StoredObject{}
	token := ""

	for pages := 0; pages < g.maxPages; pages++ {
		resp, err := g.signer.Relay(ctx, http.MethodGet, g.bucket.ListURL(prefix, token), nil, nil)
		if err != nil {
			return nil, err
		}
		if !isSuccess(resp.StatusCode) {
			return nil, statusError("LIST "+prefix, resp)
		}

		page := ParseCatalog(resp.Body)
		closeBody(resp)

		if page.Skipped > 0 || page.Incomplete {
			slog.Warn("skipped malformed listing records",
				"prefix", prefix,
				"skipped", page.Skipped,
				"incomplete", page.Incomplete,
			)
		}
		objects = append(objects, page.Objects...)

		if !page.Truncated || page.NextContinuationToken == "" {
			return objects, nil
		}
		token = page.NextContinuationToken
	}

	slog.Warn("listing truncated", "prefix", prefix, "max_pages", g.maxPages, "objects", len(objects))
	return objects, nil
}

// SignUpload issues an upload grant for req.
func (g *Gateway) SignUpload(ctx context.Context, req SignUploadRequest) (UploadGrant, error) {
	grant, err := g.issuer.IssueUpload(ctx, req.Filename, req.ContentType())
	if err != nil {
		return UploadGrant{}, err
	}
	return UploadGrant{URL: grant.URL, Key: grant.Key}, nil
}

// Delete removes an uploaded object. Deleting a key that does not exist
// succeeds. Only object keys inside the upload namespace can be deleted; dot
// segments are refused since intermediaries may resolve them out of it.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	prefix := g.issuer.Prefix()
	if !IsStoredKey(key) || strings.HasSuffix(key, "/") {
		return fmt.Errorf("delete %q: not an object key: %w", key, ErrInvalidInput)
	}
	if !strings.HasPrefix(key, prefix) || hasDotSegment(key) {
		return fmt.Errorf("delete %q: key must lie under %q: %w", key, prefix, ErrInvalidInput)
	}

	resp, err := g.signer.Relay(ctx, http.MethodDelete, g.bucket.ObjectURL(key), nil, nil)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if !isSuccess(resp.StatusCode) && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete %q: %w", key, statusError("DELETE "+key, resp))
	}
	closeBody(resp)

	return nil
}

// Ping checks credentials and that the bucket answers a signed HEAD.
func (g *Gateway) Ping(ctx context.Context) error {
	resp, err := g.signer.Relay(ctx, http.MethodHead, g.bucket.URL(), nil, nil)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("ping: %w", statusError("HEAD "+g.bucket.Name(), resp))
	}
	closeBody(resp)

	return nil
}
