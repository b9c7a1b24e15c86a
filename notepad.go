package websync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultNotepadMaxBytes caps a single notepad save.
const DefaultNotepadMaxBytes = 1 << 20

// Notepad reads and writes the shared text object. Saves overwrite
// unconditionally; when writers race, the save that reaches storage last wins.
type Notepad struct {
	signer   *Signer
	bucket   *Bucket
	key      string
	maxBytes int64
}

// NewNotepad creates a Notepad stored at key. maxBytes <= 0 disables the limit.
func NewNotepad(signer *Signer, bucket *Bucket, key string, maxBytes int64) *Notepad {
	if key == "" {
		key = DefaultNotepadKey
	}
	return &Notepad{signer: signer, bucket: bucket, key: key, maxBytes: maxBytes}
}

// Key returns the notepad object key.
func (n *Notepad) Key() string {
	return n.key
}

// Get returns the notepad content. A notepad that was never saved reads as
// empty.
func (n *Notepad) Get(ctx context.Context) (string, error) {
	resp, err := n.signer.Relay(ctx, http.MethodGet, n.bucket.ObjectURL(n.key), nil, nil)
	if err != nil {
		return "", fmt.Errorf("get notepad: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		closeBody(resp)
		return "", nil
	}
	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("get notepad: %w", statusError("GET "+n.key, resp))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("get notepad: %w", &UpstreamError{Op: "GET " + n.key, Err: err})
	}

	return string(data), nil
}

// Put replaces the notepad content with text.
func (n *Notepad) Put(ctx context.Context, text string) error {
	if n.maxBytes > 0 && int64(len(text)) > n.maxBytes {
		return fmt.Errorf("put notepad: %d bytes exceeds %d: %w", len(text), n.maxBytes, ErrTooLarge)
	}

	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := n.signer.Relay(ctx, http.MethodPut, n.bucket.ObjectURL(n.key), strings.NewReader(text), header)
	if err != nil {
		return fmt.Errorf("put notepad: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("put notepad: %w", statusError("PUT "+n.key, resp))
	}
	closeBody(resp)

	return nil
}
