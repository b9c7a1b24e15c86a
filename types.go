package websync

import (
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultNotepadKey is the object holding the shared text buffer.
	DefaultNotepadKey = "sync_data/notepad.txt"
	// DefaultUploadPrefix is the namespace every uploaded object lives under.
	DefaultUploadPrefix = "uploads/"
	// DefaultContentType is bound to upload grants when the client sends none.
	DefaultContentType = "application/octet-stream"
)

// StoredObject is one object reported by a bucket listing.
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// DisplayName returns the original filename encoded in an upload key.
// Keys without the timestamp separator are returned with the prefix removed.
func DisplayName(key, prefix string) string {
	name := strings.TrimPrefix(key, prefix)
	if _, rest, ok := strings.Cut(name, "_"); ok && rest != "" {
		return rest
	}
	return name
}

// PresignedGrant authorizes a single HTTP call against the bucket without
// the caller holding the secret key. Header lists the signed headers the
// caller must send unchanged.
type PresignedGrant struct {
	URL         string
	Method      string
	Key         string
	ContentType string
	Header      http.Header
	ExpiresAt   time.Time
}

// FileEntry is one row of the file inbox as served to clients.
type FileEntry struct {
	Key  string    `json:"key"`
	Name string    `json:"name"`
	Size int64     `json:"size"`
	Date time.Time `json:"date"`
	URL  string    `json:"url"`
}

// UploadGrant is the response to an upload signing request.
type UploadGrant struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// SignUploadRequest asks for an upload grant. Type must be present but may be
// empty, in which case DefaultContentType is bound.
type SignUploadRequest struct {
	Filename string  `json:"filename" validate:"required,max=255"`
	Type     *string `json:"type" validate:"required"`
}

// ContentType returns the content type to bind to the grant.
func (r SignUploadRequest) ContentType() string {
	if r.Type == nil || strings.TrimSpace(*r.Type) == "" {
		return DefaultContentType
	}
	return strings.TrimSpace(*r.Type)
}

// DeleteRequest asks for an uploaded object to be removed.
type DeleteRequest struct {
	Key string `json:"key" validate:"required"`
}
