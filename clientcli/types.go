package clientcli

import websync "github.com/1120026847/web-sync"

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	Name        string // optional, defaults to the local base name
	ContentType string // optional, auto-detect if empty
	Recursive   bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string `json:"local_path"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
	Size        int64  `json:"size_bytes"`
	Err         error  `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	File      string // object key or display name
	LocalPath string // empty = display name, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	Key         string `json:"key"`
	LocalPath   string `json:"local_path"`
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Files []string // object keys or display names
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	File    string `json:"file"`
	Key     string `json:"key,omitempty"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListResult holds the inbox listing, newest first.
type ListResult struct {
	Files []websync.FileEntry `json:"files"`
}

// TotalSize calculates the total size of all files in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}
