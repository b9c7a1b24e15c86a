package websync

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultUploadExpiry   = 15 * time.Minute
	DefaultDownloadExpiry = time.Hour
)

// IssuerConfig configures an Issuer. Zero values select the defaults.
type IssuerConfig struct {
	UploadPrefix   string
	UploadExpiry   time.Duration
	DownloadExpiry time.Duration
	// Suffix returns the uniqueness suffix of a new upload key.
	Suffix func() string
}

// Issuer hands out presigned grants. Uploads get a fresh key under the
// upload prefix and are bound to their content type; downloads are signed
// against the bucket's public base. Deletion is never granted.
type Issuer struct {
	signer         *Signer
	bucket         *Bucket
	prefix         string
	uploadExpiry   time.Duration
	downloadExpiry time.Duration
	suffix         func() string
}

// NewIssuer creates an Issuer.
func NewIssuer(signer *Signer, bucket *Bucket, cfg IssuerConfig) *Issuer {
	i := &Issuer{
		signer:         signer,
		bucket:         bucket,
		prefix:         cfg.UploadPrefix,
		uploadExpiry:   cfg.UploadExpiry,
		downloadExpiry: cfg.DownloadExpiry,
		suffix:         cfg.Suffix,
	}
	if i.prefix == "" {
		i.prefix = DefaultUploadPrefix
	}
	if i.uploadExpiry == 0 {
		i.uploadExpiry = DefaultUploadExpiry
	}
	if i.downloadExpiry == 0 {
		i.downloadExpiry = DefaultDownloadExpiry
	}
	if i.suffix == nil {
		i.suffix = randomSuffix
	}
	return i
}

// Prefix returns the upload namespace.
func (i *Issuer) Prefix() string {
	return i.prefix
}

// NewUploadKey returns <prefix><unix millis>-<suffix>_<filename>.
func (i *Issuer) NewUploadKey(filename string) string {
	millis := strconv.FormatInt(i.signer.Now().UnixMilli(), 10)
	return i.prefix + millis + "-" + i.suffix() + "_" + filename
}

// IssueUpload creates a key for filename and grants a PUT on it bound to
// contentType. The client transfers the bytes directly to the grant URL.
func (i *Issuer) IssueUpload(ctx context.Context, filename, contentType string) (PresignedGrant, error) {
	if !IsValidFilename(filename) {
		return PresignedGrant{}, fmt.Errorf("issue upload: invalid filename %q: %w", filename, ErrInvalidInput)
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	key := i.NewUploadKey(filename)
	header := http.Header{}
	header.Set("Content-Type", contentType)

	issued := i.signer.Now()
	signedURL, required, err := i.signer.Grant(ctx, http.MethodPut, i.bucket.ObjectURL(key), header, i.uploadExpiry)
	if err != nil {
		return PresignedGrant{}, fmt.Errorf("issue upload: %w", err)
	}

	return PresignedGrant{
		URL:         signedURL,
		Method:      http.MethodPut,
		Key:         key,
		ContentType: contentType,
		Header:      required,
		ExpiresAt:   issued.Add(i.uploadExpiry),
	}, nil
}

// IssueDownload grants a GET on key against the public base URL. key may be
// any stored key, including ones written by other tools.
func (i *Issuer) IssueDownload(ctx context.Context, key string) (PresignedGrant, error) {
	if !IsStoredKey(key) {
		return PresignedGrant{}, fmt.Errorf("issue download: invalid key %q: %w", key, ErrInvalidInput)
	}

	issued := i.signer.Now()
	signedURL, required, err := i.signer.Grant(ctx, http.MethodGet, i.bucket.PublicObjectURL(key), nil, i.downloadExpiry)
	if err != nil {
		return PresignedGrant{}, fmt.Errorf("issue download: %w", err)
	}

	return PresignedGrant{
		URL:       signedURL,
		Method:    http.MethodGet,
		Key:       key,
		Header:    required,
		ExpiresAt: issued.Add(i.downloadExpiry),
	}, nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
