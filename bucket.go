package websync

import (
	"fmt"
	"net/url"
	"strings"
)

// BucketConfig describes how the bucket is addressed.
type BucketConfig struct {
	// Endpoint is the scheme and host of the S3-compatible service. When empty
	// the AWS regional endpoint for Region is used.
	Endpoint string
	Bucket   string
	Region   string
	// PathStyle addresses the bucket as <endpoint>/<bucket> instead of
	// <bucket>.<endpoint host>.
	PathStyle bool
	// PublicBaseURL fronts the bucket root for browser-visible download links.
	// When empty, download grants target the same host the gateway relays to.
	PublicBaseURL string
}

// Bucket builds object URLs for one bucket. It is immutable after construction.
type Bucket struct {
	name       string
	root       string // object URLs are root + "/" + key
	bucketURL  string
	publicRoot string
}

// NewBucket validates cfg and returns the bucket it describes.
// All failures wrap ErrConfiguration.
func NewBucket(cfg BucketConfig) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("new bucket: bucket name is not set: %w", ErrConfiguration)
	}
	if strings.ContainsAny(cfg.Bucket, "/?#% ") {
		return nil, fmt.Errorf("new bucket: invalid bucket name %q: %w", cfg.Bucket, ErrConfiguration)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, fmt.Errorf("new bucket: neither endpoint nor region is set: %w", ErrConfiguration)
		}
		endpoint = "https://s3." + cfg.Region + ".amazonaws.com"
	}

	ep, err := parseBaseURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("new bucket: endpoint: %w", err)
	}

	b := &Bucket{name: cfg.Bucket}
	if cfg.PathStyle {
		b.root = ep.Scheme + "://" + ep.Host + basePath(ep) + "/" + cfg.Bucket
		b.bucketURL = b.root
	} else {
		b.root = ep.Scheme + "://" + cfg.Bucket + "." + ep.Host + basePath(ep)
		b.bucketURL = b.root + "/"
	}

	b.publicRoot = b.root
	if cfg.PublicBaseURL != "" {
		pub, err := parseBaseURL(cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("new bucket: public base url: %w", err)
		}
		b.publicRoot = pub.Scheme + "://" + pub.Host + basePath(pub)
	}

	return b, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// URL returns the bucket URL itself, used for bucket-level calls.
func (b *Bucket) URL() string {
	return b.bucketURL
}

// ObjectURL returns the URL the gateway uses to reach key.
func (b *Bucket) ObjectURL(key string) string {
	return b.root + "/" + escapeKey(key)
}

// PublicObjectURL returns the browser-visible URL for key.
func (b *Bucket) PublicObjectURL(key string) string {
	return b.publicRoot + "/" + escapeKey(key)
}

// ListURL returns a ListObjectsV2 URL for prefix, continuing from token when set.
func (b *Bucket) ListURL(prefix, token string) string {
	q := url.Values{}
	q.Set("list-type", "2")
	q.Set("prefix", prefix)
	if token != "" {
		q.Set("continuation-token", token)
	}
	return b.bucketURL + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w: %w", raw, ErrConfiguration, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q must be an absolute http(s) URL: %w", raw, ErrConfiguration)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return nil, fmt.Errorf("%q must not carry userinfo, query or fragment: %w", raw, ErrConfiguration)
	}
	return u, nil
}

func basePath(u *url.URL) string {
	return strings.TrimSuffix(u.EscapedPath(), "/")
}
