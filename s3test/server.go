package s3test

import (
	"crypto/md5" //nolint:gosec // ETag compatibility, not security
	"encoding/hex"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config configures a Server. Zero values select the defaults.
type Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PageSize is the ListObjectsV2 page size, 1000 by default.
	PageSize int
	// Now stamps stored objects and checks grant expiry, time.Now by default.
	Now func() time.Time
}

// Request records one request the server received.
type Request struct {
	Method    string
	Path      string
	Query     string
	Presigned bool
	Verified  bool
}

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Server is an in-memory bucket behind an httptest.Server. It is safe for
// concurrent use.
type Server struct {
	cfg Config
	srv *httptest.Server

	mu       sync.Mutex
	objects  map[string]object
	listing  []byte
	failure  int
	hook     func(r *http.Request)
	requests []Request
}

// New starts a Server.
func New(cfg Config) *Server {
	if cfg.Bucket == "" {
		cfg.Bucket = "test-bucket"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}

	s := &Server{
		cfg:     cfg,
		objects: make(map[string]object),
	}
	s.srv = httptest.NewServer(s)
	return s
}

// URL returns the endpoint URL, without the bucket.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Put stores an object directly, bypassing signature checks.
func (s *Server) Put(key string, data []byte, contentType string, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: slices.Clone(data), contentType: contentType, modified: modified}
}

// Object returns a stored object's content and content type.
func (s *Server) Object(key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return slices.Clone(obj.data), obj.contentType, true
}

// Keys returns all stored keys in lexical order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetListing makes every ListObjectsV2 call return doc verbatim. Pass nil to
// go back to listing stored objects.
func (s *Server) SetListing(doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing = doc
}

// FailWith makes every verified request fail with status. Zero clears it.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = status
}

// SetHook installs fn to run after verification and before the request is
// served. It may block to reorder concurrent requests.
func (s *Server) SetHook(fn func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) now() time.Time {
	if s.cfg.Now != nil {
		return s.cfg.Now()
	}
	return time.Now()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	verifyErr := s.verify(r)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Presigned: r.URL.Query().Get("X-Amz-Algorithm") != "",
		Verified:  verifyErr == nil,
	})
	failure, hook := s.failure, s.hook
	s.mu.Unlock()

	if verifyErr != nil {
		writeError(w, http.StatusForbidden, "SignatureDoesNotMatch", verifyErr.Error())
		return
	}
	if hook != nil {
		hook(r)
	}
	if failure != 0 {
		writeError(w, failure, "InternalError", "injected failure")
		return
	}

	bucketPath := "/" + s.cfg.Bucket
	switch {
	case r.URL.Path == bucketPath || r.URL.Path == bucketPath+"/":
		s.serveBucket(w, r)
	case strings.HasPrefix(r.URL.Path, bucketPath+"/"):
		s.serveObject(w, r, strings.TrimPrefix(r.URL.Path, bucketPath+"/"))
	default:
		writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
	}
}

func (s *Server) serveBucket(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if r.URL.Query().Get("list-type") != "2" {
			writeError(w, http.StatusBadRequest, "InvalidArgument", "only ListObjectsV2 is supported")
			return
		}
		s.serveList(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed on bucket")
	}
}

type listBucketResult struct {
	XMLName               xml.Name             `xml:"ListBucketResult"`
	XMLNS                 string               `xml:"xmlns,attr"`
	Name                  string               `xml:"Name"`
	Prefix                string               `xml:"Prefix"`
	ContinuationToken     string               `xml:"ContinuationToken,omitempty"`
	KeyCount              int                  `xml:"KeyCount"`
	MaxKeys               int                  `xml:"MaxKeys"`
	IsTruncated           bool                 `xml:"IsTruncated"`
	NextContinuationToken string               `xml:"NextContinuationToken,omitempty"`
	Contents              []listObjectContents `xml:"Contents"`
}

type listObjectContents struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

func (s *Server) serveList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	prefix := query.Get("prefix")
	token := query.Get("continuation-token")

	s.mu.Lock()
	raw := s.listing
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	objects := make(map[string]object, len(keys))
	for _, k := range keys {
		objects[k] = s.objects[k]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/xml")
	if raw != nil {
		_, _ = w.Write(raw)
		return
	}

	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > len(keys) {
			writeError(w, http.StatusBadRequest, "InvalidArgument", "invalid continuation token")
			return
		}
		start = n
	}
	end := min(start+s.cfg.PageSize, len(keys))

	result := listBucketResult{
		XMLNS:             "http://s3.amazonaws.com/doc/2006-03-01/",
		Name:              s.cfg.Bucket,
		Prefix:            prefix,
		ContinuationToken: token,
		KeyCount:          end - start,
		MaxKeys:           s.cfg.PageSize,
		IsTruncated:       end < len(keys),
	}
	if result.IsTruncated {
		result.NextContinuationToken = strconv.Itoa(end)
	}
	for _, k := range keys[start:end] {
		obj := objects[k]
		result.Contents = append(result.Contents, listObjectContents{
			Key:          k,
			LastModified: obj.modified.UTC().Format("2006-01-02T15:04:05.000Z"),
			ETag:         etag(obj.data),
			Size:         int64(len(obj.data)),
			StorageClass: "STANDARD",
		})
	}

	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(result)
}

func (s *Server) serveObject(w http.ResponseWriter, r *http.Request, key string) {
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
			return
		}
		s.Put(key, data, r.Header.Get("Content-Type"), s.now())
		w.Header().Set("ETag", etag(data))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		s.mu.Lock()
		obj, ok := s.objects[key]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.Header().Set("Last-Modified", obj.modified.UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", etag(obj.data))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.data)
		}
	case http.MethodDelete:
		s.mu.Lock()
		delete(s.objects, key)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed on object")
	}
}

type errorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}

func etag(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // ETag compatibility, not security
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
