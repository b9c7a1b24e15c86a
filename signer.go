package websync

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

const (
	signingService  = "s3"
	unsignedPayload = "UNSIGNED-PAYLOAD"

	// MaxGrantExpiry is the longest validity SigV4 presigning allows.
	MaxGrantExpiry = 7 * 24 * time.Hour

	// DefaultRelayTimeout bounds a relay when no client is configured.
	DefaultRelayTimeout = 30 * time.Second
)

// HTTPDoer executes relayed requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RelayObserver is notified of every relay. StatusCode is zero when no
// response was received.
type RelayObserver interface {
	ObserveRelay(method string, statusCode int, elapsed time.Duration)
}

// SignerConfig configures a Signer.
type SignerConfig struct {
	Credentials aws.CredentialsProvider
	Region      string
	// Client defaults to an http.Client with DefaultRelayTimeout.
	Client HTTPDoer
	// Now defaults to time.Now.
	Now      func() time.Time
	Observer RelayObserver
}

// Signer holds the storage credentials and signs requests with them.
//
// Relay signs a request and performs it on behalf of the gateway. Grant
// embeds the signature in the URL so that someone else can perform exactly
// that call. Credential problems are reported on use, wrapped in
// ErrConfiguration, so an unconfigured gateway fails loudly instead of
// sending unsigned requests.
type Signer struct {
	provider aws.CredentialsProvider
	region   string
	client   HTTPDoer
	now      func() time.Time
	observer RelayObserver
	v4       *v4.Signer
}

// NewSigner creates a Signer. It never fails; see Signer for when
// configuration errors surface.
func NewSigner(cfg SignerConfig) *Signer {
	s := &Signer{
		provider: cfg.Credentials,
		region:   cfg.Region,
		client:   cfg.Client,
		now:      cfg.Now,
		observer: cfg.Observer,
		v4:       v4.NewSigner(),
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: DefaultRelayTimeout}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Now returns the signer's current time.
func (s *Signer) Now() time.Time {
	return s.now()
}

// Check retrieves the credentials once and reports whether they are usable.
func (s *Signer) Check(ctx context.Context) error {
	_, err := s.retrieve(ctx)
	return err
}

// Relay signs a method call against target and performs it. Headers in
// header are sent and signed. The response is returned whatever its status;
// the caller must close its body.
func (s *Signer) Relay(ctx context.Context, method, target string, body io.Reader, header http.Header) (*http.Response, error) {
	creds, err := s.retrieve(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("relay %s: build request: %w: %w", method, ErrConfiguration, err)
	}
	copyHeader(req.Header, header)
	req.Header.Set("X-Amz-Content-Sha256", unsignedPayload)

	err = s.v4.SignHTTP(ctx, creds, req, unsignedPayload, signingService, s.region, s.now().UTC(), withoutPathEscaping)
	if err != nil {
		return nil, fmt.Errorf("relay %s: sign request: %w: %w", method, ErrConfiguration, err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.observe(method, 0, time.Since(start))
		return nil, &UpstreamError{Op: method + " " + req.URL.Path, Err: err}
	}
	s.observe(method, resp.StatusCode, time.Since(start))

	return resp, nil
}

// Grant presigns a single method call against target, valid for expires.
// Headers in header are bound into the signature; the returned header set
// (Host excluded) must be sent unchanged by whoever performs the call.
func (s *Signer) Grant(ctx context.Context, method, target string, header http.Header, expires time.Duration) (string, http.Header, error) {
	if expires < time.Second || expires > MaxGrantExpiry {
		return "", nil, fmt.Errorf("grant %s: expiry %s outside 1s..%s: %w", method, expires, MaxGrantExpiry, ErrConfiguration)
	}

	creds, err := s.retrieve(ctx)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return "", nil, fmt.Errorf("grant %s: build request: %w: %w", method, ErrConfiguration, err)
	}
	copyHeader(req.Header, header)

	query := req.URL.Query()
	query.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	req.URL.RawQuery = query.Encode()

	signedURL, signed, err := s.v4.PresignHTTP(ctx, creds, req, unsignedPayload, signingService, s.region, s.now().UTC(), withoutPathEscaping)
	if err != nil {
		return "", nil, fmt.Errorf("grant %s: presign: %w: %w", method, ErrConfiguration, err)
	}

	required := make(http.Header, len(signed))
	for name, values := range signed {
		if strings.EqualFold(name, "host") {
			continue
		}
		for _, v := range values {
			required.Add(name, v)
		}
	}

	return signedURL, required, nil
}

func (s *Signer) retrieve(ctx context.Context) (aws.Credentials, error) {
	if s.region == "" {
		return aws.Credentials{}, fmt.Errorf("signer: region is not set: %w", ErrConfiguration)
	}
	if s.provider == nil {
		return aws.Credentials{}, fmt.Errorf("signer: no credentials source: %w", ErrConfiguration)
	}

	creds, err := s.provider.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("signer: retrieve credentials: %w: %w", ErrConfiguration, err)
	}
	if !creds.HasKeys() {
		return aws.Credentials{}, fmt.Errorf("signer: credentials are empty: %w", ErrConfiguration)
	}

	return creds, nil
}

func (s *Signer) observe(method string, code int, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveRelay(method, code, elapsed)
	}
}

// Keys are escaped once when URLs are built; the signer must not escape again.
func withoutPathEscaping(o *v4.SignerOptions) {
	o.DisableURIPathEscaping = true
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

// errorDocument is the body S3 sends with non-success statuses.
type errorDocument struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// statusError converts a non-success relay response into an UpstreamError.
// It consumes and closes the body.
func statusError(op string, resp *http.Response) error {
	defer closeBody(resp)

	ue := &UpstreamError{Op: op, StatusCode: resp.StatusCode}
	var doc errorDocument
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&doc); err == nil {
		ue.Code = doc.Code
	}
	return ue
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
