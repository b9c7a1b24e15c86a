package s3test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	signatureAlgorithm = "AWS4-HMAC-SHA256"
	maxExpiresSeconds  = 604800
	dateTimeFormat     = "20060102T150405Z"
	dateFormat         = "20060102"
)

var errSignature = errors.New("signature verification failed")

type signatureParams struct {
	accessKey     string
	dateStamp     string
	region        string
	service       string
	requestTime   time.Time
	expires       int
	signedHeaders string
	signature     string
	payloadHash   string
	presigned     bool
}

// verify checks the SigV4 signature of r, in header or presigned form.
func (s *Server) verify(r *http.Request) error {
	var (
		params *signatureParams
		err    error
	)
	if r.URL.Query().Get("X-Amz-Algorithm") != "" {
		params, err = presignedParams(r.URL.Query())
	} else {
		params, err = headerParams(r)
	}
	if err != nil {
		return err
	}

	if params.accessKey != s.cfg.AccessKey {
		return fmt.Errorf("unknown access key %q: %w", params.accessKey, errSignature)
	}
	if params.region != s.cfg.Region || params.service != "s3" {
		return fmt.Errorf("scope %s/%s does not match: %w", params.region, params.service, errSignature)
	}
	if params.dateStamp != params.requestTime.Format(dateFormat) {
		return fmt.Errorf("credential date mismatch: %w", errSignature)
	}
	if params.presigned && s.now().After(params.requestTime.Add(time.Duration(params.expires)*time.Second)) {
		return fmt.Errorf("presigned url expired: %w", errSignature)
	}

	canonicalRequest := strings.Join([]string{
		r.Method,
		canonicalURI(r),
		canonicalQuery(r.URL.Query()),
		canonicalHeaders(r, params.signedHeaders),
		params.signedHeaders,
		params.payloadHash,
	}, "\n")

	scope := fmt.Sprintf("%s/%s/%s/aws4_request", params.dateStamp, params.region, params.service)
	stringToSign := strings.Join([]string{
		signatureAlgorithm,
		params.requestTime.Format(dateTimeFormat),
		scope,
		sha256Hex(canonicalRequest),
	}, "\n")

	key := deriveSigningKey(s.cfg.SecretKey, params.dateStamp, params.region, params.service)
	expected := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	if !hmac.Equal([]byte(expected), []byte(params.signature)) {
		return fmt.Errorf("signature mismatch: %w", errSignature)
	}
	return nil
}

func presignedParams(query url.Values) (*signatureParams, error) {
	algorithm := query.Get("X-Amz-Algorithm")
	credential := query.Get("X-Amz-Credential")
	amzDate := query.Get("X-Amz-Date")
	expires := query.Get("X-Amz-Expires")
	signedHeaders := query.Get("X-Amz-SignedHeaders")
	signature := query.Get("X-Amz-Signature")

	if algorithm != signatureAlgorithm || credential == "" || amzDate == "" ||
		expires == "" || signedHeaders == "" || signature == "" {
		return nil, fmt.Errorf("missing presigned parameters: %w", errSignature)
	}

	seconds, err := strconv.Atoi(expires)
	if err != nil || seconds <= 0 || seconds > maxExpiresSeconds {
		return nil, fmt.Errorf("invalid X-Amz-Expires %q: %w", expires, errSignature)
	}

	params, err := scopedParams(credential, amzDate)
	if err != nil {
		return nil, err
	}
	params.expires = seconds
	params.signedHeaders = signedHeaders
	params.signature = signature
	params.payloadHash = "UNSIGNED-PAYLOAD"
	params.presigned = true
	return params, nil
}

func headerParams(r *http.Request) (*signatureParams, error) {
	auth := r.Header.Get("Authorization")
	rest, ok := strings.CutPrefix(auth, signatureAlgorithm+" ")
	if !ok {
		return nil, fmt.Errorf("missing authorization: %w", errSignature)
	}

	fields := make(map[string]string, 3)
	for _, part := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok {
			fields[k] = v
		}
	}

	payloadHash := r.Header.Get("X-Amz-Content-Sha256")
	if fields["Credential"] == "" || fields["SignedHeaders"] == "" || fields["Signature"] == "" || payloadHash == "" {
		return nil, fmt.Errorf("incomplete authorization: %w", errSignature)
	}

	params, err := scopedParams(fields["Credential"], r.Header.Get("X-Amz-Date"))
	if err != nil {
		return nil, err
	}
	params.signedHeaders = fields["SignedHeaders"]
	params.signature = fields["Signature"]
	params.payloadHash = payloadHash
	return params, nil
}

func scopedParams(credential, amzDate string) (*signatureParams, error) {
	requestTime, err := time.Parse(dateTimeFormat, amzDate)
	if err != nil {
		return nil, fmt.Errorf("invalid X-Amz-Date %q: %w", amzDate, errSignature)
	}

	parts := strings.Split(credential, "/")
	if len(parts) != 5 || parts[4] != "aws4_request" {
		return nil, fmt.Errorf("invalid credential %q: %w", credential, errSignature)
	}

	return &signatureParams{
		accessKey:   parts[0],
		dateStamp:   parts[1],
		region:      parts[2],
		service:     parts[3],
		requestTime: requestTime,
	}, nil
}

func canonicalURI(r *http.Request) string {
	p := r.URL.EscapedPath()
	if p == "" {
		return "/"
	}
	return p
}

func canonicalQuery(query url.Values) string {
	params := url.Values{}
	for k, v := range query {
		if k != "X-Amz-Signature" {
			params[k] = v
		}
	}
	return strings.ReplaceAll(params.Encode(), "+", "%20")
}

// canonicalHeaders renders the signed headers as "name:value\n" lines. Go
// keeps Host and Content-Length outside r.Header, so they are read from the
// request itself.
func canonicalHeaders(r *http.Request, signedHeaders string) string {
	var b strings.Builder
	for _, name := range strings.Split(signedHeaders, ";") {
		var value string
		switch name {
		case "host":
			value = r.Host
		case "content-length":
			value = strconv.FormatInt(r.ContentLength, 10)
		default:
			var values []string
			for _, v := range r.Header.Values(name) {
				values = append(values, strings.Join(strings.Fields(v), " "))
			}
			value = strings.Join(values, ",")
		}
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(value)
		b.WriteString("\n")
	}
	return b.String()
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}
