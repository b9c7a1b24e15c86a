package websync

import (
	"strings"
	"unicode/utf8"
)

// IsValidKey validates that a string can be used as an object key.
// It checks that the key:
//   - is not empty and does not start with "/"
//   - does not contain "//" (empty segments)
//   - has no "." or ".." segments
//   - does not contain a backslash
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
//
// Spaces are allowed since browsers upload files named after the user's files.
func IsValidKey(key string) bool {
	if key == "" || key[0] == '/' {
		return false
	}

	if strings.Contains(key, "//") || strings.Contains(key, `\`) {
		return false
	}

	if !utf8.ValidString(key) {
		return false
	}

	if hasDotSegment(key) {
		return false
	}

	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}

// maxKeyBytes is the longest object key S3 accepts.
const maxKeyBytes = 1024

// IsStoredKey reports whether key can name an object that already exists in
// the bucket. Storage accepts far more than IsValidKey allows, and escapeKey
// encodes the rest, so only emptiness, length and UTF-8 validity are checked.
func IsStoredKey(key string) bool {
	return key != "" && len(key) <= maxKeyBytes && utf8.ValidString(key)
}

// hasDotSegment reports whether key contains a "." or ".." segment.
func hasDotSegment(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// IsValidFilename validates a client-supplied filename for an upload key.
// A filename is a single key segment of at most 255 bytes.
func IsValidFilename(name string) bool {
	if len(name) > 255 || strings.Contains(name, "/") {
		return false
	}
	return IsValidKey(name) && strings.TrimSpace(name) != ""
}

// escapeKey percent-encodes every key segment the way SigV4 canonical URIs
// expect: everything but unreserved characters is encoded, "/" is kept.
func escapeKey(key string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}
