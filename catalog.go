package websync

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CatalogPage is one page of a ListObjectsV2 document.
type CatalogPage struct {
	Objects               []StoredObject
	NextContinuationToken string
	Truncated             bool
	// Skipped counts records dropped for missing or unparseable fields.
	Skipped int
	// Incomplete is set when the document ended in a syntax error; records
	// before the error are still returned.
	Incomplete bool
}

// listingRecord mirrors a <Contents> element. Fields are pointers so that a
// missing element can be told apart from an empty one.
type listingRecord struct {
	Key          *string `xml:"Key"`
	Size         *string `xml:"Size"`
	LastModified *string `xml:"LastModified"`
}

// ParseCatalog reads a ListObjectsV2 document. Each <Contents> record is
// decoded on its own: a record missing its key, size or timestamp is skipped
// and counted, directory placeholders (keys ending in "/") are dropped, and
// a document without usable records yields an empty, non-nil slice.
// Objects keep document order; see SortNewestFirst.
func ParseCatalog(r io.Reader) *CatalogPage {
	page := &CatalogPage{Objects: []StoredObject{}}
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				page.Incomplete = true
				page.Truncated = false
			}
			return page
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Contents":
			var rec listingRecord
			if err := dec.DecodeElement(&rec, &start); err != nil {
				page.Skipped++
				page.Incomplete = true
				page.Truncated = false
				return page
			}
			obj, ok := rec.object()
			if !ok {
				page.Skipped++
				continue
			}
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			page.Objects = append(page.Objects, obj)
		case "NextContinuationToken":
			var token string
			if err := dec.DecodeElement(&token, &start); err == nil {
				page.NextContinuationToken = strings.TrimSpace(token)
			}
		case "IsTruncated":
			var flag string
			if err := dec.DecodeElement(&flag, &start); err == nil {
				page.Truncated = strings.EqualFold(strings.TrimSpace(flag), "true")
			}
		}
	}
}

func (rec listingRecord) object() (StoredObject, bool) {
	if rec.Key == nil || *rec.Key == "" || rec.Size == nil || rec.LastModified == nil {
		return StoredObject{}, false
	}

	size, err := strconv.ParseInt(strings.TrimSpace(*rec.Size), 10, 64)
	if err != nil || size < 0 {
		return StoredObject{}, false
	}

	modified, ok := parseTimestamp(*rec.LastModified)
	if !ok {
		return StoredObject{}, false
	}

	return StoredObject{Key: *rec.Key, Size: size, LastModified: modified}, true
}

// parseTimestamp accepts the ISO 8601 form listings use and the HTTP date
// form some S3-compatible services return.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := http.ParseTime(s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// SortNewestFirst orders objects by LastModified, newest first. Objects with
// equal timestamps keep their relative order.
func SortNewestFirst(objects []StoredObject) {
	slices.SortStableFunc(objects, func(a, b StoredObject) int {
		return b.LastModified.Compare(a.LastModified)
	})
}
