// Package postid resolves canonical post identifiers from X.com URLs and
// derives post creation times from the snowflake clock bits embedded in them.
package postid

import (
	"regexp"
	"strconv"
	"time"
)

// X snowflake ids carry milliseconds since this epoch in their upper bits.
const (
	epochMillis   = 1288834974657
	timestampBits = 22
)

var statusPattern = regexp.MustCompile(`/status/(\d+)`)

// Extract returns the numeric post identifier from a post URL.
// The second return value is false when the URL carries no /status/<id> segment.
func Extract(rawURL string) (string, bool) {
	m := statusPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CreatedAt derives the post creation time from its identifier.
// Returns false if the id is not a 64-bit decimal integer.
func CreatedAt(id string) (time.Time, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	ms := int64(n>>timestampBits) + epochMillis
	return time.UnixMilli(ms).UTC(), true
}
