package postid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://x.com/snow_sayu_/status/1867910835085148236", "1867910835085148236", true},
		{"https://twitter.com/someone/status/123456?s=20", "123456", true},
		{"https://x.com/someone/status/123/photo/1", "123", true},
		{"https://x.com/home", "", false},
		{"not a url", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		id, ok := Extract(tc.url)
		assert.Equal(t, tc.ok, ok, "url %q", tc.url)
		assert.Equal(t, tc.want, id, "url %q", tc.url)
	}
}

func TestCreatedAt(t *testing.T) {
	// id = 1_000_000_000_000 << 22, so the embedded offset is exactly 1e12 ms.
	ts, ok := CreatedAt("4194304000000000000")
	assert.True(t, ok)
	assert.Equal(t, time.UnixMilli(1288834974657+1_000_000_000_000).UTC(), ts)

	// A real-world id from December 2024.
	ts, ok = CreatedAt("1867910835085148236")
	assert.True(t, ok)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, time.December, ts.Month())
}

func TestCreatedAtRejectsNonNumeric(t *testing.T) {
	_, ok := CreatedAt("abc123")
	assert.False(t, ok)

	_, ok = CreatedAt("")
	assert.False(t, ok)

	// Wider than 64 bits.
	_, ok = CreatedAt("99999999999999999999999999")
	assert.False(t, ok)
}
