package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage(
		"bot@example.com", "me@example.com", "Batch Analysis Complete - 5/5 posts",
		"b-123", "<h1>done</h1>", "done",
	))

	assert.Contains(t, msg, "From: bot@example.com\r\n")
	assert.Contains(t, msg, "To: me@example.com\r\n")
	assert.Contains(t, msg, "Subject: Batch Analysis Complete - 5/5 posts\r\n")
	assert.Contains(t, msg, `Content-Type: multipart/alternative; boundary="b-123"`)

	// Two opening markers and one closing marker.
	assert.Equal(t, 2, strings.Count(msg, "--b-123\r\n"))
	assert.Equal(t, 1, strings.Count(msg, "--b-123--\r\n"))

	// Plain part precedes the HTML part.
	plainAt := strings.Index(msg, "Content-Type: text/plain")
	htmlAt := strings.Index(msg, "Content-Type: text/html")
	assert.Greater(t, plainAt, 0)
	assert.Greater(t, htmlAt, plainAt)
}
