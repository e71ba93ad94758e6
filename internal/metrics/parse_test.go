package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"1,234", 1234},
		{"15K", 15000},
		{"1.5K", 1500},
		{"2.3M", 2300000},
		{"1.5万", 15000},
		{"3万", 30000},
		{"423", 423},
		{"", 0},
		{"—", 0},
		// aria-labels embed the number in a sentence
		{"15234 likes. Like", 15234},
		{"1,234 reposts. Repost", 1234},
		{"44.1K views", 44100},
		{"1.2万件の表示", 12000},
		// unit letters inside unrelated words must not multiply
		{"Bookmark", 0},
		{"Image", 0},
		{"3 Bookmarks. Bookmark", 3},
		{"12 likes", 12},
		// suffix only counts when adjacent to the numeral
		{"15 K", 15},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseCount(tc.label), "label %q", tc.label)
	}
}
