// Package metrics turns the abbreviated engagement labels X.com renders
// ("1,234", "15K", "2.3M", "1.5万") into integer counts.
package metrics

import (
	"regexp"
	"strconv"
	"strings"
)

// countPattern matches the first numeral (one optional decimal point) and a
// unit suffix, but only when the suffix letter is directly adjacent to the
// numeral. Words like "Bookmark" or "Image" contain K/M without a preceding
// digit and must not trigger a multiplier.
var countPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)([KkMm]|万)?`)

// ParseCount converts an engagement label to a non-negative count.
// It never fails: empty, missing, or unparseable input yields 0.
func ParseCount(label string) int {
	if label == "" {
		return 0
	}

	// Thousands separators first, so "1,234" parses as one numeral.
	s := strings.ReplaceAll(strings.TrimSpace(label), ",", "")

	m := countPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	switch m[2] {
	case "K", "k":
		value *= 1_000
	case "M", "m":
		value *= 1_000_000
	case "万":
		value *= 10_000
	}

	return int(value)
}
