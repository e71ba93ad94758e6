package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// urlHeaders are the column names recognized as the post URL column, matched
// case-insensitively.
var urlHeaders = map[string]bool{
	"url":       true,
	"post_url":  true,
	"tweet_url": true,
	"link":      true,
}

// ParseURLList reads post URLs from an uploaded file. CSV and TSV files with
// a recognized URL column use that column; anything else is treated as one
// bare URL per line. Duplicates are dropped, first occurrence wins.
func ParseURLList(r io.Reader, filename string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}

	content := string(data)
	if urls := parseDelimited(content, filename); urls != nil {
		return dedupe(urls), nil
	}

	var urls []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no urls found in %s", filename)
	}
	return dedupe(urls), nil
}

// parseDelimited extracts the URL column from CSV/TSV content. Returns nil
// when the content has no header row with a recognized URL column.
func parseDelimited(content, filename string) []string {
	reader := csv.NewReader(strings.NewReader(content))
	if strings.HasSuffix(strings.ToLower(filename), ".tsv") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil || len(rows) < 2 {
		return nil
	}

	col := -1
	for i, name := range rows[0] {
		if urlHeaders[strings.ToLower(strings.TrimSpace(name))] {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}

	var urls []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		u := strings.TrimSpace(row[col])
		if strings.HasPrefix(u, "http") {
			urls = append(urls, u)
		}
	}
	return urls
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
