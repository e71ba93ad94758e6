package auth

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chromedp/cdproto/network"
)

// exportedCookie matches the JSON produced by common browser cookie-export
// extensions (EditThisCookie, Cookie-Editor).
type exportedCookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	ExpirationDate float64 `json:"expirationDate"`
}

// ImportFromFile loads a browser-extension cookie export and saves it into
// the cookie store, as a fallback when the interactive login flow is blocked.
func (cs *CookieStore) ImportFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read cookie export: %w", err)
	}

	var exported []exportedCookie
	if err := json.Unmarshal(data, &exported); err != nil {
		return fmt.Errorf("unrecognized cookie export format: %w", err)
	}
	if len(exported) == 0 {
		return fmt.Errorf("cookie export %s contains no cookies", path)
	}

	cookies := make([]*network.Cookie, 0, len(exported))
	for _, e := range exported {
		if e.Name == "" {
			continue
		}
		path := e.Path
		if path == "" {
			path = "/"
		}
		cookies = append(cookies, &network.Cookie{
			Name:     e.Name,
			Value:    e.Value,
			Domain:   e.Domain,
			Path:     path,
			Secure:   e.Secure,
			HTTPOnly: e.HTTPOnly,
			Expires:  e.ExpirationDate,
		})
	}

	return cs.Save(cookies)
}
