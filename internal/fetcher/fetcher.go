// Package fetcher renders post pages in a cookie-primed headless browser and
// exposes the rendered DOM through a small query interface.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mkondo/postlens/internal/browser"
	"github.com/mkondo/postlens/internal/logging"
)

// Fetcher loads documents and raw resources.
type Fetcher interface {
	// Render loads url in a browser context and returns a handle to the
	// rendered DOM. The caller must Close the page.
	Render(ctx context.Context, url string) (Page, error)
	// FetchBytes downloads a resource URL's raw bytes.
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Page is a handle to one rendered document.
type Page interface {
	// Label returns the element's accessible label, falling back to its
	// visible text. The second value is false when the element is absent or
	// carries no text.
	Label(selector string) (string, bool)
	// Text returns the element's visible text.
	Text(selector string) (string, bool)
	// Attrs returns the given attribute of every element matching selector,
	// in document order.
	Attrs(selector, attr string) []string
	Close()
}

// CookieSource supplies session cookies to inject before navigation.
type CookieSource interface {
	BrowserCookies() ([]*network.Cookie, error)
}

// Chrome is the chromedp-backed Fetcher.
type Chrome struct {
	headless    bool
	loadTimeout time.Duration
	settleWait  time.Duration
	cookies     CookieSource
	client      *http.Client
}

// NewChrome creates a Chrome fetcher. cookies may be nil for anonymous
// rendering.
func NewChrome(headless bool, loadTimeout, settleWait time.Duration, cookies CookieSource) *Chrome {
	return &Chrome{
		headless:    headless,
		loadTimeout: loadTimeout,
		settleWait:  settleWait,
		cookies:     cookies,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Render navigates to url and waits for the post article to appear. A settle
// timeout is tolerated: X renders enough of the page for counter extraction
// even when late subresources never finish.
func (c *Chrome) Render(ctx context.Context, url string) (Page, error) {
	opts := browser.Options(c.headless)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancelAll := func() {
		browserCancel()
		allocCancel()
	}

	if c.cookies != nil {
		cookies, err := c.cookies.BrowserCookies()
		if err != nil {
			logging.Log.Warnf("no session cookies available, rendering anonymously: %v", err)
		} else if err := injectCookies(browserCtx, cookies); err != nil {
			cancelAll()
			return nil, fmt.Errorf("failed to inject cookies: %w", err)
		}
	}

	navCtx, navCancel := context.WithTimeout(browserCtx, c.loadTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		cancelAll()
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	waitCtx, waitCancel := context.WithTimeout(browserCtx, 15*time.Second)
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(SelPostArticle, chromedp.ByQuery))
	waitCancel()
	if err != nil {
		logging.Log.Warnf("page did not settle for %s: %v (continuing with partial DOM)", url, err)
	}

	if c.settleWait > 0 {
		if err := chromedp.Run(browserCtx, chromedp.Sleep(c.settleWait)); err != nil {
			cancelAll()
			return nil, fmt.Errorf("browser context lost for %s: %w", url, err)
		}
	}

	return &chromePage{ctx: browserCtx, cancel: cancelAll}, nil
}

// FetchBytes downloads a resource over plain HTTP. Post media lives on a
// public CDN, so no browser round-trip is needed.
func (c *Chrome) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browser.DefaultUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed for %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download of %s returned status %d", url, resp.StatusCode)
	}

	const maxImageBytes = 32 << 20
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("download of %s was interrupted: %w", url, err)
	}
	return data, nil
}

// injectCookies sets cookies in the browser context before navigation.
func injectCookies(ctx context.Context, cookies []*network.Cookie) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

type chromePage struct {
	ctx    context.Context
	cancel func()
}

type queryResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

func (p *chromePage) Label(selector string) (string, bool) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return {found: false, value: ""};
		const v = (el.getAttribute("aria-label") || el.textContent || "").trim();
		return {found: v !== "", value: v};
	})()`, strconv.Quote(selector))
	return p.eval(script)
}

func (p *chromePage) Text(selector string) (string, bool) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return {found: false, value: ""};
		const v = (el.textContent || "").trim();
		return {found: v !== "", value: v};
	})()`, strconv.Quote(selector))
	return p.eval(script)
}

func (p *chromePage) eval(script string) (string, bool) {
	var res queryResult
	queryCtx, cancel := context.WithTimeout(p.ctx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(queryCtx, chromedp.Evaluate(script, &res)); err != nil {
		logging.Log.Debugf("DOM query failed: %v", err)
		return "", false
	}
	return res.Value, res.Found
}

func (p *chromePage) Attrs(selector, attr string) []string {
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s))
		.map(el => el.getAttribute(%s))
		.filter(Boolean)`, strconv.Quote(selector), strconv.Quote(attr))

	var values []string
	queryCtx, cancel := context.WithTimeout(p.ctx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(queryCtx, chromedp.Evaluate(script, &values)); err != nil {
		logging.Log.Debugf("DOM query failed: %v", err)
		return nil
	}
	return values
}

func (p *chromePage) Close() {
	p.cancel()
}
