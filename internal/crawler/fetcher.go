package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; PolicyScope/1.0)"

// 5 MB is more than any legal page needs; caps memory on hostile servers.
const maxBodyBytes = 5 << 20

// Fetcher retrieves pages with a shared HTTP client and a per-host
// robots.txt cache.
type Fetcher struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewFetcher builds a Fetcher. A zero timeout falls back to 30s, matching
// the overall budget for one page.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch retrieves the HTML body of a page. Returns FetchError for network
// failures and non-2xx statuses, ErrBlocked when robots.txt disallows the path.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	if allowed := f.allowed(ctx, u); !allowed {
		return "", ErrBlocked
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	return string(body), nil
}

// allowed consults the host's robots.txt, fetching and caching it on first
// use. Unreachable or unparsable robots.txt allows everything, which is the
// conventional reading.
func (f *Fetcher) allowed(ctx context.Context, u *url.URL) bool {
	host := u.Scheme + "://" + u.Host

	f.mu.Lock()
	data, ok := f.robots[host]
	f.mu.Unlock()

	if !ok {
		data = f.fetchRobots(ctx, host)
		f.mu.Lock()
		f.robots[host] = data
		f.mu.Unlock()
	}
	if data == nil {
		return true
	}
	group := data.FindGroup(f.userAgent)
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (f *Fetcher) fetchRobots(ctx context.Context, host string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

// UserAgent exposes the configured agent string, mainly for logging.
func (f *Fetcher) UserAgent() string { return f.userAgent }
