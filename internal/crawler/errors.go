package crawler

import (
	"errors"
	"fmt"
)

// ErrFetch indicates the page was unreachable or returned a non-2xx status.
var ErrFetch = errors.New("fetch failed")

// ErrParse indicates extraction produced empty or garbage text.
var ErrParse = errors.New("extraction produced no usable text")

// ErrBlocked indicates robots.txt disallows fetching the URL.
var ErrBlocked = errors.New("blocked by robots.txt")

// ErrNoDocuments indicates discovery found no matching links for any
// requested type. This is the only crawl error that fails a whole session.
var ErrNoDocuments = errors.New("no legal document links discovered")

// FetchError wraps ErrFetch with the URL and HTTP status involved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return ErrFetch }
