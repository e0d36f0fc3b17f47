package crawler

import (
	"net/url"
	"strings"
)

// NormalizeURL produces the canonical form used as the cache key:
// https scheme when missing, lowercased host without the www. prefix,
// no trailing slash, query and fragment dropped.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimRight(u.Path, "/")
	return scheme + "://" + host + path
}

// BaseURL reduces a URL to scheme://host (www. stripped).
func BaseURL(raw string) string {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

// Domain returns the bare host of a URL.
func Domain(raw string) string {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil {
		return ""
	}
	return u.Host
}

// resolveURL converts a relative href to an absolute URL against base.
// Schemes other than http(s) (mailto:, javascript:, tel:) resolve to "".
func resolveURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.Scheme != "" && ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}
