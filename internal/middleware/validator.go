package middleware

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/bryanwahyu/policyscope/internal/domain/crawl"
)

// Input validation and sanitization utilities

var uuidPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// ValidateURL checks the target is a public http(s) address.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > 2048 {
		return fmt.Errorf("URL too long (max 2048 characters)")
	}

	// Scheme is optional on input; default matches the crawler's normalization.
	candidate := rawURL
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("URL has no host")
	}

	// SSRF protection: reject loopback, link-local, and private targets
	blocked := []string{"localhost", "0.0.0.0", "[::]"}
	for _, b := range blocked {
		if host == b {
			return fmt.Errorf("localhost/internal hosts are not allowed")
		}
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("private and loopback addresses are not allowed")
		}
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("internal hostnames are not allowed")
	}

	return nil
}

// ValidateSessionID checks the session id is a UUID.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if !uuidPattern.MatchString(strings.ToLower(id)) {
		return fmt.Errorf("invalid session ID format")
	}
	return nil
}

// ValidateDocumentTypes parses the requested type names, accepting the
// short aliases the API supports.
func ValidateDocumentTypes(names []string) ([]crawl.DocumentType, error) {
	out := make([]crawl.DocumentType, 0, len(names))
	seen := make(map[crawl.DocumentType]bool)
	for _, name := range names {
		dt, ok := crawl.ParseDocumentType(name)
		if !ok {
			return nil, fmt.Errorf("unknown document type: %s", name)
		}
		if seen[dt] {
			continue
		}
		seen[dt] = true
		out = append(out, dt)
	}
	return out, nil
}

// ValidatePage clamps the page number.
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ValidateLimit clamps the page size.
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// SanitizeString strips null bytes and control characters.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
