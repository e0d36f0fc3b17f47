package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// minimum content thresholds below which a page is treated as garbage
const (
	minTextLength = 100
	minWordCount  = 20
	minLongWords  = 10
)

// Extraction is the cleaned result of one document page.
type Extraction struct {
	Title string
	Text  string
}

// Extract strips boilerplate from raw HTML and returns plain text plus a
// best-effort title. Readability handles the main-content carving; goquery
// removes the chrome readability sometimes keeps. Returns ErrParse when the
// remaining text is too short to be a real document.
func Extract(rawHTML, pageURL string) (Extraction, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return Extraction{}, &FetchError{URL: pageURL, Err: err}
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	content := rawHTML
	title := ""
	if err == nil && strings.TrimSpace(article.Content) != "" {
		content = article.Content
		title = article.Title
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return Extraction{}, ErrParse
	}
	doc.Find("script, style, noscript, nav, header, footer, aside, iframe, form").Remove()

	text := reWhitespace.ReplaceAllString(doc.Text(), " ")
	text = strings.TrimSpace(text)

	if title == "" {
		title = fallbackTitle(rawHTML)
	}

	if !validText(text) {
		return Extraction{}, ErrParse
	}
	return Extraction{Title: title, Text: text}, nil
}

// fallbackTitle reads the first h1 or the <title> tag from the original
// markup when readability did not produce one.
func fallbackTitle(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return reWhitespace.ReplaceAllString(h1, " ")
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// validText applies the same sanity checks the discovery side relies on:
// enough characters, enough words, and some words long enough to be prose.
func validText(text string) bool {
	if len(text) < minTextLength {
		return false
	}
	words := strings.Fields(text)
	if len(words) < minWordCount {
		return false
	}
	long := 0
	for _, w := range words {
		if len(w) > 4 {
			long++
		}
	}
	return long >= minLongWords
}
