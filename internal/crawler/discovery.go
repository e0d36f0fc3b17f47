package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bryanwahyu/policyscope/internal/domain/crawl"
)

// Confidence levels per match strategy. An href pattern beats anchor text,
// which beats a title attribute; within a level the first occurrence in
// document order wins.
const (
	confidenceHref  = 100
	confidenceText  = 80
	confidenceTitle = 70
)

var documentKeywords = map[crawl.DocumentType][]string{
	crawl.TypePrivacyPolicy: {
		"privacy policy", "privacy statement", "privacy notice",
		"data protection", "data privacy", "our privacy",
		"privacy and security policy",
	},
	crawl.TypeTermsOfService: {
		"terms of service", "user agreement", "service agreement",
		"service terms", "terms agreement",
	},
	crawl.TypeTermsAndConditions: {
		"terms and conditions", "terms & conditions", "general terms",
		"conditions of use",
	},
	crawl.TypeTermsOfUse: {
		"terms of use", "usage terms", "acceptance terms",
	},
}

var urlPatterns = []struct {
	re      *regexp.Regexp
	docType crawl.DocumentType
}{
	{regexp.MustCompile(`(?i)/privacy[-_]policy`), crawl.TypePrivacyPolicy},
	{regexp.MustCompile(`(?i)/legal/privacy`), crawl.TypePrivacyPolicy},
	{regexp.MustCompile(`(?i)/privacy`), crawl.TypePrivacyPolicy},
	{regexp.MustCompile(`(?i)/terms[-_]of[-_]service`), crawl.TypeTermsOfService},
	{regexp.MustCompile(`(?i)/terms[-_]and[-_]conditions`), crawl.TypeTermsAndConditions},
	{regexp.MustCompile(`(?i)/terms[-_]of[-_]use`), crawl.TypeTermsOfUse},
	{regexp.MustCompile(`(?i)/legal/terms`), crawl.TypeTermsOfService},
	{regexp.MustCompile(`(?i)/conditions`), crawl.TypeTermsAndConditions},
	{regexp.MustCompile(`(?i)/terms`), crawl.TypeTermsOfService},
}

var skipURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|svg|pdf|zip|exe|dmg)$`),
}

// Candidate is a link that matched one document type.
type Candidate struct {
	URL        string
	Text       string
	Confidence int
	Position   int // document order, used as the tie-break
}

// Discover scans the anchors of a parsed page and returns the single best
// candidate per requested document type. Types with no match are omitted.
func Discover(doc *goquery.Document, pageURL string, types []crawl.DocumentType) map[crawl.DocumentType]Candidate {
	requested := make(map[crawl.DocumentType]struct{}, len(types))
	for _, t := range types {
		requested[t] = struct{}{}
	}

	best := make(map[crawl.DocumentType]Candidate)
	position := 0

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		position++
		href, _ := sel.Attr("href")
		abs := resolveURL(href, pageURL)
		if abs == "" || skipURL(abs) {
			return
		}

		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		title, _ := sel.Attr("title")

		docType, confidence := classify(strings.ToLower(href), text, strings.ToLower(title))
		if docType == "" {
			return
		}
		if _, want := requested[docType]; !want {
			return
		}

		cand := Candidate{URL: abs, Text: text, Confidence: confidence, Position: position}
		if cur, ok := best[docType]; !ok || better(cand, cur) {
			best[docType] = cand
		}
	})

	return best
}

func better(a, b Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Position < b.Position
}

func classify(href, text, title string) (crawl.DocumentType, int) {
	for _, p := range urlPatterns {
		if p.re.MatchString(href) {
			return p.docType, confidenceHref
		}
	}
	if t := matchKeywords(text); t != "" {
		return t, confidenceText
	}
	if title != "" {
		if t := matchKeywords(title); t != "" {
			return t, confidenceTitle
		}
	}
	return "", 0
}

// matchKeywords scores each type by how many of its keywords appear and
// returns the highest-scoring one.
func matchKeywords(text string) crawl.DocumentType {
	var bestType crawl.DocumentType
	bestScore := 0
	for _, docType := range crawl.AllDocumentTypes() {
		score := 0
		for _, kw := range documentKeywords[docType] {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestType = docType
		}
	}
	return bestType
}

func skipURL(u string) bool {
	for _, re := range skipURLPatterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}
