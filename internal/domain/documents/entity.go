package documents

import (
	"time"

	"github.com/bryanwahyu/policyscope/internal/domain/crawl"
)

// DocumentID identifier type
type DocumentID string

// CrawlStatus of a cached document version
type CrawlStatus string

const (
	CrawlFresh  CrawlStatus = "fresh"
	CrawlStale  CrawlStatus = "stale"
	CrawlFailed CrawlStatus = "failed"
)

// Document is one fetched and extracted legal page. Documents live in a
// global cache shared across users and sessions, keyed by canonical URL.
type Document struct {
	ID          DocumentID         `json:"id"`
	BaseURL     string             `json:"base_url"`
	URL         string             `json:"url"`
	Type        crawl.DocumentType `json:"document_type"`
	Title       string             `json:"title,omitempty"`
	Text        string             `json:"-"`
	TextHash    string             `json:"text_hash"`
	WordCount   int                `json:"word_count"`
	Version     int                `json:"version"`
	CrawlStatus CrawlStatus        `json:"crawl_status"`
	SnapshotURL string             `json:"snapshot_url,omitempty"`
	LastCrawled time.Time          `json:"last_crawled"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// FreshAt reports whether the cached version is inside the freshness window.
func (d *Document) FreshAt(now time.Time, window time.Duration) bool {
	return d.CrawlStatus == CrawlFresh && now.Sub(d.LastCrawled) < window
}

// Measurements holds the deterministic and model-derived metrics for one
// document version. Sentiment and risk come from the language model; the
// rest is computed locally and never depends on the model being reachable.
type Measurements struct {
	WordCount                 int     `json:"word_count"`
	SentenceCount             int     `json:"sentence_count"`
	AvgWordsPerSentence       float64 `json:"average_words_per_sentence"`
	FleschReadingEase         float64 `json:"flesch_reading_ease"`
	FleschKincaidGrade        float64 `json:"flesch_kincaid_grade"`
	AutomatedReadabilityIndex float64 `json:"automated_readability_index"`
	SentimentScore            float64 `json:"sentiment_score"`
	KeywordDensity            float64 `json:"keyword_density"`
	LegalClauseCount          int     `json:"legal_clause_count"`
	RiskIndicatorScore        float64 `json:"risk_indicator_score"`
}

// Analysis is one-to-one with a Document version (matched via TextHash).
// Never mutated, only superseded by a new row for a new version.
type Analysis struct {
	ID              string         `json:"id"`
	DocumentID      DocumentID     `json:"document_id"`
	DocumentURL     string         `json:"document_url"`
	TextHash        string         `json:"text_hash"`
	SummarySentence string         `json:"summary_one_sentence"`
	SummaryBrief    string         `json:"summary_100_words"`
	WordFrequency   map[string]int `json:"word_frequency"`
	Measurements    Measurements   `json:"measurements"`
	Model           string         `json:"analysis_model,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Favorite joins a user to a document.
type Favorite struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DocumentID DocumentID `json:"document_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PaginatedDocuments is a paginated search response
type PaginatedDocuments struct {
	Data       []*Document `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int64       `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}
