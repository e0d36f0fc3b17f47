package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/policyscope/internal/application"
	"github.com/bryanwahyu/policyscope/internal/crawler"
	domai "github.com/bryanwahyu/policyscope/internal/domain/ai"
	domain "github.com/bryanwahyu/policyscope/internal/domain/crawl"
	"github.com/bryanwahyu/policyscope/internal/domain/documents"
	"github.com/bryanwahyu/policyscope/internal/textmining"
)

// defaults used when the config leaves them zero
const (
	defaultCacheWindow  = 30 * 24 * time.Hour
	defaultTopWords     = 50
	defaultRiskFallback = 5.0 // middle of the 0..10 scale when the model is down
	perDocumentEstimate = 15  // seconds, for the estimated_time hint
)

// PageFetcher retrieves the raw HTML of one page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Service implements the crawl-session use cases.
// Safe for concurrent use; the singleflight group guarantees at most one
// in-flight fetch+analysis per canonical document URL across all sessions.
type Service struct {
	Sessions   domain.Repository
	Documents  documents.Repository
	Analyses   documents.AnalysisRepository
	Snapshots  documents.SnapshotStore // optional
	Fetcher    PageFetcher
	Summarizer domai.Summarizer
	Clock      application.Clock
	Logger     *zap.Logger

	CacheWindow time.Duration
	TopWords    int
	ModelName   string

	group singleflight.Group
}

// StartCommand triggers a new crawl session.
type StartCommand struct {
	UserID        string
	URL           string
	DocumentTypes []domain.DocumentType
}

// StartResult is what the analyze endpoint returns immediately.
type StartResult struct {
	Session          *domain.Session
	EstimatedSeconds int
}

// SessionResults bundles a session with its documents and analyses.
type SessionResults struct {
	Session   *domain.Session       `json:"session"`
	Documents []*DocumentWithResult `json:"documents"`
}

// DocumentWithResult pairs a cached document with its analysis, if any.
type DocumentWithResult struct {
	Document *documents.Document `json:"document"`
	Analysis *documents.Analysis `json:"analysis,omitempty"`
}

// Start creates a pending session and kicks off the crawl in the background.
// The goroutine uses context.Background() so the work survives the HTTP
// request that triggered it.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (StartResult, error) {
	types := cmd.DocumentTypes
	if len(types) == 0 {
		types = domain.AllDocumentTypes()
	}

	now := s.Clock.Now()
	sess := &domain.Session{
		ID:            domain.SessionID(uuid.New().String()),
		UserID:        cmd.UserID,
		URL:           crawler.NormalizeURL(cmd.URL),
		DocumentTypes: types,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return StartResult{}, err
	}

	go s.runUntilDone(*sess)

	return StartResult{
		Session:          sess,
		EstimatedSeconds: perDocumentEstimate * len(types),
	}, nil
}

// runUntilDone executes the whole pipeline for one session. Per-document
// failures are recorded and skipped; the session only fails when discovery
// yields nothing at all.
func (s *Service) runUntilDone(sess domain.Session) {
	ctx := context.Background()
	log := s.logger().With(zap.String("session_id", string(sess.ID)), zap.String("url", sess.URL))

	sess.Status = domain.StatusProcessing
	sess.UpdatedAt = s.Clock.Now()
	if err := s.Sessions.Save(ctx, &sess); err != nil {
		log.Error("save processing status", zap.Error(err))
		return
	}

	candidates, err := s.discover(ctx, &sess)
	if err != nil {
		s.fail(ctx, &sess, err)
		return
	}
	if len(candidates) == 0 {
		s.fail(ctx, &sess, crawler.ErrNoDocuments)
		return
	}

	sess.DocumentCount = len(candidates)
	sess.UpdatedAt = s.Clock.Now()
	if err := s.Sessions.Save(ctx, &sess); err != nil {
		log.Error("save document count", zap.Error(err))
	}

	for _, docType := range sess.DocumentTypes {
		cand, ok := candidates[docType]
		if !ok {
			continue
		}
		res, err := s.processDocument(ctx, docType, cand)
		if err != nil {
			log.Warn("document failed",
				zap.String("document_type", string(docType)),
				zap.String("document_url", cand.URL),
				zap.Error(err))
			continue
		}
		if err := s.Documents.LinkSession(ctx, sess.ID, res.Document.ID); err != nil {
			log.Error("link document to session", zap.Error(err))
		}
		sess.AnalyzedCount++
		sess.UpdatedAt = s.Clock.Now()
		if err := s.Sessions.Save(ctx, &sess); err != nil {
			log.Error("save progress", zap.Error(err))
		}
	}

	sess.Status = domain.StatusCompleted
	sess.UpdatedAt = s.Clock.Now()
	if err := s.Sessions.Save(ctx, &sess); err != nil {
		log.Error("save completed status", zap.Error(err))
		return
	}
	log.Info("session completed",
		zap.Int("documents_found", sess.DocumentCount),
		zap.Int("documents_analyzed", sess.AnalyzedCount))
}

// discover fetches the root page and scans it for legal-document links.
func (s *Service) discover(ctx context.Context, sess *domain.Session) (map[domain.DocumentType]crawler.Candidate, error) {
	html, err := s.Fetcher.Fetch(ctx, sess.URL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crawler.ErrParse
	}
	return crawler.Discover(doc, sess.URL, sess.DocumentTypes), nil
}

func (s *Service) fail(ctx context.Context, sess *domain.Session, cause error) {
	sess.Status = domain.StatusFailed
	sess.ErrorMessage = truncate(cause.Error(), 500)
	sess.UpdatedAt = s.Clock.Now()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		s.logger().Error("save failed status", zap.String("session_id", string(sess.ID)), zap.Error(err))
	}
	s.logger().Warn("session failed", zap.String("session_id", string(sess.ID)), zap.Error(cause))
}

// processDocument resolves one discovered link to a cached or freshly
// analyzed document. All sessions funnel through the singleflight group, so
// concurrent crawls of the same URL share one fetch and one model call.
func (s *Service) processDocument(ctx context.Context, docType domain.DocumentType, cand crawler.Candidate) (*DocumentWithResult, error) {
	canonical := crawler.NormalizeURL(cand.URL)

	v, err, _ := s.group.Do(canonical, func() (interface{}, error) {
		return s.fetchAndAnalyze(ctx, docType, canonical)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DocumentWithResult), nil
}

func (s *Service) fetchAndAnalyze(ctx context.Context, docType domain.DocumentType, canonical string) (*DocumentWithResult, error) {
	now := s.Clock.Now()

	cached, err := s.Documents.FindByURL(ctx, canonical)
	if err != nil && !errors.Is(err, documents.ErrNotFound) {
		return nil, err
	}

	// Fresh cache hit: reuse without touching the network.
	if cached != nil && cached.FreshAt(now, s.cacheWindow()) {
		analysis, aerr := s.Analyses.FindByHash(ctx, canonical, cached.TextHash)
		if aerr == nil && analysis != nil {
			return &DocumentWithResult{Document: cached, Analysis: analysis}, nil
		}
		// Document cached but analysis missing: analyze the stored text.
		analysis, aerr = s.analyze(ctx, docType, cached)
		if aerr != nil {
			return nil, aerr
		}
		return &DocumentWithResult{Document: cached, Analysis: analysis}, nil
	}

	// Miss or stale: fetch and extract.
	html, err := s.Fetcher.Fetch(ctx, canonical)
	if err != nil {
		if cached != nil {
			if serr := s.Documents.MarkStale(ctx, canonical); serr != nil {
				s.logger().Error("mark stale", zap.String("url", canonical), zap.Error(serr))
			}
		}
		return nil, err
	}
	ex, err := crawler.Extract(html, canonical)
	if err != nil {
		return nil, err
	}
	hash := crawler.TextHash(ex.Text)

	// Unchanged content refreshes the freshness window without a new version.
	if cached != nil && cached.TextHash == hash {
		cached.CrawlStatus = documents.CrawlFresh
		cached.LastCrawled = now
		cached.UpdatedAt = now
		if err := s.Documents.Save(ctx, cached); err != nil {
			return nil, err
		}
		analysis, aerr := s.Analyses.FindByHash(ctx, canonical, hash)
		if aerr != nil || analysis == nil {
			analysis, aerr = s.analyze(ctx, docType, cached)
			if aerr != nil {
				return nil, aerr
			}
		}
		return &DocumentWithResult{Document: cached, Analysis: analysis}, nil
	}

	version := 1
	if cached != nil {
		version = cached.Version + 1
	}
	doc := &documents.Document{
		ID:          documents.DocumentID(uuid.New().String()),
		BaseURL:     crawler.BaseURL(canonical),
		URL:         canonical,
		Type:        docType,
		Title:       ex.Title,
		Text:        ex.Text,
		TextHash:    hash,
		WordCount:   len(textmining.Words(ex.Text)),
		Version:     version,
		CrawlStatus: documents.CrawlFresh,
		LastCrawled: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.Snapshots != nil {
		key := fmt.Sprintf("%s/%s/v%d.html", crawler.Domain(canonical), docType, version)
		if url, serr := s.Snapshots.Upload(ctx, key, []byte(html)); serr != nil {
			s.logger().Warn("snapshot upload failed", zap.String("url", canonical), zap.Error(serr))
		} else {
			doc.SnapshotURL = url
		}
	}

	if err := s.Documents.Save(ctx, doc); err != nil {
		return nil, err
	}

	analysis, err := s.analyze(ctx, docType, doc)
	if err != nil {
		return nil, err
	}
	return &DocumentWithResult{Document: doc, Analysis: analysis}, nil
}

// analyze computes the deterministic measurements locally and asks the
// language model for summaries, sentiment, and risk. Model failure degrades
// to empty summaries and a defaulted risk score; it never fails the document.
func (s *Service) analyze(ctx context.Context, docType domain.DocumentType, doc *documents.Document) (*documents.Analysis, error) {
	stats := textmining.Measure(doc.Text)
	analysis := &documents.Analysis{
		ID:            uuid.New().String(),
		DocumentID:    doc.ID,
		DocumentURL:   doc.URL,
		TextHash:      doc.TextHash,
		WordFrequency: textmining.WordFrequency(doc.Text, s.topWords()),
		Measurements: documents.Measurements{
			WordCount:                 stats.WordCount,
			SentenceCount:             stats.SentenceCount,
			AvgWordsPerSentence:       stats.AvgWordsPerSentence,
			FleschReadingEase:         stats.FleschReadingEase,
			FleschKincaidGrade:        stats.FleschKincaidGrade,
			AutomatedReadabilityIndex: stats.AutomatedReadabilityIndex,
			KeywordDensity:            stats.KeywordDensity,
			LegalClauseCount:          stats.LegalClauseCount,
			RiskIndicatorScore:        defaultRiskFallback,
		},
		CreatedAt: s.Clock.Now(),
	}

	summary, err := s.Summarizer.Summarize(ctx, domai.SummaryRequest{
		URL:          doc.URL,
		DocumentType: string(docType),
		Text:         doc.Text,
	})
	if err != nil {
		s.logger().Warn("summarizer unavailable, persisting measurements only",
			zap.String("url", doc.URL), zap.Error(err))
	} else {
		analysis.SummarySentence = summary.OneSentence
		analysis.SummaryBrief = summary.Brief
		analysis.Measurements.SentimentScore = summary.Sentiment
		analysis.Measurements.RiskIndicatorScore = summary.RiskScore
		analysis.Model = s.ModelName
	}

	if err := s.Analyses.Save(ctx, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// Status returns the session snapshot for polling.
func (s *Service) Status(ctx context.Context, user string, id domain.SessionID) (*domain.Session, error) {
	return s.Sessions.Get(ctx, user, id)
}

// Results returns the session with its documents and analyses.
func (s *Service) Results(ctx context.Context, user string, id domain.SessionID) (*SessionResults, error) {
	sess, err := s.Sessions.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.Documents.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	out := &SessionResults{Session: sess, Documents: make([]*DocumentWithResult, 0, len(docs))}
	for _, d := range docs {
		item := &DocumentWithResult{Document: d}
		if a, aerr := s.Analyses.GetByDocument(ctx, d.ID); aerr == nil {
			item.Analysis = a
		}
		out.Documents = append(out.Documents, item)
	}
	return out, nil
}

// History lists the user's sessions, newest first.
func (s *Service) History(ctx context.Context, user string, page, pageSize int, filter domain.HistoryFilter) (domain.PaginatedSessions, error) {
	return s.Sessions.Paginate(ctx, user, page, pageSize, filter)
}

// Delete removes one session. Cached documents stay; they are shared.
func (s *Service) Delete(ctx context.Context, user string, id domain.SessionID) error {
	return s.Sessions.Delete(ctx, user, id)
}

func (s *Service) cacheWindow() time.Duration {
	if s.CacheWindow <= 0 {
		return defaultCacheWindow
	}
	return s.CacheWindow
}

func (s *Service) topWords() int {
	if s.TopWords <= 0 {
		return defaultTopWords
	}
	return s.TopWords
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// truncate trims to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
