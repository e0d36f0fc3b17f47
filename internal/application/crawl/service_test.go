package crawl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/policyscope/internal/crawler"
	domai "github.com/bryanwahyu/policyscope/internal/domain/ai"
	domain "github.com/bryanwahyu/policyscope/internal/domain/crawl"
	"github.com/bryanwahyu/policyscope/internal/domain/documents"
	"github.com/bryanwahyu/policyscope/internal/textmining"
)

const (
	rootURL    = "https://example.com"
	termsURL   = "https://example.com/terms"
	privacyURL = "https://example.com/privacy"
)

var legalBody = strings.Repeat(
	"You agree that the provider may collect information about usage. "+
		"We reserve the right to modify these terms without notice. "+
		"Liability is limited to the maximum extent permitted by law. ", 6)

func rootHTML() string {
	return `<html><body>
		<a href="/terms">Terms of Service</a>
		<a href="/privacy">Privacy Policy</a>
		<a href="/contact">Contact</a>
	</body></html>`
}

func legalHTML(title string) string {
	return "<html><head><title>" + title + "</title></head><body><h1>" + title +
		"</h1><p>" + legalBody + "</p></body></html>"
}

type env struct {
	svc       *Service
	sessions  *fakeSessions
	documents *fakeDocuments
	analyses  *fakeAnalyses
	fetcher   *fakeFetcher
	summ      *fakeSummarizer
	snaps     *fakeSnapshots
}

func newEnv() *env {
	e := &env{
		sessions:  newFakeSessions(),
		documents: newFakeDocuments(),
		analyses:  newFakeAnalyses(),
		fetcher:   newFakeFetcher(),
		summ: &fakeSummarizer{summary: domai.Summary{
			OneSentence: "Standard terms with broad provider rights.",
			Brief:       "The document grants the provider wide latitude over content and accounts.",
			Sentiment:   -0.2,
			RiskScore:   7.5,
		}},
		snaps: &fakeSnapshots{},
	}
	e.svc = &Service{
		Sessions:   e.sessions,
		Documents:  e.documents,
		Analyses:   e.analyses,
		Snapshots:  e.snaps,
		Fetcher:    e.fetcher,
		Summarizer: e.summ,
		Clock:      clockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)),
		ModelName:  "gpt-4o-mini",
	}
	e.fetcher.pages[rootURL] = rootHTML()
	e.fetcher.pages[termsURL] = legalHTML("Terms of Service")
	e.fetcher.pages[privacyURL] = legalHTML("Privacy Policy")
	return e
}

type mutableClock struct {
	mu sync.Mutex
	t  time.Time
}

func clockAt(t time.Time) *mutableClock { return &mutableClock{t: t} }

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *mutableClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func startAndWait(t *testing.T, e *env, url string, types []domain.DocumentType) domain.Session {
	t.Helper()
	res, err := e.svc.Start(context.Background(), StartCommand{UserID: "user-1", URL: url, DocumentTypes: types})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, res.Session.Status)
	require.Greater(t, res.EstimatedSeconds, 0)

	var final domain.Session
	require.Eventually(t, func() bool {
		s, ok := e.sessions.snapshot(res.Session.ID)
		if !ok || !s.Status.Terminal() {
			return false
		}
		final = s
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return final
}

func TestFullCrawlScenario(t *testing.T) {
	e := newEnv()
	sess := startAndWait(t, e, "https://example.com", []domain.DocumentType{
		domain.TypeTermsOfService, domain.TypePrivacyPolicy,
	})

	require.Equal(t, domain.StatusCompleted, sess.Status)
	require.Equal(t, 2, sess.DocumentCount)
	require.Equal(t, 2, sess.AnalyzedCount)
	require.InDelta(t, 1.0, sess.Progress(), 0.001)

	results, err := e.svc.Results(context.Background(), "user-1", sess.ID)
	require.NoError(t, err)
	require.Len(t, results.Documents, 2)
	for _, d := range results.Documents {
		require.NotNil(t, d.Analysis)
		require.InDelta(t, 7.5, d.Analysis.Measurements.RiskIndicatorScore, 0.001)
		require.NotEmpty(t, d.Analysis.SummarySentence)
		require.Equal(t, 1, d.Document.Version)
		require.NotEmpty(t, d.Document.SnapshotURL)
	}
}

func TestProgressInvariants(t *testing.T) {
	e := newEnv()
	// privacy page is unreachable; only terms succeeds
	e.fetcher.errs[privacyURL] = &fetchMiss{url: privacyURL}
	delete(e.fetcher.pages, privacyURL)

	sess := startAndWait(t, e, rootURL, []domain.DocumentType{
		domain.TypeTermsOfService, domain.TypePrivacyPolicy,
	})

	require.Equal(t, domain.StatusCompleted, sess.Status)
	require.LessOrEqual(t, sess.AnalyzedCount, sess.DocumentCount)
	require.GreaterOrEqual(t, sess.Progress(), 0.0)
	require.LessOrEqual(t, sess.Progress(), 1.0)
	require.Equal(t, 2, sess.DocumentCount)
	require.Equal(t, 1, sess.AnalyzedCount)
}

func TestNoDocumentLinksFailsSession(t *testing.T) {
	e := newEnv()
	e.fetcher.pages[rootURL] = `<html><body><a href="/blog">Blog</a></body></html>`

	sess := startAndWait(t, e, rootURL, nil)

	require.Equal(t, domain.StatusFailed, sess.Status)
	require.NotEmpty(t, sess.ErrorMessage)
	require.Zero(t, sess.DocumentCount)
	require.Empty(t, e.documents.byID)
}

func TestRootFetchFailureFailsSession(t *testing.T) {
	e := newEnv()
	e.fetcher.errs[rootURL] = &fetchMiss{url: rootURL}
	delete(e.fetcher.pages, rootURL)

	sess := startAndWait(t, e, rootURL, nil)
	require.Equal(t, domain.StatusFailed, sess.Status)
	require.NotEmpty(t, sess.ErrorMessage)
}

func TestSummarizerFailureStillCompletes(t *testing.T) {
	e := newEnv()
	e.summ.err = domai.ErrQuotaExceeded

	sess := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})

	require.Equal(t, domain.StatusCompleted, sess.Status)
	require.Equal(t, 1, sess.AnalyzedCount)

	results, err := e.svc.Results(context.Background(), "user-1", sess.ID)
	require.NoError(t, err)
	require.Len(t, results.Documents, 1)

	a := results.Documents[0].Analysis
	require.NotNil(t, a)
	require.Empty(t, a.SummarySentence)
	require.Empty(t, a.SummaryBrief)
	require.InDelta(t, 5.0, a.Measurements.RiskIndicatorScore, 0.001)
	require.Positive(t, a.Measurements.WordCount)
	require.Positive(t, a.Measurements.SentenceCount)
}

func TestMeasurementsMatchDocumentText(t *testing.T) {
	e := newEnv()
	sess := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	require.Equal(t, domain.StatusCompleted, sess.Status)

	results, err := e.svc.Results(context.Background(), "user-1", sess.ID)
	require.NoError(t, err)
	doc, err := e.documents.FindByURL(context.Background(), termsURL)
	require.NoError(t, err)

	a := results.Documents[0].Analysis
	require.Equal(t, len(textmining.Words(doc.Text)), a.Measurements.WordCount)
	require.Equal(t, doc.WordCount, a.Measurements.WordCount)
}

func TestCacheHitWithinWindowSkipsFetch(t *testing.T) {
	e := newEnv()
	first := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	require.Equal(t, domain.StatusCompleted, first.Status)
	require.Equal(t, 1, e.fetcher.count(termsURL))

	second := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	require.Equal(t, domain.StatusCompleted, second.Status)

	// the document page must not be re-fetched inside the 30-day window
	require.Equal(t, 1, e.fetcher.count(termsURL))
	require.Equal(t, 1, e.summ.calls)
}

func TestCacheIdempotence(t *testing.T) {
	e := newEnv()
	first := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	second := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})

	r1, err := e.svc.Results(context.Background(), "user-1", first.ID)
	require.NoError(t, err)
	r2, err := e.svc.Results(context.Background(), "user-1", second.ID)
	require.NoError(t, err)

	require.Equal(t, r1.Documents[0].Document.ID, r2.Documents[0].Document.ID)
	require.Equal(t, r1.Documents[0].Analysis.ID, r2.Documents[0].Analysis.ID)
	require.Equal(t, r1.Documents[0].Analysis.SummaryBrief, r2.Documents[0].Analysis.SummaryBrief)
}

func TestStaleCacheChangedContentBumpsVersion(t *testing.T) {
	e := newEnv()
	clock := e.svc.Clock.(*mutableClock)

	first := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	require.Equal(t, domain.StatusCompleted, first.Status)

	clock.advance(31 * 24 * time.Hour)
	e.fetcher.pages[termsURL] = legalHTML("Terms of Service, revised edition with new arbitration rules")

	second := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	require.Equal(t, domain.StatusCompleted, second.Status)
	require.Equal(t, 2, e.fetcher.count(termsURL))

	doc, err := e.documents.FindByURL(context.Background(), termsURL)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)
}

func TestStaleCacheUnchangedContentRefreshesOnly(t *testing.T) {
	e := newEnv()
	clock := e.svc.Clock.(*mutableClock)

	startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	before, err := e.documents.FindByURL(context.Background(), termsURL)
	require.NoError(t, err)

	clock.advance(31 * 24 * time.Hour)
	startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})

	after, err := e.documents.FindByURL(context.Background(), termsURL)
	require.NoError(t, err)
	require.Equal(t, before.ID, after.ID)
	require.Equal(t, before.Version, after.Version)
	require.True(t, after.LastCrawled.After(before.LastCrawled))
	require.Equal(t, 1, e.analyses.saves)
}

func TestStaleFetchFailureMarksDocumentStale(t *testing.T) {
	e := newEnv()
	clock := e.svc.Clock.(*mutableClock)

	startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})

	clock.advance(31 * 24 * time.Hour)
	e.fetcher.errs[termsURL] = &fetchMiss{url: termsURL}
	delete(e.fetcher.pages, termsURL)

	sess := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})
	require.Equal(t, domain.StatusCompleted, sess.Status)
	require.Equal(t, 0, sess.AnalyzedCount)

	doc, err := e.documents.FindByURL(context.Background(), termsURL)
	require.NoError(t, err)
	require.Equal(t, documents.CrawlStale, doc.CrawlStatus)
}

func TestConcurrentSameURLSharesOneFetch(t *testing.T) {
	e := newEnv()
	e.fetcher.delay = 50 * time.Millisecond

	cand := crawler.Candidate{URL: termsURL, Text: "Terms of Service", Confidence: 100}

	var wg sync.WaitGroup
	results := make([]*DocumentWithResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := e.svc.processDocument(context.Background(), domain.TypeTermsOfService, cand)
			require.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, e.fetcher.count(termsURL))
	require.Equal(t, results[0].Document.ID, results[1].Document.ID)
}

func TestDeleteSessionKeepsSharedDocuments(t *testing.T) {
	e := newEnv()
	sess := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})

	require.NoError(t, e.svc.Delete(context.Background(), "user-1", sess.ID))
	_, err := e.svc.Status(context.Background(), "user-1", sess.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.documents.FindByURL(context.Background(), termsURL)
	require.NoError(t, err)
}

func TestStatusUserIsolation(t *testing.T) {
	e := newEnv()
	sess := startAndWait(t, e, rootURL, []domain.DocumentType{domain.TypeTermsOfService})

	_, err := e.svc.Status(context.Background(), "someone-else", sess.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryFiltersAndPagination(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	seed := []domain.Session{
		{ID: "h1", UserID: "user-1", Status: domain.StatusCompleted,
			DocumentTypes: []domain.DocumentType{domain.TypeTermsOfService},
			CreatedAt:     base},
		{ID: "h2", UserID: "user-1", Status: domain.StatusFailed,
			DocumentTypes: []domain.DocumentType{domain.TypePrivacyPolicy},
			CreatedAt:     base.Add(time.Hour)},
		{ID: "h3", UserID: "user-1", Status: domain.StatusCompleted,
			DocumentTypes: []domain.DocumentType{domain.TypePrivacyPolicy, domain.TypeTermsOfService},
			CreatedAt:     base.Add(2 * time.Hour)},
		{ID: "h4", UserID: "user-2", Status: domain.StatusCompleted,
			DocumentTypes: []domain.DocumentType{domain.TypePrivacyPolicy},
			CreatedAt:     base.Add(3 * time.Hour)},
	}
	for i := range seed {
		require.NoError(t, e.sessions.Save(ctx, &seed[i]))
	}

	all, err := e.svc.History(ctx, "user-1", 1, 10, domain.HistoryFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), all.Total)
	require.Equal(t, domain.SessionID("h3"), all.Data[0].ID)

	completed, err := e.svc.History(ctx, "user-1", 1, 10, domain.HistoryFilter{Status: domain.StatusCompleted})
	require.NoError(t, err)
	require.Equal(t, int64(2), completed.Total)
	for _, s := range completed.Data {
		require.Equal(t, domain.StatusCompleted, s.Status)
	}

	privacy, err := e.svc.History(ctx, "user-1", 1, 10, domain.HistoryFilter{DocumentType: domain.TypePrivacyPolicy})
	require.NoError(t, err)
	require.Equal(t, int64(2), privacy.Total)
	for _, s := range privacy.Data {
		require.NotEqual(t, domain.SessionID("h1"), s.ID)
	}

	both, err := e.svc.History(ctx, "user-1", 1, 10, domain.HistoryFilter{
		Status:       domain.StatusCompleted,
		DocumentType: domain.TypePrivacyPolicy,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), both.Total)
	require.Equal(t, domain.SessionID("h3"), both.Data[0].ID)

	page2, err := e.svc.History(ctx, "user-1", 2, 2, domain.HistoryFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), page2.Total)
	require.Len(t, page2.Data, 1)
	require.Equal(t, domain.SessionID("h1"), page2.Data[0].ID)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	require.Equal(t, "short", truncate("short", 500))

	long := strings.Repeat("é", 300)
	cut := truncate(long, 499)
	require.LessOrEqual(t, len(cut), 499)
	require.True(t, utf8.ValidString(cut))

	mixed := "abé" // 4 bytes, cut lands mid-rune
	require.Equal(t, "ab", truncate(mixed, 3))
}
