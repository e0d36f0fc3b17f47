package crawl

import (
	"context"
	"sort"
	"sync"
	"time"

	domai "github.com/bryanwahyu/policyscope/internal/domain/ai"
	domain "github.com/bryanwahyu/policyscope/internal/domain/crawl"
	"github.com/bryanwahyu/policyscope/internal/domain/documents"
)

type fakeSessions struct {
	mu   sync.Mutex
	data map[domain.SessionID]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: make(map[domain.SessionID]domain.Session)}
}

func (f *fakeSessions) Save(_ context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[s.ID] = *s
	return nil
}

func (f *fakeSessions) Get(_ context.Context, user string, id domain.SessionID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.data[id]
	if !ok || s.UserID != user {
		return nil, domain.ErrNotFound
	}
	out := s
	return &out, nil
}

func (f *fakeSessions) Paginate(_ context.Context, user string, page, pageSize int, filter domain.HistoryFilter) (domain.PaginatedSessions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Session
	for _, s := range f.data {
		if s.UserID != user {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.DocumentType != "" && !hasType(s.DocumentTypes, filter.DocumentType) {
			continue
		}
		c := s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	lo := (page - 1) * pageSize
	if lo > len(out) {
		lo = len(out)
	}
	hi := lo + pageSize
	if hi > len(out) {
		hi = len(out)
	}
	return domain.PaginatedSessions{Data: out[lo:hi], Page: page, PageSize: pageSize, Total: total}, nil
}

func hasType(types []domain.DocumentType, want domain.DocumentType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (f *fakeSessions) Delete(_ context.Context, user string, id domain.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.data[id]
	if !ok || s.UserID != user {
		return domain.ErrNotFound
	}
	delete(f.data, id)
	return nil
}

func (f *fakeSessions) snapshot(id domain.SessionID) (domain.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.data[id]
	return s, ok
}

type fakeDocuments struct {
	mu     sync.Mutex
	byURL  map[string]documents.Document
	byID   map[documents.DocumentID]documents.Document
	links  map[domain.SessionID][]documents.DocumentID
	staled []string
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{
		byURL: make(map[string]documents.Document),
		byID:  make(map[documents.DocumentID]documents.Document),
		links: make(map[domain.SessionID][]documents.DocumentID),
	}
}

func (f *fakeDocuments) Save(_ context.Context, d *documents.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byURL[d.URL] = *d
	f.byID[d.ID] = *d
	return nil
}

func (f *fakeDocuments) Get(_ context.Context, id documents.DocumentID) (*documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	out := d
	return &out, nil
}

func (f *fakeDocuments) FindByURL(_ context.Context, url string) (*documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byURL[url]
	if !ok {
		return nil, documents.ErrNotFound
	}
	out := d
	return &out, nil
}

func (f *fakeDocuments) MarkStale(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.byURL[url]; ok {
		d.CrawlStatus = documents.CrawlStale
		f.byURL[url] = d
		f.byID[d.ID] = d
	}
	f.staled = append(f.staled, url)
	return nil
}

func (f *fakeDocuments) Search(_ context.Context, page, pageSize int, _ documents.SearchFilter) (documents.PaginatedDocuments, error) {
	return documents.PaginatedDocuments{Page: page, PageSize: pageSize}, nil
}

func (f *fakeDocuments) Delete(_ context.Context, id documents.DocumentID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return documents.ErrNotFound
	}
	delete(f.byID, id)
	delete(f.byURL, d.URL)
	return nil
}

func (f *fakeDocuments) LinkSession(_ context.Context, sess domain.SessionID, id documents.DocumentID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[sess] = append(f.links[sess], id)
	return nil
}

func (f *fakeDocuments) ListBySession(_ context.Context, sess domain.SessionID) ([]*documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*documents.Document
	for _, id := range f.links[sess] {
		if d, ok := f.byID[id]; ok {
			c := d
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeAnalyses struct {
	mu     sync.Mutex
	byDoc  map[documents.DocumentID]documents.Analysis
	byHash map[string]documents.Analysis
	saves  int
}

func newFakeAnalyses() *fakeAnalyses {
	return &fakeAnalyses{
		byDoc:  make(map[documents.DocumentID]documents.Analysis),
		byHash: make(map[string]documents.Analysis),
	}
}

func (f *fakeAnalyses) Save(_ context.Context, a *documents.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byDoc[a.DocumentID] = *a
	f.byHash[a.DocumentURL+"|"+a.TextHash] = *a
	f.saves++
	return nil
}

func (f *fakeAnalyses) GetByDocument(_ context.Context, id documents.DocumentID) (*documents.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byDoc[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	out := a
	return &out, nil
}

func (f *fakeAnalyses) FindByHash(_ context.Context, url, hash string) (*documents.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byHash[url+"|"+hash]
	if !ok {
		return nil, documents.ErrNotFound
	}
	out := a
	return &out, nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	counts map[string]int
	delay  time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:  make(map[string]string),
		errs:   make(map[string]error),
		counts: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.counts[url]++
	delay := f.delay
	page, ok := f.pages[url]
	err := f.errs[url]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &fetchMiss{url: url}
	}
	return page, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[url]
}

type fetchMiss struct{ url string }

func (e *fetchMiss) Error() string { return "no page registered for " + e.url }

type fakeSummarizer struct {
	mu      sync.Mutex
	summary domai.Summary
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ domai.SummaryRequest) (domai.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domai.Summary{}, f.err
	}
	return f.summary, nil
}

type fakeSnapshots struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeSnapshots) Upload(_ context.Context, key string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "http://snapshots.local/" + key, nil
}
