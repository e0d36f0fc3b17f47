package documents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/policyscope/internal/application"
	"github.com/bryanwahyu/policyscope/internal/domain/crawl"
	domain "github.com/bryanwahyu/policyscope/internal/domain/documents"
)

type memDocuments struct {
	mu   sync.Mutex
	data map[domain.DocumentID]domain.Document
}

func (m *memDocuments) Save(_ context.Context, d *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[d.ID] = *d
	return nil
}

func (m *memDocuments) Get(_ context.Context, id domain.DocumentID) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := d
	return &out, nil
}

func (m *memDocuments) FindByURL(_ context.Context, url string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.data {
		if d.URL == url {
			out := d
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memDocuments) MarkStale(_ context.Context, _ string) error { return nil }

func (m *memDocuments) Search(_ context.Context, page, pageSize int, filter domain.SearchFilter) (domain.PaginatedDocuments, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Document
	for _, d := range m.data {
		if filter.DocumentType != "" && d.Type != filter.DocumentType {
			continue
		}
		c := d
		out = append(out, &c)
	}
	return domain.PaginatedDocuments{Data: out, Page: page, PageSize: pageSize, Total: int64(len(out))}, nil
}

func (m *memDocuments) Delete(_ context.Context, id domain.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memDocuments) LinkSession(_ context.Context, _ crawl.SessionID, _ domain.DocumentID) error {
	return nil
}

func (m *memDocuments) ListBySession(_ context.Context, _ crawl.SessionID) ([]*domain.Document, error) {
	return nil, nil
}

type memAnalyses struct {
	mu   sync.Mutex
	data map[domain.DocumentID]domain.Analysis
}

func (m *memAnalyses) Save(_ context.Context, a *domain.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[a.DocumentID] = *a
	return nil
}

func (m *memAnalyses) GetByDocument(_ context.Context, id domain.DocumentID) (*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := a
	return &out, nil
}

func (m *memAnalyses) FindByHash(_ context.Context, _, _ string) (*domain.Analysis, error) {
	return nil, domain.ErrNotFound
}

type memFavorites struct {
	mu   sync.Mutex
	data []domain.Favorite
}

func (m *memFavorites) Add(_ context.Context, f *domain.Favorite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.data {
		if ex.UserID == f.UserID && ex.DocumentID == f.DocumentID {
			return domain.ErrDuplicateFavorite
		}
	}
	m.data = append(m.data, *f)
	return nil
}

func (m *memFavorites) Remove(_ context.Context, user string, id domain.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ex := range m.data {
		if ex.UserID == user && ex.DocumentID == id {
			m.data = append(m.data[:i], m.data[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memFavorites) ListByUser(_ context.Context, user string) ([]*domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Favorite
	for _, ex := range m.data {
		if ex.UserID == user {
			c := ex
			out = append(out, &c)
		}
	}
	return out, nil
}

func newTestService() (*Service, *memDocuments, *memAnalyses) {
	docs := &memDocuments{data: make(map[domain.DocumentID]domain.Document)}
	analyses := &memAnalyses{data: make(map[domain.DocumentID]domain.Analysis)}
	svc := &Service{
		Documents: docs,
		Analyses:  analyses,
		Favorites: &memFavorites{},
		Clock:     application.FixedClock{T: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
	}
	return svc, docs, analyses
}

func seedDocument(t *testing.T, docs *memDocuments, id, url string) domain.Document {
	t.Helper()
	d := domain.Document{
		ID:      domain.DocumentID(id),
		URL:     url,
		Type:    "privacy_policy",
		Title:   "Privacy Policy",
		Version: 1,
	}
	require.NoError(t, docs.Save(context.Background(), &d))
	return d
}

func TestGetAnalysisRequiresDocument(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.GetAnalysis(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetAnalysis(t *testing.T) {
	svc, docs, analyses := newTestService()
	d := seedDocument(t, docs, "doc-1", "https://example.com/privacy")
	require.NoError(t, analyses.Save(context.Background(), &domain.Analysis{
		ID:         "an-1",
		DocumentID: d.ID,
	}))

	a, err := svc.GetAnalysis(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, "an-1", a.ID)
}

func TestFavoriteLifecycle(t *testing.T) {
	svc, docs, _ := newTestService()
	d := seedDocument(t, docs, "doc-1", "https://example.com/privacy")

	f, err := svc.Favorite(context.Background(), "user-1", d.ID)
	require.NoError(t, err)
	require.NotEmpty(t, f.ID)
	require.Equal(t, d.ID, f.DocumentID)

	list, err := svc.ListFavorites(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, d.ID, list[0].ID)

	require.NoError(t, svc.Unfavorite(context.Background(), "user-1", d.ID))

	list, err = svc.ListFavorites(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestFavoriteDuplicate(t *testing.T) {
	svc, docs, _ := newTestService()
	d := seedDocument(t, docs, "doc-1", "https://example.com/privacy")

	_, err := svc.Favorite(context.Background(), "user-1", d.ID)
	require.NoError(t, err)
	_, err = svc.Favorite(context.Background(), "user-1", d.ID)
	require.ErrorIs(t, err, domain.ErrDuplicateFavorite)
}

func TestFavoriteMissingDocument(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Favorite(context.Background(), "user-1", "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFavoritesSkipsDeletedDocuments(t *testing.T) {
	svc, docs, _ := newTestService()
	d1 := seedDocument(t, docs, "doc-1", "https://a.example/privacy")
	d2 := seedDocument(t, docs, "doc-2", "https://b.example/privacy")

	_, err := svc.Favorite(context.Background(), "user-1", d1.ID)
	require.NoError(t, err)
	_, err = svc.Favorite(context.Background(), "user-1", d2.ID)
	require.NoError(t, err)

	require.NoError(t, docs.Delete(context.Background(), d1.ID))

	list, err := svc.ListFavorites(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, d2.ID, list[0].ID)
}
