package documents

import (
	"context"

	"github.com/bryanwahyu/policyscope/internal/domain/crawl"
)

// SearchFilter narrows document search.
type SearchFilter struct {
	Query        string
	DocumentType crawl.DocumentType
	Domain       string
}

// Repository port (interface for the global document cache)
type Repository interface {
	Save(ctx context.Context, d *Document) error
	Get(ctx context.Context, id DocumentID) (*Document, error)
	FindByURL(ctx context.Context, url string) (*Document, error)
	MarkStale(ctx context.Context, url string) error
	Search(ctx context.Context, page, pageSize int, filter SearchFilter) (PaginatedDocuments, error)
	Delete(ctx context.Context, id DocumentID) error

	// LinkSession records the many-to-many between sessions and cached documents.
	LinkSession(ctx context.Context, session crawl.SessionID, id DocumentID) error
	ListBySession(ctx context.Context, session crawl.SessionID) ([]*Document, error)
}

// AnalysisRepository port
type AnalysisRepository interface {
	Save(ctx context.Context, a *Analysis) error
	GetByDocument(ctx context.Context, id DocumentID) (*Analysis, error)
	// FindByHash locates a cached analysis matching a document URL and the
	// exact text version it was computed from.
	FindByHash(ctx context.Context, url, textHash string) (*Analysis, error)
}

// FavoriteRepository port
type FavoriteRepository interface {
	Add(ctx context.Context, f *Favorite) error
	Remove(ctx context.Context, user string, id DocumentID) error
	ListByUser(ctx context.Context, user string) ([]*Favorite, error)
}

// SnapshotStore port (archival of the raw HTML behind each document version)
type SnapshotStore interface {
	Upload(ctx context.Context, key string, html []byte) (string, error)
}
