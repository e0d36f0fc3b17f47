package crawl

import "context"

// HistoryFilter narrows the paginated history query.
type HistoryFilter struct {
	Status       Status
	DocumentType DocumentType
}

// Repository port (interface for session persistence)
type Repository interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, user string, id SessionID) (*Session, error)
	Paginate(ctx context.Context, user string, page, pageSize int, filter HistoryFilter) (PaginatedSessions, error)
	Delete(ctx context.Context, user string, id SessionID) error
}
