package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/bryanwahyu/policyscope/internal/application"
	domain "github.com/bryanwahyu/policyscope/internal/domain/documents"
)

// Service implements the document and favorite use cases over the global
// document cache.
type Service struct {
	Documents domain.Repository
	Analyses  domain.AnalysisRepository
	Favorites domain.FavoriteRepository
	Clock     application.Clock
}

// Get returns one cached document by id.
func (s *Service) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	return s.Documents.Get(ctx, id)
}

// GetAnalysis returns the current analysis for a document.
func (s *Service) GetAnalysis(ctx context.Context, id domain.DocumentID) (*domain.Analysis, error) {
	if _, err := s.Documents.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Analyses.GetByDocument(ctx, id)
}

// Search pages through the global cache filtered by query, type, and domain.
func (s *Service) Search(ctx context.Context, page, pageSize int, filter domain.SearchFilter) (domain.PaginatedDocuments, error) {
	return s.Documents.Search(ctx, page, pageSize, filter)
}

// Favorite marks a document for a user.
func (s *Service) Favorite(ctx context.Context, user string, id domain.DocumentID) (*domain.Favorite, error) {
	if _, err := s.Documents.Get(ctx, id); err != nil {
		return nil, err
	}
	f := &domain.Favorite{
		ID:         uuid.New().String(),
		UserID:     user,
		DocumentID: id,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Favorites.Add(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Unfavorite removes a favorite.
func (s *Service) Unfavorite(ctx context.Context, user string, id domain.DocumentID) error {
	return s.Favorites.Remove(ctx, user, id)
}

// ListFavorites returns the user's favorited documents.
func (s *Service) ListFavorites(ctx context.Context, user string) ([]*domain.Document, error) {
	favs, err := s.Favorites.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Document, 0, len(favs))
	for _, f := range favs {
		d, derr := s.Documents.Get(ctx, f.DocumentID)
		if derr != nil {
			continue // document was deleted from the cache; skip the orphan
		}
		out = append(out, d)
	}
	return out, nil
}
