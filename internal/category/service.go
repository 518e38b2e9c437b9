package category

import (
	"context"

	"go.uber.org/zap"
)

// Service provides business logic for categories.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(r Repository, logger *zap.Logger) *Service {
	return &Service{repo: r, logger: logger}
}

// List returns the categories with their product counts. The filter bar is
// optional, so a failure degrades to an empty list.
func (s *Service) List(ctx context.Context) []Item {
	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn("category: list failed", zap.Error(err))
		return []Item{}
	}
	if items == nil {
		return []Item{}
	}
	return items
}
