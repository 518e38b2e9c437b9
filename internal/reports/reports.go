// Package reports is the admin view of searches that returned no products.
package reports

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

// PageLimit is how many entries the viewer loads.
const PageLimit = 50

var ErrNotFound = errors.New("report entry not found")

type Entry = upstream.NotFoundSearchEntry

// Source is the backend side of the report; *upstream.Client implements it.
type Source interface {
	NotFoundReport(ctx context.Context, limit int, includeIgnored bool) ([]Entry, error)
	SetIgnored(ctx context.Context, id int, ignored bool) error
	DeleteNotFound(ctx context.Context, id int) error
}

// Summary is the header of the report.
type Summary struct {
	UniqueTerms   int `json:"unique_terms"`
	TotalSearches int `json:"total_searches"`
	Active        int `json:"active"`
	Ignored       int `json:"ignored"`
}

func Summarize(entries []Entry) Summary {
	s := Summary{UniqueTerms: len(entries)}
	for _, e := range entries {
		s.TotalSearches += e.SearchCount
		if e.Ignored {
			s.Ignored++
		} else {
			s.Active++
		}
	}
	return s
}

type Service struct {
	src    Source
	logger *zap.Logger
}

func NewService(src Source, logger *zap.Logger) *Service {
	return &Service{src: src, logger: logger}
}

// Load returns the most searched missing terms, ignored ones included.
func (s *Service) Load(ctx context.Context) ([]Entry, error) {
	return s.src.NotFoundReport(ctx, PageLimit, true)
}

func (s *Service) SetIgnored(ctx context.Context, id int, ignored bool) error {
	if err := s.src.SetIgnored(ctx, id, ignored); err != nil {
		if upstream.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("reports: entry updated", zap.Int("id", id), zap.Bool("ignored", ignored))
	return nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.src.DeleteNotFound(ctx, id); err != nil {
		if upstream.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("reports: entry deleted", zap.Int("id", id))
	return nil
}
