package product

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wichananm65/priceflo-storefront/internal/search"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

// LinkRewriter tags outbound store links; *affiliate.Rewriter implements it.
type LinkRewriter interface {
	Rewrite(store, link string) string
	Enabled(store string) bool
}

type Options struct {
	// Concurrency bounds the per-product price requests of one page.
	Concurrency int
	// StaleAfterHours is passed to the backend as max_age_hours.
	StaleAfterHours int
	// ClickTimeout bounds the detached click tracking request.
	ClickTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.StaleAfterHours <= 0 {
		o.StaleAfterHours = 6
	}
	if o.ClickTimeout <= 0 {
		o.ClickTimeout = 5 * time.Second
	}
	return o
}

type Service struct {
	repo   Repository
	links  LinkRewriter
	logger *zap.Logger
	opts   Options

	background sync.WaitGroup
}

func NewService(repo Repository, links LinkRewriter, logger *zap.Logger, opts Options) *Service {
	return &Service{repo: repo, links: links, logger: logger, opts: opts.withDefaults()}
}

// Listing loads one page of the storefront. A search replaces the category
// listing and is paginated locally.
func (s *Service) Listing(ctx context.Context, q Query) (Listing, error) {
	q = q.normalized()
	out := Listing{Query: q, Cards: []Card{}}

	var products []Product
	if q.Search != "" {
		if !search.Ready(q.Search) {
			out.Hint = fmt.Sprintf("Type at least %d characters to search.", search.MinQueryLength)
			return out, nil
		}
		found, err := s.repo.Search(ctx, q.Search, searchLimit)
		if err != nil {
			return out, err
		}
		if len(found) == 0 {
			out.NoResults = true
			s.reportNotFound(ctx, q.Search)
			return out, nil
		}
		out.Total = len(found)
		out.TotalPages = totalPages(len(found), q.PageSize)
		products = paginate(found, q.Page, q.PageSize)
	} else {
		page, err := s.repo.Products(ctx, upstream.ProductQuery{Category: q.Category, Page: q.Page, PageSize: q.PageSize})
		if err != nil {
			return out, err
		}
		out.Total = page.Total
		out.TotalPages = page.TotalPages
		if out.TotalPages == 0 {
			out.TotalPages = totalPages(page.Total, q.PageSize)
		}
		products = page.Items
	}

	out.Cards = s.cards(ctx, products)
	sortCards(out.Cards, q.Sort)
	return out, nil
}

// cards fetches the prices of every product concurrently. A product whose
// prices fail to load gets an empty price list.
func (s *Service) cards(ctx context.Context, products []Product) []Card {
	cards := make([]Card, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, p := range products {
		g.Go(func() error {
			prices, err := s.repo.Prices(gctx, p.ID, s.opts.StaleAfterHours)
			if err != nil {
				s.logger.Debug("product: prices unavailable", zap.Int("product_id", p.ID), zap.Error(err))
				prices = nil
			}
			cards[i] = BuildCard(p, prices, s.links.Enabled)
			return nil
		})
	}
	_ = g.Wait()
	return cards
}

func (s *Service) reportNotFound(ctx context.Context, term string) {
	if err := s.repo.ReportNotFound(ctx, term); err != nil {
		s.logger.Warn("product: could not report empty search", zap.String("term", term), zap.Error(err))
	}
}

// Suggest returns autocomplete entries for q. Short queries return nothing
// without calling the backend.
func (s *Service) Suggest(ctx context.Context, q string) ([]Suggestion, error) {
	q = search.Normalize(q)
	if !search.Ready(q) {
		return []Suggestion{}, nil
	}
	found, err := s.repo.Search(ctx, q, suggestLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(found))
	for _, p := range found {
		out = append(out, Suggestion{ID: p.ID, Name: p.Name, Category: p.CategoryName()})
	}
	return out, nil
}

// History returns the price history of a product grouped by store. days
// defaults to 30 and is clamped to [1, 365].
func (s *Service) History(ctx context.Context, productID int, days int) (History, error) {
	switch {
	case days <= 0:
		days = DefaultHistoryDays
	case days > MaxHistoryDays:
		days = MaxHistoryDays
	}
	points, err := s.repo.History(ctx, productID, days)
	if err != nil {
		return History{}, err
	}
	h := History{ProductID: productID, Days: days}
	for _, p := range points {
		if p.ProductName != "" {
			h.ProductName = p.ProductName
			break
		}
	}
	h.Stores = groupHistory(points)
	return h, nil
}

// Outbound resolves the store link of a product, applies the affiliate
// rewrite and records the click. The click is tracked in the background so
// the redirect never waits on it.
func (s *Service) Outbound(ctx context.Context, productID int, store string) (string, error) {
	prices, err := s.repo.Prices(ctx, productID, s.opts.StaleAfterHours)
	if err != nil {
		return "", err
	}
	for _, p := range prices {
		if !strings.EqualFold(p.StoreName, store) || p.Link() == "" {
			continue
		}
		target := s.links.Rewrite(p.StoreName, p.Link())
		s.trackClick(ctx, upstream.Click{
			ProductID:   productID,
			ProductName: p.Title,
			StoreName:   p.StoreName,
			Price:       p.Price,
			URL:         target,
		})
		return target, nil
	}
	return "", ErrNotFound
}

func (s *Service) trackClick(parent context.Context, click upstream.Click) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.opts.ClickTimeout)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		if err := s.repo.TrackClick(ctx, click); err != nil {
			s.logger.Warn("product: click tracking failed",
				zap.Int("product_id", click.ProductID),
				zap.String("store", click.StoreName),
				zap.Error(err))
		}
	}()
}

// Wait blocks until background click tracking has finished.
func (s *Service) Wait() {
	s.background.Wait()
}
