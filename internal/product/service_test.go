package product

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/affiliate"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

func seedProducts(n int) []Product {
	out := make([]Product, 0, n)
	for i := 1; i <= n; i++ {
		cat := "Hogar"
		if i%2 == 0 {
			cat = "Tecnología"
		}
		out = append(out, Product{ID: i, Name: fmt.Sprintf("Product %02d", i), Category: ptrString(cat)})
	}
	return out
}

func newTestService(repo Repository) *Service {
	rw := affiliate.NewRewriter(map[string]affiliate.Rule{
		"Amazon": {Enabled: true, Code: "priceflo-20"},
	}, zap.NewNop())
	return NewService(repo, rw, zap.NewNop(), Options{Concurrency: 3})
}

func TestListing_FetchesPricesForEveryProduct(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := NewInMemoryRepository(seedProducts(25))
	for id := 1; id <= 25; id++ {
		repo.SetPrices(id, price("Amazon", float64(1000*id), "https://amazon.com/"+fmt.Sprint(id), false))
	}
	repo.FailPrices(3, &upstream.Error{Kind: upstream.KindServer, Status: 500, Op: "prices", Err: errors.New("boom")})

	l, err := newTestService(repo).Listing(context.Background(), Query{Sort: SortPriceHigh})
	require.NoError(t, err)

	assert.Equal(t, 25, l.Total)
	assert.Equal(t, 2, l.TotalPages)
	require.Len(t, l.Cards, DefaultPageSize)
	assert.Equal(t, DefaultPageSize, repo.PriceCalls())
	assert.Equal(t, "Product 20", l.Cards[0].Name)

	last := l.Cards[len(l.Cards)-1]
	assert.Equal(t, 3, last.ID, "product whose prices failed sorts last")
	assert.False(t, last.HasPrices())
	assert.True(t, l.Cards[0].Prices[0].Affiliate)
}

func TestListing_CategoryAndPage(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(25))
	l, err := newTestService(repo).Listing(context.Background(), Query{Category: "Tecnología", Page: 2, PageSize: 5})
	require.NoError(t, err)

	assert.Equal(t, 12, l.Total)
	assert.Equal(t, 3, l.TotalPages)
	require.Len(t, l.Cards, 5)
	for _, c := range l.Cards {
		assert.Equal(t, "Tecnología", c.Category)
	}
}

func TestListing_ShortSearchSkipsBackend(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(3))
	l, err := newTestService(repo).Listing(context.Background(), Query{Search: " a "})
	require.NoError(t, err)

	assert.NotEmpty(t, l.Hint)
	assert.Empty(t, l.Cards)
	assert.Zero(t, repo.Searches())
	assert.Zero(t, repo.PriceCalls())
}

func TestListing_BlankSearchIsNormalListing(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(4))
	l, err := newTestService(repo).Listing(context.Background(), Query{Search: "   ", Category: "Hogar"})
	require.NoError(t, err)

	assert.False(t, l.Searching())
	assert.Len(t, l.Cards, 2)
	assert.Zero(t, repo.Searches())
}

func TestListing_SearchWithoutResultsIsReported(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(3))
	l, err := newTestService(repo).Listing(context.Background(), Query{Search: "playstation"})
	require.NoError(t, err)

	assert.True(t, l.NoResults)
	assert.Equal(t, []string{"playstation"}, repo.Reported())
}

func TestListing_SearchPaginatesLocally(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(30))
	l, err := newTestService(repo).Listing(context.Background(), Query{Search: "product", Page: 2, PageSize: 20})
	require.NoError(t, err)

	assert.Equal(t, 30, l.Total)
	assert.Equal(t, 2, l.TotalPages)
	assert.Len(t, l.Cards, 10)
	assert.Empty(t, repo.Reported())
}

func TestListing_BackendFailureIsReturned(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(3))
	repo.FailListing(&upstream.Error{Kind: upstream.KindTimeout, Op: "products", Err: context.DeadlineExceeded})

	_, err := newTestService(repo).Listing(context.Background(), Query{})
	require.Error(t, err)
	assert.Equal(t, upstream.KindTimeout, upstream.Classify(err))
}

func TestService_Suggest(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(12))
	s := newTestService(repo)

	got, err := s.Suggest(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, repo.Searches())

	got, err = s.Suggest(context.Background(), "product 0")
	require.NoError(t, err)
	assert.Len(t, got, suggestLimit)
	assert.Equal(t, "Product 01", got[0].Name)
}

func TestHistory_GroupsByStore(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	at := func(day int) upstream.Timestamp {
		ts, _ := upstream.ParseTimestamp(fmt.Sprintf("2024-05-%02dT10:00:00", day))
		return upstream.Timestamp{Time: ts}
	}
	repo.SetHistory(5,
		upstream.HistoryPoint{ProductID: 5, ProductName: "Drill", StoreName: "Homecenter", Price: 200, ScrapedAt: at(3)},
		upstream.HistoryPoint{ProductID: 5, ProductName: "Drill", StoreName: "Amazon", Price: 180, ScrapedAt: at(1)},
		upstream.HistoryPoint{ProductID: 5, ProductName: "Drill", StoreName: "Homecenter", Price: 150, ScrapedAt: at(1)},
	)

	h, err := newTestService(repo).History(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryDays, h.Days)
	assert.Equal(t, "Drill", h.ProductName)
	require.Len(t, h.Stores, 2)
	assert.Equal(t, "Amazon", h.Stores[0].Store)
	hc := h.Stores[1]
	assert.Equal(t, 150.0, hc.Min)
	assert.Equal(t, 200.0, hc.Max)
	assert.Equal(t, 200.0, hc.Last)

	h, err = newTestService(repo).History(context.Background(), 5, 5000)
	require.NoError(t, err)
	assert.Equal(t, MaxHistoryDays, h.Days)

	_, err = newTestService(repo).History(context.Background(), 99, 30)
	assert.True(t, upstream.IsNotFound(err))
}

func TestOutbound_RewritesAndTracks(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := NewInMemoryRepository(seedProducts(1))
	repo.SetPrices(1,
		price("Amazon", 99, "https://amazon.com/dp/1", false),
		price("Falabella", 120, "https://falabella.com/p/1", false),
		price("Alkosto", 90, "", false),
	)
	s := newTestService(repo)

	target, err := s.Outbound(context.Background(), 1, "amazon")
	require.NoError(t, err)
	assert.Equal(t, "https://amazon.com/dp/1?tag=priceflo-20", target)

	target, err = s.Outbound(context.Background(), 1, "Falabella")
	require.NoError(t, err)
	assert.Equal(t, "https://falabella.com/p/1", target)

	_, err = s.Outbound(context.Background(), 1, "Alkosto")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Outbound(context.Background(), 1, "Mercadolibre")
	assert.ErrorIs(t, err, ErrNotFound)

	s.Wait()
	clicks := repo.Clicks()
	require.Len(t, clicks, 2)
	urls := []string{clicks[0].URL, clicks[1].URL}
	assert.Contains(t, urls, "https://amazon.com/dp/1?tag=priceflo-20")
}

func TestOutbound_ClickSurvivesCancelledRequest(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts(1))
	repo.SetPrices(1, price("Amazon", 99, "https://amazon.com/dp/1", false))
	s := newTestService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.Outbound(ctx, 1, "Amazon")
	require.NoError(t, err)
	cancel()

	s.Wait()
	assert.Len(t, repo.Clicks(), 1)
}
