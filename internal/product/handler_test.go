package product

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/ads"
	"github.com/wichananm65/priceflo-storefront/internal/analytics"
	"github.com/wichananm65/priceflo-storefront/internal/category"
	"github.com/wichananm65/priceflo-storefront/internal/search"
	"github.com/wichananm65/priceflo-storefront/internal/stats"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
	"github.com/wichananm65/priceflo-storefront/internal/views"
)

type statsStub struct{}

func (statsStub) Stats(context.Context) (upstream.Stats, error) {
	return upstream.Stats{TotalProducts: 3, TotalStores: 2, TotalSnapshots: 6}, nil
}

func newTestApp(t *testing.T, repo *InMemoryRepository) (*fiber.App, *Service) {
	t.Helper()
	return newTestAppWithDebounce(t, repo, time.Millisecond)
}

func newTestAppWithDebounce(t *testing.T, repo *InMemoryRepository, wait time.Duration) (*fiber.App, *Service) {
	t.Helper()
	engine, err := views.NewEngine(views.NewFormatter("es-CO"))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	app := fiber.New(fiber.Config{Views: engine, ErrorHandler: views.ErrorHandler(zap.NewNop())})

	cache := stats.NewCache(statsStub{}, zap.NewNop())
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("stats: %v", err)
	}
	chrome := views.NewChrome(cache,
		ads.NewService(ads.Config{}, zap.NewNop()),
		analytics.NewService(analytics.Config{
			Enabled:       true,
			MeasurementID: "G-TEST123",
			TrackEvents:   analytics.TrackEvents{Search: true, StoreClick: true, PriceCompare: true, ProductView: true},
		}, zap.NewNop()))

	cats := category.NewInMemoryRepository()
	cats.Add("Hogar", 2)
	cats.Add("Tecnología", 1)

	service := newTestService(repo)
	h := NewHandler(service, category.NewService(cats, zap.NewNop()), chrome, search.NewDebouncer(wait), zap.NewNop())
	h.RegisterPublicRoutes(app)
	t.Cleanup(service.Wait)
	return app, service
}

func storefrontRepo() *InMemoryRepository {
	repo := NewInMemoryRepository([]Product{
		{ID: 1, Name: "Air Fryer", Category: ptrString("Hogar")},
		{ID: 2, Name: "Smart TV", Category: ptrString("Tecnología")},
		{ID: 3, Name: "Blender", Category: ptrString("Hogar")},
	})
	repo.SetPrices(1, price("Amazon", 300000, "https://amazon.com/af", false), price("Éxito", 400000, "https://exito.com/af", true))
	repo.SetPrices(2, price("Falabella", 1500000, "https://falabella.com/tv", false))
	return repo
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestProductHandler_RegistersStorefrontRoutes(t *testing.T) {
	app, _ := newTestApp(t, NewInMemoryRepository(nil))

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Method+" "+r.Path] = true
		}
	}
	for _, want := range []string{
		"GET /",
		"GET /products/:id<int>/history",
		"GET /go/:id<int>",
		"GET /suggest",
		"GET /api/products",
	} {
		if !routes[want] {
			t.Fatalf("expected route %q to be registered", want)
		}
	}
}

func TestIndex_RendersCards(t *testing.T) {
	app, _ := newTestApp(t, storefrontRepo())

	res, err := app.Test(httptest.NewRequest("GET", "/?sort=price-low", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	body := readBody(t, res)
	for _, want := range []string{
		"Air Fryer", "Smart TV", "Blender",
		"Tecnología (1)",
		`href="/go/1?store=Amazon"`,
		"Save 25%",
		"No prices available yet.",
		"googletagmanager.com/gtag/js?id=G-TEST123",
		"price_comparison",
		"store_click",
		`href="/products/1/history?category=Hogar"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("page is missing %q", want)
		}
	}
	if strings.Index(body, "Air Fryer") > strings.Index(body, "Blender") {
		t.Fatalf("product without prices should be listed last")
	}
	if sessionCookie(res) == nil {
		t.Fatalf("expected the storefront page to issue a session cookie")
	}
}

func sessionCookie(res *http.Response) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == SessionCookie && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestSuggest_BurstWithoutCookieHitsBackendOnce(t *testing.T) {
	repo := storefrontRepo()
	app, _ := newTestAppWithDebounce(t, repo, 300*time.Millisecond)

	terms := []string{"fr", "fry", "fryer"}
	statuses := make([]int, len(terms))
	var wg sync.WaitGroup
	for i, q := range terms {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			req := httptest.NewRequest("GET", "/suggest?q="+q, nil)
			req.Header.Set("User-Agent", "test-browser")
			res, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("request %q failed: %v", q, err)
				return
			}
			statuses[i] = res.StatusCode
		}(i, q)
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()

	want := []int{fiber.StatusNoContent, fiber.StatusNoContent, fiber.StatusOK}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, statuses)
		}
	}
	if n := repo.Searches(); n != 1 {
		t.Fatalf("expected one backend search for the burst, got %d", n)
	}
}

func TestIndex_ErrorPanelOnBackendFailure(t *testing.T) {
	repo := storefrontRepo()
	repo.FailListing(&upstream.Error{Kind: upstream.KindOffline, Op: "products", Err: errors.New("connection refused")})
	app, _ := newTestApp(t, repo)

	res, err := app.Test(httptest.NewRequest("GET", "/?category=Hogar", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502 got %d", res.StatusCode)
	}
	body := readBody(t, res)
	if !strings.Contains(body, "No connection") || !strings.Contains(body, `href="/?category=Hogar"`) {
		t.Fatalf("expected offline notice with retry link, got %s", body)
	}
}

func TestIndex_SearchWithoutResults(t *testing.T) {
	repo := storefrontRepo()
	app, _ := newTestApp(t, repo)

	res, err := app.Test(httptest.NewRequest("GET", "/?q=nintendo", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	if body := readBody(t, res); !strings.Contains(body, "No products match") {
		t.Fatalf("expected empty search message")
	}
	if got := repo.Reported(); len(got) != 1 || got[0] != "nintendo" {
		t.Fatalf("expected search to be reported, got %v", got)
	}
}

func TestOutboundRedirect(t *testing.T) {
	repo := storefrontRepo()
	app, service := newTestApp(t, repo)

	res, err := app.Test(httptest.NewRequest("GET", "/go/1?store=Amazon", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302 got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "https://amazon.com/af?tag=priceflo-20" {
		t.Fatalf("unexpected redirect target %q", loc)
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/go/1?store=Nowhere", nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown store, got %d", res.StatusCode)
	}
	res, _ = app.Test(httptest.NewRequest("GET", "/go/1", nil))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without store, got %d", res.StatusCode)
	}

	service.Wait()
	if clicks := repo.Clicks(); len(clicks) != 1 || clicks[0].StoreName != "Amazon" {
		t.Fatalf("expected one tracked click, got %+v", clicks)
	}
}

func TestSuggest(t *testing.T) {
	app, _ := newTestApp(t, storefrontRepo())

	res, err := app.Test(httptest.NewRequest("GET", "/suggest?q=a", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if body := strings.TrimSpace(readBody(t, res)); body != "[]" {
		t.Fatalf("expected empty list for short query, got %s", body)
	}

	res, err = app.Test(httptest.NewRequest("GET", "/suggest?q=fryer", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	var items []Suggestion
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("unexpected suggestions %+v", items)
	}
	if sessionCookie(res) == nil {
		t.Fatalf("expected a session cookie")
	}
}

func TestAPIProducts(t *testing.T) {
	app, _ := newTestApp(t, storefrontRepo())

	res, err := app.Test(httptest.NewRequest("GET", "/api/products?category=Hogar", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var body struct {
		Items []Card `json:"items"`
		Total int    `json:"total"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || len(body.Items) != 2 || body.Items[0].Name != "Air Fryer" {
		t.Fatalf("unexpected listing %+v", body)
	}
	if body.Items[0].SavingsPercent != 25 {
		t.Fatalf("expected 25%% savings, got %d", body.Items[0].SavingsPercent)
	}
}

func TestAPIProducts_BackendFailure(t *testing.T) {
	repo := storefrontRepo()
	repo.FailListing(&upstream.Error{Kind: upstream.KindTimeout, Op: "products", Err: context.DeadlineExceeded})
	app, _ := newTestApp(t, repo)

	res, err := app.Test(httptest.NewRequest("GET", "/api/products", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusGatewayTimeout {
		t.Fatalf("expected 504 got %d", res.StatusCode)
	}
	if body := readBody(t, res); !strings.Contains(body, `"kind":"timeout"`) {
		t.Fatalf("expected timeout kind, got %s", body)
	}
}

func TestHistoryPage(t *testing.T) {
	repo := storefrontRepo()
	ts, _ := upstream.ParseTimestamp("2024-05-01T10:00:00")
	repo.SetHistory(1, upstream.HistoryPoint{ProductID: 1, ProductName: "Air Fryer", StoreName: "Amazon", Price: 300000, ScrapedAt: upstream.Timestamp{Time: ts}})
	app, _ := newTestApp(t, repo)

	res, err := app.Test(httptest.NewRequest("GET", "/products/1/history?days=7&category=Hogar", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	body := readBody(t, res)
	if !strings.Contains(body, "Air Fryer") || !strings.Contains(body, "Last 7 days") {
		t.Fatalf("unexpected history page: %s", body)
	}
	if !strings.Contains(body, "view_item") || !strings.Contains(body, `"item_category":"Hogar"`) {
		t.Fatalf("expected a view_item event with the category, got %s", body)
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/products/42/history", nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", res.StatusCode)
	}
}
