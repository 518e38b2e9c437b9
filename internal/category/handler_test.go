package category

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func newTestApp(repo Repository) *fiber.App {
	app := fiber.New()
	NewHandler(NewService(repo, zap.NewNop())).RegisterPublicRoutes(app)
	return app
}

func TestGetCategories(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Add("Tecnología", 12)
	repo.Add("Hogar", 4)

	resp, err := newTestApp(repo).Test(httptest.NewRequest("GET", "/api/categories", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].Category != "Hogar" || items[1].Count != 12 {
		t.Fatalf("unexpected categories: %+v", items)
	}
}

func TestGetCategories_FailureIsEmptyList(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Fail(errors.New("backend down"))

	resp, err := newTestApp(repo).Test(httptest.NewRequest("GET", "/api/categories", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty list, got %#v", items)
	}
}
