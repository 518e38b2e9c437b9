package stats

import "github.com/gofiber/fiber/v2"

type Handler struct {
	cache *Cache
}

func NewHandler(c *Cache) *Handler {
	return &Handler{cache: c}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/stats", h.getStats)
}

func (h *Handler) getStats(c *fiber.Ctx) error {
	return c.JSON(h.cache.Current())
}
