package product

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/category"
	"github.com/wichananm65/priceflo-storefront/internal/search"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
	"github.com/wichananm65/priceflo-storefront/internal/views"
)

// SessionCookie keys the autocomplete debounce per visitor.
const SessionCookie = "pf_session"

type Handler struct {
	service    *Service
	categories *category.Service
	chrome     *views.Chrome
	debouncer  *search.Debouncer
	logger     *zap.Logger
}

func NewHandler(service *Service, categories *category.Service, chrome *views.Chrome, debouncer *search.Debouncer, logger *zap.Logger) *Handler {
	return &Handler{
		service:    service,
		categories: categories,
		chrome:     chrome,
		debouncer:  debouncer,
		logger:     logger,
	}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/", h.index)
	app.Get("/products/:id<int>/history", h.history)
	app.Get("/go/:id<int>", h.outbound)
	app.Get("/suggest", h.suggest)
	app.Get("/api/products", h.apiProducts)
}

func queryFrom(c *fiber.Ctx) Query {
	return Query{
		Category: c.Query("category"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", DefaultPageSize),
		Sort:     ParseSort(c.Query("sort")),
		Search:   c.Query("q"),
	}
}

func (h *Handler) index(c *fiber.Ctx) error {
	ctx := c.UserContext()
	session(c)
	layout := h.chrome.Layout(c, "PricefloCompare")
	listing, err := h.service.Listing(ctx, queryFrom(c))

	data := fiber.Map{
		"Layout":     layout,
		"Listing":    listing,
		"Categories": h.categories.List(ctx),
		"Sorts":      SortOptions,
	}
	if err != nil {
		notice := upstream.NoticeFor(err)
		h.logger.Warn("product: listing failed", zap.String("kind", string(notice.Kind)), zap.Error(err))
		data["Notice"] = notice
		c.Status(upstream.HTTPStatus(notice.Kind))
		return c.Render("index", data, views.MainLayout)
	}

	if listing.Searching() && listing.Hint == "" {
		layout.Analytics.Search(listing.Query.Search, listing.Total)
	}
	for _, card := range listing.Cards {
		if len(card.Prices) > 1 {
			layout.Analytics.PriceComparison(card.Name, len(card.Prices), card.BestPrice())
		}
	}
	return c.Render("index", data, views.MainLayout)
}

func (h *Handler) history(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}
	hist, err := h.service.History(c.UserContext(), id, c.QueryInt("days", DefaultHistoryDays))
	if err != nil {
		return err
	}

	session(c)
	title := hist.ProductName
	if title == "" {
		title = "Price history"
	}
	layout := h.chrome.Layout(c, title)
	// The backend has no single-product endpoint; the card link carries
	// the category along.
	layout.Analytics.ProductView(hist.ProductName, c.Query("category"))
	return c.Render("history", fiber.Map{
		"Layout":  layout,
		"History": hist,
	}, views.MainLayout)
}

func (h *Handler) outbound(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}
	store := strings.TrimSpace(c.Query("store"))
	if store == "" {
		return fiber.NewError(fiber.StatusBadRequest, "store is required")
	}

	target, err := h.service.Outbound(c.UserContext(), id, store)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "store link not found")
	}
	if err != nil {
		return err
	}
	return c.Redirect(target, fiber.StatusFound)
}

// session returns the visitor's session id and issues one when the request
// carries none. The layout's search box debounces on it, so every page that
// renders the box calls this.
func session(c *fiber.Ctx) (id string, issued bool) {
	id = c.Cookies(SessionCookie)
	if _, err := uuid.Parse(id); err == nil {
		return id, false
	}
	id = uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return id, true
}

// debounceKey keys autocomplete calls per visitor. Calls made before the
// session cookie reached the browser share a key built from the client
// address and user agent.
func debounceKey(c *fiber.Ctx) string {
	id, issued := session(c)
	if !issued {
		return id
	}
	return "anon:" + c.IP() + "|" + c.Get(fiber.HeaderUserAgent)
}

// suggest answers autocomplete requests. A request superseded by a newer
// one from the same session gets 204 and never reaches the backend.
func (h *Handler) suggest(c *fiber.Ctx) error {
	q := search.Normalize(c.Query("q"))
	if !search.Ready(q) {
		return c.JSON([]Suggestion{})
	}

	latest, err := h.debouncer.Wait(c.UserContext(), debounceKey(c))
	if err != nil {
		return err
	}
	if !latest {
		return c.SendStatus(fiber.StatusNoContent)
	}

	items, err := h.service.Suggest(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *Handler) apiProducts(c *fiber.Ctx) error {
	listing, err := h.service.Listing(c.UserContext(), queryFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"items":       listing.Cards,
		"total":       listing.Total,
		"page":        listing.Query.Page,
		"page_size":   listing.Query.PageSize,
		"total_pages": listing.TotalPages,
		"hint":        listing.Hint,
	})
}
