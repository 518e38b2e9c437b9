package reports

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/admin"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
	"github.com/wichananm65/priceflo-storefront/internal/views"
)

var flashes = map[string]string{
	"ignored":     "The search was ignored.",
	"reactivated": "The search was reactivated.",
	"deleted":     "The search was deleted.",
}

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterProtectedRoutes mounts the viewer behind guard.
func (h *Handler) RegisterProtectedRoutes(app *fiber.App, guard fiber.Handler) {
	r := app.Group("/reports", guard)
	r.Get("/", h.page)
	r.Get("/api", h.api)
	r.Post("/:id<int>/ignore", h.setIgnored(true))
	r.Post("/:id<int>/reactivate", h.setIgnored(false))
	r.Post("/:id<int>/delete", h.delete)
}

func (h *Handler) page(c *fiber.Ctx) error {
	data := fiber.Map{
		"Title":    "Searches without results",
		"SignedIn": true,
		"User":     admin.Subject(c),
		"Flash":    flashes[c.Query("done")],
	}
	entries, err := h.service.Load(c.UserContext())
	if err != nil {
		notice := upstream.NoticeFor(err)
		h.logger.Warn("reports: load failed", zap.Error(err))
		data["Notice"] = notice
		c.Status(upstream.HTTPStatus(notice.Kind))
		return c.Render("reports", data, admin.Layout)
	}
	data["Entries"] = entries
	data["Summary"] = Summarize(entries)
	return c.Render("reports", data, admin.Layout)
}

func (h *Handler) api(c *fiber.Ctx) error {
	entries, err := h.service.Load(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"entries": entries,
		"summary": Summarize(entries),
	})
}

func (h *Handler) setIgnored(ignored bool) fiber.Handler {
	done := "reactivated"
	if ignored {
		done = "ignored"
	}
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid id")
		}
		if err := h.service.SetIgnored(c.UserContext(), id, ignored); err != nil {
			return h.fail(err)
		}
		return h.done(c, done)
	}
}

func (h *Handler) delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.fail(err)
	}
	return h.done(c, "deleted")
}

func (h *Handler) fail(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	}
	return err
}

func (h *Handler) done(c *fiber.Ctx, what string) error {
	if views.WantsJSON(c) {
		return c.JSON(fiber.Map{"message": flashes[what]})
	}
	return c.Redirect("/reports?done="+what, fiber.StatusSeeOther)
}
