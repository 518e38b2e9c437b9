package admin

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/views"
)

// Layout wraps the admin pages.
const Layout = "layouts/admin"

const loginPath = "/admin/login"

type Handler struct {
	service *Service
	logger  *zap.Logger
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get(loginPath, h.loginPage)
	app.Post(loginPath, h.login)
	app.Post("/admin/logout", h.logout)
}

// Middleware guards admin routes. Browsers without a valid token are sent
// to the sign-in page; scripts get 401. When admin access is not
// configured every guarded route answers 404.
func (h *Handler) Middleware() fiber.Handler {
	if !h.service.Enabled() {
		return func(c *fiber.Ctx) error {
			return fiber.ErrNotFound
		}
	}
	return jwtware.New(jwtware.Config{
		SigningKey:    h.service.secret(),
		SigningMethod: "HS256",
		TokenLookup:   "cookie:" + CookieName,
		ContextKey:    ContextKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			h.logger.Debug("admin: rejected token", zap.String("path", c.Path()), zap.Error(err))
			if views.WantsJSON(c) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
			}
			return c.Redirect(loginPath, fiber.StatusSeeOther)
		},
	})
}

// Subject returns the signed-in username, empty when the request carries
// no validated token.
func Subject(c *fiber.Ctx) string {
	tok, ok := c.Locals(ContextKey).(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

func (h *Handler) loginPage(c *fiber.Ctx) error {
	if !h.service.Enabled() {
		return fiber.ErrNotFound
	}
	return h.renderLogin(c, "", "")
}

func (h *Handler) renderLogin(c *fiber.Ctx, username, message string) error {
	return c.Render("login", fiber.Map{
		"Title":    "Sign in",
		"Username": username,
		"Error":    message,
	}, Layout)
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	err := h.service.Authenticate(payload.Username, payload.Password)
	switch {
	case errors.Is(err, ErrDisabled):
		return fiber.ErrNotFound
	case err != nil:
		h.logger.Warn("admin: failed sign-in", zap.String("username", payload.Username), zap.String("ip", c.IP()))
		c.Status(fiber.StatusUnauthorized)
		if views.WantsJSON(c) {
			return c.JSON(fiber.Map{"message": "Invalid username or password"})
		}
		return h.renderLogin(c, payload.Username, "Invalid username or password")
	}

	signed, exp, err := h.service.IssueToken(payload.Username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	h.logger.Info("admin: signed in", zap.String("username", payload.Username))

	if views.WantsJSON(c) {
		return c.JSON(fiber.Map{"message": "Login successful", "expires_at": exp})
	}
	return c.Redirect("/reports", fiber.StatusSeeOther)
}

func (h *Handler) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.Redirect(loginPath, fiber.StatusSeeOther)
}
