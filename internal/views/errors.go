package views

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

// ErrorHandler maps handler errors to a status and a notice. Backend
// failures are categorized by upstream.Kind; JSON endpoints get
// {"message", "kind"}, pages get the error template.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			code   int
			notice upstream.Notice
			fe     *fiber.Error
		)
		if errors.As(err, &fe) {
			code = fe.Code
			notice = upstream.Notice{Kind: kindForStatus(code), Title: http.StatusText(code), Message: fe.Message}
		} else {
			notice = upstream.NoticeFor(err)
			code = upstream.HTTPStatus(notice.Kind)
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.String("kind", string(notice.Kind)), zap.Error(err))
		}

		c.Status(code)
		if WantsJSON(c) {
			return c.JSON(fiber.Map{"message": notice.Message, "kind": notice.Kind})
		}
		if rerr := c.Render("error", fiber.Map{"Notice": notice, "Status": code, "Retry": c.OriginalURL()}); rerr != nil {
			return c.SendString(notice.Message)
		}
		return nil
	}
}

func kindForStatus(code int) upstream.Kind {
	if code >= 500 {
		return upstream.KindServer
	}
	return upstream.KindForStatus(code)
}

// WantsJSON reports whether the request came from a script rather than a
// browser page.
func WantsJSON(c *fiber.Ctx) bool {
	p := c.Path()
	if strings.HasPrefix(p, "/api/") || strings.HasSuffix(p, "/api") || p == "/suggest" {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}
