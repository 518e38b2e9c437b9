// Package views holds the embedded HTML templates and the helpers they
// use.
package views

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/wichananm65/priceflo-storefront/internal/stats"
)

// MainLayout wraps every storefront page.
const MainLayout = "layouts/main"

//go:embed templates static
var assetFS embed.FS

// Formatter renders prices and dates for one locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter returns a formatter for a BCP 47 locale such as "es-CO".
// Unknown locales fall back to es-CO.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("es-CO")
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Price renders a whole-peso amount with locale grouping, e.g. "$129.900".
func (f *Formatter) Price(v float64) string {
	return f.printer.Sprintf("$%v", number.Decimal(math.Round(v), number.MaxFractionDigits(0)))
}

// Date renders t as day/month/year.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2/1/2006")
}

// DateTime renders t as day/month/year hour:minute.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2/1/2006 15:04")
}

func percent(v int) string {
	return fmt.Sprintf("%d%%", v)
}

// dict builds a map from key/value pairs so a partial can take more than
// one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// NewEngine builds the template engine over the embedded templates.
func NewEngine(f *Formatter) (*html.Engine, error) {
	sub, err := fs.Sub(assetFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("price", f.Price)
	engine.AddFunc("date", Date)
	engine.AddFunc("datetime", DateTime)
	engine.AddFunc("percent", percent)
	engine.AddFunc("ago", func(t time.Time) string { return stats.Relative(time.Now(), t) })
	engine.AddFunc("add", func(a, b int) int { return a + b })
	engine.AddFunc("dict", dict)
	return engine, nil
}

// Static serves the stylesheet and scripts under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(assetFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Hostname is the request host without its port, as matched against the
// disabled-domain lists.
func Hostname(c *fiber.Ctx) string {
	host := c.Hostname()
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
