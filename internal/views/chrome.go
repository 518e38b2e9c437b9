package views

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/priceflo-storefront/internal/ads"
	"github.com/wichananm65/priceflo-storefront/internal/analytics"
	"github.com/wichananm65/priceflo-storefront/internal/stats"
)

// Layout is the data every page passes to MainLayout under "Layout".
type Layout struct {
	Title     string
	Stats     stats.Snapshot
	Ads       ads.View
	Analytics *analytics.Tracker
}

// Chrome assembles the shared page frame: header stats, ad units and the
// analytics tag.
type Chrome struct {
	stats     *stats.Cache
	ads       *ads.Service
	analytics *analytics.Service
}

func NewChrome(st *stats.Cache, ad *ads.Service, an *analytics.Service) *Chrome {
	return &Chrome{stats: st, ads: ad, analytics: an}
}

// Layout builds the frame for the current request. The returned tracker
// collects the page's analytics events until the page renders.
func (ch *Chrome) Layout(c *fiber.Ctx, title string) Layout {
	host := Hostname(c)
	return Layout{
		Title:     title,
		Stats:     ch.stats.Current(),
		Ads:       ch.ads.View(host),
		Analytics: ch.analytics.Tracker(host),
	}
}
