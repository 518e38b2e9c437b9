package ads

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Service decides per host whether AdSense is loaded and which units are
// placed.
type Service struct {
	cfg    Config
	logger *zap.Logger
}

func NewService(cfg Config, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Enabled reports whether ads may load on host.
func (s *Service) Enabled(host string) bool {
	if !s.cfg.Enabled {
		s.logger.Debug("ads: disabled in configuration")
		return false
	}
	if hostDisabled(host, s.cfg.DisabledDomains) {
		s.logger.Debug("ads: disabled for host", zap.String("host", host))
		return false
	}
	if s.cfg.Client == "" || s.cfg.Client == PlaceholderClient {
		s.logger.Debug("ads: client id not configured")
		return false
	}
	return true
}

// View builds the ad placement for a page served on host.
func (s *Service) View(host string) View {
	if !s.Enabled(host) {
		return View{Placeholder: true}
	}
	return View{
		Enabled:        true,
		Client:         s.cfg.Client,
		ScriptURL:      scriptBase + "?client=" + url.QueryEscape(s.cfg.Client),
		Header:         Unit{ContainerID: "ad-header", Slot: s.cfg.Slots.Header, Format: "horizontal", FullWidthResponsive: true},
		Sidebar:        Unit{ContainerID: "ad-sidebar", Slot: s.cfg.Slots.Sidebar, Format: "rectangle"},
		Footer:         Unit{ContainerID: "ad-footer", Slot: s.cfg.Slots.Footer, Format: "horizontal", FullWidthResponsive: true},
		BetweenResults: Unit{ContainerID: "ad-results", Slot: s.cfg.Slots.BetweenResults, Format: "fluid", FullWidthResponsive: true},
		Every:          s.cfg.BetweenResultsEvery,
	}
}

// hostDisabled expects host without a port.
func hostDisabled(host string, disabled []string) bool {
	for _, d := range disabled {
		if strings.EqualFold(d, host) {
			return true
		}
	}
	return false
}
