// Package analytics gates the Google Analytics 4 tag and builds the custom
// events a page reports through gtag.
package analytics

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// PlaceholderID is the measurement id shipped in the sample config.
const PlaceholderID = "G-XXXXXXXXXX"

const scriptBase = "https://www.googletagmanager.com/gtag/js"

// TrackEvents toggles each custom event.
type TrackEvents struct {
	ProductView  bool `yaml:"product_view"`
	PriceCompare bool `yaml:"price_compare"`
	StoreClick   bool `yaml:"store_click"`
	Search       bool `yaml:"search"`
}

// Config is the `analytics` section of the integrations file.
type Config struct {
	Enabled         bool        `yaml:"enabled"`
	MeasurementID   string      `yaml:"measurement_id"`
	DisabledDomains []string    `yaml:"disabled_domains"`
	TrackEvents     TrackEvents `yaml:"track_events"`
}

// Event is one gtag('event', Name, Params) call.
type Event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Service decides per host whether the tag loads.
type Service struct {
	cfg    Config
	logger *zap.Logger
}

func NewService(cfg Config, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Enabled reports whether analytics may load on host (without port).
func (s *Service) Enabled(host string) bool {
	if !s.cfg.Enabled {
		s.logger.Debug("analytics: disabled in configuration")
		return false
	}
	for _, d := range s.cfg.DisabledDomains {
		if strings.EqualFold(d, host) {
			s.logger.Debug("analytics: disabled for host", zap.String("host", host))
			return false
		}
	}
	if s.cfg.MeasurementID == "" || s.cfg.MeasurementID == PlaceholderID {
		s.logger.Debug("analytics: measurement id not configured")
		return false
	}
	return true
}

// Tracker returns the per-request event collector for host.
func (s *Service) Tracker(host string) *Tracker {
	if !s.Enabled(host) {
		return &Tracker{}
	}
	return &Tracker{
		enabled:       true,
		measurementID: s.cfg.MeasurementID,
		toggles:       s.cfg.TrackEvents,
	}
}

// Tracker collects the events of one page render. The zero value is a
// disabled tracker that records nothing.
type Tracker struct {
	enabled       bool
	measurementID string
	toggles       TrackEvents
	events        []Event
}

func (t *Tracker) Enabled() bool         { return t.enabled }
func (t *Tracker) MeasurementID() string { return t.measurementID }
func (t *Tracker) Events() []Event       { return t.events }

// ScriptURL is the gtag loader for the configured measurement id.
func (t *Tracker) ScriptURL() string {
	if !t.enabled {
		return ""
	}
	return scriptBase + "?id=" + url.QueryEscape(t.measurementID)
}

func (t *Tracker) track(name string, params map[string]any) {
	if !t.enabled {
		return
	}
	t.events = append(t.events, Event{Name: name, Params: params})
}

func (t *Tracker) ProductView(productName, category string) {
	if !t.toggles.ProductView {
		return
	}
	t.track("view_item", map[string]any{
		"item_name":     productName,
		"item_category": category,
	})
}

func (t *Tracker) PriceComparison(productName string, storesCompared int, lowestPrice float64) {
	if !t.toggles.PriceCompare {
		return
	}
	t.track("price_comparison", map[string]any{
		"product":         productName,
		"stores_compared": storesCompared,
		"lowest_price":    lowestPrice,
	})
}

// StoreClick returns the event an outbound store link fires from the
// browser. It is not recorded on the page; nil when the event is off.
func (t *Tracker) StoreClick(storeName, productName string, price float64) *Event {
	if t == nil || !t.enabled || !t.toggles.StoreClick {
		return nil
	}
	return &Event{Name: "store_click", Params: map[string]any{
		"store":   storeName,
		"product": productName,
		"price":   price,
	}}
}

func (t *Tracker) Search(term string, results int) {
	if !t.toggles.Search {
		return
	}
	t.track("search", map[string]any{
		"search_term": term,
		"results":     results,
	})
}
