// Package config loads the storefront settings from the environment and the
// integrations file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wichananm65/priceflo-storefront/internal/admin"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

type Config struct {
	Addr string
	// PublicHost is the hostname the site is served on; it picks the
	// backend when APIBaseURL is not set.
	PublicHost       string
	APIBaseURL       string
	APIProductionURL string
	APITimeout       time.Duration
	Retry            upstream.RetryConfig

	PriceConcurrency int
	StaleAfterHours  int
	StatsRefresh     time.Duration
	AffiliateRefresh time.Duration
	PriceLocale      string

	Admin admin.Config

	LogLevel         string
	IntegrationsFile string
}

// Load reads the environment. Unset variables take their defaults; a set
// but malformed value is an error.
func Load() (Config, error) {
	l := loader{}
	cfg := Config{
		Addr:             l.str("PRICEFLO_ADDR", ":8080"),
		PublicHost:       l.str("PUBLIC_HOST", "localhost"),
		APIProductionURL: l.str("API_PRODUCTION_URL", ""),
		APITimeout:       l.duration("API_TIMEOUT", 10*time.Second),
		Retry: upstream.RetryConfig{
			MaxAttempts:    l.positive("API_RETRIES", 3),
			InitialBackoff: l.duration("API_BACKOFF", 500*time.Millisecond),
			MaxBackoff:     4 * time.Second,
		},
		PriceConcurrency: l.integer("PRICE_CONCURRENCY", 8),
		StaleAfterHours:  l.integer("STALE_AFTER_HOURS", 6),
		StatsRefresh:     l.duration("STATS_REFRESH", 5*time.Minute),
		AffiliateRefresh: l.duration("AFFILIATE_REFRESH", 30*time.Minute),
		PriceLocale:      l.str("PRICE_LOCALE", "es-CO"),
		Admin: admin.Config{
			User:         l.str("ADMIN_USER", ""),
			PasswordHash: l.str("ADMIN_PASSWORD_HASH", ""),
			Secret:       l.str("JWT_SECRET", ""),
		},
		LogLevel:         l.str("LOG_LEVEL", "info"),
		IntegrationsFile: l.str("INTEGRATIONS_FILE", ""),
	}
	cfg.APIBaseURL = l.str("API_BASE_URL", upstream.DetectBaseURL(cfg.PublicHost, cfg.APIProductionURL))
	if l.err != nil {
		return Config{}, l.err
	}
	return cfg, nil
}

// loader keeps the first parse error so Load can read every variable in
// one pass.
type loader struct {
	err error
}

func (l *loader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (l *loader) integer(key string, def int) int {
	v := l.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		l.fail(key, v)
		return def
	}
	return n
}

// positive is integer for settings where zero makes no sense.
func (l *loader) positive(key string, def int) int {
	n := l.integer(key, def)
	if n < 1 {
		l.fail(key, l.str(key, ""))
		return def
	}
	return n
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v := l.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		l.fail(key, v)
		return def
	}
	return d
}

func (l *loader) fail(key, value string) {
	if l.err == nil {
		l.err = fmt.Errorf("config: invalid %s=%q", key, value)
	}
}
