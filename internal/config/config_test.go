package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/priceflo-storefront/internal/ads"
	"github.com/wichananm65/priceflo-storefront/internal/analytics"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PRICEFLO_ADDR", "PUBLIC_HOST", "API_BASE_URL", "API_PRODUCTION_URL", "API_TIMEOUT",
		"API_RETRIES", "API_BACKOFF", "PRICE_CONCURRENCY", "STALE_AFTER_HOURS", "STATS_REFRESH",
		"AFFILIATE_REFRESH", "PRICE_LOCALE", "ADMIN_USER", "ADMIN_PASSWORD_HASH", "JWT_SECRET",
		"LOG_LEVEL", "INTEGRATIONS_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, upstream.LocalBaseURL, cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 8, cfg.PriceConcurrency)
	assert.Equal(t, 6, cfg.StaleAfterHours)
	assert.Equal(t, 5*time.Minute, cfg.StatsRefresh)
	assert.Equal(t, "es-CO", cfg.PriceLocale)
	assert.False(t, cfg.Admin.Enabled())
}

func TestLoad_ProductionHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBLIC_HOST", "www.priceflo.co")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.priceflo.co", cfg.APIBaseURL)

	t.Setenv("API_PRODUCTION_URL", "https://backend.priceflo.co")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://backend.priceflo.co", cfg.APIBaseURL)

	t.Setenv("API_BASE_URL", "http://10.0.0.5:8000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", cfg.APIBaseURL)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_TIMEOUT", "ten seconds")
	_, err := Load()
	assert.ErrorContains(t, err, "API_TIMEOUT")

	clearEnv(t)
	t.Setenv("PRICE_CONCURRENCY", "-2")
	_, err = Load()
	assert.ErrorContains(t, err, "PRICE_CONCURRENCY")

	clearEnv(t)
	t.Setenv("API_RETRIES", "0")
	_, err = Load()
	assert.ErrorContains(t, err, `API_RETRIES="0"`)
}

func TestLoadIntegrations_EmbeddedDefaults(t *testing.T) {
	in, err := LoadIntegrations("")
	require.NoError(t, err)

	assert.False(t, in.Ads.Enabled)
	assert.Equal(t, ads.PlaceholderClient, in.Ads.Client)
	assert.Equal(t, 6, in.Ads.BetweenResultsEvery)
	assert.Equal(t, analytics.PlaceholderID, in.Analytics.MeasurementID)
	assert.True(t, in.Analytics.TrackEvents.StoreClick)
	assert.Contains(t, in.Affiliates, "Éxito")
	assert.False(t, in.Affiliates["Amazon"].Active())
}

func TestLoadIntegrations_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integrations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ads:
  enabled: true
  client: ca-pub-123
  slots: {header: "111", footer: "222"}
analytics:
  enabled: true
  measurement_id: G-ABC123
affiliates:
  Amazon: {enabled: true, code: priceflo-20}
  Alkosto: {enabled: true, code: abc, query: "ref={code}"}
`), 0o600))

	in, err := LoadIntegrations(path)
	require.NoError(t, err)
	assert.True(t, in.Ads.Enabled)
	assert.Equal(t, "111", in.Ads.Slots.Header)
	assert.Equal(t, "G-ABC123", in.Analytics.MeasurementID)
	assert.Equal(t, "ref={code}", in.Affiliates["Alkosto"].Query)

	_, err = LoadIntegrations(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseIntegrations([]byte("ads: [1, 2"))
	assert.Error(t, err)
}
