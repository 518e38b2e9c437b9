package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wichananm65/priceflo-storefront/internal/ads"
	"github.com/wichananm65/priceflo-storefront/internal/affiliate"
	"github.com/wichananm65/priceflo-storefront/internal/analytics"
)

//go:embed integrations.yaml
var defaultIntegrations []byte

// Integrations configures the third-party scripts and the affiliate
// rules.
type Integrations struct {
	Ads        ads.Config                `yaml:"ads"`
	Analytics  analytics.Config          `yaml:"analytics"`
	Affiliates map[string]affiliate.Rule `yaml:"affiliates"`
}

// LoadIntegrations reads path, or the embedded defaults when path is
// empty.
func LoadIntegrations(path string) (Integrations, error) {
	data := defaultIntegrations
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Integrations{}, fmt.Errorf("config: read integrations: %w", err)
		}
		data = b
	}
	return ParseIntegrations(data)
}

func ParseIntegrations(data []byte) (Integrations, error) {
	var out Integrations
	if err := yaml.Unmarshal(data, &out); err != nil {
		return Integrations{}, fmt.Errorf("config: parse integrations: %w", err)
	}
	if out.Ads.BetweenResultsEvery < 0 {
		return Integrations{}, fmt.Errorf("config: ads.between_results_every must not be negative")
	}
	return out, nil
}
