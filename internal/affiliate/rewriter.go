// Package affiliate rewrites outbound store links with affiliate tracking
// parameters.
package affiliate

import (
	"context"
	"strings"
	"sync"

	"github.com/wichananm65/priceflo-storefront/internal/upstream"
	"go.uber.org/zap"
)

// Source serves the backend's affiliate configuration.
type Source interface {
	AffiliateConfig(ctx context.Context) (map[string]upstream.AffiliateRule, error)
}

// Rewriter holds local rules (defaults merged with the integrations file)
// and the rules last fetched from the backend, which take precedence.
type Rewriter struct {
	mu     sync.RWMutex
	local  map[string]Rule
	remote map[string]Rule
	logger *zap.Logger
}

// NewRewriter merges configured over DefaultRules. A configured store that
// only sets enabled/code keeps the default pattern.
func NewRewriter(configured map[string]Rule, logger *zap.Logger) *Rewriter {
	local := DefaultRules()
	for store, r := range configured {
		base, ok := local[store]
		if ok && r.Param == "" && r.Query == "" && r.Redirect == "" {
			base.Enabled, base.Code = r.Enabled, r.Code
			if r.AffiliateID != "" {
				base.AffiliateID = r.AffiliateID
			}
			local[store] = base
			continue
		}
		local[store] = r
	}
	return &Rewriter{local: local, remote: map[string]Rule{}, logger: logger}
}

func (w *Rewriter) lookup(store string) (Rule, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, rules := range []map[string]Rule{w.remote, w.local} {
		if r, ok := rules[store]; ok {
			return r, true
		}
		for name, r := range rules {
			if strings.EqualFold(name, store) {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// Rewrite returns the affiliate URL for a store link. An empty link stays
// empty; stores without an active rule, and rewrite failures, keep the
// original link.
func (w *Rewriter) Rewrite(store, link string) string {
	if link == "" {
		return ""
	}
	r, ok := w.lookup(store)
	if !ok || !r.Active() {
		return link
	}
	out, err := r.apply(link)
	if err != nil {
		w.logger.Warn("affiliate: rewrite failed", zap.String("store", store), zap.Error(err))
		return link
	}
	return out
}

// Enabled reports whether links of store are rewritten.
func (w *Rewriter) Enabled(store string) bool {
	r, ok := w.lookup(store)
	return ok && r.Active()
}

// Refresh replaces the remote rules with the backend's current set. On
// failure the previous rules stay in place.
func (w *Rewriter) Refresh(ctx context.Context, src Source) error {
	cfg, err := src.AffiliateConfig(ctx)
	if err != nil {
		return err
	}

	remote := make(map[string]Rule, len(cfg))
	for store, ar := range cfg {
		if !ar.Enabled || ar.Code == "" {
			continue
		}
		if ar.URLPattern == "" {
			// keep the local pattern, take the backend's code
			if base, ok := w.localRule(store); ok {
				base.Enabled, base.Code = true, ar.Code
				remote[store] = base
			}
			continue
		}
		remote[store] = ruleFromPattern(ar.URLPattern, ar.Code)
	}

	w.mu.Lock()
	w.remote = remote
	w.mu.Unlock()
	w.logger.Info("affiliate: rules refreshed", zap.Int("stores", len(remote)))
	return nil
}

func (w *Rewriter) localRule(store string) (Rule, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.local[store]
	return r, ok
}
