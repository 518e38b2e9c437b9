// Package stats caches the backend's catalog totals shown in the page
// header.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wichananm65/priceflo-storefront/internal/upstream"
	"go.uber.org/zap"
)

// Source serves the backend's stats.
type Source interface {
	Stats(ctx context.Context) (upstream.Stats, error)
}

// Snapshot is the header view of the last successful fetch.
type Snapshot struct {
	TotalProducts  int        `json:"total_products"`
	TotalStores    int        `json:"total_stores"`
	TotalSnapshots int        `json:"total_snapshots"`
	LastScrape     *time.Time `json:"last_scrape,omitempty"`
	Updated        string     `json:"updated,omitempty"`
	FetchedAt      time.Time  `json:"fetched_at"`
	Loaded         bool       `json:"loaded"`
}

// Cache holds the last successful stats. Readers never wait on the backend.
type Cache struct {
	src    Source
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current upstream.Stats
	fetched time.Time
	loaded  bool
}

func NewCache(src Source, logger *zap.Logger) *Cache {
	return &Cache{src: src, logger: logger, now: time.Now}
}

// Refresh fetches the stats and replaces the cached copy. On error the
// previous copy is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	st, err := c.src.Stats(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.current, c.fetched, c.loaded = st, c.now(), true
	c.mu.Unlock()
	c.logger.Debug("stats: refreshed", zap.Int("products", st.TotalProducts), zap.Int("stores", st.TotalStores))
	return nil
}

// Current returns the cached stats with the last scrape rendered relative
// to now.
func (c *Cache) Current() Snapshot {
	c.mu.RLock()
	st, fetched, loaded := c.current, c.fetched, c.loaded
	c.mu.RUnlock()

	snap := Snapshot{
		TotalProducts:  st.TotalProducts,
		TotalStores:    st.TotalStores,
		TotalSnapshots: st.TotalSnapshots,
		FetchedAt:      fetched,
		Loaded:         loaded,
	}
	if st.LastScrape != nil && !st.LastScrape.IsZero() {
		t := st.LastScrape.Time
		snap.LastScrape = &t
		snap.Updated = Relative(c.now(), t)
	}
	return snap
}

// Relative renders how long ago t was: "just now", "N min ago",
// "N hours ago" or "N days ago". Times in the future count as just now.
func Relative(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
