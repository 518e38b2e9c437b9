package upstream

import (
	"bytes"
	"encoding/json"
)

// Product is a catalog entry as returned by `/products` and `/search`.
type Product struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Category   *string `json:"category,omitempty"`
	IsFrequent Flag    `json:"is_frequent,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// CategoryName returns the category or an empty string when the product has none.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// ProductPage is the paginated shape of `GET /products`.
type ProductPage struct {
	Items      []Product `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// UnmarshalJSON also accepts the unpaginated list older backends return.
func (p *ProductPage) UnmarshalJSON(b []byte) error {
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '[' {
		var items []Product
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = ProductPage{Items: items, Total: len(items), Page: 1, PageSize: len(items)}
		if len(items) > 0 {
			p.TotalPages = 1
		}
		return nil
	}
	type plain ProductPage
	var out plain
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*p = ProductPage(out)
	return nil
}

// PriceSnapshot is the latest price of a product in one store.
type PriceSnapshot struct {
	StoreName      string    `json:"store_name"`
	Price          float64   `json:"price"`
	Title          string    `json:"title,omitempty"`
	URL            *string   `json:"url,omitempty"`
	ScrapedAt      Timestamp `json:"scraped_at"`
	RelevanceScore *int      `json:"relevance_score,omitempty"`
	IsStale        bool      `json:"is_stale"`
}

// Link returns the store URL or an empty string.
func (p PriceSnapshot) Link() string {
	if p.URL == nil {
		return ""
	}
	return *p.URL
}

// HistoryPoint is one row of `GET /products/{id}/history`.
type HistoryPoint struct {
	ID          int       `json:"id"`
	ProductID   int       `json:"product_id"`
	StoreID     int       `json:"store_id"`
	StoreName   string    `json:"store_name,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Price       float64   `json:"price"`
	Title       string    `json:"title,omitempty"`
	URL         *string   `json:"url,omitempty"`
	ScrapedAt   Timestamp `json:"scraped_at"`
}

// CategoryCount is one row of `GET /categories`.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Stats is the payload of `GET /stats`.
type Stats struct {
	TotalProducts  int        `json:"total_products"`
	TotalStores    int        `json:"total_stores"`
	TotalSnapshots int        `json:"total_snapshots"`
	LastScrape     *Timestamp `json:"last_scrape,omitempty"`
}

// NotFoundSearchEntry is a search term that returned no products.
type NotFoundSearchEntry struct {
	ID              int       `json:"id"`
	SearchTerm      string    `json:"search_term"`
	SearchCount     int       `json:"search_count"`
	FirstSearchedAt Timestamp `json:"first_searched_at"`
	LastSearchedAt  Timestamp `json:"last_searched_at"`
	Ignored         Flag      `json:"ignored"`
}

// AffiliateRule is one store entry of `GET /affiliate-config`.
type AffiliateRule struct {
	Enabled    bool   `json:"enabled"`
	Code       string `json:"code"`
	URLPattern string `json:"url_pattern"`
}

// Click is posted to `/track/click` when a visitor leaves for a store.
type Click struct {
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	StoreName   string  `json:"store_name"`
	Price       float64 `json:"price"`
	URL         string  `json:"url"`
}

// Health is the payload of `GET /health`.
type Health struct {
	Status     string `json:"status"`
	Database   string `json:"database,omitempty"`
	LastScrape string `json:"last_scrape,omitempty"`
}
