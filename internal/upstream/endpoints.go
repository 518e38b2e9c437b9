package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ProductQuery filters `GET /products`. Zero values are left out of the
// query string so the backend defaults apply.
type ProductQuery struct {
	Category string
	Page     int
	PageSize int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.do(ctx, request{op: "stats", method: http.MethodGet, path: "/stats"}, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context) ([]CategoryCount, error) {
	out := []CategoryCount{}
	err := c.do(ctx, request{op: "categories", method: http.MethodGet, path: "/categories"}, &out)
	return out, err
}

func (c *Client) Products(ctx context.Context, q ProductQuery) (ProductPage, error) {
	var out ProductPage
	err := c.do(ctx, request{op: "products", method: http.MethodGet, path: "/products", query: q.values()}, &out)
	if out.Items == nil {
		out.Items = []Product{}
	}
	return out, err
}

// Prices returns the latest price per store. maxAgeHours marks older
// snapshots stale; zero keeps the backend default.
func (c *Client) Prices(ctx context.Context, productID int, maxAgeHours int) ([]PriceSnapshot, error) {
	q := url.Values{}
	if maxAgeHours > 0 {
		q.Set("max_age_hours", strconv.Itoa(maxAgeHours))
	}
	out := []PriceSnapshot{}
	err := c.do(ctx, request{
		op:     "prices",
		method: http.MethodGet,
		path:   "/products/" + strconv.Itoa(productID) + "/prices",
		query:  q,
	}, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, productID int, days int) ([]HistoryPoint, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	out := []HistoryPoint{}
	err := c.do(ctx, request{
		op:     "history",
		method: http.MethodGet,
		path:   "/products/" + strconv.Itoa(productID) + "/history",
		query:  q,
	}, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, term string, limit int) ([]Product, error) {
	q := url.Values{"q": {term}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	out := []Product{}
	err := c.do(ctx, request{op: "search", method: http.MethodGet, path: "/search", query: q}, &out)
	return out, err
}

func (c *Client) ReportNotFound(ctx context.Context, term string) error {
	return c.do(ctx, request{
		op:     "report-not-found",
		method: http.MethodPost,
		path:   "/reports/search-not-found",
		body:   map[string]string{"search_term": term},
	}, nil)
}

func (c *Client) TrackClick(ctx context.Context, click Click) error {
	return c.do(ctx, request{op: "track-click", method: http.MethodPost, path: "/track/click", body: click}, nil)
}

func (c *Client) AffiliateConfig(ctx context.Context) (map[string]AffiliateRule, error) {
	out := map[string]AffiliateRule{}
	err := c.do(ctx, request{op: "affiliate-config", method: http.MethodGet, path: "/affiliate-config"}, &out)
	return out, err
}

func (c *Client) NotFoundReport(ctx context.Context, limit int, includeIgnored bool) ([]NotFoundSearchEntry, error) {
	q := url.Values{"include_ignored": {strconv.FormatBool(includeIgnored)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	out := []NotFoundSearchEntry{}
	err := c.do(ctx, request{op: "not-found-report", method: http.MethodGet, path: "/reports/not-found", query: q}, &out)
	return out, err
}

func (c *Client) SetIgnored(ctx context.Context, id int, ignored bool) error {
	return c.do(ctx, request{
		op:     "set-ignored",
		method: http.MethodPatch,
		path:   "/reports/not-found/" + strconv.Itoa(id),
		body:   map[string]bool{"ignored": ignored},
	}, nil)
}

func (c *Client) DeleteNotFound(ctx context.Context, id int) error {
	return c.do(ctx, request{
		op:     "delete-not-found",
		method: http.MethodDelete,
		path:   "/reports/not-found/" + strconv.Itoa(id),
	}, nil)
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, request{op: "health", method: http.MethodGet, path: "/health"}, &out)
	return out, err
}
