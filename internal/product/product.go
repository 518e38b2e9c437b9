package product

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

type (
	Product = upstream.Product
	Price   = upstream.PriceSnapshot
)

const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
	// searchLimit caps the backend search; results are paginated locally.
	searchLimit  = 100
	suggestLimit = 8
)

// Sort orders the cards of a page.
type Sort string

const (
	SortName      Sort = "name"
	SortPriceLow  Sort = "price-low"
	SortPriceHigh Sort = "price-high"
)

// SortOptions lists the sort orders offered in the page, with labels.
var SortOptions = []struct {
	Value Sort
	Label string
}{
	{SortName, "Name"},
	{SortPriceLow, "Price: low to high"},
	{SortPriceHigh, "Price: high to low"},
}

// ParseSort returns the sort for s, SortName when unknown.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortPriceLow, SortPriceHigh:
		return Sort(s)
	}
	return SortName
}

// Query is what the storefront page asks for.
type Query struct {
	Category string
	Page     int
	PageSize int
	Sort     Sort
	Search   string
}

func (q Query) normalized() Query {
	q.Category = strings.TrimSpace(q.Category)
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	q.Sort = ParseSort(string(q.Sort))
	return q
}

// values encodes q for links; defaults are left out.
func (q Query) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	} else if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Sort != "" && q.Sort != SortName {
		v.Set("sort", string(q.Sort))
	}
	if q.PageSize != 0 && q.PageSize != DefaultPageSize {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

func (q Query) url() string {
	if enc := q.values().Encode(); enc != "" {
		return "/?" + enc
	}
	return "/"
}

// PriceRow is one store line of a product card.
type PriceRow struct {
	Store     string    `json:"store"`
	Price     float64   `json:"price"`
	ScrapedAt time.Time `json:"scraped_at"`
	Stale     bool      `json:"is_stale"`
	Best      bool      `json:"best"`
	// Link is the local outbound redirect, empty when the store gave no URL.
	Link      string `json:"link,omitempty"`
	Affiliate bool   `json:"affiliate,omitempty"`
}

// Card is a product with its prices compared across stores.
type Card struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Category string     `json:"category,omitempty"`
	Prices   []PriceRow `json:"prices"`
	// SavingsPercent is how much cheaper the best price is than the most
	// expensive one, rounded. Zero when there is nothing to save.
	SavingsPercent int `json:"savings_percent"`
}

// HasPrices reports whether any store listed the product.
func (c Card) HasPrices() bool { return len(c.Prices) > 0 }

// BestPrice is the lowest price, zero without prices.
func (c Card) BestPrice() float64 {
	if len(c.Prices) == 0 {
		return 0
	}
	return c.Prices[0].Price
}

// BuildCard sorts prices ascending and flags the best one. affiliated may
// be nil.
func BuildCard(p Product, prices []Price, affiliated func(store string) bool) Card {
	card := Card{ID: p.ID, Name: p.Name, Category: p.CategoryName(), Prices: make([]PriceRow, 0, len(prices))}
	for _, pr := range prices {
		row := PriceRow{
			Store:     pr.StoreName,
			Price:     pr.Price,
			ScrapedAt: pr.ScrapedAt.Time,
			Stale:     pr.IsStale,
		}
		if pr.Link() != "" {
			row.Link = OutboundPath(p.ID, pr.StoreName)
			row.Affiliate = affiliated != nil && affiliated(pr.StoreName)
		}
		card.Prices = append(card.Prices, row)
	}
	sort.SliceStable(card.Prices, func(i, j int) bool { return card.Prices[i].Price < card.Prices[j].Price })

	if n := len(card.Prices); n > 0 {
		card.Prices[0].Best = true
		best, most := card.Prices[0].Price, card.Prices[n-1].Price
		if most > 0 && best < most {
			card.SavingsPercent = int(math.Round((most - best) / most * 100))
		}
	}
	return card
}

// OutboundPath is the local redirect that sends a visitor to a store.
func OutboundPath(productID int, store string) string {
	return "/go/" + strconv.Itoa(productID) + "?store=" + url.QueryEscape(store)
}

// sortCards orders cards in place. Cards without prices go last in both
// price orders.
func sortCards(cards []Card, by Sort) {
	switch by {
	case SortPriceLow, SortPriceHigh:
		sort.SliceStable(cards, func(i, j int) bool {
			a, b := cards[i], cards[j]
			if a.HasPrices() != b.HasPrices() {
				return a.HasPrices()
			}
			if by == SortPriceLow {
				return a.BestPrice() < b.BestPrice()
			}
			return a.BestPrice() > b.BestPrice()
		})
	default:
		sort.SliceStable(cards, func(i, j int) bool {
			return strings.ToLower(cards[i].Name) < strings.ToLower(cards[j].Name)
		})
	}
}

// Listing is one rendered page of the storefront.
type Listing struct {
	Query      Query
	Cards      []Card
	Total      int
	TotalPages int
	// Hint explains an empty result that needed no backend call.
	Hint      string
	NoResults bool
}

// Searching reports whether the listing answers a search.
func (l Listing) Searching() bool { return l.Query.Search != "" }

func (l Listing) HasPrev() bool { return l.Query.Page > 1 }
func (l Listing) HasNext() bool { return l.Query.Page < l.TotalPages }

// PageURL links to page n of the same listing.
func (l Listing) PageURL(n int) string {
	q := l.Query
	q.Page = n
	return q.url()
}

// Pages lists the page numbers shown in the pager: the first, the last and
// two around the current one.
func (l Listing) Pages() []int {
	var out []int
	for n := 1; n <= l.TotalPages; n++ {
		if n == 1 || n == l.TotalPages || (n >= l.Query.Page-2 && n <= l.Query.Page+2) {
			out = append(out, n)
		}
	}
	return out
}

// CategoryURL links to the first page of a category, keeping the sort.
// An empty name links to all products.
func (l Listing) CategoryURL(name string) string {
	return Query{Category: name, Sort: l.Query.Sort, PageSize: l.Query.PageSize}.url()
}

// SortURL links to the same listing in another order.
func (l Listing) SortURL(s Sort) string {
	q := l.Query
	q.Sort, q.Page = s, 1
	return q.url()
}

// Retry links back to this listing.
func (l Listing) Retry() string { return l.Query.url() }

// Suggestion is one autocomplete entry.
type Suggestion struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// StoreHistory is the price series of one store.
type StoreHistory struct {
	Store  string
	Points []upstream.HistoryPoint
	Min    float64
	Max    float64
	Last   float64
}

// History is the price history page of one product.
type History struct {
	ProductID   int
	ProductName string
	Days        int
	Stores      []StoreHistory
}

func groupHistory(points []upstream.HistoryPoint) []StoreHistory {
	sort.SliceStable(points, func(i, j int) bool { return points[i].ScrapedAt.Before(points[j].ScrapedAt.Time) })

	index := map[string]int{}
	var out []StoreHistory
	for _, p := range points {
		store := p.StoreName
		if store == "" {
			store = "Store " + strconv.Itoa(p.StoreID)
		}
		i, ok := index[store]
		if !ok {
			i = len(out)
			index[store] = i
			out = append(out, StoreHistory{Store: store, Min: p.Price, Max: p.Price})
		}
		sh := &out[i]
		sh.Points = append(sh.Points, p)
		sh.Min = math.Min(sh.Min, p.Price)
		sh.Max = math.Max(sh.Max, p.Price)
		sh.Last = p.Price
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Last < out[j].Last })
	return out
}
