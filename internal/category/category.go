package category

import "github.com/wichananm65/priceflo-storefront/internal/upstream"

// Item is a category with the number of products filed under it.
type Item = upstream.CategoryCount
