package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers; the digits are written exactly as stored.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category is one of the fixed catalog categories.
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryAccessories Category = "Accessories"
	CategoryOffice      Category = "Office"
	CategoryClothing    Category = "Clothing"
	CategoryHome        Category = "Home"
	CategoryBooks       Category = "Books"
	CategorySports      Category = "Sports"
	CategoryOther       Category = "Other"
)

var Categories = []Category{
	CategoryElectronics,
	CategoryAccessories,
	CategoryOffice,
	CategoryClothing,
	CategoryHome,
	CategoryBooks,
	CategorySports,
	CategoryOther,
}

// ParseCategory matches name against the enumeration ignoring case.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    Category        `json:"category"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductSort names the orderings Search understands.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceLow  ProductSort = "price-low"
	SortPriceHigh ProductSort = "price-high"
	SortName      ProductSort = "name"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 500
)

// ParseSort falls back to SortNewest for empty or unknown values.
func ParseSort(s string) ProductSort {
	switch ProductSort(s) {
	case SortPriceLow, SortPriceHigh, SortName:
		return ProductSort(s)
	default:
		return SortNewest
	}
}

type ProductFilter struct {
	Category Category
	Search   string
	Sort     ProductSort
	Limit    int
}

// Normalize fills defaults so every store sees the same filter.
func (f ProductFilter) Normalize() ProductFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Sort = ParseSort(string(f.Sort))
	if f.Limit <= 0 {
		f.Limit = DefaultSearchLimit
	}
	if f.Limit > MaxSearchLimit {
		f.Limit = MaxSearchLimit
	}
	return f
}

// Matches reports whether p satisfies the category and search terms of f.
// Stores that cannot push the filter down to the database use it directly.
func (f ProductFilter) Matches(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// Less orders two products by the sort of f. Ties fall back to id for a stable result.
func (f ProductFilter) Less(a, b Product) bool {
	switch f.Sort {
	case SortPriceLow:
		if !a.Price.Equal(b.Price) {
			return a.Price.LessThan(b.Price)
		}
	case SortPriceHigh:
		if !a.Price.Equal(b.Price) {
			return a.Price.GreaterThan(b.Price)
		}
	case SortName:
		if a.Name != b.Name {
			return a.Name < b.Name
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}
