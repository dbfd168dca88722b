package transport

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shop-api/internal/repository"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// idParam reads a positive integer path parameter. A malformed id is
// reported as not found, the same as an unknown one.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryParser collects field errors while reading query parameters
type queryParser struct {
	values url.Values
	errs   map[string]string
}

func newQueryParser(r *http.Request) *queryParser {
	return &queryParser{values: r.URL.Query(), errs: map[string]string{}}
}

func (p *queryParser) str(key string) string {
	return strings.TrimSpace(p.values.Get(key))
}

func (p *queryParser) intValue(key string) *int {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs[key] = "Enter a whole number."
		return nil
	}
	return &n
}

func (p *queryParser) int64Value(key string) *int64 {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.errs[key] = "Enter a whole number."
		return nil
	}
	return &n
}

func (p *queryParser) decimalValue(key string) *decimal.Decimal {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.errs[key] = "Enter a number."
		return nil
	}
	return &d
}

// page reads page and page_size; out of range values are clamped later by
// service.NormalizePage
func (p *queryParser) page() (int, int) {
	var page, size int
	if v := p.intValue("page"); v != nil {
		page = *v
	}
	if v := p.intValue("page_size"); v != nil {
		size = *v
	}
	return page, size
}

func (p *queryParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: p.errs}
}

// parseProductFilter reads the public product listing parameters
func parseProductFilter(r *http.Request) (repository.ProductFilter, error) {
	q := newQueryParser(r)

	filter := repository.ProductFilter{
		CategoryID: q.int64Value("category__id"),
		Price:      q.decimalValue("price"),
		PriceGTE:   q.decimalValue("price__gte"),
		PriceLTE:   q.decimalValue("price__lte"),
		PriceGT:    q.decimalValue("price__gt"),
		PriceLT:    q.decimalValue("price__lt"),
		Stock:      q.intValue("stock"),
		StockGTE:   q.intValue("stock__gte"),
		StockLTE:   q.intValue("stock__lte"),
		Search:     q.str("search"),
		ActiveOnly: true,
	}
	filter.SortBy, filter.SortOrder = service.ParseOrdering(q.str("ordering"), service.ProductOrderingFields, "-created")
	filter.Page, filter.PageSize = q.page()

	return filter, q.err()
}

// parseOrderQuery reads the order listing parameters
func parseOrderQuery(r *http.Request) (service.OrderQuery, error) {
	q := newQueryParser(r)
	page, size := q.page()
	return service.OrderQuery{Ordering: q.str("ordering"), Page: page, PageSize: size}, q.err()
}
