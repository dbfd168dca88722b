package transport

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shop-api/internal/domain"
	"shop-api/internal/service"

	"github.com/shopspring/decimal"
)

// Money renders a decimal amount as a JSON string with two decimals
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(decimal.Decimal(m).StringFixed(2))), nil
}

// PageResponse is the envelope of every paginated listing
type PageResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// newPageResponse maps page through convert and links the neighbouring
// pages relative to the request URL
func newPageResponse[S, T any](r *http.Request, page service.Page[S], convert func(S) T) PageResponse[T] {
	results := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		results = append(results, convert(item))
	}

	resp := PageResponse[T]{Count: page.Total, Results: results}
	if page.HasNext() {
		next := pageURL(r, page.Page+1)
		resp.Next = &next
	}
	if page.Page > 1 {
		prev := pageURL(r, page.Page-1)
		resp.Previous = &prev
	}
	return resp
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	query := r.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: query.Encode()}
	return u.String()
}

// UserProfile represents user profile data
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func newUserProfile(user *domain.User) UserProfile {
	return UserProfile{ID: user.ID.String(), Username: user.Username, Email: user.Email}
}

// CategoryResponse is the public representation of a category
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func newCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

// ProductResponse is the public representation of a product
type ProductResponse struct {
	ID          int64             `json:"id"`
	Category    *CategoryResponse `json:"category"`
	Title       string            `json:"title"`
	Subtitle    string            `json:"subtitle"`
	Description string            `json:"description"`
	Price       Money             `json:"price"`
	Stock       int               `json:"stock"`
	Rating      Money             `json:"rating"`
	ImageURL    string            `json:"image_url"`
	IsActive    bool              `json:"is_active"`
	Created     time.Time         `json:"created"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Description: p.Description,
		Price:       Money(p.Price),
		Stock:       p.Stock,
		Rating:      Money(p.Rating),
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
		Created:     p.Created,
	}
	if p.Category != nil {
		c := newCategoryResponse(p.Category)
		resp.Category = &c
	}
	return resp
}

// OrderItemResponse is one line of an order with the product nested as
// it is served by the catalog
type OrderItemResponse struct {
	ID            int64            `json:"id"`
	Product       *ProductResponse `json:"product"`
	ProductID     int64            `json:"product_id"`
	Quantity      int              `json:"quantity"`
	PriceSnapshot Money            `json:"price_snapshot"`
	LineTotal     Money            `json:"line_total"`
}

// OrderResponse is the representation returned by the order endpoints
type OrderResponse struct {
	ID              int64               `json:"id"`
	User            string              `json:"user"`
	Status          domain.OrderStatus  `json:"status"`
	TotalPrice      Money               `json:"total_price"`
	ShippingAddress string              `json:"shipping_address"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []OrderItemResponse `json:"items"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		line := OrderItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			PriceSnapshot: Money(item.PriceSnapshot),
			LineTotal:     Money(item.LineTotal()),
		}
		if item.Product != nil {
			p := newProductResponse(item.Product)
			line.Product = &p
		}
		items = append(items, line)
	}

	return OrderResponse{
		ID:              o.ID,
		User:            o.Username,
		Status:          o.Status,
		TotalPrice:      Money(o.TotalPrice),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           items,
	}
}

// itemErrorsBody renders per-line order failures as
// {"items": [{"items[0]": "..."}, ...]}
func itemErrorsBody(errs service.ItemErrors) map[string][]map[string]string {
	entries := make([]map[string]string, 0, len(errs))
	for _, e := range errs {
		entries = append(entries, map[string]string{e.Key(): e.Message})
	}
	return map[string][]map[string]string{"items": entries}
}
