package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"shop-api/internal/domain"
	"shop-api/internal/repository"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

var maxRating = decimal.NewFromInt(5)

// ProductOrderingFields are the accepted values of the product ordering parameter
var ProductOrderingFields = []string{"price", "created", "rating", "title"}

// Page is one page of a listing plus the total number of matches
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// HasNext reports whether another page follows this one
func (p Page[T]) HasNext() bool {
	return p.Page*p.PageSize < p.Total
}

// NormalizePage clamps page and size into the accepted range
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// ParseOrdering splits a "-field" style ordering parameter. Unknown fields
// fall back to def.
func ParseOrdering(raw string, allowed []string, def string) (string, repository.SortOrder) {
	field, order := splitOrdering(strings.TrimSpace(raw))
	if !slices.Contains(allowed, field) {
		field, order = splitOrdering(def)
	}
	return field, order
}

func splitOrdering(raw string) (string, repository.SortOrder) {
	if field, ok := strings.CutPrefix(raw, "-"); ok {
		return field, repository.SortOrderDesc
	}
	return raw, repository.SortOrderAsc
}

// CatalogService manages categories and products
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	UpdateCategory(ctx context.Context, category *domain.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, filter repository.ProductFilter) (Page[*domain.Product], error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type catalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(categories repository.CategoryRepository, products repository.ProductRepository, logger *zap.Logger) CatalogService {
	return &catalogService{categories: categories, products: products, logger: logger}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *catalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categories.FindByID(ctx, id)
}

// CreateCategory derives the slug from the name when none is given
func (s *catalogService) CreateCategory(ctx context.Context, category *domain.Category) error {
	if err := prepareCategory(category); err != nil {
		return err
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return err
	}

	s.logger.Info("Category created", zap.Int64("category_id", category.ID), zap.String("slug", category.Slug))
	return nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, category *domain.Category) error {
	if err := prepareCategory(category); err != nil {
		return err
	}
	return s.categories.Update(ctx, category)
}

func (s *catalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return nil
}

func prepareCategory(category *domain.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return NewValidationError("name", "This field may not be blank.")
	}

	if strings.TrimSpace(category.Slug) == "" {
		category.Slug = slug.Make(category.Name)
	}
	if !slug.IsSlug(category.Slug) {
		return NewValidationError("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (Page[*domain.Product], error) {
	filter.Page, filter.PageSize = NormalizePage(filter.Page, filter.PageSize)

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return Page[*domain.Product]{}, err
	}

	return Page[*domain.Product]{Items: products, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, product *domain.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return err
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("title", product.Title))
	return s.reload(ctx, product)
}

func (s *catalogService) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return err
	}

	return s.reload(ctx, product)
}

// reload refreshes product from the store so callers see the joined category
func (s *catalogService) reload(ctx context.Context, product *domain.Product) error {
	fresh, err := s.products.FindByID(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("failed to reload product: %w", err)
	}
	*product = *fresh
	return nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func validateProduct(product *domain.Product) error {
	errs := map[string]string{}

	if strings.TrimSpace(product.Title) == "" {
		errs["title"] = "This field may not be blank."
	}
	if product.Price.IsNegative() {
		errs["price"] = "Ensure this value is greater than or equal to 0."
	}
	if !product.Price.Equal(product.Price.Round(2)) {
		errs["price"] = "Ensure that there are no more than 2 decimal places."
	}
	if product.Stock < 0 {
		errs["stock"] = "Ensure this value is greater than or equal to 0."
	}
	if product.Rating.IsNegative() || product.Rating.GreaterThan(maxRating) {
		errs["rating"] = "Ensure this value is between 0 and 5."
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
