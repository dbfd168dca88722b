package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shop-api/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInUse    = errors.New("product is referenced by existing orders")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// productSortFields maps public ordering names to columns
var productSortFields = map[string]string{
	"price":   "p.price",
	"created": "p.created",
	"rating":  "p.rating",
	"title":   "p.title",
}

// ProductFilter narrows a product listing. Nil pointers mean "no constraint".
type ProductFilter struct {
	CategoryID *int64
	Price      *decimal.Decimal
	PriceGTE   *decimal.Decimal
	PriceLTE   *decimal.Decimal
	PriceGT    *decimal.Decimal
	PriceLT    *decimal.Decimal
	Stock      *int
	StockGTE   *int
	StockLTE   *int
	Search     string
	ActiveOnly bool

	// SortBy is one of price, created, rating, title
	SortBy    string
	SortOrder SortOrder
	Page      int
	PageSize  int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productSelect = `
	SELECT p.id, p.category_id, p.title, p.subtitle, p.description, p.price, p.stock,
	       p.rating, p.image_url, p.is_active, p.created, c.id, c.name, c.slug
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{Category: &domain.Category{}}
	err := row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.Title,
		&product.Subtitle,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Rating,
		&product.ImageURL,
		&product.IsActive,
		&product.Created,
		&product.Category.ID,
		&product.Category.Name,
		&product.Category.Slug,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a product and fills in its ID and creation time
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (category_id, title, subtitle, description, price, stock, rating, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.CategoryID,
		product.Title,
		product.Subtitle,
		product.Description,
		product.Price,
		product.Stock,
		product.Rating,
		product.ImageURL,
		product.IsActive,
	).Scan(&product.ID, &product.Created)

	if err != nil {
		if isForeignKeyViolation(err, "fk_products_category") {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites the mutable attributes of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET category_id = $2, title = $3, subtitle = $4, description = $5,
		    price = $6, stock = $7, rating = $8, image_url = $9, is_active = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Title,
		product.Subtitle,
		product.Description,
		product.Price,
		product.Stock,
		product.Rating,
		product.ImageURL,
		product.IsActive,
	)

	if err != nil {
		if isForeignKeyViolation(err, "fk_products_category") {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return affectedOne(result, ErrProductNotFound)
}

// Delete removes a product. Products referenced by order items are kept.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err, "fk_order_items_product") {
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return affectedOne(result, ErrProductNotFound)
}

// FindByID retrieves a product with its category
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products matching filter, one page at a time, plus the total match count
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	sortColumn, ok := productSortFields[filter.SortBy]
	if !ok {
		sortColumn = "p.created"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 12
	}

	whereClause, args := buildProductWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM products p ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY %s %s, p.id %s LIMIT $%d OFFSET $%d`,
		productSelect, whereClause, sortColumn, sortOrder, sortOrder, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

func buildProductWhere(filter ProductFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.ActiveOnly {
		conditions = append(conditions, "p.is_active = TRUE")
	}
	if filter.CategoryID != nil {
		add("p.category_id = $%d", *filter.CategoryID)
	}
	if filter.Price != nil {
		add("p.price = $%d", *filter.Price)
	}
	if filter.PriceGTE != nil {
		add("p.price >= $%d", *filter.PriceGTE)
	}
	if filter.PriceLTE != nil {
		add("p.price <= $%d", *filter.PriceLTE)
	}
	if filter.PriceGT != nil {
		add("p.price > $%d", *filter.PriceGT)
	}
	if filter.PriceLT != nil {
		add("p.price < $%d", *filter.PriceLT)
	}
	if filter.Stock != nil {
		add("p.stock = $%d", *filter.Stock)
	}
	if filter.StockGTE != nil {
		add("p.stock >= $%d", *filter.StockGTE)
	}
	if filter.StockLTE != nil {
		add("p.stock <= $%d", *filter.StockLTE)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(p.title ILIKE $%[1]d OR p.subtitle ILIKE $%[1]d OR p.description ILIKE $%[1]d)", "%"+search+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
