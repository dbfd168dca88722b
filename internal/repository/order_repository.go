package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"shop-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockConflictError reports a product whose conditional stock decrement
// matched no row. Index is the first line in Order.Items naming it.
type StockConflictError struct {
	Index     int
	ProductID int64
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (item %d)", e.ProductID, e.Index)
}

func (e *StockConflictError) Unwrap() error { return ErrInsufficientStock }

var orderSortFields = map[string]string{
	"created_at": "o.created_at",
	"status":     "o.status",
}

// OrderFilter narrows an order listing
type OrderFilter struct {
	// UserID restricts the listing to one owner; nil lists every order.
	UserID    *uuid.UUID
	SortBy    string
	SortOrder SortOrder
	Page      int
	PageSize  int
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// CreateWithItems persists the order, its items and the matching stock
	// decrements in one transaction.
	CreateWithItems(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	Delete(ctx context.Context, id int64) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateWithItems(ctx context.Context, order *domain.Order) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Product rows are locked in ascending id order so that concurrent
	// orders over the same products cannot deadlock.
	for _, d := range stockDemands(order.Items) {
		if err = decrementStock(ctx, tx, d); err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, status, total_price, shipping_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, order.UserID, order.Status, order.TotalPrice, order.ShippingAddress).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err, "fk_orders_user") {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		item.OrderID = order.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_snapshot)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, item.OrderID, item.ProductID, item.Quantity, item.PriceSnapshot).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// stockDemand is the total quantity an order takes from one product.
// Index is the first line in Order.Items naming the product.
type stockDemand struct {
	Index     int
	ProductID int64
	Quantity  int
}

func stockDemands(items []*domain.OrderItem) []stockDemand {
	byProduct := make(map[int64]int, len(items))
	demands := make([]stockDemand, 0, len(items))
	for i, item := range items {
		if pos, ok := byProduct[item.ProductID]; ok {
			demands[pos].Quantity += item.Quantity
			continue
		}
		byProduct[item.ProductID] = len(demands)
		demands = append(demands, stockDemand{Index: i, ProductID: item.ProductID, Quantity: item.Quantity})
	}

	sort.Slice(demands, func(i, j int) bool { return demands[i].ProductID < demands[j].ProductID })
	return demands
}

// decrementStock takes quantity off the product only if enough is left
func decrementStock(ctx context.Context, q querier, d stockDemand) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		d.ProductID, d.Quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := affectedOne(result, ErrInsufficientStock); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return &StockConflictError{Index: d.Index, ProductID: d.ProductID}
		}
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	return nil
}

const orderSelect = `
	SELECT o.id, o.user_id, u.username, o.status, o.total_price, o.shipping_address, o.created_at, o.updated_at
	FROM orders o
	JOIN users u ON u.id = o.user_id
`

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{Items: []*domain.OrderItem{}}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Username,
		&order.Status,
		&order.TotalPrice,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order together with its items and their products
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	sortColumn, ok := orderSortFields[filter.SortBy]
	if !ok {
		sortColumn = "o.created_at"
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

	whereClause := ""
	args := []any{}
	if filter.UserID != nil {
		whereClause = "WHERE o.user_id = $1"
		args = append(args, *filter.UserID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY %s %s, o.id %s LIMIT $%d OFFSET $%d`,
		orderSelect, whereClause, sortColumn, sortOrder, sortOrder, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// attachItems loads the items of every order in one query
func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_snapshot,
		       p.id, p.category_id, p.title, p.subtitle, p.description, p.price, p.stock,
		       p.rating, p.image_url, p.is_active, p.created, c.id, c.name, c.slug
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &domain.OrderItem{Product: &domain.Product{Category: &domain.Category{}}}
		p := item.Product
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceSnapshot,
			&p.ID, &p.CategoryID, &p.Title, &p.Subtitle, &p.Description, &p.Price, &p.Stock,
			&p.Rating, &p.ImageURL, &p.IsActive, &p.Created, &p.Category.ID, &p.Category.Name, &p.Category.Slug,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return affectedOne(result, ErrOrderNotFound)
}

// Delete removes an order; its items are removed by the cascade
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	return affectedOne(result, ErrOrderNotFound)
}
