package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"shop-api/internal/domain"
	"shop-api/internal/notification"
	"shop-api/internal/repository"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Messages reported for a rejected order line
const (
	msgNoItems            = "Order must contain at least one item."
	msgInvalidProductID   = "product id is invalid or missing."
	msgProductNotFound    = "Product with id %d does not exist."
	msgQuantityNotInteger = "Quantity must be an integer."
	msgQuantityTooSmall   = "Quantity must be at least 1."
	msgInsufficientStock  = "Not enough stock for product '%s' (available %d)."
	msgTotalTooLarge      = "Order total must not exceed %s."
)

var errNotInteger = errors.New("not an integer")

// OrderOrderingFields are the accepted values of the ordering parameter
var OrderOrderingFields = []string{"created_at", "status"}

// ItemRequest is one requested order line. Both fields hold the decoded
// JSON values as sent by the client: numbers, numeric strings or nil.
type ItemRequest struct {
	ProductID any
	Quantity  any
}

// OrderQuery selects a page of orders
type OrderQuery struct {
	Ordering string
	Page     int
	PageSize int
}

// OrderService defines the order workflow
type OrderService interface {
	CreateOrder(ctx context.Context, user *domain.User, shippingAddress string, items []ItemRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, user *domain.User, query OrderQuery) (Page[*domain.Order], error)
	GetOrder(ctx context.Context, user *domain.User, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, actor *domain.User, id int64, status string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, actor *domain.User, id int64) error
}

type orderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	notifier notification.Notifier
	logger   *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	notifier notification.Notifier,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orders:   orders,
		products: products,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateOrder validates every requested line before anything is written.
// When all lines pass, the order, its items and the stock decrements are
// stored in one transaction and the confirmation email is sent. Otherwise
// nothing is stored and the returned ItemErrors holds one entry per failing
// line.
func (s *orderService) CreateOrder(ctx context.Context, user *domain.User, shippingAddress string, items []ItemRequest) (*domain.Order, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	if len(items) == 0 {
		return nil, NewValidationError("items", msgNoItems)
	}

	lines, inputIndex, err := s.prepareLines(ctx, items)
	if err != nil {
		return nil, err
	}

	total := domain.CalculateTotal(lines)
	if total.GreaterThan(domain.MaxOrderTotal) {
		return nil, NewValidationError("items", fmt.Sprintf(msgTotalTooLarge, domain.MaxOrderTotal.StringFixed(2)))
	}

	order := &domain.Order{
		UserID:          user.ID,
		Username:        user.Username,
		Status:          domain.OrderStatusPending,
		TotalPrice:      total,
		ShippingAddress: shippingAddress,
		Items:           lines,
	}

	if err := s.orders.CreateWithItems(ctx, order); err != nil {
		var conflict *repository.StockConflictError
		if errors.As(err, &conflict) {
			return nil, s.stockConflict(ctx, inputIndex[conflict.Index], conflict.ProductID)
		}
		// The account was deleted after its token was issued.
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrAuthenticationRequired
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("user_id", user.ID.String()),
		zap.Int("items", len(order.Items)),
		zap.String("total_price", order.TotalPrice.StringFixed(2)),
	)

	// The order is committed at this point; a failed email does not undo it.
	if err := s.notifier.OrderPlaced(ctx, user, order); err != nil {
		s.logger.Error("Order confirmation email failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return order, nil
}

// prepareLines resolves and checks every requested line. It returns the
// valid lines and, for each, its position in items.
func (s *orderService) prepareLines(ctx context.Context, items []ItemRequest) ([]*domain.OrderItem, []int, error) {
	var (
		lines      = make([]*domain.OrderItem, 0, len(items))
		inputIndex = make([]int, 0, len(items))
		itemErrs   ItemErrors
		requested  = make(map[int64]int)
	)

	for idx, raw := range items {
		reject := func(format string, args ...any) {
			itemErrs = append(itemErrs, ItemError{Index: idx, Message: fmt.Sprintf(format, args...)})
		}

		productID, ok := parseProductID(raw.ProductID)
		if !ok {
			reject(msgInvalidProductID)
			continue
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				reject(msgProductNotFound, productID)
				continue
			}
			return nil, nil, fmt.Errorf("failed to load product %d: %w", productID, err)
		}

		quantity, ok := parseQuantity(raw.Quantity)
		if !ok {
			reject(msgQuantityNotInteger)
			continue
		}
		if quantity <= 0 {
			reject(msgQuantityTooSmall)
			continue
		}

		// Lines for the same product draw on the same stock.
		if product.Stock < requested[productID]+quantity {
			reject(msgInsufficientStock, product.Title, product.Stock)
			continue
		}
		requested[productID] += quantity

		lines = append(lines, &domain.OrderItem{
			ProductID:     product.ID,
			Quantity:      quantity,
			PriceSnapshot: product.Price,
			Product:       product,
		})
		inputIndex = append(inputIndex, idx)
	}

	if len(itemErrs) > 0 {
		return nil, nil, itemErrs
	}
	return lines, inputIndex, nil
}

// stockConflict reports a line that lost a race for the remaining stock
func (s *orderService) stockConflict(ctx context.Context, idx int, productID int64) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to reload product %d after stock conflict: %w", productID, err)
	}

	s.logger.Warn("Stock changed while placing order",
		zap.Int64("product_id", productID),
		zap.Int("available", product.Stock),
	)

	return ItemErrors{{Index: idx, Message: fmt.Sprintf(msgInsufficientStock, product.Title, product.Stock)}}
}

func parseProductID(v any) (int64, bool) {
	id, err := toInteger(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseQuantity(v any) (int, bool) {
	q, err := toInteger(v)
	if err != nil || q > math.MaxInt32 || q < math.MinInt32 {
		return 0, false
	}
	return int(q), true
}

// toInteger accepts integral numbers and numeric strings, including a
// zero fraction such as 2.0. Other fractions, bools and nil are rejected
// rather than truncated.
func toInteger(v any) (int64, error) {
	switch n := v.(type) {
	case nil, bool:
		return 0, errNotInteger
	case json.Number:
		return parseIntegral(n.String())
	case float32, float64:
		return integralFloat(cast.ToFloat64(n))
	case string:
		return parseIntegral(strings.TrimSpace(n))
	}
	return cast.ToInt64E(v)
}

func parseIntegral(s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotInteger
	}
	return integralFloat(f)
}

// integralFloat converts f when it has no fractional part and fits in int64
func integralFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errNotInteger
	}
	return int64(f), nil
}

// ListOrders returns every order to admins and only their own to other users
func (s *orderService) ListOrders(ctx context.Context, user *domain.User, query OrderQuery) (Page[*domain.Order], error) {
	if user == nil {
		return Page[*domain.Order]{}, ErrAuthenticationRequired
	}

	page, size := NormalizePage(query.Page, query.PageSize)
	sortBy, sortOrder := ParseOrdering(query.Ordering, OrderOrderingFields, "-created_at")

	filter := repository.OrderFilter{SortBy: sortBy, SortOrder: sortOrder, Page: page, PageSize: size}
	if !user.IsAdmin() {
		filter.UserID = &user.ID
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return Page[*domain.Order]{}, err
	}

	return Page[*domain.Order]{Items: orders, Total: total, Page: page, PageSize: size}, nil
}

// GetOrder hides other users' orders behind ErrOrderNotFound
func (s *orderService) GetOrder(ctx context.Context, user *domain.User, id int64) (*domain.Order, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() && order.UserID != user.ID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, status string) (*domain.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	next := domain.OrderStatus(status)
	if !next.Valid() {
		return nil, NewValidationError("status", "Invalid status")
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, order.Status, next)
	}

	if order.Status != next {
		if err := s.orders.UpdateStatus(ctx, id, next); err != nil {
			return nil, err
		}
		s.logger.Info("Order status updated",
			zap.Int64("order_id", id),
			zap.String("from", string(order.Status)),
			zap.String("to", string(next)),
		)
		order.Status = next
	}

	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, actor *domain.User, id int64) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Order deleted", zap.Int64("order_id", id))
	return nil
}
