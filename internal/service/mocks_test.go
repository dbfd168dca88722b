package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"shop-api/internal/domain"
	"shop-api/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUsernameTaken
	}
	if user.Email != "" {
		if _, err := m.FindByEmail(ctx, user.Email); err == nil {
			return repository.ErrEmailTaken
		}
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if email != "" && user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists || refreshToken.Revoked {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	for key, token := range m.tokens {
		if token.UserID == userID && token.ExpiresAt.Before(now) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

type mockCategoryRepository struct {
	categories map[int64]*domain.Category
	nextID     int64
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[int64]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if c.Slug == category.Slug {
			return repository.ErrCategorySlugExists
		}
	}
	m.nextID++
	category.ID = m.nextID
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return c, nil
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	nextID   int64
	lastList repository.ProductFilter
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[int64]*domain.Product)}
}

// add stores a copy of p and returns its id
func (m *mockProductRepository) add(p domain.Product) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = &p
	return p.ID
}

func (m *mockProductRepository) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = m.add(*product)
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = filter
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

// mockOrderRepository applies the same conditional decrement the database
// does, against mockProductRepository.
type mockOrderRepository struct {
	products *mockProductRepository
	orders   map[int64]*domain.Order
	nextID   int64
	lastList repository.OrderFilter
}

func newMockOrderRepository(products *mockProductRepository) *mockOrderRepository {
	return &mockOrderRepository{products: products, orders: make(map[int64]*domain.Order)}
}

func (m *mockOrderRepository) CreateWithItems(ctx context.Context, order *domain.Order) error {
	m.products.mu.Lock()
	defer m.products.mu.Unlock()

	for i, item := range order.Items {
		p, ok := m.products.products[item.ProductID]
		if !ok || p.Stock < item.Quantity {
			return &repository.StockConflictError{Index: i, ProductID: item.ProductID}
		}
	}
	for _, item := range order.Items {
		m.products.products[item.ProductID].Stock -= item.Quantity
	}

	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	for i, item := range order.Items {
		item.ID = int64(i + 1)
		item.OrderID = order.ID
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	m.lastList = filter
	var out []*domain.Order
	for _, o := range m.orders {
		if filter.UserID == nil || o.UserID == *filter.UserID {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

type recordingNotifier struct {
	welcomed []string
	placed   []int64
	err      error
}

func (n *recordingNotifier) Welcome(ctx context.Context, user *domain.User) error {
	n.welcomed = append(n.welcomed, user.Username)
	return n.err
}

func (n *recordingNotifier) OrderPlaced(ctx context.Context, user *domain.User, order *domain.Order) error {
	n.placed = append(n.placed, order.ID)
	return n.err
}
