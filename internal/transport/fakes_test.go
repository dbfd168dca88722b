package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/repository"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	customer = &domain.User{ID: uuid.MustParse("5b0f3c1e-2f7e-4c53-9d0a-1f4f2d1c0a01"), Username: "carol", Email: "carol@example.com", Role: domain.RoleUser}
	admin    = &domain.User{ID: uuid.MustParse("5b0f3c1e-2f7e-4c53-9d0a-1f4f2d1c0a02"), Username: "admin", Email: "admin@example.com", Role: domain.RoleAdmin}
)

const (
	customerToken = "customer-token"
	adminToken    = "admin-token"
)

// stubTokens accepts a fixed set of opaque tokens
type stubTokens map[string]*domain.User

func (s stubTokens) ValidateToken(token string) (*service.Claims, error) {
	user, ok := s[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return &service.Claims{UserID: user.ID, Role: user.Role, Username: user.Username, Email: user.Email}, nil
}

type routerDeps struct {
	users   service.UserService
	catalog service.CatalogService
	orders  service.OrderService
}

// newTestRouter mounts the handlers the way the server does, with stub
// token validation and no rate limiting
func newTestRouter(deps routerDeps) http.Handler {
	logger := zap.NewNop()
	auth := middleware.AuthMiddleware(stubTokens{customerToken: customer, adminToken: admin}, logger)
	adminOnly := middleware.RequireAdmin(logger)
	noLimit := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	r.Use(chimw.StripSlashes)
	r.Route("/api/v1", func(r chi.Router) {
		if deps.users != nil {
			NewUserHandler(deps.users, logger).RegisterRoutes(r, auth, noLimit)
		}
		if deps.catalog != nil {
			NewCatalogHandler(deps.catalog, logger).RegisterRoutes(r, auth, adminOnly)
		}
		if deps.orders != nil {
			NewOrderHandler(deps.orders, logger).RegisterRoutes(r, auth, adminOnly)
		}
	})
	return r
}

// doRequest sends body (raw string or JSON-encoded value) with an optional
// bearer token
func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type stubOrderService struct {
	gotUser    *domain.User
	gotAddress string
	gotItems   []service.ItemRequest
	gotQuery   service.OrderQuery
	gotStatus  string

	order *domain.Order
	page  service.Page[*domain.Order]
	err   error
}

func (s *stubOrderService) CreateOrder(ctx context.Context, user *domain.User, shippingAddress string, items []service.ItemRequest) (*domain.Order, error) {
	s.gotUser, s.gotAddress, s.gotItems = user, shippingAddress, items
	return s.order, s.err
}

func (s *stubOrderService) ListOrders(ctx context.Context, user *domain.User, query service.OrderQuery) (service.Page[*domain.Order], error) {
	s.gotUser, s.gotQuery = user, query
	return s.page, s.err
}

func (s *stubOrderService) GetOrder(ctx context.Context, user *domain.User, id int64) (*domain.Order, error) {
	s.gotUser = user
	return s.order, s.err
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, status string) (*domain.Order, error) {
	s.gotUser, s.gotStatus = actor, status
	return s.order, s.err
}

func (s *stubOrderService) DeleteOrder(ctx context.Context, actor *domain.User, id int64) error {
	s.gotUser = actor
	return s.err
}

type stubCatalogService struct {
	gotFilter   repository.ProductFilter
	gotProduct  *domain.Product
	gotCategory *domain.Category

	products   service.Page[*domain.Product]
	categories []*domain.Category
	err        error
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories, s.err
}

func (s *stubCatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Category{ID: id, Name: "Books", Slug: "books"}, nil
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, category *domain.Category) error {
	s.gotCategory = category
	category.ID = 1
	return s.err
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, category *domain.Category) error {
	s.gotCategory = category
	return s.err
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.err
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (service.Page[*domain.Product], error) {
	s.gotFilter = filter
	return s.products, s.err
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id, Title: "Mug"}, nil
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, product *domain.Product) error {
	s.gotProduct = product
	product.ID = 7
	return s.err
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, product *domain.Product) error {
	s.gotProduct = product
	return s.err
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id int64) error {
	return s.err
}
