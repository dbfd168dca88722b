package server

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shop-api/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDatabase struct {
	status string
}

func (f fakeDatabase) Health() map[string]string { return map[string]string{"status": f.status} }
func (f fakeDatabase) DB() *sql.DB                { return nil }
func (f fakeDatabase) Close() error               { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	mr := miniredis.RunT(t)

	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "production", AllowedOrigins: []string{"http://shop.test"}},
		Redis:     config.RedisConfig{Host: mr.Host(), Port: mr.Port()},
		JWT:       config.JWTConfig{Secret: "test-secret", AccessExpiry: 15, RefreshExpiry: 7},
		RateLimit: config.RateLimitConfig{Requests: 2, WindowSeconds: 60},
		Notify:    config.NotifyConfig{Transport: "log", FromEmail: "no-reply@shop.test"},
	}
}

func newTestServer(t *testing.T, db fakeDatabase) *Server {
	t.Helper()
	srv, err := NewServer(testConfig(t), zap.NewNop(), db)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(newTestServer(t, fakeDatabase{status: "up"}), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"up"}`, w.Body.String())

	w = serve(newTestServer(t, fakeDatabase{status: "down"}), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	srv := newTestServer(t, fakeDatabase{status: "up"})

	for _, path := range []string{"/api/v1/orders/", "/api/v1/auth/me"} {
		w := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	srv := newTestServer(t, fakeDatabase{status: "up"})

	var codes []int
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		codes = append(codes, serve(srv, req).Code)
	}

	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, fakeDatabase{status: "up"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", "http://shop.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	w := serve(srv, req)
	assert.Equal(t, "http://shop.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBootstrapAdminDisabledWithoutCredentials(t *testing.T) {
	srv := newTestServer(t, fakeDatabase{status: "up"})
	assert.NoError(t, srv.BootstrapAdmin(t.Context()))
}
