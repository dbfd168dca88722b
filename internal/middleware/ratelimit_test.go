package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"shop-api/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	mr, redisClient := newTestRedis(t)
	properties := gopter.NewProperties(nil)

	properties.Property("excessive requests are blocked with 429", prop.ForAll(
		func(requestsPerWindow int, excessRequests int) bool {
			mr.FlushAll()

			handler := RateLimitMiddleware(redisClient, RateLimitConfig{
				RequestsPerWindow: requestsPerWindow,
				Window:            time.Minute,
				KeyPrefix:         "test_rate_limit",
			}, zap.NewNop())(okHandler())

			successCount, blockedCount := 0, 0
			for i := 0; i < requestsPerWindow+excessRequests; i++ {
				req := httptest.NewRequest("POST", "/auth/token", nil)
				req.RemoteAddr = "192.168.1.100:" + strconv.Itoa(40000+i)
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				switch w.Code {
				case http.StatusOK:
					successCount++
				case http.StatusTooManyRequests:
					blockedCount++
				}
			}

			// The port changes per request; the limit applies per host.
			return successCount == requestsPerWindow && blockedCount == excessRequests
		},
		gen.IntRange(5, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimitHeaders(t *testing.T) {
	_, redisClient := newTestRedis(t)
	handler := RateLimitMiddleware(redisClient, RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            30 * time.Second,
		KeyPrefix:         "headers",
	}, zap.NewNop())(okHandler())

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/auth/token", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	w := serve()
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	serve()
	w = serve()
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitWindowExpires(t *testing.T) {
	mr, redisClient := newTestRedis(t)
	handler := RateLimitMiddleware(redisClient, RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		KeyPrefix:         "window",
	}, zap.NewNop())(okHandler())

	serve := func() int {
		req := httptest.NewRequest("POST", "/auth/register", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve())
	assert.Equal(t, http.StatusTooManyRequests, serve())

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, serve())
}

func TestRateLimitKeysByUser(t *testing.T) {
	mr, redisClient := newTestRedis(t)
	handler := RateLimitMiddleware(redisClient, RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		KeyPrefix:         "rl",
	}, zap.NewNop())(okHandler())

	user := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	req := httptest.NewRequest("POST", "/orders", nil)
	req = req.WithContext(WithUser(req.Context(), user))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, mr.Exists("rl:"+user.ID.String()))
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer redisClient.Close()
	mr.Close()

	handler := RateLimitMiddleware(redisClient, RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		KeyPrefix:         "down",
	}, zap.NewNop())(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/auth/token", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
