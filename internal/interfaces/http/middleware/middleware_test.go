package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/shared/constants"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.POST("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminToken(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"disabled when unset", "", "anything", http.StatusNotFound},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "s3creT", http.StatusUnauthorized},
		{"prefix of token", "s3cret", "s3c", http.StatusUnauthorized},
		{"matching token", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(NewAdminToken(tt.configured, logger.NewNop()).Require())
			req := httptest.NewRequest(http.MethodPost, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAdminToken, tt.header)
			}
			assert.Equal(t, tt.wantStatus, serve(r, req).Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(constants.ContextKeyRequestID)
		c.Status(http.StatusOK)
	})

	t.Run("propagates caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(constants.HeaderXRequestID, "req-123")
		w := serve(r, req)
		assert.Equal(t, "req-123", w.Header().Get(constants.HeaderXRequestID))
		assert.Equal(t, "req-123", seen)
	})

	t.Run("generates when absent", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
		id := w.Header().Get(constants.HeaderXRequestID)
		assert.Len(t, id, 36)
		assert.Equal(t, id, seen)
	})
}

func TestCORS(t *testing.T) {
	r := newEngine(CORS([]string{"https://vote.example.com"}))

	t.Run("listed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://vote.example.com")
		w := serve(r, req)
		assert.Equal(t, "https://vote.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := serve(r, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "https://vote.example.com")
		assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
	})

	t.Run("wildcard", func(t *testing.T) {
		r := newEngine(CORS([]string{"*"}))
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://anything.example")
		assert.Equal(t, "https://anything.example", serve(r, req).Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), constants.ErrMsgInternalServerError)
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		_ = client.Close()
	})
	return client
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	client := setupTestRedis(t)
	r := newEngine(NewRateLimiter(client, 2, time.Minute, logger.NewNop()).Limit())

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	r := newEngine(NewRateLimiter(client, 1, time.Minute, logger.NewNop()).Limit())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	}
}
