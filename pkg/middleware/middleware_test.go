package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRedis is an in-memory RedisClient
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	err  error

	// setNXHeld makes SetNX report the key as held without storing it
	setNXHeld bool
	setNXErr  error
	sets      int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	f.sets++
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setNXErr != nil {
		return redis.NewBoolResult(false, f.setNXErr)
	}
	if _, ok := f.data[key]; ok || f.setNXHeld {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func idempotentRouter(store RedisClient, status *int, calls *int) *gin.Engine {
	r := gin.New()
	r.POST("/bookings", IdempotencyMiddleware(DefaultIdempotencyConfig(store)), func(c *gin.Context) {
		*calls++
		c.JSON(*status, gin.H{"call": *calls})
	})
	return r
}

func post(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	status, calls := http.StatusCreated, 0
	r := idempotentRouter(newFakeRedis(), &status, &calls)

	first := post(r, "key-1", `{"trailId":"t1"}`)
	second := post(r, "key-1", `{"trailId":"t1"}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, 1, calls)
}

func TestIdempotency_KeyReusedWithDifferentBody(t *testing.T) {
	status, calls := http.StatusCreated, 0
	r := idempotentRouter(newFakeRedis(), &status, &calls)

	post(r, "key-1", `{"trailId":"t1"}`)
	w := post(r, "key-1", `{"trailId":"t2"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Equal(t, 1, calls)
}

func TestIdempotency_InProgress(t *testing.T) {
	store := newFakeRedis()
	status, calls := http.StatusCreated, 0
	r := idempotentRouter(store, &status, &calls)

	// a concurrent request holds the processing record
	body := `{"trailId":"t1"}`
	post(r, "key-1", body)
	store.mu.Lock()
	for k, v := range store.data {
		store.data[k] = strings.Replace(v, `"status":"completed"`, `"status":"processing"`, 1)
	}
	store.mu.Unlock()

	w := post(r, "key-1", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_IN_PROGRESS")
}

func TestIdempotency_LostKeyWithoutRecord(t *testing.T) {
	// the winning request's record expired or could not be read back
	store := newFakeRedis()
	store.setNXHeld = true
	status, calls := http.StatusCreated, 0
	r := idempotentRouter(store, &status, &calls)

	w := post(r, "key-1", `{"trailId":"t1"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_IN_PROGRESS")
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, store.sets)
	assert.Empty(t, store.data)
}

func TestIdempotency_FailOpenWhenSetNXErrors(t *testing.T) {
	store := newFakeRedis()
	store.setNXErr = assert.AnError
	status, calls := http.StatusCreated, 0
	r := idempotentRouter(store, &status, &calls)

	w := post(r, "key-1", `{"trailId":"t1"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, store.sets)
}

func TestIdempotency_ServerErrorNotCached(t *testing.T) {
	status, calls := http.StatusInternalServerError, 0
	r := idempotentRouter(newFakeRedis(), &status, &calls)

	post(r, "key-1", `{}`)
	status = http.StatusCreated
	w := post(r, "key-1", `{}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_OptionalKey(t *testing.T) {
	status, calls := http.StatusCreated, 0
	r := idempotentRouter(newFakeRedis(), &status, &calls)

	post(r, "", `{}`)
	post(r, "", `{}`)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_RequiredKey(t *testing.T) {
	cfg := DefaultIdempotencyConfig(newFakeRedis())
	cfg.RequireKey = true
	r := gin.New()
	r.POST("/bookings", IdempotencyMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := post(r, "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotency_FailOpenOnRedisError(t *testing.T) {
	store := newFakeRedis()
	store.err = assert.AnError
	status, calls := http.StatusCreated, 0
	r := idempotentRouter(store, &status, &calls)

	w := post(r, "key-1", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
}

func TestRequestID_UsesExisting(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "existing-request-id-123", w.Body.String())
	assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
}

func TestRequestID_GeneratesNew(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(logger.NewNop()))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authRouter(cfg *JWTConfig) *gin.Engine {
	r := gin.New()
	r.POST("/admin", JWTAuth(cfg), RequireRole(RoleAdmin), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id)
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	cfg := &JWTConfig{Secret: "test-secret", Issuer: "trail-booking"}
	valid := func(role string) Claims {
		return Claims{
			UserID: "admin-1",
			Role:   role,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "trail-booking",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}
	expired := valid(RoleAdmin)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", valid(RoleAdmin)), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "test-secret", expired), http.StatusUnauthorized},
		{"not admin", "Bearer " + signToken(t, "test-secret", valid("visitor")), http.StatusForbidden},
		{"admin", "Bearer " + signToken(t, "test-secret", valid(RoleAdmin)), http.StatusOK},
	}

	r := authRouter(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "admin-1", w.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantHeader string
	}{
		{"wildcard", []string{"*"}, "https://trails.example.com", "*"},
		{"listed origin", []string{"https://trails.example.com"}, "https://trails.example.com", "https://trails.example.com"},
		{"unlisted origin", []string{"https://trails.example.com"}, "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.origins))
			r.POST("/bookings", func(c *gin.Context) { c.Status(http.StatusCreated) })

			req := httptest.NewRequest(http.MethodOptions, "/bookings", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantHeader, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
