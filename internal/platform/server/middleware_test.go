package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Get("/routers/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("test"))
	})

	req := httptest.NewRequest(http.MethodGet, "/routers/books?x=1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Body.String())
	out := buf.String()
	assert.Contains(t, out, `"route":"/routers/{name}"`)
	assert.Contains(t, out, `"request_id"`)
	assert.Contains(t, out, `"query":"x=1"`)
}

func TestRecoverer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	wrappedHandler := Recoverer(logger)(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		wrappedHandler.ServeHTTP(rec, req)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name            string
		allowedOrigins  []string
		requestOrigin   string
		method          string
		expectAllowCORS bool
	}{
		{
			name:            "wildcard allows any origin",
			allowedOrigins:  []string{"*"},
			requestOrigin:   "https://example.com",
			method:          http.MethodGet,
			expectAllowCORS: true,
		},
		{
			name:            "specific origin allowed",
			allowedOrigins:  []string{"https://example.com"},
			requestOrigin:   "https://example.com",
			method:          http.MethodGet,
			expectAllowCORS: true,
		},
		{
			name:            "origin not allowed",
			allowedOrigins:  []string{"https://example.com"},
			requestOrigin:   "https://evil.com",
			method:          http.MethodGet,
			expectAllowCORS: false,
		},
		{
			name:            "preflight request",
			allowedOrigins:  []string{"*"},
			requestOrigin:   "https://example.com",
			method:          http.MethodOptions,
			expectAllowCORS: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrappedHandler := CORS(tt.allowedOrigins)(okHandler())

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			rec := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(rec, req)

			if tt.method == http.MethodOptions {
				assert.Equal(t, http.StatusNoContent, rec.Code)
			}

			if tt.expectAllowCORS {
				assert.Equal(t, tt.requestOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), NavigationTokenHeader)
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	wrappedHandler := SecurityHeaders()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestNavigationAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name           string
		hash           string
		token          string
		expectedStatus int
	}{
		{name: "valid token", hash: string(hash), token: "s3cret", expectedStatus: http.StatusOK},
		{name: "missing token", hash: string(hash), token: "", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", hash: string(hash), token: "nope", expectedStatus: http.StatusUnauthorized},
		{name: "disabled", hash: "", token: "", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrappedHandler := NavigationAuth(tt.hash, logger)(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/navigate", nil)
			if tt.token != "" {
				req.Header.Set(NavigationTokenHeader, tt.token)
			}
			rec := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (c *fakeCounter) IncrementWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

func TestRateLimit(t *testing.T) {
	counter := &fakeCounter{}
	wrappedHandler := RateLimit(RateLimitConfig{
		Counter: counter,
		Limit:   2,
		Window:  time.Minute,
	})(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/navigate", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	assert.Equal(t, int64(3), counter.counts["subroute:ratelimit:ip:10.0.0.1"])

	req := httptest.NewRequest(http.MethodPost, "/navigate", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	wrappedHandler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	wrappedHandler := RateLimit(RateLimitConfig{
		Counter: &fakeCounter{err: errors.New("redis down")},
		Limit:   1,
		Window:  time.Second,
	})(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/navigate", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	wrappedHandler := RateLimit(RateLimitConfig{Limit: 1, Window: time.Second})(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/navigate", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
