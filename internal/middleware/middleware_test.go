package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/config"
	apierrors "solarcli/internal/errors"
	"solarcli/internal/infrastructure"
	"solarcli/internal/shared/testutil"
)

func testLogger() *slog.Logger {
	return infrastructure.NewLogger("error", io.Discard)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	r.RemoteAddr = addr
	return r
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "abc-123", wantSame: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, trace string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.GetReqID(r.Context())
				trace = infrastructure.GetTraceID(r.Context())
			}))

			r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.incoming != "" {
				r.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			assert.Equal(t, seen, trace)
			if tt.wantSame {
				assert.Equal(t, tt.incoming, seen)
			}
		})
	}
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	ctx := infrastructure.WithTraceID(context.Background(), "trace-1")
	assert.Equal(t, "trace-1", GetRequestID(ctx))

	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestRateLimiter(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	rl := NewRateLimiter(1, 2, apierrors.NewErrorHandler(logger, false), logger)
	handler := rl.Handler(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("192.0.2.1:5000"))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), apierrors.TypeRateLimit)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("192.0.2.2:5000"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, rl.Clients())

	testutil.AssertLogContains(t, capture, slog.LevelWarn, "rate limit exceeded")
	testutil.AssertLogAttr(t, capture, "client", "192.0.2.1")
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	rl := NewRateLimiter(10, 10, apierrors.NewErrorHandler(testLogger(), false), testLogger())
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }

	for i := 0; i < maxTrackedClients; i++ {
		rl.limiter(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	require.Equal(t, maxTrackedClients, rl.Clients())

	rl.now = func() time.Time { return start.Add(10 * time.Minute) }
	rl.limiter("198.51.100.7")
	assert.Equal(t, 1, rl.Clients())
}

func TestRateLimit_Disabled(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}, apierrors.NewErrorHandler(testLogger(), false), testLogger())
	handler := mw(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("192.0.2.1:5000"))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestTimeout(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)

	var hadDeadline bool
	handler := Timeout(20*time.Millisecond, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
		<-r.Context().Done()
		w.WriteHeader(http.StatusGatewayTimeout)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/aggregate", nil))

	assert.True(t, hadDeadline)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	testutil.AssertLogContains(t, capture, slog.LevelWarn, "request exceeded deadline")
	testutil.AssertLogAttr(t, capture, "component", "timeout")
}

func TestCORS(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"http://dashboard.local"}})

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed string
	}{
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "allowed origin", method: http.MethodGet, origin: "http://dashboard.local", wantStatus: http.StatusOK, wantAllowed: "http://dashboard.local"},
		{name: "foreign origin", method: http.MethodGet, origin: "http://evil.example", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://dashboard.local", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: "http://dashboard.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/ranking", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				r.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllowed, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.preflight {
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
				assert.Equal(t, "300", w.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/countries", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
