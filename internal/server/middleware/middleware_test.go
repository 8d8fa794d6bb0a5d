package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/pkg/logging"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func nop() *zerolog.Logger { return logging.NewNopLogger() }

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("m1"), mark("m2"), mark("m3"))(ok)
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"m1", "m2", "m3"}, order)
}

func TestLoggerAttachesContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)
	var got *zerolog.Logger
	h := Logger(tl.Logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logging.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/pairs", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	require.NotNil(t, got)
	assert.True(t, tl.Contains(`"status":418`))
	assert.True(t, tl.Contains(`"path":"/api/v1/pairs"`))
}

func TestRecovery(t *testing.T) {
	h := Recovery(nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestAuth(t *testing.T) {
	h := Auth(DefaultAuthConfig("s3cret", "/api/v1"), nop())(ok)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing token", "/api/v1/pairs", "", http.StatusUnauthorized},
		{"wrong token", "/api/v1/pairs", "Bearer nope", http.StatusUnauthorized},
		{"raw token without scheme", "/api/v1/pairs", "s3cret", http.StatusUnauthorized},
		{"valid token", "/api/v1/pairs", "Bearer s3cret", http.StatusOK},
		{"public health", "/api/v1/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.status, serve(h, r).Code)
		})
	}

	t.Run("query token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/updates/ws?token=s3cret", nil)
		assert.Equal(t, http.StatusOK, serve(h, r).Code)
	})
}

func TestAuthDisabledWithoutToken(t *testing.T) {
	h := Auth(DefaultAuthConfig("", "/api/v1"), nop())(ok)
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/pairs", nil)).Code)
}

func TestCORS(t *testing.T) {
	t.Run("any origin", func(t *testing.T) {
		h := CORS(DefaultCORSConfig(nil))(ok)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://app.example.com")
		assert.Equal(t, "*", serve(h, r).Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin", func(t *testing.T) {
		h := CORS(DefaultCORSConfig([]string{"https://app.example.com"}))(ok)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://app.example.com")
		w := serve(h, r)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		h := CORS(DefaultCORSConfig([]string{"https://app.example.com"}))(ok)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		assert.Empty(t, serve(h, r).Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		h := CORS(DefaultCORSConfig(nil))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("preflight must not reach the handler")
		}))
		w := serve(h, httptest.NewRequest(http.MethodOptions, "/api/v1/pairs", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, nop())
	rl.now = func() time.Time { return now }

	allowed, _ := rl.Allow("10.0.0.1")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("10.0.0.1")
	assert.True(t, allowed)

	allowed, wait := rl.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.InDelta(t, 30.0, wait.Seconds(), 0.01)

	// other clients have their own bucket
	allowed, _ = rl.Allow("10.0.0.2")
	assert.True(t, allowed)

	now = now.Add(31 * time.Second)
	allowed, _ = rl.Allow("10.0.0.1")
	assert.True(t, allowed)
}

func TestRateLimiterPurge(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, nop())
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(staleAfter + time.Second)
	rl.Allow("10.0.0.2")
	rl.purge()

	assert.NotContains(t, rl.buckets, "10.0.0.1")
	assert.Contains(t, rl.buckets, "10.0.0.2")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, nop())
	h := RateLimit(rl)(ok)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/pairs", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, http.StatusOK, serve(h, r).Code)

	r2 := httptest.NewRequest(http.MethodGet, "/api/v1/pairs", nil)
	r2.RemoteAddr = "192.0.2.7:6666"
	w := serve(h, r2)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}
