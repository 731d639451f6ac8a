package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.SecurityConfig{
		ContentTypeNosniff:    true,
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}

	w := serve(middleware.SecurityHeaders(cfg)(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	cfg := &config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 31536000, HSTSIncludeSubdomains: true}

	w := serve(middleware.SecurityHeaders(cfg)(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}

func TestRecovery_ReturnsJSON500(t *testing.T) {
	h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrorTypeInternal, body.Type)
}

func TestRecovery_RepanicsOnAbort(t *testing.T) {
	h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLogging_PropagatesRequestID(t *testing.T) {
	h := middleware.Logging(zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	assert.Equal(t, "req-123", serve(h, req).Header().Get("X-Request-ID"))

	generated := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Header().Get("X-Request-ID")
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
}

func TestRateLimiter_LimitsByIP(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 2,
		WhitelistPaths:    []string{"/health/*"},
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler)

	req := func(path string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.RemoteAddr = "10.0.0.1:1234"
		return r
	}

	assert.Equal(t, http.StatusOK, serve(h, req("/api")).Code)
	assert.Equal(t, http.StatusOK, serve(h, req("/api")).Code)
	w := serve(h, req("/api"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(h, req("/health/db")).Code, "whitelisted paths are not limited")
}

func TestRateLimiter_SystemCallersAreExempt(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinuteAuth: 1,
	}, zap.NewNop())
	h := rl.Limit(okHandler)

	withUser := func(u *auth.UserContext) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api", nil)
		return r.WithContext(auth.WithUserContext(r.Context(), u))
	}

	user := &auth.UserContext{UserID: uuid.New()}
	assert.Equal(t, http.StatusOK, serve(h, withUser(user)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, withUser(user)).Code)

	system := &auth.UserContext{UserID: uuid.New(), IsSystem: true}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(h, withUser(system)).Code)
	}
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{}, zap.NewNop())
	h := rl.LimitByIP(okHandler)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}
