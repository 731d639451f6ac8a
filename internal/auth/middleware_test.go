package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type stubUsers map[uuid.UUID]*domain.User

func (s stubUsers) GetActiveByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s[id], nil
}

func newUser(role domain.UserRoleType) *domain.User {
	u := &domain.User{Name: "Kari", Email: "kari@example.com", IsActive: true, Role: &domain.Role{Name: role}}
	u.ID = uuid.New()
	return u
}

func serve(t *testing.T, mw *auth.Middleware, req *http.Request) (*httptest.ResponseRecorder, *auth.UserContext) {
	t.Helper()
	var captured *auth.UserContext
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, captured
}

func TestMiddleware_Authenticate_WithAPIKey(t *testing.T) {
	mw := auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret, APIKey: "key-123"}, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enquiries", nil)
	req.Header.Set("x-api-key", "key-123")
	w, userCtx := serve(t, mw, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, userCtx)
	assert.True(t, userCtx.IsSystem)
	assert.True(t, userCtx.IsAdmin())
	assert.Nil(t, userCtx.ActorID())
	assert.True(t, userCtx.HasRole(domain.RoleAPIService))
}

func TestMiddleware_Authenticate_WithInvalidAPIKey(t *testing.T) {
	mw := auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret, APIKey: "key-123"}, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enquiries", nil)
	req.Header.Set("x-api-key", "wrong")
	w, userCtx := serve(t, mw, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, userCtx)
}

func TestMiddleware_Authenticate_BearerToken(t *testing.T) {
	user := newUser(domain.RoleSalesperson)
	token, err := auth.IssueToken(testSecret, "enquiry-api", user, time.Hour, time.Now())
	require.NoError(t, err)

	mw := auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret, Issuer: "enquiry-api"}, nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/enquiries", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, userCtx := serve(t, mw, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, userCtx)
	assert.Equal(t, user.ID, userCtx.UserID)
	assert.Equal(t, []domain.UserRoleType{domain.RoleSalesperson}, userCtx.Roles)
	assert.False(t, userCtx.IsManagement())
}

func TestMiddleware_Authenticate_RefreshesFromLookup(t *testing.T) {
	user := newUser(domain.RoleSalesperson)
	token, err := auth.IssueToken(testSecret, "", user, time.Hour, time.Now())
	require.NoError(t, err)

	promoted := *user
	promoted.Role = &domain.Role{Name: domain.RoleManager}
	mw := auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret}, stubUsers{user.ID: &promoted}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, userCtx := serve(t, mw, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, userCtx)
	assert.True(t, userCtx.IsManagement())

	// deactivated users are not found by the lookup
	mw = auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret}, stubUsers{}, zap.NewNop())
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, _ = serve(t, mw, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_Authenticate_RejectsBadTokens(t *testing.T) {
	user := newUser(domain.RoleAdmin)
	mw := auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret}, nil, zap.NewNop())

	expired, err := auth.IssueToken(testSecret, "", user, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := auth.IssueToken("other-secret", "", user, time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"expired", "Bearer " + expired},
		{"wrong signature", "Bearer " + foreign},
		{"garbage", "Bearer not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w, userCtx := serve(t, mw, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Nil(t, userCtx)
		})
	}
}

func TestMiddleware_RequireAdmin(t *testing.T) {
	mw := auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret}, nil, zap.NewNop())
	handler := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for role, want := range map[domain.UserRoleType]int{
		domain.RoleAdmin:       http.StatusNoContent,
		domain.RoleSuperuser:   http.StatusNoContent,
		domain.RoleManager:     http.StatusForbidden,
		domain.RoleSalesperson: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{Roles: []domain.UserRoleType{role}}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestExtractRoles_DropsUnknown(t *testing.T) {
	roles := auth.ExtractRoles([]string{"admin", "wizard", "viewer"})
	assert.Equal(t, []domain.UserRoleType{domain.RoleAdmin, domain.RoleViewer}, roles)
}
