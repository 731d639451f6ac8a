package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/straye-as/enquiry-api/internal/app"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/http/handler"
	"github.com/straye-as/enquiry-api/internal/http/middleware"
	"github.com/straye-as/enquiry-api/internal/http/router"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSecret = "router-test-secret"
	testIssuer = "enquiry-api"
	testAPIKey = "system-key"
)

type server struct {
	t   *testing.T
	db  *gorm.DB
	now time.Time
	h   http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	now := time.Now().UTC().Truncate(time.Second)

	cfg := &config.Config{
		App:  config.AppConfig{Environment: "development"},
		Auth: config.AuthConfig{JWTSecret: testSecret, Issuer: testIssuer, APIKey: testAPIKey},
	}
	svc, err := app.Build(cfg, db, logger, app.Options{
		Clock: service.ClockFunc(func() time.Time { return now }),
	})
	require.NoError(t, err)

	rt := router.NewRouter(cfg, logger, db,
		auth.NewMiddleware(&cfg.Auth, svc.Users, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		router.Handlers{
			Auth:         handler.NewAuthHandler(svc.Permissions, logger),
			Enquiry:      handler.NewEnquiryHandler(svc.Enquiries, logger),
			Assignment:   handler.NewAssignmentHandler(svc.Enquiries, svc.Assignments, logger),
			FollowUp:     handler.NewFollowUpHandler(svc.FollowUps, logger),
			Notification: handler.NewNotificationHandler(svc.Notifications, logger),
			Reference:    handler.NewReferenceHandler(svc.References, logger),
			User:         handler.NewUserHandler(svc.UserAdmin, logger),
		},
	)
	return &server{t: t, db: db, now: now, h: rt.Setup()}
}

func (s *server) token(u *domain.User) string {
	s.t.Helper()
	tok, err := auth.IssueToken(testSecret, testIssuer, u, time.Hour, time.Now())
	require.NoError(s.t, err)
	return tok
}

// do sends body as JSON on behalf of u and decodes the response into out
func (s *server) do(u *domain.User, method, path string, body interface{}, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(u))
	}

	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(nil, http.MethodGet, "/health/db", nil, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(nil, http.MethodGet, "/api/v1/enquiries", nil, nil))
}

func TestAPI_EnquiryLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	admin := testutil.CreateUser(t, s.db, "admin", domain.RoleAdmin)

	var created domain.EnquiryDTO
	code := s.do(admin, http.MethodPost, "/api/v1/enquiries", map[string]interface{}{
		"contactName": "Jane Buyer",
		"phoneNumber": "+15551234567",
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	stagePath := "/api/v1/enquiries/" + created.ID.String() + "/stage"

	var result domain.StageResult
	code = s.do(admin, http.MethodPost, stagePath, map[string]interface{}{
		"stage": "invoice_sent", "invoiceNumber": "INV0000001",
	}, &result)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, result.Success)
	assert.Equal(t, service.CodePIRequiredFirst, result.ErrorCode)
	assert.Equal(t, service.MsgPIRequiredFirst, result.Error)

	result = domain.StageResult{}
	code = s.do(admin, http.MethodPost, stagePath, map[string]interface{}{
		"stage": "proforma_invoice_sent", "proformaInvoiceNumber": "PI-100",
	}, &result)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StageProformaInvoiceSent, result.Stage)

	result = domain.StageResult{}
	code = s.do(admin, http.MethodPost, stagePath, map[string]interface{}{
		"stage": "invoice_sent", "invoiceNumber": "INV0000001",
	}, &result)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatusFulfilled, result.Status)
	assert.True(t, result.IsLocked)

	result = domain.StageResult{}
	code = s.do(admin, http.MethodPost, stagePath, map[string]interface{}{"stage": "lost"}, &result)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, result.Success)
	assert.Equal(t, string(service.KindLocked), result.ErrorCode)
	assert.Equal(t, service.MsgLocked, result.Error)

	var got domain.EnquiryDTO
	require.Equal(t, http.StatusOK, s.do(admin, http.MethodGet, "/api/v1/enquiries/"+created.ID.String(), nil, &got))
	assert.Equal(t, domain.StageInvoiceSent, got.Stage)

	var deleted domain.ActionResult
	assert.Equal(t, http.StatusConflict, s.do(admin, http.MethodDelete, "/api/v1/enquiries/"+created.ID.String(), nil, &deleted))
	assert.False(t, deleted.Success)
}

func TestAPI_ValidationErrors(t *testing.T) {
	s := newServer(t)
	admin := testutil.CreateUser(t, s.db, "admin", domain.RoleAdmin)

	var apiErr domain.APIError
	code := s.do(admin, http.MethodPost, "/api/v1/enquiries", map[string]interface{}{"contactName": "No Phone"}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "phoneNumber")

	apiErr = domain.APIError{}
	code = s.do(admin, http.MethodGet, "/api/v1/enquiries/not-a-uuid", nil, &apiErr)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.ErrorTypeBadRequest, apiErr.Type)
}

func TestAPI_NotificationsFollowEnquiryCreation(t *testing.T) {
	s := newServer(t)
	admin := testutil.CreateUser(t, s.db, "admin", domain.RoleAdmin)
	manager := testutil.CreateUser(t, s.db, "manager", domain.RoleManager)

	require.Equal(t, http.StatusCreated, s.do(admin, http.MethodPost, "/api/v1/enquiries", map[string]interface{}{
		"contactName": "Ola Nordmann",
		"phoneNumber": "+15557654321",
	}, nil))

	var count domain.UnreadCountDTO
	require.Equal(t, http.StatusOK, s.do(manager, http.MethodGet, "/api/v1/notifications/count", nil, &count))
	assert.Equal(t, int64(1), count.Count)

	var marked domain.MarkAllReadDTO
	require.Equal(t, http.StatusOK, s.do(manager, http.MethodPost, "/api/v1/notifications/read-all", nil, &marked))
	assert.Equal(t, 1, marked.Updated)

	count = domain.UnreadCountDTO{}
	require.Equal(t, http.StatusOK, s.do(manager, http.MethodGet, "/api/v1/notifications/count", nil, &count))
	assert.Zero(t, count.Count)
}

func TestAPI_FollowUpPastDateIsRejected(t *testing.T) {
	s := newServer(t)
	admin := testutil.CreateUser(t, s.db, "admin", domain.RoleAdmin)
	enquiry := testutil.CreateEnquiry(t, s.db, admin)

	var apiErr domain.APIError
	code := s.do(admin, http.MethodPost, "/api/v1/enquiries/"+enquiry.ID.String()+"/follow-ups", map[string]interface{}{
		"scheduledAt": s.now.Add(-2 * time.Hour),
		"type":        "call",
	}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, service.MsgPastDate, apiErr.Detail)

	var created domain.FollowUpDTO
	code = s.do(admin, http.MethodPost, "/api/v1/enquiries/"+enquiry.ID.String()+"/follow-ups", map[string]interface{}{
		"scheduledAt": s.now.Add(48 * time.Hour),
		"type":        "meeting",
	}, &created)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, enquiry.ID, created.EnquiryID)
}

func TestAPI_UserAdministrationIsAdminOnly(t *testing.T) {
	s := newServer(t)
	admin := testutil.CreateUser(t, s.db, "admin", domain.RoleAdmin)
	seller := testutil.CreateUser(t, s.db, "seller", domain.RoleSalesperson)

	assert.Equal(t, http.StatusForbidden, s.do(seller, http.MethodGet, "/api/v1/users/", nil, nil))

	var users []domain.UserDTO
	require.Equal(t, http.StatusOK, s.do(admin, http.MethodGet, "/api/v1/users/", nil, &users))
	assert.Len(t, users, 2)

	var changed domain.UserDTO
	require.Equal(t, http.StatusOK, s.do(admin, http.MethodPut, "/api/v1/users/"+seller.ID.String()+"/role",
		map[string]interface{}{"role": "manager"}, &changed))
	assert.Equal(t, domain.RoleManager, changed.Role)
}

func TestAPI_MeWithAPIKey(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("x-api-key", testAPIKey)
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var me domain.AuthUserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.True(t, me.IsSystem)
	assert.NotEmpty(t, me.Permissions[domain.ModuleEnquiries])
}
