package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/email"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/straye-as/enquiry-api/internal/phone"
	"github.com/straye-as/enquiry-api/internal/repository"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*email.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, m *email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var errSMTPDown = errors.New("smtp: connection refused")

type testEnv struct {
	db            *gorm.DB
	now           time.Time
	bus           *events.InMemoryBus
	mailer        *fakeSender
	enquiries     *service.EnquiryService
	assignments   *service.AssignmentService
	followUps     *service.FollowUpService
	notifications *service.NotificationService
	users         *service.UserService
	references    *service.ReferenceService
	contacts      *service.ContactResolver
	permissions   *service.PermissionService
}

// newTestEnv wires every service over a fresh sqlite database. The clock is
// fixed at the current time, truncated to the second.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	now := time.Now().UTC().Truncate(time.Second)
	clock := service.ClockFunc(func() time.Time { return now })
	bus := events.NewInMemoryBus(logger)

	enquiryRepo := repository.NewEnquiryRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	followUpRepo := repository.NewFollowUpRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	refRepo := repository.NewReferenceRepository(db)
	prefRepo := repository.NewNotificationPreferenceRepository(db)

	permissions := service.NewPermissionService(repository.NewUserPermissionRepository(db), logger)
	contacts := service.NewContactResolver(
		repository.NewContactRepository(db),
		repository.NewAccountRepository(db),
		phone.NewNormalizer("US"),
		logger,
	)

	notifications := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewNotificationTypeRepository(db),
		prefRepo,
		repository.NewNotificationLogRepository(db),
		userRepo,
		roleRepo,
		enquiryRepo,
		followUpRepo,
		service.NewDefaultSourceRegistry(enquiryRepo, followUpRepo, userRepo),
		clock,
		logger,
	)
	renderer, err := email.NewRenderer(nil, logger)
	require.NoError(t, err)
	mailer := &fakeSender{}
	notifications.SetMailer(mailer, renderer, 0)
	notifications.SetBaseURL("https://crm.example.com/")
	notifications.RegisterHandlers(bus)

	return &testEnv{
		db:          db,
		now:         now,
		bus:         bus,
		mailer:      mailer,
		contacts:    contacts,
		permissions: permissions,
		enquiries: service.NewEnquiryService(
			enquiryRepo, activityRepo, refRepo, userRepo, contacts, permissions, bus, clock, logger, db),
		assignments: service.NewAssignmentService(enquiryRepo, activityRepo, bus, clock, logger, db),
		followUps: service.NewFollowUpService(
			followUpRepo, enquiryRepo, userRepo, permissions, notifications, bus, clock, logger, db),
		notifications: notifications,
		users: service.NewUserService(
			userRepo, roleRepo, repository.NewUserPermissionRepository(db), prefRepo, bus, clock, logger, db),
		references: service.NewReferenceService(refRepo, logger, db),
	}
}

func userContext(u *domain.User) *auth.UserContext {
	uc := &auth.UserContext{
		UserID:      u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
	}
	if role := u.RoleName(); role != "" {
		uc.Roles = []domain.UserRoleType{role}
	}
	return uc
}

func as(u *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), userContext(u))
}

func (e *testEnv) user(t *testing.T, name string, role domain.UserRoleType) *domain.User {
	return testutil.CreateUser(t, e.db, name, role)
}

// notificationsOf returns the notifications of a type, keyed by recipient
func (e *testEnv) notificationsOf(t *testing.T, name domain.NotificationTypeName) map[string]domain.Notification {
	t.Helper()
	var items []domain.Notification
	require.NoError(t, e.db.
		Joins("JOIN notification_types ON notification_types.id = notifications.type_id").
		Where("notification_types.name = ?", name).
		Find(&items).Error)
	out := make(map[string]domain.Notification, len(items))
	for _, n := range items {
		out[n.RecipientID.String()] = n
	}
	return out
}

func (e *testEnv) countOf(t *testing.T, name domain.NotificationTypeName) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&domain.Notification{}).
		Joins("JOIN notification_types ON notification_types.id = notifications.type_id").
		Where("notification_types.name = ?", name).
		Count(&count).Error)
	return count
}

func tomorrowAt(now time.Time, hour int) time.Time {
	return domain.StartOfDay(now).AddDate(0, 0, 1).Add(time.Duration(hour) * time.Hour)
}
