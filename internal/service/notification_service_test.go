package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageChangeToLost_NotifiesCreatorAssigneeAndManagement(t *testing.T) {
	env := newTestEnv(t)
	creator := env.user(t, "creator", domain.RoleSalesperson)
	assignee := env.user(t, "assignee", domain.RoleSalesperson)
	manager := env.user(t, "manager", domain.RoleManager)
	e := testutil.CreateEnquiry(t, env.db, creator, func(e *domain.Enquiry) {
		e.AssignedSalesPersonID = &assignee.ID
	})

	_, err := env.enquiries.UpdateStage(as(creator), e.ID, &domain.UpdateStageRequest{Stage: domain.StageLost})
	require.NoError(t, err)

	got := env.notificationsOf(t, domain.NotificationLeadStageChange)
	assert.Len(t, got, 3)
	for _, u := range []*domain.User{creator, assignee, manager} {
		assert.Contains(t, got, u.ID.String())
	}
	assert.Equal(t, "Lost", got[manager.ID.String()].Data["new_stage_label"])
}

func TestStageChange_CoincidingIdentitiesAreDeduplicated(t *testing.T) {
	env := newTestEnv(t)
	manager := env.user(t, "manager", domain.RoleManager)
	e := testutil.CreateEnquiry(t, env.db, manager, func(e *domain.Enquiry) {
		e.AssignedSalesPersonID = &manager.ID
	})

	_, err := env.enquiries.UpdateStage(as(manager), e.ID, &domain.UpdateStageRequest{Stage: domain.StageLost})
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.countOf(t, domain.NotificationLeadStageChange))
}

func TestStageChange_NonEscalatingStageSkipsManagement(t *testing.T) {
	env := newTestEnv(t)
	creator := env.user(t, "creator", domain.RoleSalesperson)
	env.user(t, "manager", domain.RoleManager)
	e := testutil.CreateEnquiry(t, env.db, creator)

	_, err := env.enquiries.UpdateStage(as(creator), e.ID, &domain.UpdateStageRequest{Stage: domain.StageQuotationSent})
	require.NoError(t, err)

	got := env.notificationsOf(t, domain.NotificationLeadStageChange)
	assert.Len(t, got, 1)
	assert.Contains(t, got, creator.ID.String())
}

func TestEnquiryCreated_NotifiesAssigneeAndActiveManagement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	inactive := env.user(t, "former", domain.RoleManager)
	require.NoError(t, env.db.Model(inactive).Update("is_active", false).Error)

	_, err := env.enquiries.Create(as(admin), &domain.CreateEnquiryRequest{
		ContactName:           "Lead",
		PhoneNumber:           "+15553334444",
		AssignedSalesPersonID: &sales.ID,
	})
	require.NoError(t, err)

	got := env.notificationsOf(t, domain.NotificationNewLead)
	assert.Len(t, got, 2)
	assert.Contains(t, got, admin.ID.String())
	assert.Contains(t, got, sales.ID.String())
	assert.NotContains(t, got, inactive.ID.String())
}

func TestDeliver_EmailFailureKeepsInAppVisible(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)

	ok := env.notifications.Notify(context.Background(), service.NotificationInput{
		Type:        domain.NotificationNewLead,
		RecipientID: sales.ID,
		Title:       "New Enquiry: Jane",
		Message:     "hello",
		Source:      domain.EnquiryRef(uuid.New()),
	})
	require.True(t, ok)
	lead := env.notificationsOf(t, domain.NotificationNewLead)[sales.ID.String()]
	assert.Equal(t, domain.NotificationStatusSent, lead.Status)
	assert.True(t, lead.EmailSent)
	assert.NotNil(t, lead.SentAt)
	require.Equal(t, 1, env.mailer.count())
	assert.Contains(t, env.mailer.sent[0].HTMLBody, "https://crm.example.com/enquiries/")

	env.mailer.err = errSMTPDown
	ok = env.notifications.Notify(context.Background(), service.NotificationInput{
		Type:        domain.NotificationLeadStatusChange,
		RecipientID: sales.ID,
		Title:       "Status",
		Message:     "changed",
	})
	require.True(t, ok)
	failed := env.notificationsOf(t, domain.NotificationLeadStatusChange)[sales.ID.String()]
	assert.Equal(t, domain.NotificationStatusSent, failed.Status)
	assert.False(t, failed.EmailSent)
	assert.Contains(t, failed.EmailError, "connection refused")

	var logs []domain.NotificationLog
	require.NoError(t, env.db.Where("notification_id = ?", failed.ID).Order("created_at").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.NotificationActionCreated, logs[0].Action)
	assert.Equal(t, domain.NotificationActionFailed, logs[1].Action)
}

func TestDeliver_PreferenceGatesEmailOnly(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	ctx := as(sales)

	_, err := env.notifications.UpdatePreferences(ctx, &domain.UpdateNotificationPreferencesRequest{
		EmailLeadChanges: testutil.Ptr(false),
	})
	require.NoError(t, err)

	require.True(t, env.notifications.Notify(ctx, service.NotificationInput{
		Type:        domain.NotificationLeadStageChange,
		RecipientID: sales.ID,
		Title:       "Stage",
		Message:     "moved",
	}))

	assert.Zero(t, env.mailer.count())
	n := env.notificationsOf(t, domain.NotificationLeadStageChange)[sales.ID.String()]
	assert.Equal(t, domain.NotificationStatusSent, n.Status)
	assert.Empty(t, n.EmailError)
}

func TestCreate_DedupeKeyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	in := service.NotificationInput{
		Type:        domain.NotificationFollowUpReminder,
		RecipientID: sales.ID,
		Title:       "Reminder",
		Message:     "call",
		DedupeKey:   "FOLLOWUP_REMINDER:x:2026-01-02",
	}

	_, created, err := env.notifications.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = env.notifications.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestScheduledNotification_WaitsForSendPending(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)

	require.True(t, env.notifications.Notify(context.Background(), service.NotificationInput{
		Type:         domain.NotificationSystemAlert,
		RecipientID:  sales.ID,
		Title:        "Later",
		Message:      "scheduled",
		ScheduledFor: env.now.Add(time.Hour),
	}))
	n := env.notificationsOf(t, domain.NotificationSystemAlert)[sales.ID.String()]
	assert.Equal(t, domain.NotificationStatusPending, n.Status)

	sent, err := env.notifications.SendPending(context.Background(), env.now, 10)
	require.NoError(t, err)
	assert.Zero(t, sent)

	sent, err = env.notifications.SendPending(context.Background(), env.now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	n = env.notificationsOf(t, domain.NotificationSystemAlert)[sales.ID.String()]
	assert.Equal(t, domain.NotificationStatusSent, n.Status)
}

func TestInbox_MarkReadIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	other := env.user(t, "other", domain.RoleSalesperson)
	for i := 0; i < 2; i++ {
		require.True(t, env.notifications.Notify(context.Background(), service.NotificationInput{
			Type:        domain.NotificationSystemAlert,
			RecipientID: owner.ID,
			Title:       "Alert",
			Message:     "body",
		}))
	}

	unread, err := env.notifications.Unread(as(owner), 10)
	require.NoError(t, err)
	require.Len(t, unread.Items, 2)
	assert.Equal(t, int64(2), unread.Count)

	_, err = env.notifications.MarkRead(as(other), unread.Items[0].ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
	assert.ErrorIs(t, env.notifications.Delete(as(other), unread.Items[0].ID), service.ErrPermissionDenied)

	read, err := env.notifications.MarkRead(as(owner), unread.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	count, err := env.notifications.UnreadCount(as(owner))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	marked, err := env.notifications.MarkAllRead(as(owner))
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	count, err = env.notifications.UnreadCount(as(owner))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUserRoleChanged_FallsBackToNoRole(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "plain", "")
	manager := testutil.Role(t, env.db, domain.RoleManager)

	require.NoError(t, env.bus.PublishSync(context.Background(), events.UserRoleChanged{
		BaseEvent: events.NewBaseEvent(env.now),
		User:      *u,
		NewRoleID: &manager.ID,
	}))

	n := env.notificationsOf(t, domain.NotificationUserRoleChange)[u.ID.String()]
	assert.Equal(t, "Your Role Has Been Updated", n.Title)
	assert.Contains(t, n.Message, "No Role")
	assert.Contains(t, n.Message, manager.DisplayName)
}

func TestSendDailyDigest_SkipsUsersWithNothingToReport(t *testing.T) {
	env := newTestEnv(t)
	busy := env.user(t, "busy", domain.RoleSalesperson)
	idle := env.user(t, "idle", domain.RoleSalesperson)
	for _, u := range []*domain.User{busy, idle} {
		_, err := env.notifications.GetPreferences(as(u))
		require.NoError(t, err)
	}
	e := testutil.CreateEnquiry(t, env.db, busy)
	testutil.CreateFollowUp(t, env.db, e, busy, env.now.Add(-time.Minute), env.now)

	counts, err := env.notifications.SendDailyDigest(context.Background(), env.now, false)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Users)
	assert.Equal(t, 1, counts.Sent)
	assert.Equal(t, 1, counts.Empty)

	digest := env.notificationsOf(t, domain.NotificationDailyDigest)
	require.Contains(t, digest, busy.ID.String())
	assert.Equal(t, json.Number("1"), digest[busy.ID.String()].Data["overdue_follow_ups"])

	again, err := env.notifications.SendDailyDigest(context.Background(), env.now, false)
	require.NoError(t, err)
	assert.Zero(t, again.Sent)
	assert.Equal(t, int64(1), env.countOf(t, domain.NotificationDailyDigest))
}
