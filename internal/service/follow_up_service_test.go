package service_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUp_CreateRejectsPastDate(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, sales)

	_, err := env.followUps.Create(as(sales), e.ID, &domain.CreateFollowUpRequest{
		ScheduledAt: env.now.Add(-time.Hour),
		Type:        domain.FollowUpCall,
	})
	assert.Equal(t, service.KindPastDate, service.KindOf(err))
}

func TestFollowUp_AssignedToOtherUserNotifiesAndRemindsWhenDueTomorrow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	colleague := env.user(t, "colleague", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, owner)

	f, err := env.followUps.Create(as(owner), e.ID, &domain.CreateFollowUpRequest{
		ScheduledAt:  tomorrowAt(env.now, 10),
		Type:         domain.FollowUpMeeting,
		AssignedToID: &colleague.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FollowUpPending, f.Status)

	assert.Contains(t, env.notificationsOf(t, domain.NotificationFollowUpAssigned), colleague.ID.String())
	assert.Contains(t, env.notificationsOf(t, domain.NotificationFollowUpReminder), colleague.ID.String())

	// The sweep shares the dedupe key of the immediate reminder
	counts, err := env.followUps.SendDueReminders(as(owner), env.now, 100, false)
	require.NoError(t, err)
	assert.Zero(t, counts.Reminders)
	assert.Equal(t, int64(1), env.countOf(t, domain.NotificationFollowUpReminder))
}

func TestFollowUp_CompletingTwiceIsNoop(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, owner)
	f := testutil.CreateFollowUp(t, env.db, e, owner, env.now.Add(48*time.Hour), env.now)

	first, err := env.followUps.MarkCompleted(as(owner), f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FollowUpCompleted, first.Status)
	require.NotNil(t, first.CompletedAt)

	second, err := env.followUps.MarkCompleted(as(owner), f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FollowUpCompleted, second.Status)
	assert.Equal(t, *first.CompletedAt, *second.CompletedAt)
}

func TestFollowUp_StatusRejectsOverdueAsInput(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, owner)
	f := testutil.CreateFollowUp(t, env.db, e, owner, env.now.Add(48*time.Hour), env.now)

	_, err := env.followUps.UpdateStatus(as(owner), f.ID, &domain.UpdateFollowUpStatusRequest{Status: domain.FollowUpOverdue})
	assert.Equal(t, service.KindInvalidStatus, service.KindOf(err))
}

func TestFollowUp_ListBuckets(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, owner)

	testutil.CreateFollowUp(t, env.db, e, owner, env.now.Add(-2*time.Hour), env.now)
	testutil.CreateFollowUp(t, env.db, e, owner, tomorrowAt(env.now, 9), env.now)
	testutil.CreateFollowUp(t, env.db, e, owner, tomorrowAt(env.now, 24*3), env.now)

	buckets, err := env.followUps.List(as(owner), domain.FollowUpFilter{})
	require.NoError(t, err)
	assert.Len(t, buckets.Overdue, 1)
	assert.Len(t, buckets.Tomorrow, 1)
	assert.Len(t, buckets.Upcoming, 1)
	assert.True(t, buckets.Overdue[0].IsOverdue)
}

func TestSendDueReminders_DedupesWithinDay(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, owner)
	testutil.CreateFollowUp(t, env.db, e, owner, tomorrowAt(env.now, 11), env.now)
	twoDaysAgo := domain.StartOfDay(env.now).AddDate(0, 0, -2).Add(time.Hour)
	late := testutil.CreateFollowUp(t, env.db, e, owner, twoDaysAgo, twoDaysAgo.Add(-time.Hour))

	dry, err := env.followUps.SendDueReminders(as(owner), env.now, 100, true)
	require.NoError(t, err)
	assert.Equal(t, 1, dry.Reminders)
	assert.Equal(t, 1, dry.Overdue)
	assert.Zero(t, env.countOf(t, domain.NotificationFollowUpReminder), "dry run writes nothing")

	first, err := env.followUps.SendDueReminders(as(owner), env.now, 100, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Reminders)
	assert.Equal(t, 1, first.Overdue)
	assert.Equal(t, int64(1), first.MarkedOverdue)

	second, err := env.followUps.SendDueReminders(as(owner), env.now, 100, false)
	require.NoError(t, err)
	assert.Zero(t, second.Reminders)
	assert.Zero(t, second.Overdue)
	assert.Equal(t, 2, second.Skipped)

	var stored domain.FollowUp
	require.NoError(t, env.db.First(&stored, "id = ?", late.ID).Error)
	assert.Equal(t, domain.FollowUpOverdue, stored.Status)

	overdue := env.notificationsOf(t, domain.NotificationFollowUpOverdue)[owner.ID.String()]
	assert.Equal(t, json.Number("2"), overdue.Data["days_overdue"])
}

func TestFollowUp_CompletionNotifiesManagementIncludingActor(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	manager := env.user(t, "manager", domain.RoleManager)
	admin := env.user(t, "admin", domain.RoleAdmin)
	e := testutil.CreateEnquiry(t, env.db, owner)

	f, err := env.followUps.Create(as(owner), e.ID, &domain.CreateFollowUpRequest{
		ScheduledAt:  env.now.Add(72 * time.Hour),
		Type:         domain.FollowUpCall,
		AssignedToID: &manager.ID,
	})
	require.NoError(t, err)

	_, err = env.followUps.MarkCompleted(as(manager), f.ID)
	require.NoError(t, err)

	got := env.notificationsOf(t, domain.NotificationFollowUpCompleted)
	assert.Contains(t, got, owner.ID.String())
	assert.Contains(t, got, manager.ID.String(), "the completing manager is still a recipient")
	assert.Contains(t, got, admin.ID.String())
	assert.Len(t, got, 3)
}
