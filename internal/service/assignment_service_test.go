package service_test

import (
	"testing"

	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignedEnquiry(t *testing.T, env *testEnv, admin, assignee *domain.User) *domain.Enquiry {
	t.Helper()
	return testutil.CreateEnquiry(t, env.db, admin, func(e *domain.Enquiry) {
		e.AssignedSalesPersonID = &assignee.ID
		e.AssignedByID = &admin.ID
		pending := domain.AssignmentPending
		e.AssignmentStatus = &pending
	})
}

func TestAssignment_RejectClearsAssignee(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := assignedEnquiry(t, env, admin, sales)

	got, err := env.assignments.Reject(as(sales), e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedSalesPersonID)
	require.NotNil(t, got.AssignmentStatus)
	assert.Equal(t, domain.AssignmentRejected, *got.AssignmentStatus)

	var stored domain.Enquiry
	require.NoError(t, env.db.First(&stored, "id = ?", e.ID).Error)
	assert.Nil(t, stored.AssignedSalesPersonID)

	rejected := env.notificationsOf(t, domain.NotificationEnquiryRejected)
	assert.Len(t, rejected, 1)
	assert.Contains(t, rejected, admin.ID.String())
}

func TestAssignment_AcceptNotifiesAssigner(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := assignedEnquiry(t, env, admin, sales)

	got, err := env.assignments.Accept(as(sales), e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentAccepted, *got.AssignmentStatus)
	assert.Equal(t, sales.ID, *got.AssignedSalesPersonID)
	assert.Contains(t, env.notificationsOf(t, domain.NotificationEnquiryAccepted), admin.ID.String())

	_, err = env.assignments.Accept(as(sales), e.ID)
	assert.Equal(t, service.KindConflict, service.KindOf(err), "answered assignments cannot be answered again")
}

func TestAssignment_OnlyAssigneeMayRespond(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := assignedEnquiry(t, env, admin, sales)

	for _, u := range []*domain.User{admin, env.user(t, "other", domain.RoleSalesperson)} {
		_, err := env.assignments.Accept(as(u), e.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
		_, err = env.assignments.Reject(as(u), e.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	}
}

func TestUpdateAssignment_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, sales)

	_, err := env.enquiries.UpdateAssignment(as(sales), e.ID, &sales.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	got, err := env.enquiries.UpdateAssignment(as(admin), e.ID, &sales.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentPending, *got.AssignmentStatus)
	assert.Contains(t, env.notificationsOf(t, domain.NotificationLeadAssignment), sales.ID.String())

	got, err = env.enquiries.UpdateAssignment(as(admin), e.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedSalesPersonID)
	assert.Nil(t, got.AssignmentStatus)
}
