package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/repository"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnquiryLifecycle_PIThenInvoiceLocksEnquiry(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	ctx := as(sales)

	created, err := env.enquiries.Create(ctx, &domain.CreateEnquiryRequest{
		ContactName: "Jane Buyer",
		PhoneNumber: "+15551234567",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageReceived, created.Stage)
	assert.Equal(t, "+15551234567", created.PhoneNumber)

	_, err = env.enquiries.UpdateStage(ctx, created.ID, &domain.UpdateStageRequest{
		Stage:         domain.StageInvoiceSent,
		InvoiceNumber: testutil.Ptr("INV0000001"),
	})
	require.Error(t, err)
	assert.Equal(t, service.CodePIRequiredFirst, service.CodeOf(err))
	assert.Equal(t, service.MsgPIRequiredFirst, service.MessageOf(err))

	e, err := env.enquiries.UpdateStage(ctx, created.ID, &domain.UpdateStageRequest{
		Stage:                 domain.StageProformaInvoiceSent,
		ProformaInvoiceNumber: testutil.Ptr("PI-100"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageProformaInvoiceSent, e.Stage)
	assert.False(t, e.IsLocked)

	e, err = env.enquiries.UpdateStage(ctx, created.ID, &domain.UpdateStageRequest{
		Stage:         domain.StageInvoiceSent,
		InvoiceNumber: testutil.Ptr("INV0000001"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFulfilled, e.Status)
	assert.True(t, e.IsLocked)

	var stored domain.Enquiry
	require.NoError(t, env.db.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, domain.StageInvoiceSent, stored.Stage)
	assert.Equal(t, domain.StatusFulfilled, stored.Status)
	assert.True(t, stored.IsLocked)

	_, err = env.enquiries.UpdateStage(ctx, created.ID, &domain.UpdateStageRequest{Stage: domain.StageLost})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrLocked)

	require.NoError(t, env.db.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, domain.StageInvoiceSent, stored.Stage)
}

func TestUpdateStage_InvoiceFormat(t *testing.T) {
	tests := []struct {
		name    string
		invoice string
		code    string
	}{
		{"accepts ten characters with prefix", "INV1234567", ""},
		{"rejects short", "INV123", service.CodeInvoiceLength},
		{"rejects long", "INV12345678", service.CodeInvoiceLength},
		{"rejects missing prefix", "ABC1234567", service.CodeInvoicePrefix},
		{"rejects empty", "", service.CodeInvoiceRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			sales := env.user(t, "sales", domain.RoleSalesperson)
			e := testutil.CreateEnquiry(t, env.db, sales, func(e *domain.Enquiry) {
				e.Stage = domain.StageProformaInvoiceSent
				e.ProformaInvoiceNumber = "PI-1"
			})

			got, err := env.enquiries.UpdateStage(as(sales), e.ID, &domain.UpdateStageRequest{
				Stage:         domain.StageInvoiceSent,
				InvoiceNumber: &tt.invoice,
			})
			if tt.code == "" {
				require.NoError(t, err)
				assert.True(t, got.IsLocked)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, service.CodeOf(err))
		})
	}
}

func TestUpdateStage_LockedSameStageIsNoop(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, sales, func(e *domain.Enquiry) {
		e.Stage = domain.StageInvoiceSent
		e.Status = domain.StatusFulfilled
		e.IsLocked = true
		e.ProformaInvoiceNumber = "PI-1"
		e.InvoiceNumber = "INV0000001"
	})

	got, err := env.enquiries.UpdateStage(as(sales), e.ID, &domain.UpdateStageRequest{Stage: domain.StageInvoiceSent})
	require.NoError(t, err)
	assert.True(t, got.IsLocked)
	assert.Zero(t, env.countOf(t, domain.NotificationLeadStageChange))
}

func TestUpdateStage_InvalidStage(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, sales)

	_, err := env.enquiries.UpdateStage(as(sales), e.ID, &domain.UpdateStageRequest{Stage: "shipped"})
	assert.Equal(t, service.KindInvalidStage, service.KindOf(err))
}

func TestUpdateStage_OutsiderIsDenied(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", domain.RoleSalesperson)
	other := env.user(t, "other", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, owner)

	_, err := env.enquiries.UpdateStage(as(other), e.ID, &domain.UpdateStageRequest{Stage: domain.StageQuotationSent})
	assert.Equal(t, service.KindPermission, service.KindOf(err))
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, sales)
	ctx := as(sales)

	reasons, err := env.references.ListReasons(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, reasons)

	got, err := env.enquiries.UpdateStatus(ctx, e.ID, &domain.UpdateStatusRequest{
		Status:   domain.StatusNotFulfilled,
		ReasonID: &reasons[0].ID,
	})
	require.NoError(t, err)
	require.NotNil(t, got.ReasonID)
	assert.Equal(t, reasons[0].ID, *got.ReasonID)

	got, err = env.enquiries.UpdateStatus(ctx, e.ID, &domain.UpdateStatusRequest{Status: domain.StatusFulfilled})
	require.NoError(t, err)
	assert.Nil(t, got.ReasonID, "fulfilling clears the reason")
	assert.Equal(t, int64(1), env.countOf(t, domain.NotificationLeadStatusChange))

	_, err = env.enquiries.UpdateStatus(ctx, e.ID, &domain.UpdateStatusRequest{Status: "maybe"})
	assert.Equal(t, service.KindInvalidStatus, service.KindOf(err))
}

func TestCreate_ReusesContactByNormalizedPhone(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	ctx := as(sales)

	first, err := env.enquiries.Create(ctx, &domain.CreateEnquiryRequest{ContactName: "Jane", PhoneNumber: "(555) 123-4567"})
	require.NoError(t, err)
	second, err := env.enquiries.Create(ctx, &domain.CreateEnquiryRequest{ContactName: "Jane B", PhoneNumber: "+1 555 123 4567"})
	require.NoError(t, err)

	require.NotNil(t, first.ContactID)
	assert.Equal(t, *first.ContactID, *second.ContactID)
	assert.Equal(t, int64(1), env.countOf(t, domain.NotificationContactAutoCreated))
}

func TestCreate_ClearsInvalidReferences(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	missing := uuid.New()

	got, err := env.enquiries.Create(as(sales), &domain.CreateEnquiryRequest{
		ContactName:  "Ref Test",
		PhoneNumber:  "+15550001111",
		LeadSourceID: &missing,
	})
	require.NoError(t, err)
	assert.Nil(t, got.LeadSourceID)
}

func TestCreate_AssigningOtherUserStartsHandshake(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	sales := env.user(t, "sales", domain.RoleSalesperson)

	got, err := env.enquiries.Create(as(admin), &domain.CreateEnquiryRequest{
		ContactName:           "Handshake",
		PhoneNumber:           "+15550002222",
		AssignedSalesPersonID: &sales.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, got.AssignmentStatus)
	assert.Equal(t, domain.AssignmentPending, *got.AssignmentStatus)
}

func TestList_SalespersonSeesOwnEnquiries(t *testing.T) {
	env := newTestEnv(t)
	mine := env.user(t, "mine", domain.RoleSalesperson)
	other := env.user(t, "other", domain.RoleSalesperson)
	manager := env.user(t, "manager", domain.RoleManager)
	testutil.CreateEnquiry(t, env.db, mine)
	testutil.CreateEnquiry(t, env.db, other)

	page, err := env.enquiries.List(as(mine), domain.EnquiryFilter{}, repository.SortConfig{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = env.enquiries.List(as(manager), domain.EnquiryFilter{}, repository.SortConfig{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestDelete_LockedEnquiryIsRejected(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	e := testutil.CreateEnquiry(t, env.db, admin, func(e *domain.Enquiry) { e.IsLocked = true })

	assert.ErrorIs(t, env.enquiries.Delete(as(admin), e.ID), service.ErrLocked)
}

func TestUpdateStage_LockedRejectsUnknownStageAsLocked(t *testing.T) {
	env := newTestEnv(t)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, sales, func(e *domain.Enquiry) {
		e.Stage = domain.StageInvoiceSent
		e.Status = domain.StatusFulfilled
		e.IsLocked = true
		e.ProformaInvoiceNumber = "PI-1"
		e.InvoiceNumber = "INV0000001"
	})

	_, err := env.enquiries.UpdateStage(as(sales), e.ID, &domain.UpdateStageRequest{Stage: "shipped"})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrLocked)
	assert.NotEqual(t, service.KindInvalidStage, service.KindOf(err))
}

func TestLifecycleMutations_HonourPermissionOverride(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	sales := env.user(t, "sales", domain.RoleSalesperson)
	e := testutil.CreateEnquiry(t, env.db, sales)
	ctx := as(sales)

	_, err := env.users.SetPermission(as(admin), sales.ID, domain.ModuleEnquiries, &domain.PermissionOverrideRequest{CanView: true})
	require.NoError(t, err)

	_, err = env.enquiries.UpdateStage(ctx, e.ID, &domain.UpdateStageRequest{Stage: domain.StageQuotationSent})
	assert.Equal(t, service.KindPermission, service.KindOf(err))
	_, err = env.enquiries.UpdateStatus(ctx, e.ID, &domain.UpdateStatusRequest{Status: domain.StatusFulfilled})
	assert.Equal(t, service.KindPermission, service.KindOf(err))
	assert.Equal(t, service.KindPermission, service.KindOf(env.enquiries.Delete(ctx, e.ID)))

	_, err = env.users.SetPermission(as(admin), sales.ID, domain.ModuleEnquiries, &domain.PermissionOverrideRequest{
		CanView: true, CanEdit: true, CanDelete: true,
	})
	require.NoError(t, err)

	got, err := env.enquiries.UpdateStage(ctx, e.ID, &domain.UpdateStageRequest{Stage: domain.StageQuotationSent})
	require.NoError(t, err)
	assert.Equal(t, domain.StageQuotationSent, got.Stage)
	require.NoError(t, env.enquiries.Delete(ctx, e.ID))
}
