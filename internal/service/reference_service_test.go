package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferences_WritesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	seller := env.user(t, "seller", domain.RoleSalesperson)

	_, err := env.references.CreateReason(as(seller), &domain.ReasonRequest{Name: "Too expensive"})
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	_, err = env.references.CreateLeadSource(as(seller), &domain.LeadSourceRequest{Name: "Trade fair"})
	assert.Equal(t, service.KindPermission, service.KindOf(err))
}

func TestReferences_ReasonCRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	ctx := as(admin)

	created, err := env.references.CreateReason(ctx, &domain.ReasonRequest{Name: "  Project postponed ", Description: "customer delayed the project"})
	require.NoError(t, err)
	assert.Equal(t, "Project postponed", created.Name)
	assert.True(t, created.IsActive)

	_, err = env.references.CreateReason(ctx, &domain.ReasonRequest{Name: "Project postponed"})
	assert.Equal(t, service.KindConflict, service.KindOf(err))

	updated, err := env.references.UpdateReasonEntry(ctx, created.ID, &domain.ReasonRequest{IsActive: testutil.Ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Project postponed", updated.Name, "an empty name keeps the current one")
	assert.False(t, updated.IsActive)

	active, err := env.references.ListReasons(ctx, false)
	require.NoError(t, err)
	for _, r := range active {
		assert.NotEqual(t, created.ID, r.ID)
	}
	all, err := env.references.ListReasons(ctx, true)
	require.NoError(t, err)
	assert.Greater(t, len(all), len(active))

	require.NoError(t, env.references.DeleteReason(ctx, created.ID))
	_, err = env.references.UpdateReasonEntry(ctx, created.ID, &domain.ReasonRequest{Name: "x"})
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestReferences_DeleteReasonInUseDeactivates(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	ctx := as(admin)

	reason, err := env.references.CreateReason(ctx, &domain.ReasonRequest{Name: "Budget frozen"})
	require.NoError(t, err)
	testutil.CreateEnquiry(t, env.db, admin, func(e *domain.Enquiry) {
		e.ReasonID = &reason.ID
	})

	require.NoError(t, env.references.DeleteReason(ctx, reason.ID))

	var stored domain.Reason
	require.NoError(t, env.db.First(&stored, "id = ?", reason.ID).Error)
	assert.False(t, stored.IsActive)
}

func TestReferences_LeadSourceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	ctx := as(admin)

	_, err := env.references.CreateLeadSource(ctx, &domain.LeadSourceRequest{Name: "   "})
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	source, err := env.references.CreateLeadSource(ctx, &domain.LeadSourceRequest{Name: "Trade fair"})
	require.NoError(t, err)

	renamed, err := env.references.UpdateLeadSource(ctx, source.ID, &domain.LeadSourceRequest{Name: "Trade fair 2026"})
	require.NoError(t, err)
	assert.Equal(t, "Trade fair 2026", renamed.Name)

	testutil.CreateEnquiry(t, env.db, admin, func(e *domain.Enquiry) {
		e.LeadSourceID = &source.ID
	})
	require.NoError(t, env.references.DeleteLeadSource(ctx, source.ID))

	var stored domain.LeadSource
	require.NoError(t, env.db.First(&stored, "id = ?", source.ID).Error)
	assert.False(t, stored.IsActive, "lead sources in use are deactivated")
}

func TestReferences_Subcategories(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	ctx := as(admin)

	category := &domain.Category{Name: "Safety gear", IsActive: true}
	require.NoError(t, env.db.Create(category).Error)
	require.NoError(t, env.db.Create(&domain.Subcategory{CategoryID: category.ID, Name: "Helmets", IsActive: true}).Error)
	inactive := &domain.Subcategory{CategoryID: category.ID, Name: "Gloves", IsActive: true}
	require.NoError(t, env.db.Create(inactive).Error)
	require.NoError(t, env.db.Model(inactive).Update("is_active", false).Error)

	subs, err := env.references.ListSubcategories(ctx, category.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Helmets", subs[0].Name)

	_, err = env.references.ListSubcategories(ctx, uuid.New())
	assert.Equal(t, service.KindNotFound, service.KindOf(err))

	categories, err := env.references.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, categories)
}
