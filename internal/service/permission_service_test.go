package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAllows_DefaultMatrix(t *testing.T) {
	tests := []struct {
		role   domain.UserRoleType
		module domain.PermissionModule
		action domain.PermissionAction
		want   bool
	}{
		{domain.RoleSalesperson, domain.ModuleEnquiries, domain.ActionEdit, true},
		{domain.RoleSalesperson, domain.ModuleEnquiries, domain.ActionDelete, false},
		{domain.RoleViewer, domain.ModuleEnquiries, domain.ActionView, true},
		{domain.RoleViewer, domain.ModuleEnquiries, domain.ActionCreate, false},
		{domain.RoleManager, domain.ModuleUsers, domain.ActionEdit, false},
		{domain.RoleAdmin, domain.ModuleUsers, domain.ActionEdit, true},
		{domain.RoleSupport, domain.ModuleActivities, domain.ActionEdit, false},
	}
	for _, tt := range tests {
		got := service.RoleAllows([]domain.UserRoleType{tt.role}, tt.module, tt.action)
		assert.Equal(t, tt.want, got, "%s %s %s", tt.role, tt.module, tt.action)
	}
}

func TestPermissionService_OverrideWinsOverRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", domain.RoleAdmin)
	viewer := env.user(t, "viewer", domain.RoleViewer)
	actor := userContext(viewer)
	ctx := context.Background()

	assert.False(t, env.permissions.Can(ctx, actor, domain.ModuleEnquiries, domain.ActionCreate))

	_, err := env.users.SetPermission(as(admin), viewer.ID, domain.ModuleEnquiries, &domain.PermissionOverrideRequest{
		CanView:   true,
		CanCreate: true,
	})
	require.NoError(t, err)
	assert.True(t, env.permissions.Can(ctx, actor, domain.ModuleEnquiries, domain.ActionCreate))
	assert.False(t, env.permissions.Can(ctx, actor, domain.ModuleEnquiries, domain.ActionEdit))

	require.NoError(t, env.users.ClearPermission(as(admin), viewer.ID, domain.ModuleEnquiries))
	assert.False(t, env.permissions.Can(ctx, actor, domain.ModuleEnquiries, domain.ActionCreate))
}

func TestPermissionService_SuperuserAndNil(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.True(t, env.permissions.Can(ctx, auth.SystemUser(), domain.ModuleSettings, domain.ActionDelete))
	assert.False(t, env.permissions.Can(ctx, nil, domain.ModuleEnquiries, domain.ActionView))
}
