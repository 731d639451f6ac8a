package service

import (
	"context"

	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/repository"
	"go.uber.org/zap"
)

// PermissionChecker answers capability questions for an actor
type PermissionChecker interface {
	Can(ctx context.Context, actor *auth.UserContext, module domain.PermissionModule, action domain.PermissionAction) bool
}

// PermissionService checks permissions against per-user overrides and the
// role defaults
type PermissionService struct {
	permissionRepo *repository.UserPermissionRepository
	logger         *zap.Logger
}

func NewPermissionService(permissionRepo *repository.UserPermissionRepository, logger *zap.Logger) *PermissionService {
	return &PermissionService{
		permissionRepo: permissionRepo,
		logger:         logger,
	}
}

// Can considers: 1) superuser status, 2) a per-user override for the module,
// 3) the defaults of the actor's roles
func (s *PermissionService) Can(ctx context.Context, actor *auth.UserContext, module domain.PermissionModule, action domain.PermissionAction) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperuser || actor.HasRole(domain.RoleSuperuser) {
		return true
	}

	if !actor.IsSystem {
		override, err := s.permissionRepo.GetOverride(ctx, actor.UserID, module)
		if err != nil {
			s.logger.Error("failed to check permission override",
				zap.String("user_id", actor.UserID.String()),
				zap.String("module", string(module)),
				zap.Error(err))
			// Fall back to role-based check on error
			return RoleAllows(actor.Roles, module, action)
		}
		if override != nil {
			return override.Allows(action)
		}
	}

	return RoleAllows(actor.Roles, module, action)
}

// RoleAllows reports whether any of roles grants action on module by default
func RoleAllows(roles []domain.UserRoleType, module domain.PermissionModule, action domain.PermissionAction) bool {
	for _, role := range roles {
		if perm, ok := roleDefaults[role][module]; ok && perm.Allows(action) {
			return true
		}
	}
	return false
}

// grant lists view, create, edit, delete, import, export
func grant(flags ...bool) domain.UserPermission {
	f := make([]bool, 6)
	copy(f, flags)
	return domain.UserPermission{
		CanView: f[0], CanCreate: f[1], CanEdit: f[2], CanDelete: f[3], CanImport: f[4], CanExport: f[5],
	}
}

const (
	y = true
	n = false
)

var roleDefaults = map[domain.UserRoleType]map[domain.PermissionModule]domain.UserPermission{
	domain.RoleSuperuser: {
		domain.ModuleContacts:   grant(y, y, y, y, y, y),
		domain.ModuleEnquiries:  grant(y, y, y, y, y, y),
		domain.ModuleActivities: grant(y, y, y, y, y, y),
		domain.ModuleAccounts:   grant(y, y, y, y, y, y),
		domain.ModuleReports:    grant(y, y, y, y, y, y),
		domain.ModuleUsers:      grant(y, y, y, y, y, y),
		domain.ModuleSettings:   grant(y, y, y, y, y, y),
		domain.ModuleImport:     grant(y, y, y, y, y, y),
	},
	domain.RoleAdmin: {
		domain.ModuleContacts:   grant(y, y, y, y, y, y),
		domain.ModuleEnquiries:  grant(y, y, y, y, y, y),
		domain.ModuleActivities: grant(y, y, y, y, y, y),
		domain.ModuleAccounts:   grant(y, y, y, y, y, y),
		domain.ModuleReports:    grant(y, y, y, y, y, y),
		domain.ModuleUsers:      grant(y, y, y, y, n, n),
		domain.ModuleSettings:   grant(y, y, y, y, n, n),
		domain.ModuleImport:     grant(y, y, y, y, y, y),
	},
	domain.RoleManager: {
		domain.ModuleContacts:   grant(y, y, y, y, y, y),
		domain.ModuleEnquiries:  grant(y, y, y, y, y, y),
		domain.ModuleActivities: grant(y, y, y, y, y, y),
		domain.ModuleAccounts:   grant(y, y, y, n, y, y),
		domain.ModuleReports:    grant(y, y, y, y, y, y),
		domain.ModuleUsers:      grant(y),
	},
	domain.RoleSalesperson: {
		domain.ModuleContacts:   grant(y, y, y),
		domain.ModuleEnquiries:  grant(y, y, y),
		domain.ModuleActivities: grant(y, y, y),
		domain.ModuleAccounts:   grant(y, y),
		domain.ModuleReports:    grant(y),
	},
	domain.RoleSupport: {
		domain.ModuleContacts:   grant(y, y, y),
		domain.ModuleEnquiries:  grant(y, y, y),
		domain.ModuleActivities: grant(y, y),
		domain.ModuleAccounts:   grant(y),
		domain.ModuleReports:    grant(y),
	},
	domain.RoleViewer: {
		domain.ModuleContacts:   grant(y),
		domain.ModuleEnquiries:  grant(y),
		domain.ModuleActivities: grant(y),
		domain.ModuleAccounts:   grant(y),
		domain.ModuleReports:    grant(y),
	},
	domain.RoleAPIService: {
		domain.ModuleContacts:   grant(y, y, y),
		domain.ModuleEnquiries:  grant(y, y, y),
		domain.ModuleActivities: grant(y, y, y),
	},
}
