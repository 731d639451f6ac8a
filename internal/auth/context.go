package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Roles       []domain.UserRoleType
	IsSuperuser bool
	// IsSystem marks callers authenticated with the API key
	IsSystem bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// SystemUser is the identity attached to API-key requests
func SystemUser() *UserContext {
	return &UserContext{
		UserID:      uuid.Nil,
		DisplayName: "System",
		Email:       "system@straye.io",
		Roles:       []domain.UserRoleType{domain.RoleSuperuser, domain.RoleAPIService},
		IsSuperuser: true,
		IsSystem:    true,
	}
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports superuser or admin capability
func (u *UserContext) IsAdmin() bool {
	return u.IsSuperuser || u.HasAnyRole(domain.RoleSuperuser, domain.RoleAdmin)
}

// IsManagement reports whether the user sees every enquiry
func (u *UserContext) IsManagement() bool {
	return u.IsSuperuser || u.HasAnyRole(domain.ManagementRoles...)
}

// ActorID returns the user id, or nil for system callers
func (u *UserContext) ActorID() *uuid.UUID {
	if u == nil || u.UserID == uuid.Nil {
		return nil
	}
	id := u.UserID
	return &id
}

// RolesAsStrings returns roles as a string slice for logging
func (u *UserContext) RolesAsStrings() []string {
	out := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		out[i] = string(r)
	}
	return out
}
