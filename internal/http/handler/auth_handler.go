package handler

import (
	"net/http"

	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	permissions service.PermissionChecker
	logger      *zap.Logger
}

func NewAuthHandler(permissions service.PermissionChecker, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		permissions: permissions,
		logger:      logger,
	}
}

// Me handles GET /auth/me: the caller with its effective permissions
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	granted := make(map[domain.PermissionModule][]domain.PermissionAction, len(domain.PermissionModules))
	for _, module := range domain.PermissionModules {
		actions := []domain.PermissionAction{}
		for _, action := range domain.PermissionActions {
			if h.permissions.Can(r.Context(), userCtx, module, action) {
				actions = append(actions, action)
			}
		}
		granted[module] = actions
	}

	respondJSON(w, http.StatusOK, domain.AuthUserDTO{
		ID:          userCtx.UserID,
		Name:        userCtx.DisplayName,
		Email:       userCtx.Email,
		Roles:       userCtx.RolesAsStrings(),
		IsSuperuser: userCtx.IsSuperuser,
		IsSystem:    userCtx.IsSystem,
		Permissions: granted,
	})
}
