package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

// UserHandler handles user administration
type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), includeInactive(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Create handles POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create user")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// GetByID handles GET /users/{id}
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "user")
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ChangeRole handles PUT /users/{id}/role
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "user")
	if !ok {
		return
	}

	var req domain.ChangeRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.ChangeRole(r.Context(), id, req.Role)
	if err != nil {
		respondServiceError(w, h.logger, err, "change user role")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// SetActive handles PUT /users/{id}/active
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "user")
	if !ok {
		return
	}

	var req domain.SetActiveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.SetActive(r.Context(), id, *req.Active)
	if err != nil {
		respondServiceError(w, h.logger, err, "change user activation")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ListRoles handles GET /roles
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.userService.ListRoles(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list roles")
		return
	}
	respondJSON(w, http.StatusOK, roles)
}

// Permissions handles GET /users/{id}/permissions
func (h *UserHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "user")
	if !ok {
		return
	}

	perms, err := h.userService.Permissions(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "list user permissions")
		return
	}
	respondJSON(w, http.StatusOK, perms)
}

// SetPermission handles PUT /users/{id}/permissions/{module}
func (h *UserHandler) SetPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "user")
	if !ok {
		return
	}
	module := domain.PermissionModule(chi.URLParam(r, "module"))

	var req domain.PermissionOverrideRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	perm, err := h.userService.SetPermission(r.Context(), id, module, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "set user permission")
		return
	}
	respondJSON(w, http.StatusOK, perm)
}

// ClearPermission handles DELETE /users/{id}/permissions/{module}
func (h *UserHandler) ClearPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "user")
	if !ok {
		return
	}
	module := domain.PermissionModule(chi.URLParam(r, "module"))

	if err := h.userService.ClearPermission(r.Context(), id, module); err != nil {
		respondServiceError(w, h.logger, err, "clear user permission")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
